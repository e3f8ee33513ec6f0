package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/api/middleware"
	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/gcsuploader"
	"github.com/dvloznov/mpesa-ledger/internal/jobs"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/dvloznov/mpesa-ledger/internal/pipeline"
	"github.com/dvloznov/mpesa-ledger/internal/store"
	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit      = 50
	maxListLimit          = 500
	defaultMaxUploadBytes = 10 << 20
	manualConfidence      = 1.0
)

// TransactionsConfig holds the tunables of TransactionsHandler.
type TransactionsConfig struct {
	DefaultOwner   string
	MaxUploadBytes int64
	// ArchiveRaw stores each upload through the Archiver before ingesting.
	ArchiveRaw bool
	Location   *time.Location
	Now        Clock
}

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	ingester   Ingester
	store      TransactionStore
	classifier Classifier
	publisher  jobs.Publisher
	archive    Archiver
	cache      pipeline.CacheInvalidator
	cfg        TransactionsConfig
}

// NewTransactionsHandler creates a new transactions handler. publisher,
// archive and cache may be nil.
func NewTransactionsHandler(ingester Ingester, st TransactionStore, classifier Classifier, publisher jobs.Publisher, archive Archiver, cache pipeline.CacheInvalidator, cfg TransactionsConfig) *TransactionsHandler {
	if cfg.DefaultOwner == "" {
		cfg.DefaultOwner = pipeline.DefaultOwnerID
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TransactionsHandler{
		ingester:   ingester,
		store:      st,
		classifier: classifier,
		publisher:  publisher,
		archive:    archive,
		cache:      cache,
		cfg:        cfg,
	}
}

// formatForFile infers the payload format from a file extension.
func formatForFile(name string) domain.Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return domain.FormatTabular
	case ".sms":
		return domain.FormatMessage
	default:
		return domain.FormatAuto
	}
}

// Upload handles POST /api/transactions/upload
func (h *TransactionsHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)
	owner := ownerID(c, h.cfg.DefaultOwner)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		middleware.WriteError(c, http.StatusBadRequest, "A file field named 'file' is required")
		return
	}
	if header.Size > h.cfg.MaxUploadBytes {
		middleware.WriteError(c, http.StatusRequestEntityTooLarge, "File is too large")
		return
	}

	f, err := header.Open()
	if err != nil {
		middleware.WriteError(c, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}
	defer f.Close()
	payload, err := io.ReadAll(f)
	if err != nil {
		middleware.WriteError(c, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	format := domain.ParseFormat(c.PostForm("format"))
	if format == domain.FormatAuto {
		format = formatForFile(header.Filename)
	}

	var sourceURI string
	if h.archive != nil && h.cfg.ArchiveRaw {
		object := gcsuploader.ObjectName(owner, header.Filename, h.cfg.Now())
		sourceURI, err = h.archive.UploadBytes(ctx, object, payload, header.Header.Get("Content-Type"))
		if err != nil {
			log.Warn().Err(err).Str("file_name", header.Filename).Msg("Failed to archive upload")
			sourceURI = ""
		}
	}

	if c.Query("async") == "true" {
		h.enqueue(c, owner, format, header.Filename, sourceURI, payload)
		return
	}

	report, err := h.ingester.Ingest(ctx, owner, payload, format)
	if err != nil {
		log.Error().Err(err).Msg("Failed to ingest upload")
		c.JSON(storeStatus(err), gin.H{"error": "Failed to ingest file", "report": report})
		return
	}

	middleware.WriteJSON(c, http.StatusOK, gin.H{
		"file_name":  header.Filename,
		"source_uri": sourceURI,
		"report":     report,
	})
}

func (h *TransactionsHandler) enqueue(c *gin.Context, owner string, format domain.Format, fileName, sourceURI string, payload []byte) {
	if h.publisher == nil {
		middleware.WriteError(c, http.StatusServiceUnavailable, "Async ingestion is not configured")
		return
	}

	job := &jobs.IngestJob{
		OwnerID:   owner,
		Format:    format,
		FileName:  fileName,
		SourceURI: sourceURI,
	}
	if sourceURI == "" {
		job.Payload = payload
	}

	ctx := c.Request.Context()
	if err := h.publisher.PublishIngest(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to enqueue ingest job")
		middleware.WriteError(c, http.StatusInternalServerError, "Failed to enqueue ingest job")
		return
	}

	middleware.WriteJSON(c, http.StatusAccepted, gin.H{
		"job_id": job.JobID,
		"status": job.Status,
	})
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(c *gin.Context) {
	f := store.Filter{
		OwnerID:           ownerID(c, h.cfg.DefaultOwner),
		Category:          c.Query("category"),
		UncategorizedOnly: c.Query("uncategorized") == "true",
	}

	if raw := c.Query("direction"); raw != "" {
		d, ok := domain.ParseDirection(raw)
		if !ok {
			middleware.WriteError(c, http.StatusBadRequest, "Unknown direction")
			return
		}
		f.Direction = d
	}

	var err error
	if f.Start, err = dateQuery(c, "start_date", h.cfg.Location, false); err != nil {
		middleware.WriteError(c, http.StatusBadRequest, err.Error())
		return
	}
	if f.End, err = dateQuery(c, "end_date", h.cfg.Location, true); err != nil {
		middleware.WriteError(c, http.StatusBadRequest, err.Error())
		return
	}
	if f.Limit, err = intQuery(c, "limit", defaultListLimit); err != nil {
		middleware.WriteError(c, http.StatusBadRequest, err.Error())
		return
	}
	if f.Limit == 0 || f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset, err = intQuery(c, "offset", 0); err != nil {
		middleware.WriteError(c, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := h.store.QueryByFilter(c.Request.Context(), f)
	if err != nil {
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(c, storeStatus(err), "Failed to query transactions")
		return
	}

	middleware.WriteJSON(c, http.StatusOK, gin.H{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Get handles GET /api/transactions/:code
func (h *TransactionsHandler) Get(c *gin.Context) {
	tx, err := h.store.Get(c.Request.Context(), ownerID(c, h.cfg.DefaultOwner), c.Param("code"))
	if err != nil {
		middleware.WriteError(c, storeStatus(err), "Transaction not found")
		return
	}
	middleware.WriteJSON(c, http.StatusOK, tx)
}

type categoryRequest struct {
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
}

// UpdateCategory handles PUT /api/transactions/:code/category
func (h *TransactionsHandler) UpdateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Category) == "" {
		middleware.WriteError(c, http.StatusBadRequest, "category is required")
		return
	}
	category, ok := h.classifier.Known(req.Category)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Unknown category",
			"categories": h.classifier.Categories(),
		})
		return
	}

	ctx := c.Request.Context()
	owner := ownerID(c, h.cfg.DefaultOwner)
	code := c.Param("code")
	if err := h.store.UpdateCategory(ctx, owner, code, category, strings.TrimSpace(req.SubCategory), manualConfidence); err != nil {
		middleware.WriteError(c, storeStatus(err), "Failed to update category")
		return
	}
	h.invalidate(c, owner)

	tx, err := h.store.Get(ctx, owner, code)
	if err != nil {
		middleware.WriteError(c, storeStatus(err), "Transaction not found")
		return
	}
	middleware.WriteJSON(c, http.StatusOK, tx)
}

// Categorize handles POST /api/transactions/:code/categorize
func (h *TransactionsHandler) Categorize(c *gin.Context) {
	ctx := c.Request.Context()
	owner := ownerID(c, h.cfg.DefaultOwner)

	tx, err := h.store.Get(ctx, owner, c.Param("code"))
	if err != nil {
		middleware.WriteError(c, storeStatus(err), "Transaction not found")
		return
	}

	res := h.classifier.Categorize(tx.RawDescription, tx.Direction)
	if err := h.store.UpdateCategory(ctx, owner, tx.ExternalCode, res.Category, res.SubCategory, res.Confidence); err != nil {
		middleware.WriteError(c, storeStatus(err), "Failed to update category")
		return
	}
	h.invalidate(c, owner)

	tx.Category, tx.SubCategory, tx.Confidence = res.Category, res.SubCategory, res.Confidence
	middleware.WriteJSON(c, http.StatusOK, gin.H{
		"transaction": tx,
		"result":      res,
	})
}

// BulkCategorize handles POST /api/transactions/bulk-categorize. It
// categorizes every uncategorized transaction of the owner.
func (h *TransactionsHandler) BulkCategorize(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)
	owner := ownerID(c, h.cfg.DefaultOwner)

	pending, err := h.store.QueryByFilter(ctx, store.Filter{OwnerID: owner, UncategorizedOnly: true})
	if err != nil {
		middleware.WriteError(c, storeStatus(err), "Failed to query transactions")
		return
	}

	var categorized, failed int
	for _, tx := range pending {
		res := h.classifier.Categorize(tx.RawDescription, tx.Direction)
		if err := h.store.UpdateCategory(ctx, owner, tx.ExternalCode, res.Category, res.SubCategory, res.Confidence); err != nil {
			if errors.Is(err, store.ErrUnavailable) {
				middleware.WriteError(c, http.StatusServiceUnavailable, "Store unavailable")
				return
			}
			log.Warn().Err(err).Str("external_code", tx.ExternalCode).Msg("Failed to categorize transaction")
			failed++
			continue
		}
		categorized++
	}
	if categorized > 0 {
		h.invalidate(c, owner)
	}

	middleware.WriteJSON(c, http.StatusOK, gin.H{
		"categorized": categorized,
		"failed":      failed,
		"total":       len(pending),
	})
}

func (h *TransactionsHandler) invalidate(c *gin.Context, owner string) {
	if h.cache == nil {
		return
	}
	ctx := c.Request.Context()
	if err := h.cache.InvalidateOwner(ctx, owner); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to invalidate report cache")
	}
}
