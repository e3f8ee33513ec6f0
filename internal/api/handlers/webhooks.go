package handlers

import (
	"net/http"
	"strings"

	"github.com/dvloznov/mpesa-ledger/internal/api/middleware"
	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/dvloznov/mpesa-ledger/internal/pipeline"
	"github.com/gin-gonic/gin"
)

// WebhooksHandler receives forwarded M-Pesa confirmation messages.
type WebhooksHandler struct {
	ingester     Ingester
	defaultOwner string
}

// NewWebhooksHandler creates a new webhooks handler.
func NewWebhooksHandler(ingester Ingester, defaultOwner string) *WebhooksHandler {
	if defaultOwner == "" {
		defaultOwner = pipeline.DefaultOwnerID
	}
	return &WebhooksHandler{ingester: ingester, defaultOwner: defaultOwner}
}

type smsRequest struct {
	Text    string `json:"text"`
	Message string `json:"message"`
	Owner   string `json:"owner"`
}

// SMS handles POST /api/webhooks/sms
func (h *WebhooksHandler) SMS(c *gin.Context) {
	var req smsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.WriteError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = strings.TrimSpace(req.Message)
	}
	if text == "" {
		middleware.WriteError(c, http.StatusBadRequest, "SMS text required")
		return
	}

	owner := req.Owner
	if owner == "" {
		owner = ownerID(c, h.defaultOwner)
	}

	ctx := c.Request.Context()
	report, err := h.ingester.Ingest(ctx, owner, []byte(text), domain.FormatMessage)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to ingest SMS")
		middleware.WriteError(c, storeStatus(err), "Failed to store transaction")
		return
	}

	switch {
	case report.Created > 0:
		c.JSON(http.StatusCreated, gin.H{"detail": "Transaction saved", "report": report})
	case report.Duplicates > 0:
		c.JSON(http.StatusOK, gin.H{"detail": "Transaction already exists", "report": report})
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Could not parse SMS", "report": report})
	}
}
