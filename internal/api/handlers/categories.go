package handlers

import (
	"net/http"
	"strings"

	"github.com/dvloznov/mpesa-ledger/internal/api/middleware"
	"github.com/dvloznov/mpesa-ledger/internal/pipeline"
	"github.com/gin-gonic/gin"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	classifier   Classifier
	engine       ReportEngine
	defaultOwner string
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(classifier Classifier, engine ReportEngine, defaultOwner string) *CategoriesHandler {
	if defaultOwner == "" {
		defaultOwner = pipeline.DefaultOwnerID
	}
	return &CategoriesHandler{classifier: classifier, engine: engine, defaultOwner: defaultOwner}
}

// List handles GET /api/categories
func (h *CategoriesHandler) List(c *gin.Context) {
	categories := h.classifier.Categories()
	middleware.WriteJSON(c, http.StatusOK, gin.H{
		"categories": categories,
		"count":      len(categories),
	})
}

// Suggest handles GET /api/categories/suggest?description=
func (h *CategoriesHandler) Suggest(c *gin.Context) {
	description := strings.TrimSpace(c.Query("description"))
	if description == "" {
		middleware.WriteError(c, http.StatusBadRequest, "description is required")
		return
	}
	middleware.WriteJSON(c, http.StatusOK, gin.H{
		"description": description,
		"suggestions": h.classifier.Suggest(description),
	})
}

// Stats handles GET /api/categories/stats?days=
func (h *CategoriesHandler) Stats(c *gin.Context) {
	days, err := intQuery(c, "days", 0)
	if err != nil {
		middleware.WriteError(c, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.engine.CategoryStats(c.Request.Context(), ownerID(c, h.defaultOwner), days)
	if err != nil {
		middleware.WriteError(c, storeStatus(err), "Failed to compute category stats")
		return
	}
	middleware.WriteJSON(c, http.StatusOK, report)
}
