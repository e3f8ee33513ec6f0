package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/api/middleware"
	"github.com/dvloznov/mpesa-ledger/internal/jobs"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/gin-gonic/gin"
)

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore) *JobsHandler {
	return &JobsHandler{store: store}
}

// GetJob handles GET /api/jobs/:id
func (h *JobsHandler) GetJob(c *gin.Context) {
	job, err := h.store.GetJob(c.Request.Context(), c.Param("id"))
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(c, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		middleware.WriteError(c, http.StatusInternalServerError, "Failed to get job")
		return
	}
	middleware.WriteJSON(c, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(c *gin.Context) {
	filter := jobs.JobFilter{
		OwnerID: c.Query("owner"),
		Status:  jobs.JobStatus(c.Query("status")),
	}
	var err error
	if filter.Limit, err = intQuery(c, "limit", 0); err != nil {
		middleware.WriteError(c, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Offset, err = intQuery(c, "offset", 0); err != nil {
		middleware.WriteError(c, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.store.ListJobs(c.Request.Context(), filter)
	if err != nil {
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(c, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(c, http.StatusOK, gin.H{
		"jobs":  list,
		"count": len(list),
	})
}

// Health handles GET /health
func Health(c *gin.Context) {
	middleware.WriteJSON(c, http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
