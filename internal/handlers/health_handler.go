package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
)

// Pinger checks store liveness
type Pinger interface {
	PingContext(ctx context.Context) error
}

// JobReporter describes scheduled background jobs and runs them on demand
type JobReporter interface {
	GetJobStatus() map[string]interface{}
	RunCalendarJobNow(ctx context.Context) (int, error)
}

// HealthHandler reports service and store health
type HealthHandler struct {
	store   Pinger
	jobs    JobReporter
	backend string
	version string
	logger  *logrus.Logger
}

// NewHealthHandler creates a new health handler. jobs may be nil.
func NewHealthHandler(store Pinger, jobs JobReporter, backend, version string, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{store: store, jobs: jobs, backend: backend, version: version, logger: logger}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
			"backend":  h.backend,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "healthy",
		"backend":   h.backend,
		"version":   h.version,
		"timestamp": time.Now().Unix(),
	})
}

// Jobs handles GET /api/v1/system/jobs
func (h *HealthHandler) Jobs(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusOK, gin.H{"running": false, "job_count": 0})
		return
	}
	c.JSON(http.StatusOK, h.jobs.GetJobStatus())
}

// RunCalendarJob handles POST /api/v1/system/jobs/calendar
func (h *HealthHandler) RunCalendarJob(c *gin.Context) {
	if h.jobs == nil {
		respondError(c, h.logger, "run calendar job", apperr.NotFound("job", "calendar"))
		return
	}
	created, err := h.jobs.RunCalendarJobNow(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "run calendar job", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": "calendar", "days": created})
}
