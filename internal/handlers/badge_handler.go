package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/models"
)

// BadgeStore is the badge administration of the QR deployment
type BadgeStore interface {
	Enroll(ctx context.Context, emp *models.QREmployee) error
	Get(ctx context.Context, qrCode string) (*models.QREmployee, error)
	List(ctx context.Context) ([]models.QREmployee, error)
	UpdateStatus(ctx context.Context, qrCode string, status models.EmployeeStatus) error
	Delete(ctx context.Context, qrCode string) error
	RecentLogs(ctx context.Context, limit int) ([]models.AccessLog, error)
}

// BadgeHandler serves badges and access logs when running on the QR store
type BadgeHandler struct {
	store  BadgeStore
	logger *logrus.Logger
}

// NewBadgeHandler creates a new badge handler
func NewBadgeHandler(store BadgeStore, logger *logrus.Logger) *BadgeHandler {
	return &BadgeHandler{store: store, logger: logger}
}

// Enroll handles POST /api/v1/badges
func (h *BadgeHandler) Enroll(c *gin.Context) {
	var req models.EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	emp, err := req.ToQREmployee()
	if err != nil {
		respondError(c, h.logger, "enroll_badge", apperr.Invalid("%v", err))
		return
	}
	if err := h.store.Enroll(c.Request.Context(), emp); err != nil {
		respondError(c, h.logger, "enroll_badge", err)
		return
	}
	h.logger.WithField("badge_id", emp.ID).Info("Badge enrolled")
	c.JSON(http.StatusCreated, emp)
}

// List handles GET /api/v1/badges
func (h *BadgeHandler) List(c *gin.Context) {
	badges, err := h.store.List(c.Request.Context())
	respondList(c, h.logger, "list_badges", badges, err)
}

// Get handles GET /api/v1/badges/:code
func (h *BadgeHandler) Get(c *gin.Context) {
	code := c.Param("code")
	badge, err := h.store.Get(c.Request.Context(), code)
	if err == nil && badge == nil {
		err = apperr.NotFound("badge", code)
	}
	if err != nil {
		respondError(c, h.logger, "get_badge", err)
		return
	}
	c.JSON(http.StatusOK, badge)
}

// StatusRequest changes a badge status
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PUT /api/v1/badges/:code/status
func (h *BadgeHandler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	status := models.EmployeeStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err := h.store.UpdateStatus(c.Request.Context(), c.Param("code"), status); err != nil {
		respondError(c, h.logger, "update_badge_status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Badge status updated", "status": status})
}

// Delete handles DELETE /api/v1/badges/:code
func (h *BadgeHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, h.logger, "delete_badge", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Badge deleted"})
}

// RecentLogs handles GET /api/v1/access-logs?limit=
func (h *BadgeHandler) RecentLogs(c *gin.Context) {
	logs, err := h.store.RecentLogs(c.Request.Context(), limitParam(c, 10, 500))
	respondList(c, h.logger, "recent_access_logs", logs, err)
}
