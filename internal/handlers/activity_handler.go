package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/models"
	"github.com/rfidaccess/access-control-backend/internal/services"
)

// ActivityHandler handles manually managed events and alerts
type ActivityHandler struct {
	activity *services.ActivityService
	logger   *logrus.Logger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activity *services.ActivityService, logger *logrus.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity, logger: logger}
}

// CreateEvent handles POST /api/v1/events
func (h *ActivityHandler) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}
	event, err := h.activity.LogEvent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, "create_event", err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// ListEvents handles GET /api/v1/events?limit=&offset=
func (h *ActivityHandler) ListEvents(c *gin.Context) {
	offset, _ := strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}
	events, err := h.activity.ListEvents(c.Request.Context(), limitParam(c, 50, 500), offset)
	respondList(c, h.logger, "list_events", events, err)
}

// GetEvent handles GET /api/v1/events/:id
func (h *ActivityHandler) GetEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	event, err := h.activity.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "get_event", err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// UpdateEvent handles PUT /api/v1/events/:id
func (h *ActivityHandler) UpdateEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req models.UpdateEventRequest
	if !bindJSON(c, &req) {
		return
	}
	event, err := h.activity.UpdateEvent(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.logger, "update_event", err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// DeleteEvent handles DELETE /api/v1/events/:id
func (h *ActivityHandler) DeleteEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.activity.DeleteEvent(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, "delete_event", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}

// CreateAlert handles POST /api/v1/alerts
func (h *ActivityHandler) CreateAlert(c *gin.Context) {
	var req models.CreateAlertRequest
	if !bindJSON(c, &req) {
		return
	}
	alert, err := h.activity.CreateAlert(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, "create_alert", err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

// ListAlerts handles GET /api/v1/alerts?status=
func (h *ActivityHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.activity.ListAlerts(c.Request.Context(), c.Query("status"))
	respondList(c, h.logger, "list_alerts", alerts, err)
}

// GetAlert handles GET /api/v1/alerts/:id
func (h *ActivityHandler) GetAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	alert, err := h.activity.GetAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "get_alert", err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// UpdateAlert handles PUT /api/v1/alerts/:id
func (h *ActivityHandler) UpdateAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req models.UpdateAlertRequest
	if !bindJSON(c, &req) {
		return
	}
	alert, err := h.activity.UpdateAlert(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.logger, "update_alert", err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// DeleteAlert handles DELETE /api/v1/alerts/:id?force=
func (h *ActivityHandler) DeleteAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.activity.DeleteAlert(c.Request.Context(), id, forceParam(c)); err != nil {
		respondError(c, h.logger, "delete_alert", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alert deleted"})
}
