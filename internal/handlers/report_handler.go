package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/models"
	"github.com/rfidaccess/access-control-backend/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves the read-only reports and their spreadsheet exports
type ReportHandler struct {
	reports *services.ReportService
	exports *services.ExportService
	logger  *logrus.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *services.ReportService, exports *services.ExportService, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports, logger: logger}
}

// RecentEvents handles GET /api/v1/reports/recent-events?limit=
func (h *ReportHandler) RecentEvents(c *gin.Context) {
	events, err := h.reports.RecentEvents(c.Request.Context(), limitParam(c, 50, 500))
	respondList(c, h.logger, "recent_events", events, err)
}

// Roster handles GET /api/v1/reports/roster
func (h *ReportHandler) Roster(c *gin.Context) {
	employees, err := h.reports.Roster(c.Request.Context())
	respondList(c, h.logger, "roster", employees, err)
}

// Alerts handles GET /api/v1/reports/alerts?status=
func (h *ReportHandler) Alerts(c *gin.Context) {
	status, ok := statusParam(c)
	if !ok {
		return
	}
	alerts, err := h.reports.Alerts(c.Request.Context(), status)
	respondList(c, h.logger, "alert_report", alerts, err)
}

// EmployeeSummary handles GET /api/v1/reports/employees/:rfid/summary
func (h *ReportHandler) EmployeeSummary(c *gin.Context) {
	summary, err := h.reports.EmployeeSummary(c.Request.Context(), c.Param("rfid"))
	if err != nil {
		respondError(c, h.logger, "employee_summary", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Dashboard handles GET /api/v1/reports/dashboard
func (h *ReportHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrDatabaseUnavailable) {
			h.logger.WithError(err).Warn("Store unavailable, returning empty dashboard")
			c.JSON(http.StatusServiceUnavailable, models.Dashboard{})
			return
		}
		respondError(c, h.logger, "dashboard", err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// ExportRoster handles GET /api/v1/reports/export/roster
func (h *ReportHandler) ExportRoster(c *gin.Context) {
	buf, name, err := h.exports.ExportRoster(c.Request.Context())
	h.sendWorkbook(c, "export_roster", buf, name, err)
}

// ExportEvents handles GET /api/v1/reports/export/events?limit=
func (h *ReportHandler) ExportEvents(c *gin.Context) {
	buf, name, err := h.exports.ExportEvents(c.Request.Context(), limitParam(c, 0, 10000))
	h.sendWorkbook(c, "export_events", buf, name, err)
}

// ExportAlerts handles GET /api/v1/reports/export/alerts?status=
func (h *ReportHandler) ExportAlerts(c *gin.Context) {
	status, ok := statusParam(c)
	if !ok {
		return
	}
	buf, name, err := h.exports.ExportAlerts(c.Request.Context(), status)
	h.sendWorkbook(c, "export_alerts", buf, name, err)
}

func (h *ReportHandler) sendWorkbook(c *gin.Context, op string, buf *bytes.Buffer, name string, err error) {
	if err != nil {
		respondError(c, h.logger, op, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// statusParam parses the optional ?status= alert filter
func statusParam(c *gin.Context) (*models.AlertStatus, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}
	status, err := models.ParseAlertStatus(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return nil, false
	}
	return &status, true
}
