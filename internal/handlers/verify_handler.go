package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/access"
	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/notify"
	"github.com/rfidaccess/access-control-backend/internal/services"
)

// Verifier decides on a presented credential
type Verifier interface {
	Verify(ctx context.Context, credential, source string) (access.Decision, error)
}

// Subscriber hands out live decision streams
type Subscriber interface {
	Subscribe() (<-chan notify.Message, func())
}

const streamKeepAlive = 25 * time.Second

// VerifyHandler serves the reader-facing endpoints
type VerifyHandler struct {
	verifier  Verifier
	decisions Subscriber
	logger    *logrus.Logger
}

// NewVerifyHandler creates a new verify handler. decisions may be nil, in
// which case the stream endpoint answers 404.
func NewVerifyHandler(verifier Verifier, decisions Subscriber, logger *logrus.Logger) *VerifyHandler {
	return &VerifyHandler{verifier: verifier, decisions: decisions, logger: logger}
}

// Verify handles GET /verify?rfid=
//
// Readers only understand the two plain-text answers, so every outcome maps
// onto "authorized" or "unauthorized".
func (h *VerifyHandler) Verify(c *gin.Context) {
	credential, ok := c.GetQuery("rfid")
	if !ok || credential == "" {
		c.String(http.StatusBadRequest, "missing rfid parameter")
		return
	}

	decision, err := h.verifier.Verify(c.Request.Context(), credential, services.SourceHTTP)
	switch {
	case err == nil || errors.Is(err, apperr.ErrRecordingFailed):
	case errors.Is(err, apperr.ErrDatabaseUnavailable):
		c.String(http.StatusServiceUnavailable, "unauthorized")
		return
	case errors.Is(err, apperr.ErrInvalidInput):
		c.String(http.StatusBadRequest, "unauthorized")
		return
	default:
		h.logger.WithError(err).Error("Verification failed")
		c.String(http.StatusInternalServerError, "unauthorized")
		return
	}

	if decision.Authorized {
		c.String(http.StatusOK, "authorized")
		return
	}
	c.String(http.StatusOK, "unauthorized")
}

// VerifyResponse is the structured verification answer
type VerifyResponse struct {
	Authorized      bool          `json:"authorized"`
	EmployeeName    *string       `json:"employee_name"`
	Reason          access.Reason `json:"reason"`
	RecordingFailed bool          `json:"recording_failed"`
	Timestamp       time.Time     `json:"timestamp"`
}

// VerifyJSON handles GET /api/v1/access/verify?rfid=
func (h *VerifyHandler) VerifyJSON(c *gin.Context) {
	credential := c.Query("rfid")
	if credential == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "rfid query parameter is required",
		})
		return
	}

	decision, err := h.verifier.Verify(c.Request.Context(), credential, services.SourceHTTP)
	resp := VerifyResponse{
		Authorized:      decision.Authorized,
		EmployeeName:    decision.EmployeeName,
		Reason:          decision.Reason,
		RecordingFailed: decision.RecordingFailed,
		Timestamp:       decision.Timestamp,
	}

	switch {
	case err == nil || errors.Is(err, apperr.ErrRecordingFailed):
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, apperr.ErrDatabaseUnavailable):
		c.JSON(http.StatusServiceUnavailable, resp)
	default:
		respondError(c, h.logger, "verify", err)
	}
}

// Stream handles GET /api/v1/access/stream as Server-Sent Events
func (h *VerifyHandler) Stream(c *gin.Context) {
	if h.decisions == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Decision stream is not enabled",
		})
		return
	}

	messages, cancel := h.decisions.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	h.logger.WithField("ip", c.ClientIP()).Info("Decision stream opened")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.SSEvent("decision", msg)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			return true
		}
	})
	h.logger.WithField("ip", c.ClientIP()).Info("Decision stream closed")
}

// Status handles GET /status
func (h *VerifyHandler) Status(c *gin.Context) {
	c.String(http.StatusOK, "running")
}
