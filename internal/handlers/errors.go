package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
)

// statusFor maps the error taxonomy onto HTTP
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrDuplicateCredential):
		return http.StatusConflict, "duplicate_credential"
	case errors.Is(err, apperr.ErrReferentialConflict):
		return http.StatusConflict, "referential_conflict"
	case errors.Is(err, apperr.ErrDatabaseUnavailable):
		return http.StatusServiceUnavailable, "database_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondError writes err using the taxonomy status. Unexpected errors are
// logged with op and their detail is kept out of the response.
func respondError(c *gin.Context, logger *logrus.Logger, op string, err error) {
	status, code := statusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithField("operation", op).Error("Request failed")
		message = "An unexpected error occurred"
	} else if status == http.StatusServiceUnavailable {
		logger.WithError(err).WithField("operation", op).Warn("Store unavailable")
		message = "The access database is currently unavailable"
	}

	resp := gin.H{
		"error":   code,
		"message": message,
	}
	var conflict *apperr.ConflictError
	if errors.As(err, &conflict) {
		resp["dependents"] = conflict.Dependents
		resp["hint"] = "retry with ?force=true to detach dependents"
	}
	c.JSON(status, resp)
}

// respondList writes items, or an empty list with 503 while the store is
// unavailable so screens keep rendering
func respondList[T any](c *gin.Context, logger *logrus.Logger, op string, items []T, err error) {
	if err != nil {
		if errors.Is(err, apperr.ErrDatabaseUnavailable) {
			logger.WithError(err).WithField("operation", op).Warn("Store unavailable, returning empty list")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"data":    []T{},
				"count":   0,
				"error":   "database_unavailable",
				"message": "The access database is currently unavailable",
			})
			return
		}
		respondError(c, logger, op, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid id",
		})
		return 0, false
	}
	return id, true
}

func forceParam(c *gin.Context) bool {
	force, _ := strconv.ParseBool(c.Query("force"))
	return force
}

func limitParam(c *gin.Context, fallback, max int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
