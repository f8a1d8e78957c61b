package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/models"
	"github.com/rfidaccess/access-control-backend/internal/services"
	"github.com/rfidaccess/access-control-backend/internal/utils"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// AuthHandler handles operator authentication for the administration API
type AuthHandler struct {
	auth    *services.AuthService
	limiter *services.RateLimitService
	logger  *logrus.Logger
}

// NewAuthHandler creates a new auth handler. limiter may be nil.
func NewAuthHandler(auth *services.AuthService, limiter *services.RateLimitService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, limiter: limiter, logger: logger}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	ip := utils.GetRealIP(c)
	if h.limiter != nil {
		if err := h.limiter.CheckLogin(ip); err != nil {
			var rateErr *services.RateLimitError
			if errors.As(err, &rateErr) {
				retry := int(time.Until(rateErr.RetryAfter).Seconds()) + 1
				c.Header("Retry-After", strconv.Itoa(retry))
			}
			h.logger.WithField("ip", ip).Warn("Operator login throttled")
			c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error:   "rate_limited",
				Message: err.Error(),
			})
			return
		}
	}

	resp, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"ip":     ip,
			"device": utils.ParseUserAgent(utils.GetUserAgent(c)).DeviceType,
		}).Warn("Rejected operator login")
		if errors.Is(err, services.ErrInvalidCredentials) {
			if h.limiter != nil {
				h.limiter.RecordFailure(ip)
			}
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_credentials",
				Message: "Invalid username or password",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "login_failed",
			Message: "Failed to create session",
		})
		return
	}

	if h.limiter != nil {
		h.limiter.Reset(ip)
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	resp, err := h.auth.Refresh(req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrSessionRevoked) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "token_revoked",
				Message: "Session has been logged out",
			})
			return
		}
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired refresh token",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "refresh_token is required",
		})
		return
	}

	if err := h.auth.Logout(req.RefreshToken); err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired refresh token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
