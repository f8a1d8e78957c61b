package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/pkg/jwt"
)

// OperatorContextKey is the key used to store the operator in the Gin context
const OperatorContextKey = "operator"

// OperatorContext represents the authenticated operator
type OperatorContext struct {
	SessionID uuid.UUID `json:"session_id"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
}

// SessionChecker reports logged-out sessions
type SessionChecker interface {
	IsSessionRevoked(sessionID uuid.UUID) bool
}

// AuthMiddleware creates a middleware that validates JWT access tokens.
// sessions may be nil.
func AuthMiddleware(jwtService *jwt.Service, sessions SessionChecker, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.WithFields(logrus.Fields{
			"path": c.Request.URL.Path,
			"ip":   c.ClientIP(),
		})

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("AUTH FAILED: Missing authorization header")
			abortUnauthorized(c, "unauthorized", "Authorization header is required", "MISSING_AUTH_HEADER")
			return
		}

		// Check Bearer token format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			log.Warn("AUTH FAILED: Invalid auth format")
			abortUnauthorized(c, "unauthorized", "Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			log.Warn("AUTH FAILED: Empty token")
			abortUnauthorized(c, "unauthorized", "Token cannot be empty", "INVALID_AUTH_FORMAT")
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			if jwt.IsExpired(err) {
				log.WithError(err).Warn("AUTH FAILED: Token expired")
				abortUnauthorized(c, "token_expired", "Access token has expired. Please refresh your token.", "TOKEN_EXPIRED")
			} else {
				log.WithError(err).Warn("AUTH FAILED: Invalid token")
				abortUnauthorized(c, "invalid_token", "Invalid access token", "INVALID_TOKEN")
			}
			return
		}

		if sessions != nil && sessions.IsSessionRevoked(claims.SessionID) {
			log.WithField("session_id", claims.SessionID).Warn("AUTH FAILED: Session revoked")
			abortUnauthorized(c, "invalid_token", "Session has been logged out", "SESSION_REVOKED")
			return
		}

		c.Set(OperatorContextKey, OperatorContext{
			SessionID: claims.SessionID,
			Username:  claims.Username,
			Roles:     claims.Roles,
		})

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, errCode, message, code string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":   errCode,
		"message": message,
		"code":    code,
	})
	c.Abort()
}

// RequireRole creates a middleware that checks if the operator has one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		operator, exists := GetOperatorContext(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Operator context not found. Auth middleware may not be applied.",
				"code":    "MISSING_OPERATOR_CONTEXT",
			})
			c.Abort()
			return
		}

		for _, required := range roles {
			for _, role := range operator.Roles {
				if role == required {
					c.Next()
					return
				}
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "You don't have permission to access this resource",
			"code":    "INSUFFICIENT_PERMISSIONS",
		})
		c.Abort()
	}
}

// GetOperatorContext retrieves the operator from the Gin context
func GetOperatorContext(c *gin.Context) (OperatorContext, bool) {
	value, exists := c.Get(OperatorContextKey)
	if !exists {
		return OperatorContext{}, false
	}

	operator, ok := value.(OperatorContext)
	if !ok {
		return OperatorContext{}, false
	}

	return operator, true
}
