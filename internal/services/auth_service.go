package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/rfidaccess/access-control-backend/internal/config"
	"github.com/rfidaccess/access-control-backend/internal/models"
	"github.com/rfidaccess/access-control-backend/pkg/jwt"
)

// ErrInvalidCredentials is returned for any failed login; it does not say
// which half was wrong
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrSessionRevoked is returned when a refresh token belongs to a logged-out session
var ErrSessionRevoked = errors.New("session has been revoked")

// AuthService authenticates the single operator account configured in the
// environment and issues JWTs for the administration API
type AuthService struct {
	operator   config.OperatorConfig
	jwtService *jwt.Service
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *logrus.Logger

	mu      sync.Mutex
	revoked map[uuid.UUID]time.Time // session -> refresh expiry
}

// NewAuthService creates a new AuthService
func NewAuthService(operator config.OperatorConfig, jwtService *jwt.Service, jwtCfg config.JWTConfig, logger *logrus.Logger) *AuthService {
	return &AuthService{
		operator:   operator,
		jwtService: jwtService,
		accessTTL:  jwtCfg.AccessTokenExpiry,
		refreshTTL: jwtCfg.RefreshTokenExpiry,
		logger:     logger,
		revoked:    make(map[uuid.UUID]time.Time),
	}
}

// Login checks the operator credentials and returns a token pair
func (s *AuthService) Login(username, password string) (*models.LoginResponse, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.operator.Username)) == 1
	// bcrypt runs for unknown usernames too
	passErr := bcrypt.CompareHashAndPassword([]byte(s.operator.PasswordHash), []byte(password))
	if !userOK || passErr != nil {
		s.logger.WithField("username", username).Warn("Operator login failed")
		return nil, ErrInvalidCredentials
	}

	sessionID := uuid.New()
	accessToken, err := s.jwtService.GenerateAccessToken(sessionID, username, []string{models.OperatorRole})
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.jwtService.GenerateRefreshToken(sessionID, username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"username": username, "session_id": sessionID}).Info("Operator logged in")

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		Username:     username,
	}, nil
}

// Refresh issues a new access token for a live session
func (s *AuthService) Refresh(refreshToken string) (*models.LoginResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}
	if s.isRevoked(claims.SessionID) {
		return nil, ErrSessionRevoked
	}
	if claims.Username != s.operator.Username {
		// operator was renamed since the token was issued
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtService.GenerateAccessToken(claims.SessionID, claims.Username, []string{models.OperatorRole})
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		Username:    claims.Username,
	}, nil
}

// Logout revokes the session of refreshToken until the token would have expired anyway
func (s *AuthService) Logout(refreshToken string) error {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}

	expiry := time.Now().Add(s.refreshTTL)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(time.Now())
	s.revoked[claims.SessionID] = expiry
	s.logger.WithField("session_id", claims.SessionID).Info("Operator logged out")
	return nil
}

// IsSessionRevoked reports whether the session of an access token was logged out
func (s *AuthService) IsSessionRevoked(sessionID uuid.UUID) bool {
	return s.isRevoked(sessionID)
}

func (s *AuthService) isRevoked(sessionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[sessionID]
	return ok
}

func (s *AuthService) pruneLocked(now time.Time) {
	for id, expiry := range s.revoked {
		if now.After(expiry) {
			delete(s.revoked, id)
		}
	}
}
