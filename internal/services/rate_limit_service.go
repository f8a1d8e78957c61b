package services

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitService throttles failed operator logins per client address.
// Counters live in memory, so a restart clears them.
type RateLimitService struct {
	mu       sync.Mutex
	config   RateLimitConfig
	failures map[string][]time.Time
	now      func() time.Time
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxFailures int           // failed logins allowed per address
	Window      time.Duration // sliding window the failures are counted in
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxFailures: 5,
		Window:      15 * time.Minute,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(config RateLimitConfig) *RateLimitService {
	if config.MaxFailures <= 0 || config.Window <= 0 {
		config = DefaultRateLimitConfig()
	}
	return &RateLimitService{
		config:   config,
		failures: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// CheckLogin returns a *RateLimitError when ip has used up its failures
func (s *RateLimitService) CheckLogin(ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := s.recentLocked(ip)
	if len(recent) < s.config.MaxFailures {
		return nil
	}

	retryAfter := recent[0].Add(s.config.Window)
	return &RateLimitError{
		Message:    fmt.Sprintf("Too many failed logins from this address. Please try again after %s", retryAfter.Format("15:04:05")),
		RetryAfter: retryAfter,
	}
}

// RecordFailure counts one failed login for ip
func (s *RateLimitService) RecordFailure(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[ip] = append(s.recentLocked(ip), s.now())
}

// Reset clears ip after a successful login
func (s *RateLimitService) Reset(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.failures, ip)
}

// CleanupExpired drops addresses with no failure inside the window and
// returns how many were removed
func (s *RateLimitService) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for ip := range s.failures {
		if len(s.recentLocked(ip)) == 0 {
			delete(s.failures, ip)
			removed++
		}
	}
	return removed
}

// recentLocked prunes and returns the failures of ip still inside the window
func (s *RateLimitService) recentLocked(ip string) []time.Time {
	cutoff := s.now().Add(-s.config.Window)
	attempts := s.failures[ip]

	i := 0
	for i < len(attempts) && !attempts[i].After(cutoff) {
		i++
	}
	attempts = attempts[i:]
	if len(attempts) == 0 {
		delete(s.failures, ip)
		return nil
	}
	s.failures[ip] = attempts
	return attempts
}
