// Package serialline speaks the reader line protocol: the reader writes one
// credential per line and expects "GRANT,<name>" or "DENY" back.
package serialline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/access"
	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/pkg/validator"
)

// Source is reported with every decision taken on the serial line
const Source = "serial"

// ErrCaptureInProgress is returned when CaptureNext is called while another capture waits
var ErrCaptureInProgress = errors.New("a card capture is already waiting")

// Verifier decides on a credential
type Verifier interface {
	Verify(ctx context.Context, credential, source string) (access.Decision, error)
}

// Listener reads credentials from a reader and answers each one. While a
// capture is armed the next credential is handed to the capturer instead and
// no answer is written.
type Listener struct {
	port      io.ReadWriter
	verifier  Verifier
	validator *validator.CredentialValidator
	logger    *logrus.Logger

	mu      sync.Mutex
	capture chan string
}

// NewListener creates a new Listener on port
func NewListener(port io.ReadWriter, verifier Verifier, logger *logrus.Logger) *Listener {
	return &Listener{
		port:      port,
		verifier:  verifier,
		validator: validator.NewCredentialValidator(),
		logger:    logger,
	}
}

// Run answers lines until the port reaches EOF, a read fails or ctx is done.
// A blocked read is only interrupted by closing the port.
func (l *Listener) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(l.port)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if l.deliverCapture(line) {
			l.logger.WithField("rfid", l.validator.Mask(line)).Info("Card captured for enrollment")
			continue
		}

		if err := l.answer(ctx, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("serial read failed: %w", err)
	}
	return nil
}

func (l *Listener) answer(ctx context.Context, credential string) error {
	decision, err := l.verifier.Verify(ctx, credential, Source)
	log := l.logger.WithFields(logrus.Fields{
		"rfid":    l.validator.Mask(credential),
		"outcome": decision.Outcome,
		"reason":  decision.Reason,
	})
	switch {
	case err == nil:
		log.Info("Serial decision")
	case errors.Is(err, apperr.ErrInvalidInput):
		log.WithError(err).Warn("Rejected malformed credential")
	default:
		// the decision is still a usable DENY or a GRANT that failed to record
		log.WithError(err).Error("Serial decision degraded")
	}

	if _, err := io.WriteString(l.port, decision.SerialLine()+"\n"); err != nil {
		return fmt.Errorf("serial write failed: %w", err)
	}
	return nil
}

// CaptureNext arms enrollment mode and returns the next credential read from
// the port. Only one capture may wait at a time.
func (l *Listener) CaptureNext(ctx context.Context) (string, error) {
	ch := make(chan string, 1)

	l.mu.Lock()
	if l.capture != nil {
		l.mu.Unlock()
		return "", ErrCaptureInProgress
	}
	l.capture = ch
	l.mu.Unlock()

	select {
	case credential := <-ch:
		return credential, nil
	case <-ctx.Done():
		l.mu.Lock()
		if l.capture == ch {
			l.capture = nil
		}
		l.mu.Unlock()
		// a line may have raced the cancellation
		select {
		case credential := <-ch:
			return credential, nil
		default:
		}
		return "", ctx.Err()
	}
}

// Capturing reports whether enrollment mode is armed
func (l *Listener) Capturing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capture != nil
}

func (l *Listener) deliverCapture(credential string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.capture == nil {
		return false
	}
	l.capture <- credential
	l.capture = nil
	return true
}
