package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/access"
	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/config"
	"github.com/rfidaccess/access-control-backend/internal/notify"
	"github.com/rfidaccess/access-control-backend/pkg/validator"
)

// Decision sources reported with each published decision
const (
	SourceHTTP   = "http"
	SourceSerial = "serial"
	SourceMQTT   = "mqtt"
)

// AccessService turns a scanned credential into a recorded, published decision
type AccessService struct {
	backend   access.Backend
	publisher notify.Publisher
	validator *validator.CredentialValidator
	cfg       config.AccessConfig
	logger    *logrus.Logger
	now       func() time.Time
}

// NewAccessService creates a new AccessService. publisher may be nil.
func NewAccessService(backend access.Backend, publisher notify.Publisher, cfg config.AccessConfig, logger *logrus.Logger) *AccessService {
	if publisher == nil {
		publisher = notify.Discard{}
	}
	return &AccessService{
		backend:   backend,
		publisher: publisher,
		validator: validator.NewCredentialValidator(),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Verify looks the credential up, decides, records the outcome and publishes it.
//
// The returned Decision is always usable: when the directory cannot be read it
// is a DENY with reason database-unavailable and the error wraps
// apperr.ErrDatabaseUnavailable. When recording fails the decision stands,
// RecordingFailed is set and the error wraps apperr.ErrRecordingFailed.
// Only an empty credential is rejected with apperr.ErrInvalidInput; anything
// else that cannot match is recorded as an unknown credential.
func (s *AccessService) Verify(ctx context.Context, credential, source string) (access.Decision, error) {
	now := s.now()
	cred, err := s.validator.Validate(credential)
	malformed := err != nil
	if malformed {
		if errors.Is(err, validator.ErrEmptyCredential) {
			return access.Evaluate("", nil, now), apperr.Invalid("%v", err)
		}
		// enrollment rejects such values, so no holder can match; it is still
		// recorded as an unknown credential
		cred = s.validator.Printable(credential)
	}

	log := s.logger.WithFields(logrus.Fields{
		"rfid":   s.validator.Mask(cred),
		"source": source,
	})

	var holder *access.CredentialHolder
	if !malformed {
		holder, err = s.backend.LookupCredential(ctx, cred)
		if err != nil {
			decision := access.Unavailable(cred, now)
			log.WithError(err).Error("Credential lookup failed, denying")
			s.publisher.Publish(ctx, notify.NewMessage(decision, source))
			return decision, fmt.Errorf("%w: %w", apperr.ErrDatabaseUnavailable, err)
		}
	}

	decision := access.Evaluate(cred, holder, now)

	var recordErr error
	err = s.backend.WithinRecording(ctx, func(rec access.Recorder) error {
		return s.record(ctx, rec, decision)
	})
	if err != nil {
		decision.RecordingFailed = true
		recordErr = fmt.Errorf("%w: %w", apperr.ErrRecordingFailed, err)
		log.WithError(err).Error("Failed to record access decision")
	}

	log.WithFields(logrus.Fields{
		"outcome":   decision.Outcome,
		"reason":    decision.Reason,
		"malformed": malformed,
	}).Info("Access decision")

	s.publisher.Publish(ctx, notify.NewMessage(decision, source))
	return decision, recordErr
}

// record writes the alert and event rows that describe decision
func (s *AccessService) record(ctx context.Context, rec access.Recorder, decision access.Decision) error {
	cred := decision.Credential
	holder := decision.Holder
	event := access.EventRecord{
		Credential: cred,
		At:         decision.Timestamp,
		Outcome:    decision.Outcome,
		Reason:     decision.Reason,
	}

	if decision.Reason == access.ReasonNotRegistered {
		alertID, err := rec.RecordAlert(ctx, access.AlertRecord{
			Type:        access.AlertSecurity,
			Description: "Unknown RFID: " + cred,
			At:          decision.Timestamp,
		})
		if err != nil {
			return err
		}
		event.Type = access.EventSecurityAlert
		event.Description = "Unauthorized access with RFID: " + cred
		event.AlertID = alertIDRef(alertID)
		_, err = rec.RecordEvent(ctx, event)
		return err
	}

	event.RFID = &cred
	event.TeamID = holder.TeamID
	event.PositionID = holder.PositionID

	switch decision.Reason {
	case access.ReasonGranted:
		event.Type = access.EventAuthorized
		event.Description = "Door access granted"
		if s.afterHours(decision.Timestamp) {
			alertID, err := rec.RecordAlert(ctx, access.AlertRecord{
				Type:        access.AlertAfterHours,
				Description: fmt.Sprintf("After-hours access by RFID: %s at %s", cred, decision.Timestamp.Format("15:04")),
				RFID:        &cred,
				At:          decision.Timestamp,
			})
			if err != nil {
				return err
			}
			event.AlertID = alertIDRef(alertID)
		}
	case access.ReasonExpired:
		event.Type = access.EventDenied
		event.Description = "Access denied: card expired"
		alertID, err := rec.RecordAlert(ctx, access.AlertRecord{
			Type:        access.AlertExpiredCard,
			Description: "Expired card presented: " + cred,
			RFID:        &cred,
			At:          decision.Timestamp,
		})
		if err != nil {
			return err
		}
		event.AlertID = alertIDRef(alertID)
	case access.ReasonInactiveStatus:
		event.Type = access.EventDenied
		event.Description = "Access denied: card status " + holder.Status
		event.HolderStatus = holder.Status
		alertID, err := rec.RecordAlert(ctx, access.AlertRecord{
			Type:        access.AlertInactiveCard,
			Description: fmt.Sprintf("Card with status %s presented: %s", holder.Status, cred),
			RFID:        &cred,
			At:          decision.Timestamp,
		})
		if err != nil {
			return err
		}
		event.AlertID = alertIDRef(alertID)
	default:
		return fmt.Errorf("no recording rule for reason %q", decision.Reason)
	}

	_, err := rec.RecordEvent(ctx, event)
	return err
}

// afterHours reports whether at falls outside the configured workday
func (s *AccessService) afterHours(at time.Time) bool {
	if !s.cfg.AfterHoursAlerts {
		return false
	}
	hour := at.Hour()
	return hour < s.cfg.WorkdayStartHour || hour >= s.cfg.WorkdayEndHour
}

// alertIDRef returns nil for backings that do not keep alerts
func alertIDRef(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}
