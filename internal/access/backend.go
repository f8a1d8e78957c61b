package access

import (
	"context"
	"time"
)

// Event types written by the recorder
const (
	EventAuthorized    = "AUTHORIZED"
	EventSecurityAlert = "SECURITY_ALERT"
	EventDenied        = "DENIED"
)

// Alert types raised by the recorder
const (
	AlertSecurity     = "SECURITY"
	AlertAfterHours   = "AFTER_HOURS"
	AlertExpiredCard  = "EXPIRED_CARD"
	AlertInactiveCard = "INACTIVE_CARD"
)

// EventRecord is one audit occurrence produced for a decision
type EventRecord struct {
	Type        string
	Description string
	Credential  string
	RFID        *string
	TeamID      *int64
	PositionID  *int64
	AlertID     *int64
	At          time.Time
	Outcome     Outcome
	Reason      Reason
	// HolderStatus is the stored status text behind an inactive-status denial
	HolderStatus string
}

// AlertRecord is one anomaly produced for a decision
type AlertRecord struct {
	Type        string
	Description string
	RFID        *string
	At          time.Time
}

// Recorder writes the audit rows of a single decision. All calls made through
// one Recorder belong to the same atomic unit.
type Recorder interface {
	RecordAlert(ctx context.Context, alert AlertRecord) (int64, error)
	RecordEvent(ctx context.Context, event EventRecord) (int64, error)
}

// Backend is the storage capability behind the decision engine. Lookups are
// read-only; WithinRecording commits everything fn wrote or nothing.
type Backend interface {
	LookupCredential(ctx context.Context, credential string) (*CredentialHolder, error)
	WithinRecording(ctx context.Context, fn func(Recorder) error) error
}
