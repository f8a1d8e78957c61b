// Package access holds the credential evaluation rules and the storage
// capability that both deployments (HR directory and QR access log) provide.
package access

import (
	"strings"
	"time"
)

// Outcome is the result of evaluating a credential
type Outcome string

const (
	OutcomeGrant Outcome = "GRANT"
	OutcomeDeny  Outcome = "DENY"
)

// Reason explains an Outcome
type Reason string

const (
	ReasonGranted             Reason = "access-granted"
	ReasonNotRegistered       Reason = "not-registered"
	ReasonExpired             Reason = "expired"
	ReasonInactiveStatus      Reason = "inactive-status"
	ReasonDatabaseUnavailable Reason = "database-unavailable"
)

// StatusActive is the only holder status that may be granted access
const StatusActive = "ACTIVE"

// CredentialHolder is the subset of a directory record the engine needs
type CredentialHolder struct {
	Credential string
	FirstName  string
	LastName   string
	TeamID     *int64
	PositionID *int64
	Status     string
	CardExpiry *time.Time
}

// DisplayName returns "First Last", falling back to whichever part is set.
func (h *CredentialHolder) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(h.FirstName) + " " + strings.TrimSpace(h.LastName))
}

// Decision is the answer returned to every front end
type Decision struct {
	Credential      string            `json:"-"`
	Outcome         Outcome           `json:"outcome"`
	Authorized      bool              `json:"authorized"`
	EmployeeName    *string           `json:"employee_name"`
	Reason          Reason            `json:"reason"`
	RecordingFailed bool              `json:"recording_failed"`
	Timestamp       time.Time         `json:"timestamp"`
	Holder          *CredentialHolder `json:"-"`
}

// Evaluate decides whether holder may pass at the given instant. A nil holder
// means the credential is not registered. Expiry is checked before status.
func Evaluate(credential string, holder *CredentialHolder, now time.Time) Decision {
	d := Decision{
		Credential: credential,
		Outcome:    OutcomeDeny,
		Timestamp:  now,
		Holder:     holder,
	}

	switch {
	case holder == nil:
		d.Reason = ReasonNotRegistered
	case holder.CardExpiry != nil && dateOf(*holder.CardExpiry).Before(dateOf(now)):
		d.Reason = ReasonExpired
	case holder.Status != "" && !strings.EqualFold(holder.Status, StatusActive):
		d.Reason = ReasonInactiveStatus
	default:
		name := holder.DisplayName()
		d.Outcome = OutcomeGrant
		d.Authorized = true
		d.EmployeeName = &name
		d.Reason = ReasonGranted
	}

	return d
}

// Unavailable is the fail-closed decision used when the directory cannot be read.
func Unavailable(credential string, now time.Time) Decision {
	return Decision{
		Credential: credential,
		Outcome:    OutcomeDeny,
		Reason:     ReasonDatabaseUnavailable,
		Timestamp:  now,
	}
}

// SerialLine renders the decision in the reader line protocol: "GRANT,<name>" or "DENY".
func (d Decision) SerialLine() string {
	if d.Authorized && d.EmployeeName != nil {
		return "GRANT," + *d.EmployeeName
	}
	return "DENY"
}

// dateOf drops the clock part while keeping the calendar date of t's location.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateOf is exported for stores that key rows by calendar date.
func DateOf(t time.Time) time.Time {
	return dateOf(t)
}
