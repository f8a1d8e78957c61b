// Package notify fans decisions out to live listeners: in-process
// subscribers (the dashboard stream) and a Redis channel.
package notify

import (
	"context"
	"time"

	"github.com/rfidaccess/access-control-backend/internal/access"
)

// Message is the published form of a decision
type Message struct {
	Credential      string         `json:"credential"`
	Outcome         access.Outcome `json:"outcome"`
	Authorized      bool           `json:"authorized"`
	EmployeeName    *string        `json:"employee_name"`
	Reason          access.Reason  `json:"reason"`
	RecordingFailed bool           `json:"recording_failed"`
	Source          string         `json:"source"`
	Timestamp       time.Time      `json:"timestamp"`
}

// NewMessage builds the published form of d
func NewMessage(d access.Decision, source string) Message {
	return Message{
		Credential:      d.Credential,
		Outcome:         d.Outcome,
		Authorized:      d.Authorized,
		EmployeeName:    d.EmployeeName,
		Reason:          d.Reason,
		RecordingFailed: d.RecordingFailed,
		Source:          source,
		Timestamp:       d.Timestamp,
	}
}

// Publisher delivers decision messages. Publish must not block the caller for long.
type Publisher interface {
	Publish(ctx context.Context, msg Message)
}

// Multi publishes to every publisher in order
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, msg Message) {
	for _, p := range m {
		p.Publish(ctx, msg)
	}
}

// Discard drops every message
type Discard struct{}

func (Discard) Publish(context.Context, Message) {}
