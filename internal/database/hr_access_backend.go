package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rfidaccess/access-control-backend/internal/access"
	"github.com/rfidaccess/access-control-backend/internal/models"
)

// HRAccessBackend serves the decision engine from the HR directory
type HRAccessBackend struct {
	db DB
}

// NewHRAccessBackend creates a new HRAccessBackend
func NewHRAccessBackend(db DB) *HRAccessBackend {
	return &HRAccessBackend{db: db}
}

type holderRow struct {
	RFID       string     `db:"rfid"`
	FirstName  string     `db:"first_name"`
	LastName   string     `db:"last_name"`
	TeamID     *int64     `db:"team_id"`
	PositionID *int64     `db:"position_id"`
	Status     string     `db:"status"`
	CardExpiry *time.Time `db:"card_expiry"`
}

// LookupCredential matches credential exactly against employees.rfid
func (b *HRAccessBackend) LookupCredential(ctx context.Context, credential string) (*access.CredentialHolder, error) {
	query := `
		SELECT rfid, first_name, last_name, team_id, position_id, status, card_expiry
		FROM employees
		WHERE rfid = $1
	`
	var row holderRow
	err := b.db.GetContext(ctx, &row, query, credential)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}
	return &access.CredentialHolder{
		Credential: row.RFID,
		FirstName:  row.FirstName,
		LastName:   row.LastName,
		TeamID:     row.TeamID,
		PositionID: row.PositionID,
		Status:     row.Status,
		CardExpiry: row.CardExpiry,
	}, nil
}

// WithinRecording runs fn in one transaction so a decision's alert and
// events are committed together or not at all.
func (b *HRAccessBackend) WithinRecording(ctx context.Context, fn func(access.Recorder) error) error {
	return b.db.WithTx(ctx, func(q Queryer) error {
		return fn(&hrRecorder{q: q, days: map[string]int64{}})
	})
}

// hrRecorder writes alerts and events inside one transaction, resolving each
// calendar day once
type hrRecorder struct {
	q    Queryer
	days map[string]int64
}

func (r *hrRecorder) dayID(ctx context.Context, at time.Time) (int64, error) {
	key := at.Format(models.DateLayout)
	if id, ok := r.days[key]; ok {
		return id, nil
	}
	id, err := NewCalendarRepository(r.q).GetOrCreateDay(ctx, at)
	if err != nil {
		return 0, err
	}
	r.days[key] = id
	return id, nil
}

func (r *hrRecorder) RecordAlert(ctx context.Context, rec access.AlertRecord) (int64, error) {
	dayID, err := r.dayID(ctx, rec.At)
	if err != nil {
		return 0, err
	}
	alert := &models.Alert{
		AlertType:      rec.Type,
		Description:    rec.Description,
		AlertTimestamp: rec.At,
		Status:         models.AlertStatusNew,
		RFID:           rec.RFID,
		CalendarDayID:  dayID,
	}
	if err := insertAlertRow(ctx, r.q, alert); err != nil {
		return 0, fmt.Errorf("failed to insert alert: %w", err)
	}
	return alert.ID, nil
}

func (r *hrRecorder) RecordEvent(ctx context.Context, rec access.EventRecord) (int64, error) {
	dayID, err := r.dayID(ctx, rec.At)
	if err != nil {
		return 0, err
	}
	event := &models.Event{
		EventType:      rec.Type,
		EventTimestamp: rec.At,
		Description:    rec.Description,
		RFID:           rec.RFID,
		TeamID:         rec.TeamID,
		PositionID:     rec.PositionID,
		AlertID:        rec.AlertID,
		CalendarDayID:  dayID,
	}
	if err := insertEventRow(ctx, r.q, event); err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return event.ID, nil
}
