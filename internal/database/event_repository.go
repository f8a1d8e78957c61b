package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/models"
)

const eventViewQuery = `
	SELECT ev.id, ev.event_type, ev.event_timestamp, ev.description, ev.rfid, ev.team_id,
		ev.position_id, ev.alert_id, ev.calendar_day_id,
		COALESCE(NULLIF(TRIM(e.first_name || ' ' || e.last_name), ''), 'Unknown') AS employee_name,
		d.full_date
	FROM events ev
	LEFT JOIN employees e ON e.rfid = ev.rfid
	JOIN calendar_days d ON d.id = ev.calendar_day_id`

// EventRepository handles database operations for events
type EventRepository struct {
	db DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts an event linked to the calendar day of its timestamp
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	err := r.db.WithTx(ctx, func(q Queryer) error {
		return insertEvent(ctx, q, event)
	})
	if IsForeignKeyViolation(err) {
		return fmt.Errorf("failed to create event: team, position or alert %w", apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by ID, or nil when absent
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	query := `
		SELECT id, event_type, event_timestamp, description, rfid, team_id, position_id, alert_id, calendar_day_id
		FROM events
		WHERE id = $1
	`
	var event models.Event
	err := r.db.GetContext(ctx, &event, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

// ListRecent retrieves the newest events first with employee names resolved
func (r *EventRepository) ListRecent(ctx context.Context, limit, offset int) ([]models.EventView, error) {
	events := []models.EventView{}
	query := eventViewQuery + ` ORDER BY ev.event_timestamp DESC, ev.id DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &events, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// ListByRFID retrieves an employee's events, newest first
func (r *EventRepository) ListByRFID(ctx context.Context, rfid string, limit int) ([]models.EventView, error) {
	events := []models.EventView{}
	query := eventViewQuery + ` WHERE ev.rfid = $1 ORDER BY ev.event_timestamp DESC, ev.id DESC LIMIT $2`
	if err := r.db.SelectContext(ctx, &events, query, rfid, limit); err != nil {
		return nil, fmt.Errorf("failed to list employee events: %w", err)
	}
	return events, nil
}

// Update writes every column of event; a moved timestamp relinks its calendar day
func (r *EventRepository) Update(ctx context.Context, event *models.Event, relinkDay bool) error {
	err := r.db.WithTx(ctx, func(q Queryer) error {
		if relinkDay {
			dayID, err := NewCalendarRepository(q).GetOrCreateDay(ctx, event.EventTimestamp)
			if err != nil {
				return err
			}
			event.CalendarDayID = dayID
		}

		query := `
			UPDATE events
			SET event_type = $2, event_timestamp = $3, description = $4, rfid = $5,
			    team_id = $6, position_id = $7, alert_id = $8, calendar_day_id = $9
			WHERE id = $1
		`
		result, err := q.ExecContext(ctx, query,
			event.ID, event.EventType, event.EventTimestamp, event.Description, event.RFID,
			event.TeamID, event.PositionID, event.AlertID, event.CalendarDayID,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		return expectOneRow(rows, "event", event.ID)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrNotFound):
		return err
	case IsForeignKeyViolation(err):
		return fmt.Errorf("failed to update event: team, position or alert %w", apperr.ErrNotFound)
	default:
		return fmt.Errorf("failed to update event: %w", err)
	}
}

// Delete removes an event
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return expectOneRow(rows, "event", id)
}

// insertEvent resolves the event's calendar day and inserts it inside q
func insertEvent(ctx context.Context, q Queryer, event *models.Event) error {
	dayID, err := NewCalendarRepository(q).GetOrCreateDay(ctx, event.EventTimestamp)
	if err != nil {
		return err
	}
	event.CalendarDayID = dayID
	return insertEventRow(ctx, q, event)
}

// insertEventRow inserts event with its CalendarDayID already resolved
func insertEventRow(ctx context.Context, q Queryer, event *models.Event) error {
	query := `
		INSERT INTO events (
			event_type, event_timestamp, description, rfid, team_id, position_id, alert_id, calendar_day_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return q.GetContext(ctx, &event.ID, query,
		event.EventType, event.EventTimestamp, event.Description, event.RFID,
		event.TeamID, event.PositionID, event.AlertID, event.CalendarDayID,
	)
}
