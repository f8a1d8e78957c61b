package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rfidaccess/access-control-backend/internal/models"
)

var alertReferences = []reference{
	{table: "events", column: "alert_id", blocking: true},
}

const alertViewQuery = `
	SELECT a.id, a.alert_type, a.description, a.alert_timestamp, a.status, a.rfid, a.calendar_day_id,
		COALESCE(NULLIF(TRIM(e.first_name || ' ' || e.last_name), ''), 'Unknown') AS employee_name,
		d.full_date
	FROM alerts a
	LEFT JOIN employees e ON e.rfid = a.rfid
	JOIN calendar_days d ON d.id = a.calendar_day_id`

// AlertRepository handles database operations for alerts
type AlertRepository struct {
	db DB
}

// NewAlertRepository creates a new AlertRepository
func NewAlertRepository(db DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts an alert linked to the calendar day of its timestamp
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	err := r.db.WithTx(ctx, func(q Queryer) error {
		return insertAlert(ctx, q, alert)
	})
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert by ID, or nil when absent
func (r *AlertRepository) GetByID(ctx context.Context, id int64) (*models.Alert, error) {
	query := `
		SELECT id, alert_type, description, alert_timestamp, status, rfid, calendar_day_id
		FROM alerts
		WHERE id = $1
	`
	var alert models.Alert
	err := r.db.GetContext(ctx, &alert, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return &alert, nil
}

// List retrieves alerts newest first, optionally filtered by status
func (r *AlertRepository) List(ctx context.Context, status *models.AlertStatus) ([]models.AlertView, error) {
	alerts := []models.AlertView{}
	var err error
	if status != nil {
		err = r.db.SelectContext(ctx, &alerts,
			alertViewQuery+` WHERE a.status = $1 ORDER BY a.alert_timestamp DESC, a.id DESC`, *status)
	} else {
		err = r.db.SelectContext(ctx, &alerts,
			alertViewQuery+` ORDER BY a.alert_timestamp DESC, a.id DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// Update writes the mutable columns of alert
func (r *AlertRepository) Update(ctx context.Context, alert *models.Alert) error {
	query := `
		UPDATE alerts
		SET alert_type = $2, description = $3, status = $4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, alert.ID, alert.AlertType, alert.Description, alert.Status)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return expectOneRow(rows, "alert", alert.ID)
}

// Delete removes an alert. Linked events block the delete unless force is
// set, in which case they are detached in the same transaction.
func (r *AlertRepository) Delete(ctx context.Context, id int64, force bool) error {
	return r.db.WithTx(ctx, func(q Queryer) error {
		return deleteReferenced(ctx, q, "alert", "alerts", id, force, alertReferences)
	})
}

// insertAlert resolves the alert's calendar day and inserts it inside q
func insertAlert(ctx context.Context, q Queryer, alert *models.Alert) error {
	dayID, err := NewCalendarRepository(q).GetOrCreateDay(ctx, alert.AlertTimestamp)
	if err != nil {
		return err
	}
	alert.CalendarDayID = dayID
	return insertAlertRow(ctx, q, alert)
}

// insertAlertRow inserts alert with its CalendarDayID already resolved
func insertAlertRow(ctx context.Context, q Queryer, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (alert_type, description, alert_timestamp, status, rfid, calendar_day_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return q.GetContext(ctx, &alert.ID, query,
		alert.AlertType, alert.Description, alert.AlertTimestamp, alert.Status, alert.RFID, alert.CalendarDayID,
	)
}
