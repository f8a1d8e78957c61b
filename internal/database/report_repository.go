package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rfidaccess/access-control-backend/internal/models"
)

// ReportRepository runs the aggregate queries behind the reporting facade
type ReportRepository struct {
	db DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// EmployeeCounts holds the per-employee counters
type EmployeeCounts struct {
	TotalAlerts  int `db:"total_alerts"`
	RecentAlerts int `db:"recent_alerts"`
	TotalEvents  int `db:"total_events"`
}

// CountForEmployee counts alerts (total and since recentSince) and events for rfid
func (r *ReportRepository) CountForEmployee(ctx context.Context, rfid string, recentSince time.Time) (*EmployeeCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM alerts WHERE rfid = $1) AS total_alerts,
			(SELECT COUNT(*) FROM alerts WHERE rfid = $1 AND alert_timestamp >= $2) AS recent_alerts,
			(SELECT COUNT(*) FROM events WHERE rfid = $1) AS total_events
	`
	var counts EmployeeCounts
	if err := r.db.GetContext(ctx, &counts, query, rfid, recentSince); err != nil {
		return nil, fmt.Errorf("failed to count employee activity: %w", err)
	}
	return &counts, nil
}

// Dashboard counts directory rows, unresolved alerts and the day's events
func (r *ReportRepository) Dashboard(ctx context.Context, today time.Time) (*models.Dashboard, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM employees) AS employees,
			(SELECT COUNT(*) FROM teams) AS teams,
			(SELECT COUNT(*) FROM positions) AS positions,
			(SELECT COUNT(*) FROM alerts WHERE status IN ('NEW', 'IN_PROGRESS')) AS open_alerts,
			(SELECT COUNT(*) FROM events ev
				JOIN calendar_days d ON d.id = ev.calendar_day_id
				WHERE d.full_date = $1) AS events_today
	`
	var dashboard models.Dashboard
	if err := r.db.GetContext(ctx, &dashboard, query, models.NewCalendarDay(today).FullDate); err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}
	return &dashboard, nil
}
