package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rfidaccess/access-control-backend/internal/models"
)

// CalendarRepository resolves dates to calendar_days rows
type CalendarRepository struct {
	db Queryer
}

// NewCalendarRepository creates a new CalendarRepository. q may be a transaction.
func NewCalendarRepository(q Queryer) *CalendarRepository {
	return &CalendarRepository{db: q}
}

// GetOrCreateDay returns the id of the row for date's calendar day, inserting
// it when absent. Concurrent callers converge on one row through the unique
// index on full_date.
func (r *CalendarRepository) GetOrCreateDay(ctx context.Context, date time.Time) (int64, error) {
	day := models.NewCalendarDay(date)

	query := `
		INSERT INTO calendar_days (full_date, day_of_month, month, year, weekday_name, is_holiday, holiday_description)
		VALUES ($1, $2, $3, $4, $5, FALSE, '')
		ON CONFLICT (full_date) DO NOTHING
		RETURNING id
	`

	var id int64
	err := r.db.GetContext(ctx, &id, query, day.FullDate, day.DayOfMonth, day.Month, day.Year, day.WeekdayName)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to create calendar day %s: %w", day.FullDate.Format(models.DateLayout), err)
	}

	// Another writer inserted the row first
	err = r.db.GetContext(ctx, &id, `SELECT id FROM calendar_days WHERE full_date = $1`, day.FullDate)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch calendar day %s: %w", day.FullDate.Format(models.DateLayout), err)
	}
	return id, nil
}

// UpsertDay writes a seeded day including its holiday flag
func (r *CalendarRepository) UpsertDay(ctx context.Context, day models.CalendarDay) (int64, error) {
	query := `
		INSERT INTO calendar_days (full_date, day_of_month, month, year, weekday_name, is_holiday, holiday_description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (full_date) DO UPDATE
		SET is_holiday = EXCLUDED.is_holiday,
		    holiday_description = EXCLUDED.holiday_description
		RETURNING id
	`

	var id int64
	err := r.db.GetContext(ctx, &id, query,
		day.FullDate, day.DayOfMonth, day.Month, day.Year, day.WeekdayName,
		day.IsHoliday, day.HolidayDescription,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert calendar day %s: %w", day.FullDate.Format(models.DateLayout), err)
	}
	return id, nil
}

// ListRange lists the days between from and to, inclusive
func (r *CalendarRepository) ListRange(ctx context.Context, from, to time.Time) ([]models.CalendarDay, error) {
	query := `
		SELECT id, full_date, day_of_month, month, year, weekday_name, is_holiday, holiday_description
		FROM calendar_days
		WHERE full_date BETWEEN $1 AND $2
		ORDER BY full_date
	`

	days := []models.CalendarDay{}
	err := r.db.SelectContext(ctx, &days, query, models.NewCalendarDay(from).FullDate, models.NewCalendarDay(to).FullDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar days: %w", err)
	}
	return days, nil
}
