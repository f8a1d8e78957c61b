package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/access"
	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/models"
)

// maxSeedDays bounds a single seed run
const maxSeedDays = 366 * 20

// CalendarStore is the calendar persistence used by CalendarService
type CalendarStore interface {
	GetOrCreateDay(ctx context.Context, date time.Time) (int64, error)
	UpsertDay(ctx context.Context, day models.CalendarDay) (int64, error)
	ListRange(ctx context.Context, from, to time.Time) ([]models.CalendarDay, error)
}

// CalendarService maintains the calendar index outside of live recording
type CalendarService struct {
	days   CalendarStore
	logger *logrus.Logger
	now    func() time.Time
}

// NewCalendarService creates a new CalendarService
func NewCalendarService(days CalendarStore, logger *logrus.Logger) *CalendarService {
	return &CalendarService{days: days, logger: logger, now: time.Now}
}

// EnsureUpcoming creates today's row and the following days-1 rows if missing
func (s *CalendarService) EnsureUpcoming(ctx context.Context, days int) (int, error) {
	today := access.DateOf(s.now())
	for i := 0; i < days; i++ {
		if _, err := s.days.GetOrCreateDay(ctx, today.AddDate(0, 0, i)); err != nil {
			return i, err
		}
	}
	return days, nil
}

// SeedRange writes every date in [from, to] and flags the ones found in
// holidays. Existing rows get their holiday fields overwritten.
func (s *CalendarService) SeedRange(ctx context.Context, from, to time.Time, holidays HolidayTable) (int, error) {
	from, to = access.DateOf(from), access.DateOf(to)
	if to.Before(from) {
		return 0, apperr.Invalid("end date %s is before start date %s", to.Format(models.DateLayout), from.Format(models.DateLayout))
	}
	if to.Sub(from) > maxSeedDays*24*time.Hour {
		return 0, apperr.Invalid("range exceeds %d days", maxSeedDays)
	}

	count := 0
	flagged := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := models.NewCalendarDay(d)
		if desc, ok := holidays.Lookup(d); ok {
			day.IsHoliday = true
			day.HolidayDescription = desc
			flagged++
		}
		if _, err := s.days.UpsertDay(ctx, day); err != nil {
			return count, fmt.Errorf("seed stopped at %s: %w", d.Format(models.DateLayout), err)
		}
		count++
	}

	s.logger.WithFields(logrus.Fields{
		"from":     from.Format(models.DateLayout),
		"to":       to.Format(models.DateLayout),
		"days":     count,
		"holidays": flagged,
	}).Info("Calendar seeded")
	return count, nil
}

// Holidays lists the flagged days in [from, to]
func (s *CalendarService) Holidays(ctx context.Context, from, to time.Time) ([]models.CalendarDay, error) {
	days, err := s.days.ListRange(ctx, access.DateOf(from), access.DateOf(to))
	if err != nil {
		return nil, err
	}
	holidays := make([]models.CalendarDay, 0)
	for _, d := range days {
		if d.IsHoliday {
			holidays = append(holidays, d)
		}
	}
	return holidays, nil
}
