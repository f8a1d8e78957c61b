package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
)

const (
	// "0 5 0 * * *" = At 00:05 every day
	calendarJobSpec = "0 5 0 * * *"
	calendarJobDays = 2
	cronJobTimeout  = time.Minute

	// Every 10 minutes
	rateLimitJobSpec = "0 */10 * * * *"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron     *cron.Cron
	calendar *CalendarService
	limiter  *RateLimitService
	logger   *logrus.Logger
}

// NewCronService creates a new CronService. Either job source may be nil;
// the QR deployment has no calendar.
func NewCronService(calendar *CalendarService, limiter *RateLimitService, logger *logrus.Logger) *CronService {
	// Seconds precision, matching the job specs below
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:     c,
		calendar: calendar,
		limiter:  limiter,
		logger:   logger,
	}
}

// Start schedules the jobs, runs the calendar job once and starts the scheduler
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service")

	if s.calendar != nil {
		// Pre-create today's and tomorrow's calendar rows so the first scans of
		// the day do not race on the insert
		if _, err := s.cron.AddFunc(calendarJobSpec, s.ensureCalendarJob); err != nil {
			return fmt.Errorf("failed to schedule calendar job: %w", err)
		}
		s.logger.WithField("spec", calendarJobSpec).Info("Scheduled: ensure upcoming calendar days")

		s.ensureCalendarJob()
	}

	if s.limiter != nil {
		if _, err := s.cron.AddFunc(rateLimitJobSpec, s.cleanupRateLimitsJob); err != nil {
			return fmt.Errorf("failed to schedule rate limit cleanup: %w", err)
		}
		s.logger.WithField("spec", rateLimitJobSpec).Info("Scheduled: login rate limit cleanup")
	}

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) ensureCalendarJob() {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), cronJobTimeout)
	defer cancel()

	created, err := s.calendar.EnsureUpcoming(ctx, calendarJobDays)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to ensure calendar days")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"days":     created,
		"duration": time.Since(startTime).String(),
	}).Info("[CRON] Calendar days ensured")
}

func (s *CronService) cleanupRateLimitsJob() {
	if removed := s.limiter.CleanupExpired(); removed > 0 {
		s.logger.WithField("addresses", removed).Info("[CRON] Login rate limits cleaned up")
	}
}

// RunCalendarJobNow runs the calendar job immediately and returns how many
// days it ensured. Deployments without a calendar get apperr.ErrNotFound.
func (s *CronService) RunCalendarJobNow(ctx context.Context) (int, error) {
	if s.calendar == nil {
		return 0, apperr.NotFound("job", "calendar")
	}
	s.logger.Info("[MANUAL] Running calendar job now")

	ctx, cancel := context.WithTimeout(ctx, cronJobTimeout)
	defer cancel()
	created, err := s.calendar.EnsureUpcoming(ctx, calendarJobDays)
	if err != nil {
		return 0, fmt.Errorf("calendar job: %w", err)
	}
	return created, nil
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
