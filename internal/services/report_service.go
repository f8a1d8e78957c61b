package services

import (
	"context"
	"time"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/database"
	"github.com/rfidaccess/access-control-backend/internal/models"
)

const defaultRecentEvents = 50

// ReportStore runs the aggregate queries
type ReportStore interface {
	CountForEmployee(ctx context.Context, rfid string, recentSince time.Time) (*database.EmployeeCounts, error)
	Dashboard(ctx context.Context, today time.Time) (*models.Dashboard, error)
}

// ReportService is the read-only reporting facade. Nothing is cached; every
// call reads the store and the clock afresh.
type ReportService struct {
	reports   ReportStore
	events    EventStore
	employees EmployeeStore
	alerts    AlertStore
	now       func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(reports ReportStore, events EventStore, employees EmployeeStore, alerts AlertStore) *ReportService {
	return &ReportService{
		reports:   reports,
		events:    events,
		employees: employees,
		alerts:    alerts,
		now:       time.Now,
	}
}

// RecentEvents returns the newest events first with the employee name
// resolved ("Unknown" when the rfid matches nobody)
func (s *ReportService) RecentEvents(ctx context.Context, limit int) ([]models.EventView, error) {
	if limit <= 0 {
		limit = defaultRecentEvents
	}
	return s.events.ListRecent(ctx, limit, 0)
}

// Roster returns every employee with team and position names, by last then first name
func (s *ReportService) Roster(ctx context.Context) ([]models.EmployeeDetail, error) {
	return s.employees.List(ctx)
}

// Alerts lists alerts, optionally filtered by status
func (s *ReportService) Alerts(ctx context.Context, status *models.AlertStatus) ([]models.AlertView, error) {
	return s.alerts.List(ctx, status)
}

// EmployeeSummary computes tenure and activity counts for one employee
func (s *ReportService) EmployeeSummary(ctx context.Context, rfid string) (*models.EmployeeSummary, error) {
	emp, err := s.employees.GetByRFID(ctx, rfid)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, apperr.NotFound("employee", rfid)
	}

	now := s.now()
	counts, err := s.reports.CountForEmployee(ctx, rfid, now.AddDate(0, 0, -models.RecentAlertWindowDays))
	if err != nil {
		return nil, err
	}

	summary := &models.EmployeeSummary{
		RFID:         emp.RFID,
		FullName:     emp.FullName(),
		HireDate:     emp.HireDate,
		TotalAlerts:  counts.TotalAlerts,
		RecentAlerts: counts.RecentAlerts,
		TotalEvents:  counts.TotalEvents,
	}
	if emp.HireDate != nil {
		summary.TenureYears = models.TenureYears(*emp.HireDate, now)
	}
	return summary, nil
}

// Dashboard returns the headline counts for today
func (s *ReportService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	now := s.now()
	dashboard, err := s.reports.Dashboard(ctx, now)
	if err != nil {
		return nil, err
	}
	dashboard.GeneratedAt = now
	return dashboard, nil
}
