package models

import "time"

// RecentAlertWindowDays bounds the "recent alerts" count of an employee summary
const RecentAlertWindowDays = 90

// EmployeeSummary is the per-employee aggregate recomputed on every call
type EmployeeSummary struct {
	RFID         string     `json:"rfid"`
	FullName     string     `json:"full_name"`
	HireDate     *time.Time `json:"hire_date"`
	TenureYears  int        `json:"tenure_years"`
	TotalAlerts  int        `json:"total_alerts"`
	RecentAlerts int        `json:"recent_alerts"`
	TotalEvents  int        `json:"total_events"`
}

// Dashboard holds the counts shown on the administration home screen
type Dashboard struct {
	Employees   int       `json:"employees" db:"employees"`
	Teams       int       `json:"teams" db:"teams"`
	Positions   int       `json:"positions" db:"positions"`
	OpenAlerts  int       `json:"open_alerts" db:"open_alerts"`
	EventsToday int       `json:"events_today" db:"events_today"`
	GeneratedAt time.Time `json:"generated_at" db:"-"`
}

// TenureYears returns whole years between the calendar dates of hire and now
// (days / 365, floored). Each side is read in its own location, so a DATE
// column at UTC midnight compares correctly with a local now.
func TenureYears(hire, now time.Time) int {
	elapsed := NewCalendarDay(now).FullDate.Sub(NewCalendarDay(hire).FullDate)
	days := int(elapsed.Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 365
}
