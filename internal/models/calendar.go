package models

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire format of every calendar date field
const DateLayout = "2006-01-02"

// CalendarDay is the per-date dimension row every dated record links to
type CalendarDay struct {
	ID                 int64     `json:"id" db:"id"`
	FullDate           time.Time `json:"full_date" db:"full_date"`
	DayOfMonth         int       `json:"day_of_month" db:"day_of_month"`
	Month              int       `json:"month" db:"month"`
	Year               int       `json:"year" db:"year"`
	WeekdayName        string    `json:"weekday_name" db:"weekday_name"`
	IsHoliday          bool      `json:"is_holiday" db:"is_holiday"`
	HolidayDescription string    `json:"holiday_description" db:"holiday_description"`
}

// NewCalendarDay derives the calendar attributes of date. The holiday flag is left unset.
func NewCalendarDay(date time.Time) CalendarDay {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return CalendarDay{
		FullDate:    d,
		DayOfMonth:  d.Day(),
		Month:       int(d.Month()),
		Year:        d.Year(),
		WeekdayName: d.Weekday().String(),
	}
}

// ParseDate parses an optional YYYY-MM-DD string. Blank input yields nil.
func ParseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, errors.New("invalid date format, use YYYY-MM-DD")
	}
	return &parsed, nil
}

// Blank reports whether an optional update field should keep the current value.
func Blank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}
