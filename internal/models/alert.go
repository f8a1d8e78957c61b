package models

import (
	"errors"
	"strings"
	"time"
)

// AlertStatus is a free-form workflow field; any state may follow any other
type AlertStatus string

const (
	AlertStatusNew        AlertStatus = "NEW"
	AlertStatusInProgress AlertStatus = "IN_PROGRESS"
	AlertStatusResolved   AlertStatus = "RESOLVED"
	AlertStatusClosed     AlertStatus = "CLOSED"
)

// IsValid reports whether s is one of the enumerated states
func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusNew, AlertStatusInProgress, AlertStatusResolved, AlertStatusClosed:
		return true
	}
	return false
}

// ParseAlertStatus accepts the enumerated values case-insensitively, with
// spaces or dashes in place of underscores ("In Progress", "in-progress").
func ParseAlertStatus(value string) (AlertStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	if normalized == "OPEN" {
		normalized = string(AlertStatusNew)
	}
	status := AlertStatus(normalized)
	if !status.IsValid() {
		return "", errors.New("invalid status: must be NEW, IN_PROGRESS, RESOLVED, or CLOSED")
	}
	return status, nil
}

// Alert is a recorded anomaly; RFID is absent when the credential was unknown
type Alert struct {
	ID             int64       `json:"id" db:"id"`
	AlertType      string      `json:"alert_type" db:"alert_type"`
	Description    string      `json:"description" db:"description"`
	AlertTimestamp time.Time   `json:"alert_timestamp" db:"alert_timestamp"`
	Status         AlertStatus `json:"status" db:"status"`
	RFID           *string     `json:"rfid" db:"rfid"`
	CalendarDayID  int64       `json:"calendar_day_id" db:"calendar_day_id"`
}

// AlertView is an alert with the employee name and date resolved
type AlertView struct {
	Alert
	EmployeeName string    `json:"employee_name" db:"employee_name"`
	FullDate     time.Time `json:"full_date" db:"full_date"`
}

// CreateAlertRequest represents a manually logged alert
type CreateAlertRequest struct {
	AlertType      string  `json:"alert_type" binding:"required"`
	Description    string  `json:"description"`
	AlertTimestamp string  `json:"alert_timestamp"` // RFC3339, defaults to now
	Status         string  `json:"status"`
	RFID           *string `json:"rfid,omitempty"`
}

// ToAlert validates the request and converts it to an Alert
func (req *CreateAlertRequest) ToAlert(now time.Time) (*Alert, error) {
	if strings.TrimSpace(req.AlertType) == "" {
		return nil, errors.New("alert_type is required")
	}
	status := AlertStatusNew
	if req.Status != "" {
		parsed, err := ParseAlertStatus(req.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	at := now
	if req.AlertTimestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.AlertTimestamp)
		if err != nil {
			return nil, errors.New("invalid alert_timestamp format. Use RFC3339")
		}
		at = parsed
	}
	rfid := req.RFID
	if Blank(rfid) {
		rfid = nil
	}
	return &Alert{
		AlertType:      req.AlertType,
		Description:    req.Description,
		AlertTimestamp: at,
		Status:         status,
		RFID:           rfid,
	}, nil
}

// UpdateAlertRequest carries optional fields; blank values keep the current one
type UpdateAlertRequest struct {
	AlertType   *string `json:"alert_type,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// Apply merges the supplied fields into alert.
func (req *UpdateAlertRequest) Apply(alert *Alert) error {
	if !Blank(req.AlertType) {
		alert.AlertType = *req.AlertType
	}
	if !Blank(req.Description) {
		alert.Description = *req.Description
	}
	if !Blank(req.Status) {
		status, err := ParseAlertStatus(*req.Status)
		if err != nil {
			return err
		}
		alert.Status = status
	}
	return nil
}
