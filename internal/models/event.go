package models

import (
	"errors"
	"strings"
	"time"
)

// Event is one recorded occurrence, always linked to a calendar day
type Event struct {
	ID             int64     `json:"id" db:"id"`
	EventType      string    `json:"event_type" db:"event_type"`
	EventTimestamp time.Time `json:"event_timestamp" db:"event_timestamp"`
	Description    string    `json:"description" db:"description"`
	RFID           *string   `json:"rfid" db:"rfid"`
	TeamID         *int64    `json:"team_id" db:"team_id"`
	PositionID     *int64    `json:"position_id" db:"position_id"`
	AlertID        *int64    `json:"alert_id" db:"alert_id"`
	CalendarDayID  int64     `json:"calendar_day_id" db:"calendar_day_id"`
}

// EventView is an event with the employee name and date resolved
type EventView struct {
	Event
	EmployeeName string    `json:"employee_name" db:"employee_name"`
	FullDate     time.Time `json:"full_date" db:"full_date"`
}

// CreateEventRequest represents a manually logged event
type CreateEventRequest struct {
	EventType      string  `json:"event_type" binding:"required"`
	EventTimestamp string  `json:"event_timestamp"` // RFC3339, defaults to now
	Description    string  `json:"description"`
	RFID           *string `json:"rfid,omitempty"`
	TeamID         *int64  `json:"team_id,omitempty"`
	PositionID     *int64  `json:"position_id,omitempty"`
	AlertID        *int64  `json:"alert_id,omitempty"`
}

// ToEvent validates the request and converts it to an Event
func (req *CreateEventRequest) ToEvent(now time.Time) (*Event, error) {
	if strings.TrimSpace(req.EventType) == "" {
		return nil, errors.New("event_type is required")
	}
	at := now
	if req.EventTimestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.EventTimestamp)
		if err != nil {
			return nil, errors.New("invalid event_timestamp format. Use RFC3339")
		}
		at = parsed
	}
	rfid := req.RFID
	if Blank(rfid) {
		rfid = nil
	}
	return &Event{
		EventType:      req.EventType,
		EventTimestamp: at,
		Description:    req.Description,
		RFID:           rfid,
		TeamID:         req.TeamID,
		PositionID:     req.PositionID,
		AlertID:        req.AlertID,
	}, nil
}

// UpdateEventRequest carries optional fields; blank values keep the current one
type UpdateEventRequest struct {
	EventType      *string `json:"event_type,omitempty"`
	EventTimestamp *string `json:"event_timestamp,omitempty"`
	Description    *string `json:"description,omitempty"`
	RFID           *string `json:"rfid,omitempty"`
	TeamID         *int64  `json:"team_id,omitempty"`
	PositionID     *int64  `json:"position_id,omitempty"`
	AlertID        *int64  `json:"alert_id,omitempty"`
}

// Apply merges the supplied fields into event and reports whether the timestamp moved.
func (req *UpdateEventRequest) Apply(event *Event) (timestampChanged bool, err error) {
	if !Blank(req.EventType) {
		event.EventType = *req.EventType
	}
	if !Blank(req.Description) {
		event.Description = *req.Description
	}
	if !Blank(req.RFID) {
		rfid := *req.RFID
		event.RFID = &rfid
	}
	if req.TeamID != nil {
		event.TeamID = req.TeamID
	}
	if req.PositionID != nil {
		event.PositionID = req.PositionID
	}
	if req.AlertID != nil {
		event.AlertID = req.AlertID
	}
	if !Blank(req.EventTimestamp) {
		parsed, err := time.Parse(time.RFC3339, *req.EventTimestamp)
		if err != nil {
			return false, errors.New("invalid event_timestamp format. Use RFC3339")
		}
		timestampChanged = !parsed.Equal(event.EventTimestamp)
		event.EventTimestamp = parsed
	}
	return timestampChanged, nil
}
