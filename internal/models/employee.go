package models

import (
	"errors"
	"strings"
	"time"
)

// EmployeeStatus is the card status checked by the access engine
type EmployeeStatus string

const (
	EmployeeStatusActive    EmployeeStatus = "ACTIVE"
	EmployeeStatusInactive  EmployeeStatus = "INACTIVE"
	EmployeeStatusSuspended EmployeeStatus = "SUSPENDED"
)

// IsValid reports whether s is a known status
func (s EmployeeStatus) IsValid() bool {
	switch s {
	case EmployeeStatusActive, EmployeeStatusInactive, EmployeeStatusSuspended:
		return true
	}
	return false
}

// Employee is a badge holder; RFID is the access-control key
type Employee struct {
	RFID              string         `json:"rfid" db:"rfid"`
	LastName          string         `json:"last_name" db:"last_name"`
	FirstName         string         `json:"first_name" db:"first_name"`
	BirthDate         *time.Time     `json:"birth_date,omitempty" db:"birth_date"`
	HireDate          *time.Time     `json:"hire_date,omitempty" db:"hire_date"`
	Email             string         `json:"email" db:"email"`
	Phone             string         `json:"phone" db:"phone"`
	Address           string         `json:"address" db:"address"`
	TeamID            *int64         `json:"team_id,omitempty" db:"team_id"`
	PositionID        *int64         `json:"position_id,omitempty" db:"position_id"`
	HireCalendarDayID *int64         `json:"hire_calendar_day_id,omitempty" db:"hire_calendar_day_id"`
	Status            EmployeeStatus `json:"status" db:"status"`
	CardExpiry        *time.Time     `json:"card_expiry,omitempty" db:"card_expiry"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// FullName returns "First Last"
func (e *Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// EmployeeDetail is an employee with team and position names resolved
type EmployeeDetail struct {
	Employee
	TeamName      *string `json:"team_name" db:"team_name"`
	PositionTitle *string `json:"position_title" db:"position_title"`
}

// CreateEmployeeRequest represents the request to register an employee
type CreateEmployeeRequest struct {
	RFID       string  `json:"rfid" binding:"required"`
	LastName   string  `json:"last_name" binding:"required"`
	FirstName  string  `json:"first_name" binding:"required"`
	BirthDate  string  `json:"birth_date"` // Format: YYYY-MM-DD
	HireDate   string  `json:"hire_date"`  // Format: YYYY-MM-DD
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	Address    string  `json:"address"`
	TeamID     *int64  `json:"team_id,omitempty"`
	PositionID *int64  `json:"position_id,omitempty"`
	Status     *string `json:"status,omitempty"`
	CardExpiry string  `json:"card_expiry"` // Format: YYYY-MM-DD
}

// ToEmployee validates the request and converts it to an Employee
func (req *CreateEmployeeRequest) ToEmployee() (*Employee, error) {
	if strings.TrimSpace(req.LastName) == "" || strings.TrimSpace(req.FirstName) == "" {
		return nil, errors.New("first_name and last_name are required")
	}
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		return nil, errors.New("invalid email")
	}

	emp := &Employee{
		RFID:       req.RFID,
		LastName:   req.LastName,
		FirstName:  req.FirstName,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		TeamID:     req.TeamID,
		PositionID: req.PositionID,
		Status:     EmployeeStatusActive,
	}

	if req.Status != nil && *req.Status != "" {
		status := EmployeeStatus(strings.ToUpper(*req.Status))
		if !status.IsValid() {
			return nil, errors.New("invalid status: must be ACTIVE, INACTIVE, or SUSPENDED")
		}
		emp.Status = status
	}

	var err error
	if emp.BirthDate, err = ParseDate(req.BirthDate); err != nil {
		return nil, errors.New("invalid birth_date format. Use YYYY-MM-DD")
	}
	if emp.HireDate, err = ParseDate(req.HireDate); err != nil {
		return nil, errors.New("invalid hire_date format. Use YYYY-MM-DD")
	}
	if emp.CardExpiry, err = ParseDate(req.CardExpiry); err != nil {
		return nil, errors.New("invalid card_expiry format. Use YYYY-MM-DD")
	}

	return emp, nil
}

// UpdateEmployeeRequest carries optional fields; nil or blank keeps the current value
type UpdateEmployeeRequest struct {
	LastName   *string `json:"last_name,omitempty"`
	FirstName  *string `json:"first_name,omitempty"`
	BirthDate  *string `json:"birth_date,omitempty"`
	HireDate   *string `json:"hire_date,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Address    *string `json:"address,omitempty"`
	TeamID     *int64  `json:"team_id,omitempty"`
	PositionID *int64  `json:"position_id,omitempty"`
	Status     *string `json:"status,omitempty"`
	CardExpiry *string `json:"card_expiry,omitempty"`
}

// Apply merges the supplied fields into emp and reports whether the hire date changed.
func (req *UpdateEmployeeRequest) Apply(emp *Employee) (hireDateChanged bool, err error) {
	if !Blank(req.LastName) {
		emp.LastName = *req.LastName
	}
	if !Blank(req.FirstName) {
		emp.FirstName = *req.FirstName
	}
	if !Blank(req.Email) {
		if !strings.Contains(*req.Email, "@") {
			return false, errors.New("invalid email")
		}
		emp.Email = *req.Email
	}
	if !Blank(req.Phone) {
		emp.Phone = *req.Phone
	}
	if !Blank(req.Address) {
		emp.Address = *req.Address
	}
	if req.TeamID != nil {
		emp.TeamID = req.TeamID
	}
	if req.PositionID != nil {
		emp.PositionID = req.PositionID
	}
	if !Blank(req.Status) {
		status := EmployeeStatus(strings.ToUpper(*req.Status))
		if !status.IsValid() {
			return false, errors.New("invalid status: must be ACTIVE, INACTIVE, or SUSPENDED")
		}
		emp.Status = status
	}
	if !Blank(req.BirthDate) {
		if emp.BirthDate, err = ParseDate(*req.BirthDate); err != nil {
			return false, errors.New("invalid birth_date format. Use YYYY-MM-DD")
		}
	}
	if !Blank(req.CardExpiry) {
		if emp.CardExpiry, err = ParseDate(*req.CardExpiry); err != nil {
			return false, errors.New("invalid card_expiry format. Use YYYY-MM-DD")
		}
	}
	if !Blank(req.HireDate) {
		parsed, err := ParseDate(*req.HireDate)
		if err != nil {
			return false, errors.New("invalid hire_date format. Use YYYY-MM-DD")
		}
		hireDateChanged = emp.HireDate == nil || !emp.HireDate.Equal(*parsed)
		emp.HireDate = parsed
	}

	return hireDateChanged, nil
}
