package models

import (
	"errors"
	"strings"
	"time"
)

// QREmployee is a badge holder in the QR access-log deployment
type QREmployee struct {
	ID              int64          `json:"id" db:"id"`
	QRCode          string         `json:"qr_code" db:"qr_code"`
	Name            string         `json:"name" db:"name"`
	Department      string         `json:"department" db:"department"`
	CardExpiry      *time.Time     `json:"card_expiry" db:"card_expiry"`
	AuthorizedAreas string         `json:"authorized_areas" db:"authorized_access"` // comma-separated
	Status          EmployeeStatus `json:"status" db:"status"`
}

// AccessLog is one decision of the QR deployment
type AccessLog struct {
	ID            int64     `json:"id" db:"id"`
	QRCode        string    `json:"qr_code" db:"qr_code"`
	AccessTime    time.Time `json:"access_time" db:"access_time"`
	AccessGranted bool      `json:"access_granted" db:"access_granted"`
	Reason        string    `json:"reason" db:"reason"`
	Name          *string   `json:"name" db:"name"`
}

// EnrollRequest registers a freshly scanned card in the QR deployment
type EnrollRequest struct {
	QRCode     string `json:"qr_code"`
	Name       string `json:"name"`
	Department string `json:"department"`
	CardExpiry string `json:"card_expiry"` // Format: YYYY-MM-DD
	Areas      string `json:"authorized_areas"`
}

// ToQREmployee validates the request and converts it to a QREmployee
func (req *EnrollRequest) ToQREmployee() (*QREmployee, error) {
	if strings.TrimSpace(req.QRCode) == "" {
		return nil, errors.New("qr_code is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("name is required")
	}
	expiry, err := ParseDate(req.CardExpiry)
	if err != nil {
		return nil, errors.New("invalid card_expiry format. Use YYYY-MM-DD")
	}
	return &QREmployee{
		QRCode:          req.QRCode,
		Name:            req.Name,
		Department:      req.Department,
		CardExpiry:      expiry,
		AuthorizedAreas: strings.TrimSpace(req.Areas),
		Status:          EmployeeStatusActive,
	}, nil
}
