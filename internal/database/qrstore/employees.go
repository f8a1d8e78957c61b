package qrstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/models"
)

const employeeColumns = `id, qr_code, name, department, card_expiry, authorized_access, status`

// Enroll registers a badge and sets its ID
func (s *Store) Enroll(ctx context.Context, emp *models.QREmployee) error {
	if emp.Status == "" {
		emp.Status = models.EmployeeStatusActive
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (qr_code, name, department, card_expiry, authorized_access, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, emp.QRCode, emp.Name, emp.Department, emp.CardExpiry, emp.AuthorizedAreas, emp.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("qr code %s: %w", emp.QRCode, apperr.ErrDuplicateCredential)
		}
		return fmt.Errorf("failed to enroll badge: %w", err)
	}
	emp.ID, err = result.LastInsertId()
	return err
}

// Get retrieves a badge holder by code, or nil when absent
func (s *Store) Get(ctx context.Context, qrCode string) (*models.QREmployee, error) {
	var emp models.QREmployee
	err := s.db.GetContext(ctx, &emp, `SELECT `+employeeColumns+` FROM employees WHERE qr_code = ?`, qrCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get badge: %w", err)
	}
	return &emp, nil
}

// List returns every badge holder ordered by name
func (s *Store) List(ctx context.Context) ([]models.QREmployee, error) {
	employees := []models.QREmployee{}
	if err := s.db.SelectContext(ctx, &employees, `SELECT `+employeeColumns+` FROM employees ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	return employees, nil
}

// UpdateStatus replaces the stored status text of a badge
func (s *Store) UpdateStatus(ctx context.Context, qrCode string, status models.EmployeeStatus) error {
	if !status.IsValid() {
		return apperr.Invalid("status must be ACTIVE, INACTIVE or SUSPENDED")
	}
	result, err := s.db.ExecContext(ctx, `UPDATE employees SET status = ? WHERE qr_code = ?`, status, qrCode)
	if err != nil {
		return fmt.Errorf("failed to update badge status: %w", err)
	}
	return expectOne(result, qrCode)
}

// Delete removes a badge; its access logs stay
func (s *Store) Delete(ctx context.Context, qrCode string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM employees WHERE qr_code = ?`, qrCode)
	if err != nil {
		return fmt.Errorf("failed to delete badge: %w", err)
	}
	return expectOne(result, qrCode)
}

// RecentLogs returns the newest access logs first, with the holder name when
// the badge is still enrolled
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]models.AccessLog, error) {
	if limit <= 0 {
		limit = 10
	}
	logs := []models.AccessLog{}
	err := s.db.SelectContext(ctx, &logs, `
		SELECT l.id, l.qr_code, l.access_time, l.access_granted, l.reason, e.name
		FROM access_logs l
		LEFT JOIN employees e ON e.qr_code = l.qr_code
		ORDER BY l.access_time DESC, l.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list access logs: %w", err)
	}
	return logs, nil
}

func expectOne(result sql.Result, qrCode string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("badge", qrCode)
	}
	return nil
}
