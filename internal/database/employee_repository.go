package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/models"
)

const employeeColumns = `
	e.rfid, e.last_name, e.first_name, e.birth_date, e.hire_date, e.email, e.phone, e.address,
	e.team_id, e.position_id, e.hire_calendar_day_id, e.status, e.card_expiry, e.created_at, e.updated_at`

const employeeDetailQuery = `
	SELECT ` + employeeColumns + `,
		t.name AS team_name, p.title AS position_title
	FROM employees e
	LEFT JOIN teams t ON t.id = e.team_id
	LEFT JOIN positions p ON p.id = e.position_id`

// EmployeeRepository handles database operations for employees
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository creates a new EmployeeRepository
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create registers an employee. The hire date's calendar day is resolved in
// the same transaction. An existing rfid yields ErrDuplicateCredential.
func (r *EmployeeRepository) Create(ctx context.Context, emp *models.Employee) error {
	err := r.db.WithTx(ctx, func(q Queryer) error {
		dayID, err := hireDayID(ctx, q, emp)
		if err != nil {
			return err
		}
		emp.HireCalendarDayID = dayID

		query := `
			INSERT INTO employees (
				rfid, last_name, first_name, birth_date, hire_date, email, phone, address,
				team_id, position_id, hire_calendar_day_id, status, card_expiry
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
			)
			RETURNING created_at, updated_at
		`
		return q.GetContext(ctx, emp, query,
			emp.RFID, emp.LastName, emp.FirstName, emp.BirthDate, emp.HireDate, emp.Email, emp.Phone, emp.Address,
			emp.TeamID, emp.PositionID, emp.HireCalendarDayID, emp.Status, emp.CardExpiry,
		)
	})
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return fmt.Errorf("failed to create employee %s: %w", emp.RFID, apperr.ErrDuplicateCredential)
	case IsForeignKeyViolation(err):
		return fmt.Errorf("failed to create employee: team or position %w", apperr.ErrNotFound)
	default:
		return fmt.Errorf("failed to create employee: %w", err)
	}
}

// GetByRFID retrieves an employee by credential, or nil when absent
func (r *EmployeeRepository) GetByRFID(ctx context.Context, rfid string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees e WHERE e.rfid = $1`

	var emp models.Employee
	err := r.db.GetContext(ctx, &emp, query, rfid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &emp, nil
}

// Exists reports whether rfid is registered
func (r *EmployeeRepository) Exists(ctx context.Context, rfid string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM employees WHERE rfid = $1)`, rfid); err != nil {
		return false, fmt.Errorf("failed to check employee: %w", err)
	}
	return exists, nil
}

// GetDetail retrieves an employee with team and position names, or nil
func (r *EmployeeRepository) GetDetail(ctx context.Context, rfid string) (*models.EmployeeDetail, error) {
	var emp models.EmployeeDetail
	err := r.db.GetContext(ctx, &emp, employeeDetailQuery+` WHERE e.rfid = $1`, rfid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &emp, nil
}

// List retrieves the full roster ordered by name
func (r *EmployeeRepository) List(ctx context.Context) ([]models.EmployeeDetail, error) {
	employees := []models.EmployeeDetail{}
	err := r.db.SelectContext(ctx, &employees, employeeDetailQuery+` ORDER BY e.last_name, e.first_name, e.rfid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}

// Search matches names and team name case-insensitively and rfid by substring
func (r *EmployeeRepository) Search(ctx context.Context, term string) ([]models.EmployeeDetail, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(term)) + "%"
	query := employeeDetailQuery + `
		WHERE e.first_name ILIKE $1
		   OR e.last_name ILIKE $1
		   OR (e.first_name || ' ' || e.last_name) ILIKE $1
		   OR t.name ILIKE $1
		   OR e.rfid LIKE $1
		ORDER BY e.last_name, e.first_name, e.rfid`

	employees := []models.EmployeeDetail{}
	if err := r.db.SelectContext(ctx, &employees, query, pattern); err != nil {
		return nil, fmt.Errorf("failed to search employees: %w", err)
	}
	return employees, nil
}

// Update writes every column of emp. When relinkHireDay is set the hire
// date's calendar day is resolved again in the same transaction.
func (r *EmployeeRepository) Update(ctx context.Context, emp *models.Employee, relinkHireDay bool) error {
	err := r.db.WithTx(ctx, func(q Queryer) error {
		if relinkHireDay {
			dayID, err := hireDayID(ctx, q, emp)
			if err != nil {
				return err
			}
			emp.HireCalendarDayID = dayID
		}

		query := `
			UPDATE employees
			SET last_name = $2, first_name = $3, birth_date = $4, hire_date = $5, email = $6,
			    phone = $7, address = $8, team_id = $9, position_id = $10,
			    hire_calendar_day_id = $11, status = $12, card_expiry = $13, updated_at = NOW()
			WHERE rfid = $1
		`
		result, err := q.ExecContext(ctx, query,
			emp.RFID, emp.LastName, emp.FirstName, emp.BirthDate, emp.HireDate, emp.Email,
			emp.Phone, emp.Address, emp.TeamID, emp.PositionID,
			emp.HireCalendarDayID, emp.Status, emp.CardExpiry,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		return expectOneRow(rows, "employee", emp.RFID)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrNotFound):
		return err
	case IsForeignKeyViolation(err):
		return fmt.Errorf("failed to update employee: team or position %w", apperr.ErrNotFound)
	default:
		return fmt.Errorf("failed to update employee: %w", err)
	}
}

// Delete removes an employee. Events and alerts keep the rfid as history.
func (r *EmployeeRepository) Delete(ctx context.Context, rfid string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE rfid = $1`, rfid)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return expectOneRow(rows, "employee", rfid)
}

// hireDayID resolves the calendar day of emp's hire date inside q
func hireDayID(ctx context.Context, q Queryer, emp *models.Employee) (*int64, error) {
	if emp.HireDate == nil {
		return nil, nil
	}
	id, err := NewCalendarRepository(q).GetOrCreateDay(ctx, *emp.HireDate)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
