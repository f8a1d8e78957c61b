// Package apperr defines the error taxonomy shared by the store, the access
// engine and every front end.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced employee, team, position, event or alert does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicateCredential indicates the credential is already registered to an employee
	ErrDuplicateCredential = errors.New("credential already registered")

	// ErrReferentialConflict indicates a delete was refused because other rows still reference the target
	ErrReferentialConflict = errors.New("record is still referenced")

	// ErrDatabaseUnavailable indicates the store connection was lost and could not be reopened
	ErrDatabaseUnavailable = errors.New("database unavailable")

	// ErrRecordingFailed indicates a decision was made but its audit rows could not be written
	ErrRecordingFailed = errors.New("failed to record access decision")

	// ErrInvalidInput indicates a request failed validation before reaching the store
	ErrInvalidInput = errors.New("invalid input")
)

// ConflictError carries the number of dependent rows that blocked a delete.
type ConflictError struct {
	Entity     string
	ID         string
	Dependent  string
	Dependents int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s is referenced by %d %s", e.Entity, e.ID, e.Dependents, e.Dependent)
}

// Unwrap lets errors.Is match ErrReferentialConflict.
func (e *ConflictError) Unwrap() error {
	return ErrReferentialConflict
}

// NotFound wraps ErrNotFound with the entity and key that were looked up.
func NotFound(entity string, key interface{}) error {
	return fmt.Errorf("%s %v: %w", entity, key, ErrNotFound)
}

// Invalid wraps ErrInvalidInput with a human-readable reason.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
