// Package qrstore is the SQLite store of the QR access-log deployment: a flat
// badge table and one access_logs row per decision.
package qrstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rfidaccess/access-control-backend/internal/access"
	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements access.Backend over SQLite
type Store struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// Open opens (creating if needed) the SQLite file and applies pending migrations
func Open(cfg config.QRDatabaseConfig, logger *logrus.Logger) (*Store, error) {
	dsn := cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Path, apperr.ErrDatabaseUnavailable)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases alive
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %v: %w", cfg.Path, err, apperr.ErrDatabaseUnavailable)
	}

	store := &Store{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.WithField("path", cfg.Path).Info("QR access store ready")
	return store, nil
}

func (s *Store) migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	if dirty {
		s.logger.WithField("version", version).Warn("QR store migration left in dirty state")
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// PingContext checks the database file is still reachable
func (s *Store) PingContext(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrDatabaseUnavailable, err)
	}
	return nil
}

type holderRow struct {
	QRCode     string     `db:"qr_code"`
	Name       string     `db:"name"`
	Status     string     `db:"status"`
	CardExpiry *time.Time `db:"card_expiry"`
}

// LookupCredential matches credential exactly against employees.qr_code
func (s *Store) LookupCredential(ctx context.Context, credential string) (*access.CredentialHolder, error) {
	var row holderRow
	err := s.db.GetContext(ctx, &row,
		`SELECT qr_code, name, status, card_expiry FROM employees WHERE qr_code = ?`, credential)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}
	return &access.CredentialHolder{
		Credential: row.QRCode,
		FirstName:  row.Name,
		Status:     row.Status,
		CardExpiry: row.CardExpiry,
	}, nil
}

// WithinRecording runs fn inside one SQLite transaction
func (s *Store) WithinRecording(ctx context.Context, fn func(access.Recorder) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&logRecorder{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit access log: %w", err)
	}
	return nil
}

// logRecorder keeps only the one-line outcome of each decision
type logRecorder struct {
	tx *sqlx.Tx
}

// RecordAlert is a no-op: the QR deployment has no alert table
func (r *logRecorder) RecordAlert(ctx context.Context, alert access.AlertRecord) (int64, error) {
	return 0, nil
}

func (r *logRecorder) RecordEvent(ctx context.Context, event access.EventRecord) (int64, error) {
	result, err := r.tx.ExecContext(ctx,
		`INSERT INTO access_logs (qr_code, access_time, access_granted, reason) VALUES (?, ?, ?, ?)`,
		event.Credential, event.At.UTC(), event.Outcome == access.OutcomeGrant, logReason(event),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert access log: %w", err)
	}
	return result.LastInsertId()
}

func logReason(event access.EventRecord) string {
	switch event.Reason {
	case access.ReasonGranted:
		return "Access granted"
	case access.ReasonNotRegistered:
		return "Card not registered"
	case access.ReasonExpired:
		return "Card expired"
	case access.ReasonInactiveStatus:
		return "Card status: " + event.HolderStatus
	}
	return string(event.Reason)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
