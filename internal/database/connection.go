package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/config"
)

// Queryer is satisfied by *sqlx.DB, *sqlx.Tx and *Handle
type Queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// DB is the store handle passed to every repository
type DB interface {
	Queryer
	WithTx(ctx context.Context, fn func(q Queryer) error) error
	PingContext(ctx context.Context) error
	Close() error
}

// Opener opens a fresh pool; it is called again whenever the handle is marked broken
type Opener func() (*sqlx.DB, error)

// Handle wraps a *sqlx.DB and reopens it after connection-level failures.
// Reads are retried once on a fresh pool; writes fail closed and the next
// operation reopens.
type Handle struct {
	mu     sync.RWMutex
	db     *sqlx.DB
	open   Opener
	broken bool
	logger *logrus.Logger
}

// NewHandle opens the first pool eagerly
func NewHandle(open Opener, logger *logrus.Logger) (*Handle, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	db, err := open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrDatabaseUnavailable, err)
	}
	return &Handle{db: db, open: open, logger: logger}, nil
}

// NewConnection creates the PostgreSQL handle for the HR directory
func NewConnection(cfg config.DatabaseConfig, logger *logrus.Logger) (*Handle, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	return NewHandle(PostgresOpener(cfg), logger)
}

// PostgresOpener returns an Opener that connects, configures and pings a pool
func PostgresOpener(cfg config.DatabaseConfig) Opener {
	return func() (*sqlx.DB, error) {
		// Send parameters in binary so transaction-mode poolers accept unnamed statements
		connectionURL := cfg.URL
		if strings.HasPrefix(connectionURL, "postgres") && !strings.Contains(connectionURL, "binary_parameters") {
			separator := "?"
			if strings.Contains(connectionURL, "?") {
				separator = "&"
			}
			connectionURL = connectionURL + separator + "binary_parameters=yes"
		}

		db, err := sqlx.Connect("postgres", connectionURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

		return db, nil
	}
}

// current returns the live pool, reopening it first when it was marked broken
func (h *Handle) current() (*sqlx.DB, error) {
	h.mu.RLock()
	db, broken := h.db, h.broken
	h.mu.RUnlock()
	if db != nil && !broken {
		return db, nil
	}
	return h.reopen(db)
}

// reopen replaces stale with a fresh pool unless another caller already did
func (h *Handle) reopen(stale *sqlx.DB) (*sqlx.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db != nil && h.db != stale && !h.broken {
		return h.db, nil
	}
	if h.db != nil {
		h.db.Close()
		h.db = nil
	}

	db, err := h.open()
	if err != nil {
		h.broken = true
		h.logger.WithError(err).Error("Database reconnect failed")
		return nil, fmt.Errorf("%w: %v", apperr.ErrDatabaseUnavailable, err)
	}

	h.logger.Info("Database connection re-established")
	h.db = db
	h.broken = false
	return db, nil
}

// markBroken flags db so the next operation reopens it
func (h *Handle) markBroken(db *sqlx.DB, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == db && !h.broken {
		h.broken = true
		h.logger.WithError(err).Warn("Database connection lost, will reconnect")
	}
}

// read runs op and, after a connection failure, retries it once on a reopened pool
func (h *Handle) read(op func(db *sqlx.DB) error) error {
	db, err := h.current()
	if err != nil {
		return err
	}
	err = op(db)
	if !IsConnectionError(err) {
		return err
	}
	h.markBroken(db, err)

	db, reopenErr := h.reopen(db)
	if reopenErr != nil {
		return reopenErr
	}
	err = op(db)
	if IsConnectionError(err) {
		h.markBroken(db, err)
		return fmt.Errorf("%w: %v", apperr.ErrDatabaseUnavailable, err)
	}
	return err
}

// GetContext runs a single-row query. It is retried like every read, so
// one-shot inserts with RETURNING go through WithTx instead; only the
// idempotent calendar upserts use it to write.
func (h *Handle) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return h.read(func(db *sqlx.DB) error {
		return db.GetContext(ctx, dest, query, args...)
	})
}

// SelectContext runs a multi-row query
func (h *Handle) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return h.read(func(db *sqlx.DB) error {
		return db.SelectContext(ctx, dest, query, args...)
	})
}

// ExecContext runs a statement. It is not retried.
func (h *Handle) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	db, err := h.current()
	if err != nil {
		return nil, err
	}
	result, err := db.ExecContext(ctx, query, args...)
	if IsConnectionError(err) {
		h.markBroken(db, err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrDatabaseUnavailable, err)
	}
	return result, err
}

// WithTx runs fn inside one transaction. fn's error rolls everything back.
func (h *Handle) WithTx(ctx context.Context, fn func(q Queryer) error) error {
	var tx *sqlx.Tx
	err := h.read(func(db *sqlx.DB) error {
		var beginErr error
		tx, beginErr = db.BeginTxx(ctx, nil)
		return beginErr
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return h.observeTxError(err)
	}

	if err := tx.Commit(); err != nil {
		return h.observeTxError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// observeTxError marks the pool broken when a transaction died with its connection
func (h *Handle) observeTxError(err error) error {
	if !IsConnectionError(err) {
		return err
	}
	h.mu.RLock()
	db := h.db
	h.mu.RUnlock()
	h.markBroken(db, err)
	return fmt.Errorf("%w: %v", apperr.ErrDatabaseUnavailable, err)
}

// PingContext checks the live pool, reopening it if needed
func (h *Handle) PingContext(ctx context.Context) error {
	return h.read(func(db *sqlx.DB) error {
		return db.PingContext(ctx)
	})
}

// Close closes the live pool
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

// SQLDB exposes the live *sql.DB for tools such as migrations
func (h *Handle) SQLDB() (*sql.DB, error) {
	db, err := h.current()
	if err != nil {
		return nil, err
	}
	return db.DB, nil
}
