package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/paycore/payroll-backend/pkg/config"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/logger"
)

// TrustState reports whether the process clock is currently trusted.
// Writes are refused while the clock is unverified.
type TrustState interface {
	UsingLocalTime() bool
}

// DB wraps sqlx.DB with write gating. Every statement is classified by its
// leading keyword; write statements are refused without side effect while
// the time-trust state reports an unverified local clock. This is policy,
// not a limitation: financial rows must not be stamped with untrusted time.
type DB struct {
	*sqlx.DB
	trust  TrustState
	logger *logger.Logger
}

// New opens the local SQLite data file. The pool is capped at a single
// open connection: the store serves one interactive session at a time.
func New(cfg *config.DatabaseConfig, trust TrustState, log *logger.Logger) (*DB, error) {
	db, err := sqlx.Connect("sqlite3", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	return &DB{
		DB:     db,
		trust:  trust,
		logger: log.WithComponent("database"),
	}, nil
}

// NewWithDB wraps an existing connection. Used by tests that supply a
// mock or a pre-opened temporary database.
func NewWithDB(db *sqlx.DB, trust TrustState, log *logger.Logger) *DB {
	return &DB{
		DB:     db,
		trust:  trust,
		logger: log.WithComponent("database"),
	}
}

// guard refuses the statement when it is a write and the clock is
// untrusted. No statement is issued on refusal.
func (db *DB) guard(query string) error {
	if Classify(query) != KindWrite {
		return nil
	}
	if db.trust != nil && db.trust.UsingLocalTime() {
		db.logger.Warn().Str("statement", truncate(query, 100)).Msg("write refused under unverified local time")
		return errors.WriteRefused()
	}
	return nil
}

// ExecContext executes a statement, refusing writes under untrusted time.
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if err := db.guard(query); err != nil {
		return nil, err
	}
	res, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		db.logger.Error().Err(err).Str("statement", truncate(query, 100)).Msg("statement execution failed")
	}
	return res, err
}

// GetContext scans a single row into dest.
func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if err := db.guard(query); err != nil {
		return err
	}
	err := db.DB.GetContext(ctx, dest, query, args...)
	if err != nil && err != sql.ErrNoRows {
		db.logger.Error().Err(err).Str("statement", truncate(query, 100)).Msg("query failed")
	}
	return err
}

// SelectContext scans all rows into dest.
func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if err := db.guard(query); err != nil {
		return err
	}
	err := db.DB.SelectContext(ctx, dest, query, args...)
	if err != nil {
		db.logger.Error().Err(err).Str("statement", truncate(query, 100)).Msg("query failed")
	}
	return err
}

// Transaction executes fn within a transaction. Transactions exist to
// mutate state, so the whole transaction is refused under untrusted time.
func (db *DB) Transaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if db.trust != nil && db.trust.UsingLocalTime() {
		db.logger.Warn().Msg("transaction refused under unverified local time")
		return errors.WriteRefused()
	}

	tx, err := db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Ping checks the database connection
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Health returns the health status of the database
func (db *DB) Health(ctx context.Context) map[string]string {
	status := map[string]string{
		"status": "up",
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
	}

	return status
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
