// Package database is the SQLite persistence layer for reservations and
// seasonal rates. Calendar availability lives in the Redis ledger, not here.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrSeasonOverlap          = errors.New("season overlaps an existing active season")
	ErrDuplicateID            = errors.New("duplicate id")
)

// DB wraps the SQLite connection.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

// New opens the database at path and creates the schema if missing.
func New(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode and busy timeout: many workers share one file.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			guest_id TEXT NOT NULL,
			check_in TEXT NOT NULL,
			check_out TEXT NOT NULL,
			adults INTEGER NOT NULL,
			children INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			payment_status TEXT NOT NULL DEFAULT 'pending',
			nights INTEGER NOT NULL,
			base_price INTEGER NOT NULL,
			cleaning_fee INTEGER NOT NULL,
			total INTEGER NOT NULL,
			special_requests TEXT,
			provider_txn_id TEXT,
			cancelled_at DATETIME,
			cancellation_reason TEXT,
			refund_amount INTEGER,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			version INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS seasons (
			season_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			nightly_rate INTEGER NOT NULL,
			minimum_nights INTEGER NOT NULL DEFAULT 1,
			cleaning_fee INTEGER NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT 1
		)`,

		// Guest-scoped listing uses (guest_id, check_in).
		`CREATE INDEX IF NOT EXISTS idx_reservations_guest_checkin ON reservations(guest_id, check_in)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_checkout ON reservations(check_out)`,
		`CREATE INDEX IF NOT EXISTS idx_seasons_active ON seasons(active, start_date)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("exec %q: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
