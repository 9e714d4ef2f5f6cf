// Package store: SQLite-backed transcript store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/juniperhq/concierge/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists turns in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite store. The DSN is a file path; missing
// parent directories are created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("store.NewSQLiteStore invoked", "dsn_set", cfg.DSN != "")

	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("store.NewSQLiteStore: failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("store.NewSQLiteStore: failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("store.NewSQLiteStore: ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("store.NewSQLiteStore: failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("store.NewSQLiteStore: migrations applied")
	return &SQLiteStore{db: db}, nil
}

// SaveTurn records one completed turn.
func (s *SQLiteStore) SaveTurn(rec models.TurnRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO turns (session_id, message, intent, response, phase, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Message, string(rec.Intent), rec.Response, string(rec.Phase), rec.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore.SaveTurn failed", "error", err, "session_id", rec.SessionID)
		return fmt.Errorf("failed to save turn: %w", err)
	}
	return nil
}

// ListTurns returns the turns of a session in insertion order.
func (s *SQLiteStore) ListTurns(sessionID string) ([]models.TurnRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, message, intent, response, phase, created_at FROM turns WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		slog.Error("SQLiteStore.ListTurns query failed", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanTurns reads TurnRecord rows. Shared with the Postgres backend.
func scanTurns(rows *sql.Rows) ([]models.TurnRecord, error) {
	var out []models.TurnRecord
	for rows.Next() {
		var rec models.TurnRecord
		var intentStr, phaseStr string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Message, &intentStr, &rec.Response, &phaseStr, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		rec.Intent = models.Intent(intentStr)
		rec.Phase = models.StateType(phaseStr)
		out = append(out, rec)
	}
	return out, rows.Err()
}
