// Package store: PostgreSQL-backed transcript store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	"github.com/juniperhq/concierge/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists turns in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres store from a connection DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("store.NewPostgresStore invoked", "dsn_set", cfg.DSN != "")

	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("store.NewPostgresStore: failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("store.NewPostgresStore: ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("store.NewPostgresStore: failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("store.NewPostgresStore: migrations applied")
	return &PostgresStore{db: db}, nil
}

// SaveTurn records one completed turn.
func (s *PostgresStore) SaveTurn(rec models.TurnRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO turns (session_id, message, intent, response, phase, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.SessionID, rec.Message, string(rec.Intent), rec.Response, string(rec.Phase), rec.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore.SaveTurn failed", "error", err, "session_id", rec.SessionID)
		return fmt.Errorf("failed to save turn: %w", err)
	}
	return nil
}

// ListTurns returns the turns of a session in insertion order.
func (s *PostgresStore) ListTurns(sessionID string) ([]models.TurnRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, message, intent, response, phase, created_at FROM turns WHERE session_id = $1 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		slog.Error("PostgresStore.ListTurns query failed", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

// Close releases the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
