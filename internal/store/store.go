// Package store provides storage backends for the conversation transcript.
//
// The dialogue engine itself is stateless; the store is an audit sink that
// records completed turns per session. Backends: in-memory (tests and
// dev), SQLite, and PostgreSQL.
package store

import (
	"sort"
	"sync"

	"github.com/juniperhq/concierge/internal/models"
)

// Store is the transcript persistence interface.
type Store interface {
	// SaveTurn records one completed turn.
	SaveTurn(rec models.TurnRecord) error
	// ListTurns returns the turns of a session in insertion order.
	ListTurns(sessionID string) ([]models.TurnRecord, error)
	// Close releases the backend resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore keeps turns in process memory. Safe for concurrent use.
type InMemoryStore struct {
	mu     sync.RWMutex
	turns  []models.TurnRecord
	nextID int64
}

// NewInMemoryStore creates an empty in-memory transcript store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

// SaveTurn records one completed turn.
func (s *InMemoryStore) SaveTurn(rec models.TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	s.turns = append(s.turns, rec)
	return nil
}

// ListTurns returns the turns of a session in insertion order.
func (s *InMemoryStore) ListTurns(sessionID string) ([]models.TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TurnRecord
	for _, rec := range s.turns {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
