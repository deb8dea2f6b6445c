// Package store provides session storage backends for ReelBites.
//
// It includes an in-memory store for tests, a JSON-file store with a
// periodic flush (the original deployment model), and write-through
// SQLite and PostgreSQL stores.
package store

import (
	"sync"

	"github.com/ReelBites/ReelBites/internal/models"
)

// Store is the session persistence abstraction injected into the flow
// engine. GetSession returns (nil, nil) when the user has no session.
type Store interface {
	GetSession(userID string) (*models.Session, error)
	SaveSession(s models.Session) error
	DeleteSession(userID string) error
	ListSessions() ([]models.Session, error)
	Close() error
}

// Opts holds configuration applied by Option functions.
type Opts struct {
	// DSN is a PostgreSQL connection string or an SQLite file path.
	DSN string
	// FilePath is the JSON session file for the file store.
	FilePath string
	// FlushIntervalSeconds is the file store's auto-flush period.
	FlushIntervalSeconds int
}

// Option configures a store backend.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithJSONFile sets the session file path for the file store.
func WithJSONFile(path string) Option {
	return func(o *Opts) { o.FilePath = path }
}

// WithFlushInterval sets the file store auto-flush period in seconds.
func WithFlushInterval(seconds int) Option {
	return func(o *Opts) { o.FlushIntervalSeconds = seconds }
}

// InMemoryStore keeps sessions in a map. It is the test backend and the
// fallback when no persistence is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.Session)}
}

// GetSession returns a copy of the stored session, or nil if absent.
func (s *InMemoryStore) GetSession(userID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

// SaveSession stores the session, replacing any previous record.
func (s *InMemoryStore) SaveSession(sess models.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
	return nil
}

// DeleteSession removes the session if present.
func (s *InMemoryStore) DeleteSession(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// ListSessions returns all sessions in unspecified order.
func (s *InMemoryStore) ListSessions() ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
