// This file implements the PostgreSQL-backed session store, write-through
// like the SQLite store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	"github.com/ReelBites/ReelBites/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to the configured DSN and applies migrations.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Debug("NewPostgresStore: database ready")
	return &PostgresStore{db: db}, nil
}

// GetSession returns the stored session, or nil if absent.
func (s *PostgresStore) GetSession(userID string) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT user_id, reels_content, store_name, tone, location_retry_count,
		is_tone_selected, has_reel, is_store_confirmed, created_at, updated_at
		FROM sessions WHERE user_id = $1`, userID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session for %s: %w", userID, err)
	}
	return sess, nil
}

// SaveSession upserts the session.
func (s *PostgresStore) SaveSession(sess models.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO sessions
		(user_id, reels_content, store_name, tone, location_retry_count, is_tone_selected, has_reel, is_store_confirmed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			reels_content = EXCLUDED.reels_content,
			store_name = EXCLUDED.store_name,
			tone = EXCLUDED.tone,
			location_retry_count = EXCLUDED.location_retry_count,
			is_tone_selected = EXCLUDED.is_tone_selected,
			has_reel = EXCLUDED.has_reel,
			is_store_confirmed = EXCLUDED.is_store_confirmed,
			updated_at = EXCLUDED.updated_at`,
		sess.UserID, sess.ReelsContent, sess.StoreName, sess.Tone, sess.LocationRetryCount,
		sess.IsToneSelected, sess.HasReel, sess.IsStoreConfirmed, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session for %s: %w", sess.UserID, err)
	}
	return nil
}

// DeleteSession removes the session if present.
func (s *PostgresStore) DeleteSession(userID string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete session for %s: %w", userID, err)
	}
	return nil
}

// ListSessions returns all sessions.
func (s *PostgresStore) ListSessions() ([]models.Session, error) {
	rows, err := s.db.Query(`SELECT user_id, reels_content, store_name, tone, location_retry_count,
		is_tone_selected, has_reel, is_store_confirmed, created_at, updated_at FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// Close closes the database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
