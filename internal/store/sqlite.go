// This file implements the SQLite-backed session store. Unlike the file
// store it is write-through: every mutation hits the database.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/ReelBites/ReelBites/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists sessions in an SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the SQLite database at the
// configured DSN and applies migrations.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Debug("NewSQLiteStore: database ready", "path", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

// GetSession returns the stored session, or nil if absent.
func (s *SQLiteStore) GetSession(userID string) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT user_id, reels_content, store_name, tone, location_retry_count,
		is_tone_selected, has_reel, is_store_confirmed, created_at, updated_at
		FROM sessions WHERE user_id = ?`, userID)
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
func (s *SQLiteStore) SaveSession(sess models.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO sessions
		(user_id, reels_content, store_name, tone, location_retry_count, is_tone_selected, has_reel, is_store_confirmed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			reels_content = excluded.reels_content,
			store_name = excluded.store_name,
			tone = excluded.tone,
			location_retry_count = excluded.location_retry_count,
			is_tone_selected = excluded.is_tone_selected,
			has_reel = excluded.has_reel,
			is_store_confirmed = excluded.is_store_confirmed,
			updated_at = excluded.updated_at`,
		sess.UserID, sess.ReelsContent, sess.StoreName, sess.Tone, sess.LocationRetryCount,
		sess.IsToneSelected, sess.HasReel, sess.IsStoreConfirmed, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session for %s: %w", sess.UserID, err)
	}
	return nil
}

// DeleteSession removes the session if present.
func (s *SQLiteStore) DeleteSession(userID string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete session for %s: %w", userID, err)
	}
	return nil
}

// ListSessions returns all sessions.
func (s *SQLiteStore) ListSessions() ([]models.Session, error) {
	rows, err := s.db.Query(`SELECT user_id, reels_content, store_name, tone, location_retry_count,
		is_tone_selected, has_reel, is_store_confirmed, created_at, updated_at FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
