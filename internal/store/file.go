package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ReelBites/ReelBites/internal/models"
)

// DefaultFlushInterval is the auto-flush period when none is configured.
// A crash loses at most one interval's worth of session updates; that is
// this store's documented durability window.
const DefaultFlushInterval = 30 * time.Second

// FileStore keeps all sessions in memory and periodically rewrites one
// JSON file wholesale. Reads and writes are served from memory; only the
// flush touches disk.
type FileStore struct {
	path     string
	interval time.Duration

	mu       sync.RWMutex
	sessions map[string]models.Session
	dirty    bool
}

// NewFileStore creates a file store and loads any existing session file.
// A missing or corrupt file starts the store empty rather than failing.
func NewFileStore(opts ...Option) (*FileStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("session file path not set")
	}

	interval := DefaultFlushInterval
	if cfg.FlushIntervalSeconds > 0 {
		interval = time.Duration(cfg.FlushIntervalSeconds) * time.Second
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session file directory: %w", err)
	}

	fs := &FileStore{
		path:     cfg.FilePath,
		interval: interval,
		sessions: make(map[string]models.Session),
	}
	fs.load()
	return fs, nil
}

// load reads the session file into memory. Never fails startup.
func (fs *FileStore) load() {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("FileStore.load: failed to read session file, starting empty", "error", err, "path", fs.path)
		}
		return
	}

	var loaded map[string]models.Session
	if err := json.Unmarshal(data, &loaded); err != nil {
		slog.Warn("FileStore.load: corrupt session file, starting empty", "error", err, "path", fs.path)
		return
	}

	// Drop records that violate the session invariants rather than
	// carrying them into the flow engine.
	for id, sess := range loaded {
		if sess.UserID == "" {
			sess.UserID = id
		}
		if err := sess.Validate(); err != nil {
			slog.Warn("FileStore.load: dropping invalid session", "error", err, "user_id", id)
			continue
		}
		fs.sessions[id] = sess
	}
	slog.Info("FileStore.load: sessions loaded", "count", len(fs.sessions), "path", fs.path)
}

// GetSession returns a copy of the stored session, or nil if absent.
func (fs *FileStore) GetSession(userID string) (*models.Session, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	sess, ok := fs.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

// SaveSession stores the session in memory and marks the file dirty.
func (fs *FileStore) SaveSession(sess models.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.sessions[sess.UserID] = sess
	fs.dirty = true
	return nil
}

// DeleteSession removes the session if present.
func (fs *FileStore) DeleteSession(userID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.sessions[userID]; ok {
		delete(fs.sessions, userID)
		fs.dirty = true
	}
	return nil
}

// ListSessions returns all sessions in unspecified order.
func (fs *FileStore) ListSessions() ([]models.Session, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make([]models.Session, 0, len(fs.sessions))
	for _, sess := range fs.sessions {
		out = append(out, sess)
	}
	return out, nil
}

// Flush rewrites the session file wholesale if anything changed since the
// last flush. The write goes through a temp file and rename so a crash
// mid-write cannot corrupt the previous snapshot.
func (fs *FileStore) Flush() error {
	fs.mu.Lock()
	if !fs.dirty {
		fs.mu.Unlock()
		return nil
	}
	snapshot := make(map[string]models.Session, len(fs.sessions))
	for id, sess := range fs.sessions {
		snapshot[id] = sess
	}
	fs.dirty = false
	fs.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	slog.Debug("FileStore.Flush: sessions flushed", "count", len(snapshot), "path", fs.path)
	return nil
}

// StartAutoFlush flushes on the configured interval until ctx is
// canceled. It performs a final flush on shutdown.
func (fs *FileStore) StartAutoFlush(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(fs.interval)
		defer ticker.Stop()
		slog.Info("FileStore.StartAutoFlush: auto-flush running", "interval", fs.interval, "path", fs.path)
		for {
			select {
			case <-ctx.Done():
				if err := fs.Flush(); err != nil {
					slog.Error("FileStore.StartAutoFlush: final flush failed", "error", err)
				}
				return
			case <-ticker.C:
				if err := fs.Flush(); err != nil {
					slog.Error("FileStore.StartAutoFlush: periodic flush failed", "error", err)
				}
			}
		}
	}()
}

// Close flushes any pending changes.
func (fs *FileStore) Close() error {
	return fs.Flush()
}
