// Package lockfile guards the state directory against concurrent
// ReelBites instances.
//
// The session file is overwritten wholesale on every flush, so two
// processes sharing a state directory would silently drop each other's
// updates. An flock-based lock is released by the kernel even when the
// process dies without cleanup.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
)

// LockFileName is the lock file created inside the state directory.
const LockFileName = "reelbites.lock"

// Lock is a held state-directory lock.
type Lock struct {
	file     *os.File
	path     string
	acquired bool
}

// AcquireLock takes an exclusive lock on the state directory. It fails
// immediately when another process holds the lock.
func AcquireLock(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	lockPath := filepath.Join(stateDir, LockFileName)
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		slog.Error("AcquireLock: state directory already locked", "lock_path", lockPath, "error", err)
		return nil, &LockError{LockPath: lockPath, Cause: err}
	}

	// Record the holder for the error message of the next contender.
	fmt.Fprintf(file, "pid=%d\n", os.Getpid())
	file.Sync()

	slog.Info("AcquireLock: state directory locked", "lock_path", lockPath, "pid", os.Getpid())
	return &Lock{file: file, path: lockPath, acquired: true}, nil
}

// Release unlocks and removes the lock file. Safe to call repeatedly.
func (l *Lock) Release() error {
	if !l.acquired || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Error("Release: failed to release flock", "error", err, "lock_path", l.path)
	}
	if err := l.file.Close(); err != nil {
		slog.Error("Release: failed to close lock file", "error", err, "lock_path", l.path)
	}
	if err := os.Remove(l.path); err != nil {
		slog.Warn("Release: failed to remove lock file", "error", err, "lock_path", l.path)
	}
	l.acquired = false
	l.file = nil
	return nil
}

// LockError reports a lock held by another process.
type LockError struct {
	LockPath string
	Cause    error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("another ReelBites instance is using this state directory (lock file %s); remove the lock file only if you are sure no other instance is running", e.LockPath)
}

func (e *LockError) Unwrap() error {
	return e.Cause
}
