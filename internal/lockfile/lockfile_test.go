package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	lockPath := filepath.Join(dir, LockFileName)
	content, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("failed to read lock file: %v", err)
	}
	if len(content) == 0 {
		t.Error("expected pid recorded in lock file")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("failed to release lock: %v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("expected lock file removed after release")
	}

	// Double release is a no-op.
	if err := lock.Release(); err != nil {
		t.Errorf("second release failed: %v", err)
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("failed to release lock: %v", err)
	}

	second, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("failed to reacquire lock: %v", err)
	}
	second.Release()
}

func TestLockErrorUnwraps(t *testing.T) {
	cause := errors.New("held elsewhere")
	err := &LockError{LockPath: "/tmp/x.lock", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("expected LockError to unwrap its cause")
	}
}

func TestAcquireCreatesStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("failed to acquire lock in new directory: %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected state directory created: %v", err)
	}
}
