package flow

import "sync"

// userLocks serializes event handling per user id. Deliveries for
// different users run in parallel; two deliveries for the same user
// must not interleave the read-modify-write of that user's session.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the given user's mutex and returns its unlock func.
// Lock entries are never reclaimed; the per-user footprint is one
// mutex, bounded by the session population.
func (ul *userLocks) Acquire(userID string) func() {
	ul.mu.Lock()
	lock, ok := ul.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		ul.locks[userID] = lock
	}
	ul.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
