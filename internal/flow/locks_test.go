package flow

import (
	"sync"
	"testing"
)

func TestUserLocksSerializeSameUser(t *testing.T) {
	ul := newUserLocks()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := ul.Acquire("u1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("expected 50 serialized increments, got %d", counter)
	}
}

func TestUserLocksIndependentUsers(t *testing.T) {
	ul := newUserLocks()

	// Holding one user's lock must not block another user.
	unlock1 := ul.Acquire("u1")
	defer unlock1()

	done := make(chan struct{})
	go func() {
		unlock2 := ul.Acquire("u2")
		unlock2()
		close(done)
	}()
	<-done
}

func TestUserLocksReuseEntry(t *testing.T) {
	ul := newUserLocks()

	unlock := ul.Acquire("u1")
	unlock()
	unlock = ul.Acquire("u1")
	unlock()

	if len(ul.locks) != 1 {
		t.Errorf("expected a single lock entry, got %d", len(ul.locks))
	}
}
