package service

import (
	"sync"
	"testing"
)

func TestKeyLocksSerializeSameKey(t *testing.T) {
	locks := newKeyLocks()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(7)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Fatalf("expected 100, got %d", counter)
	}
}

func TestKeyLocksDifferentKeysDoNotBlock(t *testing.T) {
	locks := newKeyLocks()

	unlockA := locks.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock(2)
		unlockB()
		close(done)
	}()

	<-done
}

func TestKeyLocksReleaseEntries(t *testing.T) {
	locks := newKeyLocks()

	unlock := locks.Lock(1)
	unlock()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.entries) != 0 {
		t.Fatalf("expected entries to be released, got %d", len(locks.entries))
	}
}
