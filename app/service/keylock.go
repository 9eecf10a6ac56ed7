package service

import "sync"

// keyLocks serializes mutations per payment id: at most one callback (live or
// replayed) may be inside its read-modify-write for a given payment at a
// time. Different payments proceed fully in parallel. Entries are reference
// counted so the map does not grow with the id space.
type keyLocks struct {
	mu      sync.Mutex
	entries map[uint64]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{entries: map[uint64]*keyLockEntry{}}
}

// Lock blocks until the per-key mutex is held and returns the release func.
func (l *keyLocks) Lock(key uint64) func() {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &keyLockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
