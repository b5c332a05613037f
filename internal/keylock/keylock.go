// Package keylock provides per-key mutual exclusion with reference-counted cleanup.
package keylock

import (
	"context"
	"sync"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Map serializes work per key. Unrelated keys never contend, and entries are
// garbage collected as soon as no goroutine holds or waits on them.
type Map struct {
	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks
}

// New creates an empty lock map.
func New() *Map {
	return &Map{locks: make(map[string]*lockEntry)}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Map) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Map) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Lock blocks until key is held and returns the function that releases it.
func (m *Map) Lock(key string) (unlock func()) {
	entry := m.acquire(key)
	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		m.release(key)
	}
}

// WithLock executes fn while holding the lock for key.
func (m *Map) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	unlock := m.Lock(key)
	defer unlock()
	return fn(ctx)
}

// Len returns the number of keys currently held or waited on.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
