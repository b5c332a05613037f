package memory

import (
	"context"
	"sync"

	"github.com/aretw0/kiosk/pkg/domain"
)

type counterKey struct {
	department domain.Department
	day        string
}

// CounterStore implements ports.CounterStore in memory.
// Safe for concurrent use.
type CounterStore struct {
	data map[counterKey]int
	mu   sync.Mutex
}

// NewCounterStore creates an empty in-memory counter store.
func NewCounterStore() *CounterStore {
	return &CounterStore{
		data: make(map[counterKey]int),
	}
}

// Increment bumps and returns the counter.
func (s *CounterStore) Increment(ctx context.Context, department domain.Department, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := counterKey{department, day}
	s.data[k]++
	return s.data[k], nil
}

// Current returns the last value handed out.
func (s *CounterStore) Current(ctx context.Context, department domain.Department, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[counterKey{department, day}], nil
}

// Prune drops every counter whose day is not keep.
func (s *CounterStore) Prune(ctx context.Context, keep string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k := range s.data {
		if k.day != keep {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}
