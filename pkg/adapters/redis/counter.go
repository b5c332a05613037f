package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/kiosk/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// CounterStore implements ports.CounterStore using Redis INCR.
// Keys look like "kiosk:queue:<department>:<day>".
type CounterStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a CounterStore.
type Option func(*CounterStore)

// WithTTL sets how long a day's counter survives after its latest ticket.
func WithTTL(ttl time.Duration) Option {
	return func(s *CounterStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for counters.
func WithPrefix(prefix string) Option {
	return func(s *CounterStore) {
		s.prefix = prefix
	}
}

// NewCounterStore creates a counter store from an existing client.
func NewCounterStore(client *backend.Client, opts ...Option) *CounterStore {
	s := &CounterStore{
		client: client,
		prefix: "kiosk:queue:",
		ttl:    48 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CounterStore) key(department domain.Department, day string) string {
	return s.prefix + string(department) + ":" + day
}

// Increment bumps the counter and refreshes its expiry in one transaction.
func (s *CounterStore) Increment(ctx context.Context, department domain.Department, day string) (int, error) {
	key := s.key(department, day)

	var incr *backend.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return int(incr.Val()), nil
}

// Current returns the last value handed out, or 0.
func (s *CounterStore) Current(ctx context.Context, department domain.Department, day string) (int, error) {
	key := s.key(department, day)

	n, err := s.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return n, nil
}
