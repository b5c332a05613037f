package ports

import (
	"context"

	"github.com/aretw0/kiosk/pkg/domain"
)

// CounterStore persists queue numbers per (department, business day).
//
// The allocator serializes calls per key, so implementations only need Increment to be
// atomic with respect to other processes sharing the backend.
type CounterStore interface {
	// Increment bumps the counter for (department, day) and returns the new value.
	// The first call for a key returns 1.
	Increment(ctx context.Context, department domain.Department, day string) (int, error)

	// Current returns the last value handed out for (department, day), or 0.
	Current(ctx context.Context, department domain.Department, day string) (int, error)
}
