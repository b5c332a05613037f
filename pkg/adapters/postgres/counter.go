// Package postgres stores queue counters in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aretw0/kiosk/pkg/domain"
)

// queryable is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx the store needs.
type queryable interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Schema creates the counter table.
const Schema = `
CREATE TABLE IF NOT EXISTS queue_counter (
	department   TEXT        NOT NULL,
	business_day TEXT        NOT NULL,
	last_number  INTEGER     NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (department, business_day)
)`

// CounterStore implements ports.CounterStore on a single upsert per ticket.
type CounterStore struct {
	db queryable
}

// NewCounterStore creates a store over db.
func NewCounterStore(db queryable) *CounterStore {
	return &CounterStore{db: db}
}

// Connect opens a pool for url and makes sure the schema exists.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	if err := NewCounterStore(pool).Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate applies Schema.
func (s *CounterStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create queue_counter: %w", err)
	}
	return nil
}

// Increment upserts the (department, day) row and returns the new last number.
func (s *CounterStore) Increment(ctx context.Context, department domain.Department, day string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		INSERT INTO queue_counter (department, business_day, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (department, business_day)
		DO UPDATE SET last_number = queue_counter.last_number + 1, updated_at = now()
		RETURNING last_number`,
		string(department), day).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to increment queue %s/%s: %w", department, day, err)
	}
	return n, nil
}

// Current returns the last number handed out, or 0.
func (s *CounterStore) Current(ctx context.Context, department domain.Department, day string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT last_number FROM queue_counter WHERE department = $1 AND business_day = $2`,
		string(department), day).Scan(&n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read queue %s/%s: %w", department, day, err)
	}
	return n, nil
}

// Prune deletes the counters of every day other than keep.
func (s *CounterStore) Prune(ctx context.Context, keep string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM queue_counter WHERE business_day <> $1`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune queue counters: %w", err)
	}
	return tag.RowsAffected(), nil
}
