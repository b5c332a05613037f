package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/kiosk/internal/logging"
	"github.com/aretw0/kiosk/pkg/domain"
	"github.com/aretw0/kiosk/pkg/ports"
)

// DefaultBuffer is the dispatcher queue size used when none is given.
const DefaultBuffer = 256

// Dispatcher is an asynchronous AuditSink. Record never blocks: when the buffer is full
// the record is dropped and counted, the same policy slow SSE clients get.
type Dispatcher struct {
	next    ports.AuditSink
	queue   chan domain.AuditRecord
	timeout time.Duration
	logger  *slog.Logger
	onDrop  func()

	dropped atomic.Int64
	failed  atomic.Int64

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger configures a logger for the Dispatcher.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithDeliveryTimeout bounds each call to the wrapped sink.
func WithDeliveryTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.timeout = t
	}
}

// WithDropHook is called every time a record is dropped.
func WithDropHook(fn func()) DispatcherOption {
	return func(d *Dispatcher) {
		d.onDrop = fn
	}
}

// NewDispatcher starts a dispatcher that delivers to next from a single goroutine.
func NewDispatcher(next ports.AuditSink, buffer int, opts ...DispatcherOption) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	d := &Dispatcher{
		next:    next,
		queue:   make(chan domain.AuditRecord, buffer),
		timeout: 5 * time.Second,
		logger:  logging.NewNop(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d
}

// Record enqueues rec. It returns nil even when the record is dropped.
func (d *Dispatcher) Record(_ context.Context, rec domain.AuditRecord) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(rec, "dispatcher closed")
		return nil
	}
	select {
	case d.queue <- rec:
	default:
		d.drop(rec, "buffer full")
	}
	return nil
}

func (d *Dispatcher) drop(rec domain.AuditRecord, reason string) {
	d.dropped.Add(1)
	if d.onDrop != nil {
		d.onDrop()
	}
	d.logger.Warn("Audit record dropped", "session_id", rec.SessionID, "trigger", rec.Trigger, "reason", reason)
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for rec := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.next.Record(ctx, rec); err != nil {
			d.failed.Add(1)
			d.logger.Warn("Audit delivery failed", "session_id", rec.SessionID, "trigger", rec.Trigger, "err", err)
		}
		cancel()
	}
}

// Dropped returns how many records were discarded without delivery.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Failed returns how many deliveries the wrapped sink rejected.
func (d *Dispatcher) Failed() int64 {
	return d.failed.Load()
}

// Close stops accepting records and waits until the queue is drained or ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
