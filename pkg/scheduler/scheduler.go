// Package scheduler provides keyed one-shot timers with atomic replace.
//
// At most one handle is live per key. Scheduling a key that already has a handle
// replaces it, and the replaced handle never fires. Reset re-arms a key with its
// remembered delay and callback. A fire and a concurrent Reset or Cancel are ordered
// by the scheduler mutex: whichever reaches it first wins, so a callback runs at most
// once per schedule window.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/kiosk/internal/logging"
)

// Callback runs when a handle fires. It runs on its own goroutine, outside the
// scheduler lock, so it may call back into the scheduler.
type Callback func(key string)

// Handle is the observable side of one schedule window.
type Handle struct {
	key    string
	fireAt time.Time

	mu        sync.Mutex
	cancelled bool
	fired     bool
}

// Key returns the key this handle was scheduled under.
func (h *Handle) Key() string { return h.key }

// FireAt returns the time the handle is due.
func (h *Handle) FireAt() time.Time { return h.fireAt }

// Cancelled reports whether the handle was cancelled or replaced before firing.
func (h *Handle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// Fired reports whether the callback has been dispatched.
func (h *Handle) Fired() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fired
}

func (h *Handle) markCancelled() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
}

func (h *Handle) markFired() {
	h.mu.Lock()
	h.fired = true
	h.mu.Unlock()
}

type entry struct {
	timer    *time.Timer
	gen      uint64
	delay    time.Duration
	callback Callback
	handle   *Handle
}

// Scheduler is a set of keyed one-shot timers. The zero value is not usable; use New.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	gen     uint64
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithLogger configures a logger for the Scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithClock overrides the wall clock used to compute fire times.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates an empty Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		entries: make(map[string]*entry),
		now:     time.Now,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule arms a one-shot timer for key, replacing any existing one.
func (s *Scheduler) Schedule(key string, delay time.Duration, cb Callback) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		s.stopLocked(old)
	}
	return s.armLocked(key, delay, cb)
}

// Reset re-arms key with the delay and callback it was scheduled with.
// It returns false when key has no live handle (never scheduled, cancelled or fired).
func (s *Scheduler) Reset(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.entries[key]
	if !ok {
		return false
	}
	s.stopLocked(old)
	s.armLocked(key, old.delay, old.callback)
	return true
}

// Cancel removes key. A fire already past the lock is not affected; any later fire
// for this window is a no-op.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	s.stopLocked(e)
	delete(s.entries, key)
	return true
}

// FireTime returns when key is due.
func (s *Scheduler) FireTime(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.handle.fireAt, true
}

// Handle returns the live handle for key.
func (s *Scheduler) Handle(key string) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.handle, true
}

// Len returns the number of live handles.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop cancels every live handle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		s.stopLocked(e)
		delete(s.entries, key)
	}
}

func (s *Scheduler) armLocked(key string, delay time.Duration, cb Callback) *Handle {
	s.gen++
	gen := s.gen
	h := &Handle{key: key, fireAt: s.now().Add(delay)}
	e := &entry{
		gen:      gen,
		delay:    delay,
		callback: cb,
		handle:   h,
	}
	e.timer = time.AfterFunc(delay, func() { s.fire(key, gen) })
	s.entries[key] = e
	return h
}

func (s *Scheduler) stopLocked(e *entry) {
	e.timer.Stop()
	e.handle.markCancelled()
}

// fire dispatches the callback iff gen is still the live window for key.
func (s *Scheduler) fire(key string, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("Stale timer fire ignored", "key", key)
		return
	}
	delete(s.entries, key)
	s.mu.Unlock()

	e.handle.markFired()
	e.callback(key)
}
