package session

import (
	"log/slog"
	"time"

	"github.com/aretw0/kiosk/pkg/domain"
	"github.com/aretw0/kiosk/pkg/ports"
	"github.com/aretw0/kiosk/pkg/scheduler"
)

// Defaults applied by New.
const (
	DefaultIdleTimeout = 120 * time.Second
	DefaultWarningLead = 30 * time.Second
)

// Option configures the Registry.
type Option func(*Registry)

// WithIdleTimeout sets how long a session survives without activity.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idle = d
		}
	}
}

// WithWarningLead sets how long before the timeout a warning is emitted.
// Zero disables warnings.
func WithWarningLead(d time.Duration) Option {
	return func(r *Registry) {
		r.warnLead = d
	}
}

// WithHooks registers lifecycle hooks. Multiple calls are merged in order.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(r *Registry) {
		r.hooks = r.hooks.Merge(h)
	}
}

// WithAuditSink sets where transition records go. The sink is called synchronously,
// so slow sinks should be wrapped in an asynchronous dispatcher.
func WithAuditSink(sink ports.AuditSink) Option {
	return func(r *Registry) {
		r.audit = sink
	}
}

// WithEffect runs effect inside the critical section whenever trigger is about to be
// applied. A failing effect aborts the transition.
func WithEffect(trigger domain.Trigger, effect Effect) Option {
	return func(r *Registry) {
		r.effects[trigger] = effect
	}
}

// WithScheduler shares a scheduler instead of creating one.
func WithScheduler(s *scheduler.Scheduler) Option {
	return func(r *Registry) {
		r.sched = s
	}
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithIDGenerator overrides how session ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		r.newID = fn
	}
}

// WithLogger configures a logger for the Registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}
