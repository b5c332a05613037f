package machine

import (
	"log/slog"
	"maps"

	"github.com/aretw0/kiosk/internal/logging"
	"github.com/aretw0/kiosk/pkg/domain"
	"github.com/aretw0/kiosk/pkg/flow"
)

// Listener observes every accepted transition.
type Listener func(domain.Transition)

// Machine is a single kiosk flow instance.
type Machine struct {
	table     *flow.Table
	state     domain.State
	ctx       map[string]any
	listeners []Listener
	logger    *slog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithListener registers a transition listener. Listeners run synchronously after the
// state has changed; a panicking listener is logged and ignored.
func WithListener(l Listener) Option {
	return func(m *Machine) {
		if l != nil {
			m.listeners = append(m.listeners, l)
		}
	}
}

// WithLogger sets the logger used to report listener failures.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// New creates a machine positioned on the table's initial screen.
func New(table *flow.Table, opts ...Option) *Machine {
	m := &Machine{
		table:  table,
		state:  table.Initial(),
		ctx:    make(map[string]any),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Table returns the transition table driving this machine.
func (m *Machine) Table() *flow.Table {
	return m.table
}

// State returns the current screen.
func (m *Machine) State() domain.State {
	return m.state
}

// CanApply reports whether trigger is legal from the current screen.
func (m *Machine) CanApply(trigger domain.Trigger) bool {
	_, ok := m.table.Lookup(m.state, trigger)
	return ok
}

// AvailableTriggers returns the triggers legal from the current screen, sorted.
func (m *Machine) AvailableTriggers() []domain.Trigger {
	return m.table.Triggers(m.state)
}

// Validate returns the transition trigger would take, or an InvalidTriggerError.
// It never mutates the machine.
func (m *Machine) Validate(trigger domain.Trigger) (domain.Transition, error) {
	tr, ok := m.table.Lookup(m.state, trigger)
	if !ok {
		return domain.Transition{}, &domain.InvalidTriggerError{
			State:     m.state,
			Trigger:   trigger,
			Available: m.AvailableTriggers(),
		}
	}
	return tr, nil
}

// Apply fires trigger. On success the machine is on the destination screen; on failure
// nothing has changed.
func (m *Machine) Apply(trigger domain.Trigger) (domain.State, error) {
	tr, err := m.Validate(trigger)
	if err != nil {
		return m.state, err
	}

	m.state = tr.To
	if tr.To == m.table.Initial() {
		clear(m.ctx)
	}

	m.notify(tr)
	return m.state, nil
}

func (m *Machine) notify(tr domain.Transition) {
	for _, l := range m.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("Transition listener panicked",
						"trigger", tr.Trigger,
						"from", tr.From,
						"to", tr.To,
						"panic", r,
					)
				}
			}()
			l(tr)
		}()
	}
}

// SetContext stores value under key.
func (m *Machine) SetContext(key string, value any) {
	m.ctx[key] = value
}

// Context returns the value stored under key.
func (m *Machine) Context(key string) (any, bool) {
	v, ok := m.ctx[key]
	return v, ok
}

// MergeContext copies every entry of patch into the context.
func (m *Machine) MergeContext(patch map[string]any) {
	maps.Copy(m.ctx, patch)
}

// ContextSnapshot returns a shallow copy of the context.
func (m *Machine) ContextSnapshot() map[string]any {
	return maps.Clone(m.ctx)
}

// RestoreContext replaces the context with snapshot, as taken by ContextSnapshot.
func (m *Machine) RestoreContext(snapshot map[string]any) {
	clear(m.ctx)
	maps.Copy(m.ctx, snapshot)
}

// Reset clears the context and forces the initial screen without consulting the table.
// Listeners are not notified. Calling Reset twice is the same as calling it once.
func (m *Machine) Reset() {
	clear(m.ctx)
	m.state = m.table.Initial()
}
