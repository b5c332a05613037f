package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/kiosk/internal/keylock"
	"github.com/aretw0/kiosk/internal/logging"
	"github.com/aretw0/kiosk/pkg/domain"
	"github.com/aretw0/kiosk/pkg/flow"
	"github.com/aretw0/kiosk/pkg/machine"
	"github.com/aretw0/kiosk/pkg/ports"
	"github.com/aretw0/kiosk/pkg/scheduler"
)

// Lifecycle is the registry-level phase of a session.
type Lifecycle string

const (
	Active   Lifecycle = "active"
	TimedOut Lifecycle = "timed_out"
	Ended    Lifecycle = "ended"
)

// Effect runs inside a session's critical section after a trigger has been validated
// and before it is applied. Its output is returned to the caller in Result.Output.
type Effect func(ctx context.Context, s *Scope) (any, error)

// Scope is the view of a session an Effect gets.
type Scope struct {
	ID         string
	Transition domain.Transition
	m          *machine.Machine
}

// Context returns a copy of the session context.
func (s *Scope) Context() map[string]any {
	return s.m.ContextSnapshot()
}

// Set stores value in the session context.
func (s *Scope) Set(key string, value any) {
	s.m.SetContext(key, value)
}

// Started is returned by Start.
type Started struct {
	ID      string        `json:"session_id"`
	Timeout time.Duration `json:"-"`
}

// Result is returned by Transition.
type Result struct {
	State             domain.State     `json:"state"`
	AvailableTriggers []domain.Trigger `json:"available_triggers"`
	Output            any              `json:"-"`
}

// Status describes one live session.
type Status struct {
	ID                string           `json:"session_id"`
	State             domain.State     `json:"state"`
	Lifecycle         Lifecycle        `json:"lifecycle"`
	StartedAt         time.Time        `json:"started_at"`
	LastActivity      time.Time        `json:"last_activity"`
	Elapsed           time.Duration    `json:"elapsed"`
	Idle              time.Duration    `json:"idle"`
	TimeRemaining     time.Duration    `json:"time_remaining"`
	AvailableTriggers []domain.Trigger `json:"available_triggers"`
	Context           map[string]any   `json:"context,omitempty"`
}

// slot pairs a pooled machine with the session currently using it, so the machine's
// transition listener knows whom it is reporting for.
type slot struct {
	m   *machine.Machine
	id  string
	ctx context.Context
}

type entry struct {
	slot         *slot
	createdAt    time.Time
	lastActivity time.Time
	lifecycle    Lifecycle
}

// Registry owns every active session.
type Registry struct {
	table     *flow.Table
	sched     *scheduler.Scheduler
	ownsSched bool
	locks     *keylock.Map
	pool      sync.Pool
	effects   map[domain.Trigger]Effect

	idle     time.Duration
	warnLead time.Duration
	hooks    domain.LifecycleHooks
	audit    ports.AuditSink
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*entry
}

// New creates a registry whose sessions follow table.
func New(table *flow.Table, opts ...Option) *Registry {
	r := &Registry{
		table:    table,
		locks:    keylock.New(),
		effects:  make(map[domain.Trigger]Effect),
		idle:     DefaultIdleTimeout,
		warnLead: DefaultWarningLead,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logging.NewNop(),
		sessions: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sched == nil {
		r.sched = scheduler.New(scheduler.WithLogger(r.logger))
		r.ownsSched = true
	}
	if r.warnLead < 0 || r.warnLead >= r.idle {
		r.warnLead = 0
	}
	r.pool.New = func() any { return r.newSlot() }
	return r
}

func (r *Registry) newSlot() *slot {
	s := &slot{}
	s.m = machine.New(r.table,
		machine.WithLogger(r.logger),
		machine.WithListener(func(tr domain.Transition) { r.onTransition(s, tr) }),
	)
	return s
}

// Table returns the flow table sessions follow.
func (r *Registry) Table() *flow.Table {
	return r.table
}

// IdleTimeout returns the configured idle timeout.
func (r *Registry) IdleTimeout() time.Duration {
	return r.idle
}

// Scheduler exposes the timeout scheduler, mostly for health reporting.
func (r *Registry) Scheduler() *scheduler.Scheduler {
	return r.sched
}

const warnSuffix = "#warning"

func warnKey(id string) string {
	return id + warnSuffix
}

func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	return e, ok
}

// Start creates a session on the initial screen and arms its timeout.
func (r *Registry) Start(ctx context.Context) (Started, error) {
	id := r.newID()
	unlock := r.locks.Lock(id)
	defer unlock()

	s := r.pool.Get().(*slot)
	s.id = id
	now := r.now()
	e := &entry{
		slot:         s,
		createdAt:    now,
		lastActivity: now,
		lifecycle:    Active,
	}

	r.mu.Lock()
	r.sessions[id] = e
	r.mu.Unlock()

	r.arm(id)

	r.logger.Debug("Session started", "session_id", id)
	if r.hooks.OnSessionStart != nil {
		r.hooks.OnSessionStart(ctx, &domain.SessionEvent{
			EventBase: domain.EventBase{Timestamp: now, Type: domain.EventSessionStarted, SessionID: id},
			State:     s.m.State(),
			Remaining: r.idle,
		})
	}
	return Started{ID: id, Timeout: r.idle}, nil
}

// arm schedules the idle timeout and, if enabled, the warning for id.
func (r *Registry) arm(id string) {
	r.sched.Schedule(id, r.idle, r.onTimeout)
	if r.warnLead > 0 {
		r.sched.Schedule(warnKey(id), r.idle-r.warnLead, r.onWarning)
	}
}

// touch counts as activity. It returns false when the timeout already fired and is
// waiting for the critical section; the caller must then tear the session down.
// The caller holds the session lock.
func (r *Registry) touch(id string, e *entry) bool {
	if !r.sched.Reset(id) {
		return false
	}
	if r.warnLead > 0 {
		// The warning may have fired already, so it is re-armed rather than reset.
		r.sched.Schedule(warnKey(id), r.idle-r.warnLead, r.onWarning)
	}
	e.lastActivity = r.now()
	return true
}

// Activity records user activity and restarts the idle timeout.
func (r *Registry) Activity(ctx context.Context, id string) error {
	unlock := r.locks.Lock(id)
	defer unlock()

	e, ok := r.lookup(id)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if !r.touch(id, e) {
		r.expire(ctx, id, e)
		return domain.ErrSessionNotFound
	}
	return nil
}

// Transition validates trigger, merges patch into the session context, counts as
// activity and applies trigger. An effect registered for trigger runs after the merge;
// if it fails the context is restored and the session stays where it was. A rejected
// trigger changes nothing.
func (r *Registry) Transition(ctx context.Context, id string, trigger domain.Trigger, patch map[string]any) (Result, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	e, ok := r.lookup(id)
	if !ok {
		return Result{}, domain.ErrSessionNotFound
	}
	if _, live := r.sched.Handle(id); !live {
		r.expire(ctx, id, e)
		return Result{}, domain.ErrSessionNotFound
	}

	m := e.slot.m
	tr, err := m.Validate(trigger)
	if err != nil {
		r.logger.Debug("Invalid trigger", "session_id", id, "state", m.State(), "trigger", trigger)
		if r.hooks.OnInvalidTrigger != nil {
			r.hooks.OnInvalidTrigger(ctx, &domain.TransitionEvent{
				EventBase: domain.EventBase{Timestamp: r.now(), Type: domain.EventStateChanged, SessionID: id},
				From:      m.State(),
				To:        m.State(),
				Trigger:   trigger,
			})
		}
		return Result{}, err
	}

	if !r.touch(id, e) {
		r.expire(ctx, id, e)
		return Result{}, domain.ErrSessionNotFound
	}

	var snapshot map[string]any
	if len(patch) > 0 {
		snapshot = m.ContextSnapshot()
		m.MergeContext(patch)
	}

	var out any
	if effect, ok := r.effects[trigger]; ok {
		out, err = effect(ctx, &Scope{ID: id, Transition: tr, m: m})
		if err != nil {
			if snapshot != nil {
				m.RestoreContext(snapshot)
			}
			return Result{}, err
		}
	}

	state, err := r.apply(ctx, e, trigger)
	if err != nil {
		return Result{}, err
	}
	return Result{
		State:             state,
		AvailableTriggers: m.AvailableTriggers(),
		Output:            out,
	}, nil
}

// apply runs the trigger with the caller's context visible to the transition listener.
func (r *Registry) apply(ctx context.Context, e *entry, trigger domain.Trigger) (domain.State, error) {
	e.slot.ctx = ctx
	defer func() { e.slot.ctx = nil }()
	return e.slot.m.Apply(trigger)
}

// onTransition is the listener of every pooled machine.
func (r *Registry) onTransition(s *slot, tr domain.Transition) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := r.now()

	if r.hooks.OnTransition != nil {
		r.hooks.OnTransition(ctx, &domain.TransitionEvent{
			EventBase: domain.EventBase{Timestamp: now, Type: domain.EventStateChanged, SessionID: s.id},
			From:      tr.From,
			To:        tr.To,
			Trigger:   tr.Trigger,
		})
	}

	if r.audit == nil {
		return
	}
	rec := domain.AuditRecord{
		SessionID: s.id,
		From:      tr.From,
		To:        tr.To,
		Trigger:   tr.Trigger,
		Timestamp: now,
		Context:   s.m.ContextSnapshot(),
	}
	if len(rec.Context) == 0 {
		rec.Context = nil
	}
	if err := r.audit.Record(ctx, rec); err != nil {
		r.logger.Warn("Audit record dropped", "session_id", s.id, "trigger", tr.Trigger, "err", err)
	}
}

// End terminates a session. A second End, or an End racing a timeout that won,
// returns domain.ErrSessionNotFound.
func (r *Registry) End(ctx context.Context, id string) error {
	unlock := r.locks.Lock(id)
	defer unlock()

	e, ok := r.lookup(id)
	if !ok {
		return domain.ErrSessionNotFound
	}
	r.teardown(ctx, id, e, domain.EventSessionEnded)
	return nil
}

// onTimeout is the scheduler callback. It takes the same critical section as every
// interactive call; finding the session gone means End won the race.
func (r *Registry) onTimeout(id string) {
	unlock := r.locks.Lock(id)
	defer unlock()

	e, ok := r.lookup(id)
	if !ok {
		r.logger.Debug("Timeout fired for a session already ended", "session_id", id)
		return
	}
	r.expire(context.Background(), id, e)
}

// expire performs the timeout teardown. The caller holds the session lock.
func (r *Registry) expire(ctx context.Context, id string, e *entry) {
	e.lifecycle = TimedOut
	if e.slot.m.CanApply(domain.TriggerTimeout) {
		if _, err := r.apply(ctx, e, domain.TriggerTimeout); err != nil {
			r.logger.Debug("Timeout trigger rejected", "session_id", id, "err", err)
		}
	}
	r.logger.Info("Session timed out", "session_id", id, "idle", r.now().Sub(e.lastActivity))
	r.teardown(ctx, id, e, domain.EventSessionTimeout)
}

// teardown removes the session, wipes its context and returns its machine to the pool.
// The caller holds the session lock.
func (r *Registry) teardown(ctx context.Context, id string, e *entry, reason domain.EventType) {
	r.sched.Cancel(id)
	r.sched.Cancel(warnKey(id))

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	last := e.slot.m.State()
	e.slot.m.Reset()
	e.slot.id = ""
	r.pool.Put(e.slot)
	e.slot = nil
	e.lifecycle = Ended

	now := r.now()
	r.logger.Debug("Session ended", "session_id", id, "reason", reason)
	if r.hooks.OnSessionEnd != nil {
		r.hooks.OnSessionEnd(ctx, &domain.SessionEvent{
			EventBase: domain.EventBase{Timestamp: now, Type: reason, SessionID: id},
			State:     last,
			Duration:  now.Sub(e.createdAt),
		})
	}
}

// onWarning emits the timeout warning if the session is still alive.
func (r *Registry) onWarning(key string) {
	id := strings.TrimSuffix(key, warnSuffix)
	unlock := r.locks.Lock(id)
	defer unlock()

	e, ok := r.lookup(id)
	if !ok {
		return
	}
	remaining := r.warnLead
	if at, ok := r.sched.FireTime(id); ok {
		remaining = at.Sub(r.now())
	}
	r.logger.Debug("Session about to time out", "session_id", id, "remaining", remaining)
	if r.hooks.OnTimeoutWarning != nil {
		r.hooks.OnTimeoutWarning(context.Background(), &domain.SessionEvent{
			EventBase: domain.EventBase{Timestamp: r.now(), Type: domain.EventTimeoutWarning, SessionID: id},
			State:     e.slot.m.State(),
			Remaining: remaining,
		})
	}
}

// Status reports on a live session.
func (r *Registry) Status(ctx context.Context, id string) (Status, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	e, ok := r.lookup(id)
	if !ok {
		return Status{}, domain.ErrSessionNotFound
	}
	return r.status(id, e, true), nil
}

func (r *Registry) status(id string, e *entry, withContext bool) Status {
	now := r.now()
	st := Status{
		ID:                id,
		State:             e.slot.m.State(),
		Lifecycle:         e.lifecycle,
		StartedAt:         e.createdAt,
		LastActivity:      e.lastActivity,
		Elapsed:           now.Sub(e.createdAt),
		Idle:              now.Sub(e.lastActivity),
		AvailableTriggers: e.slot.m.AvailableTriggers(),
	}
	if at, ok := r.sched.FireTime(id); ok {
		st.TimeRemaining = max(at.Sub(now), 0)
	}
	if withContext {
		st.Context = e.slot.m.ContextSnapshot()
	}
	return st
}

// List returns every live session, oldest first, without context.
func (r *Registry) List(ctx context.Context) []Status {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	out := make([]Status, 0, len(ids))
	for _, id := range ids {
		st, err := r.summary(id)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func (r *Registry) summary(id string) (Status, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	e, ok := r.lookup(id)
	if !ok {
		return Status{}, domain.ErrSessionNotFound
	}
	return r.status(id, e, false), nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close ends every live session and stops the scheduler.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for _, st := range r.List(ctx) {
		if err := r.End(ctx, st.ID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	if r.ownsSched {
		r.sched.Stop()
	}
	return errors.Join(errs...)
}
