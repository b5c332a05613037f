package domain

import (
	"context"
	"time"
)

// EventType defines the category of a session event.
type EventType string

const (
	EventSessionStarted EventType = "session_started"
	EventStateChanged   EventType = "state_changed"
	EventTimeoutWarning EventType = "timeout_warning"
	EventSessionTimeout EventType = "session_timeout"
	EventSessionEnded   EventType = "session_ended"
	EventTicketIssued   EventType = "ticket_issued"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// TransitionEvent is emitted for every accepted trigger.
type TransitionEvent struct {
	EventBase
	From    State   `json:"from"`
	To      State   `json:"to"`
	Trigger Trigger `json:"trigger"`
}

// SessionEvent represents a lifecycle step of one session.
type SessionEvent struct {
	EventBase
	State     State         `json:"state"`
	Remaining time.Duration `json:"remaining,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// TicketEvent represents a queue ticket being issued.
type TicketEvent struct {
	EventBase
	Ticket QueueTicket `json:"ticket"`
}

// LifecycleHooks defines callbacks for observability.
// Hooks run synchronously inside the caller's critical section and must return quickly.
type LifecycleHooks struct {
	OnTransition     func(context.Context, *TransitionEvent)
	OnSessionStart   func(context.Context, *SessionEvent)
	OnSessionEnd     func(context.Context, *SessionEvent)
	OnTimeoutWarning func(context.Context, *SessionEvent)
	OnTicketIssued   func(context.Context, *TicketEvent)
	OnInvalidTrigger func(context.Context, *TransitionEvent)
}

// Merge returns hooks that call h first and then other for every event.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransition:     chain(h.OnTransition, other.OnTransition),
		OnSessionStart:   chain(h.OnSessionStart, other.OnSessionStart),
		OnSessionEnd:     chain(h.OnSessionEnd, other.OnSessionEnd),
		OnTimeoutWarning: chain(h.OnTimeoutWarning, other.OnTimeoutWarning),
		OnTicketIssued:   chain(h.OnTicketIssued, other.OnTicketIssued),
		OnInvalidTrigger: chain(h.OnInvalidTrigger, other.OnInvalidTrigger),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// AuditRecord is what the audit sink receives for every transition.
type AuditRecord struct {
	SessionID string         `json:"session_id"`
	From      State          `json:"from"`
	To        State          `json:"to"`
	Trigger   Trigger        `json:"trigger"`
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
}
