package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/kiosk/pkg/domain"
)

// Event is one server-sent event frame.
type Event struct {
	Name string
	Data []byte
}

// StreamManager handles active SSE connections, keyed by session ID.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	buffer      int
	logger      *slog.Logger
}

// NewStreamManager creates a StreamManager whose subscribers buffer up to buffer events.
func NewStreamManager(buffer int, logger *slog.Logger) *StreamManager {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan Event]struct{}),
		buffer:      buffer,
		logger:      logger,
	}
}

// Subscribe registers a listener for sessionID. The returned func unsubscribes and
// closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, sm.buffer)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan Event]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Subscribers returns the number of listeners for sessionID.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Broadcast delivers ev to every listener of sessionID. It never blocks: slow
// clients lose events.
func (sm *StreamManager) Broadcast(sessionID string, ev Event) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- ev:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping event", "session_id", sessionID, "event", ev.Name)
		}
	}
}

// Publish marshals payload and broadcasts it under name.
func (sm *StreamManager) Publish(sessionID string, name domain.EventType, payload any) {
	if sessionID == "" {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		sm.logger.Error("SSE: Event encode failed", "session_id", sessionID, "event", name, "err", err)
		return
	}
	sm.Broadcast(sessionID, Event{Name: string(name), Data: data})
}

// Hooks returns lifecycle hooks that forward session events to subscribers.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, e *domain.SessionEvent) {
			sm.Publish(e.SessionID, e.Type, e)
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			sm.Publish(e.SessionID, e.Type, e)
		},
		OnTimeoutWarning: func(_ context.Context, e *domain.SessionEvent) {
			sm.Publish(e.SessionID, e.Type, e)
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			sm.Publish(e.SessionID, e.Type, e)
		},
		OnTicketIssued: func(_ context.Context, e *domain.TicketEvent) {
			sm.Publish(e.SessionID, e.Type, e)
		},
	}
}

// terminal reports whether no event can follow ev on its session.
func terminal(ev Event) bool {
	return ev.Name == string(domain.EventSessionEnded) || ev.Name == string(domain.EventSessionTimeout)
}
