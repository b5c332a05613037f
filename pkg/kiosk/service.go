// Package kiosk is the session facade the transport layer talks to. It composes the
// session registry with the queue allocator and the reception desk, and turns the
// confirm_reception trigger into a check-in.
package kiosk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/kiosk/internal/logging"
	"github.com/aretw0/kiosk/pkg/domain"
	"github.com/aretw0/kiosk/pkg/flow"
	"github.com/aretw0/kiosk/pkg/queue"
	"github.com/aretw0/kiosk/pkg/reception"
	"github.com/aretw0/kiosk/pkg/session"
)

// Result is the outcome of a transition.
type Result struct {
	State             domain.State        `json:"state"`
	AvailableTriggers []domain.Trigger    `json:"available_triggers"`
	Ticket            *domain.QueueTicket `json:"ticket,omitempty"`
}

// Service is the kiosk facade.
type Service struct {
	registry *session.Registry
	queue    *queue.Allocator
	desk     *reception.Desk
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	sessionOpts []session.Option
}

// Option configures the Service.
type Option func(*Service)

// WithHooks registers lifecycle hooks for sessions and tickets.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = s.hooks.Merge(h)
	}
}

// WithSessionOptions passes options through to the session registry.
func WithSessionOptions(opts ...session.Option) Option {
	return func(s *Service) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}

// WithDesk replaces the default reception desk.
func WithDesk(d *reception.Desk) Option {
	return func(s *Service) {
		s.desk = d
	}
}

// WithLogger configures a logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates the facade over allocator.
func New(allocator *queue.Allocator, opts ...Option) *Service {
	s := &Service{
		queue:  allocator,
		desk:   reception.NewDesk(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	sessionOpts := append([]session.Option{
		session.WithLogger(s.logger),
		session.WithHooks(s.hooks),
		session.WithEffect(domain.TriggerConfirmReception, s.checkIn),
	}, s.sessionOpts...)
	s.registry = session.New(flow.Kiosk(), sessionOpts...)
	return s
}

// Registry exposes the underlying session registry.
func (s *Service) Registry() *session.Registry {
	return s.registry
}

// Desk exposes the reception desk.
func (s *Service) Desk() *reception.Desk {
	return s.desk
}

// Start opens a new session.
func (s *Service) Start(ctx context.Context) (session.Started, error) {
	return s.registry.Start(ctx)
}

// Activity records a ping.
func (s *Service) Activity(ctx context.Context, id string) error {
	return s.registry.Activity(ctx, id)
}

// Transition applies trigger to session id. Confirming a reception also issues a queue
// ticket, which is returned and stored in the session context.
func (s *Service) Transition(ctx context.Context, id string, trigger domain.Trigger, patch map[string]any) (Result, error) {
	res, err := s.registry.Transition(ctx, id, trigger, patch)
	if err != nil {
		return Result{}, err
	}
	out := Result{State: res.State, AvailableTriggers: res.AvailableTriggers}
	if t, ok := res.Output.(domain.QueueTicket); ok {
		out.Ticket = &t
	}
	return out, nil
}

// End terminates session id.
func (s *Service) End(ctx context.Context, id string) error {
	return s.registry.End(ctx, id)
}

// Status reports on session id.
func (s *Service) Status(ctx context.Context, id string) (session.Status, error) {
	return s.registry.Status(ctx, id)
}

// List returns the live sessions without their context.
func (s *Service) List(ctx context.Context) []session.Status {
	return s.registry.List(ctx)
}

// checkIn is the confirm_reception effect.
func (s *Service) checkIn(ctx context.Context, scope *session.Scope) (any, error) {
	intake, err := reception.DecodeIntake(scope.Context())
	if err != nil {
		return nil, err
	}
	dept, err := s.desk.Resolve(intake)
	if err != nil {
		return nil, err
	}

	ticket, err := s.issue(ctx, dept, scope.ID)
	if err != nil {
		return nil, err
	}
	scope.Set(reception.KeyDepartment, string(dept))
	scope.Set(reception.KeyQueueTicket, ticket)
	return ticket, nil
}

// CheckIn issues a ticket outside of any session, e.g. from a staff terminal.
func (s *Service) CheckIn(ctx context.Context, department domain.Department) (domain.QueueTicket, error) {
	if _, err := s.desk.Catalog.Lookup(department); err != nil {
		return domain.QueueTicket{}, err
	}
	return s.issue(ctx, department, "")
}

func (s *Service) issue(ctx context.Context, department domain.Department, sessionID string) (domain.QueueTicket, error) {
	ticket, err := s.queue.Issue(ctx, department)
	if err != nil {
		return domain.QueueTicket{}, fmt.Errorf("check-in failed: %w", err)
	}
	if ticket.Location == "" {
		ticket.Location = s.desk.Catalog.Location(department)
	}

	s.logger.Info("Patient checked in",
		"department", department,
		"queue_number", ticket.QueueNumber,
		"session_id", sessionID,
	)
	if s.hooks.OnTicketIssued != nil {
		s.hooks.OnTicketIssued(ctx, &domain.TicketEvent{
			EventBase: domain.EventBase{Timestamp: ticket.IssuedAt, Type: domain.EventTicketIssued, SessionID: sessionID},
			Ticket:    ticket,
		})
	}
	return ticket, nil
}

// QueueStatus summarises today's queue for department.
func (s *Service) QueueStatus(ctx context.Context, department domain.Department) (domain.QueueStatus, error) {
	if _, err := s.desk.Catalog.Lookup(department); err != nil {
		return domain.QueueStatus{}, err
	}
	st, err := s.queue.Status(ctx, department)
	if err != nil {
		return domain.QueueStatus{}, err
	}
	if st.Location == "" {
		st.Location = s.desk.Catalog.Location(department)
	}
	return st, nil
}

// CallNext calls the next waiting patient of department.
func (s *Service) CallNext(ctx context.Context, department domain.Department) (int, error) {
	if _, err := s.desk.Catalog.Lookup(department); err != nil {
		return 0, err
	}
	n, err := s.queue.CallNext(ctx, department)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Patient called", "department", department, "queue_number", n)
	return n, nil
}

// Complete marks a ticket as done.
func (s *Service) Complete(ctx context.Context, department domain.Department, number int) error {
	if _, err := s.desk.Catalog.Lookup(department); err != nil {
		return err
	}
	return s.queue.Complete(ctx, department, number)
}

// Departments lists the catalog.
func (s *Service) Departments() []reception.Info {
	return s.desk.Catalog.All()
}

// Symptoms lists the selectable symptoms.
func (s *Service) Symptoms() []reception.Symptom {
	return s.desk.Recommender.Symptoms()
}

// Close ends every session.
func (s *Service) Close(ctx context.Context) error {
	return s.registry.Close(ctx)
}
