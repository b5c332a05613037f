package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/kiosk/pkg/domain"
)

// Metrics holds the kiosk collectors.
type Metrics struct {
	registry *prometheus.Registry

	transitions     *prometheus.CounterVec
	invalidTriggers *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	sessionsEnded   *prometheus.CounterVec
	warnings        prometheus.Counter
	tickets         *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	auditDropped    prometheus.Counter
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kiosk_transitions_total",
				Help: "Accepted transitions by trigger and destination",
			},
			[]string{"trigger", "to"},
		),
		invalidTriggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kiosk_invalid_triggers_total",
				Help: "Rejected triggers by source state",
			},
			[]string{"state"},
		),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kiosk_sessions_active",
			Help: "Sessions currently alive",
		}),
		sessionsEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kiosk_sessions_ended_total",
				Help: "Ended sessions by reason",
			},
			[]string{"reason"},
		),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_timeout_warnings_total",
			Help: "Timeout warnings emitted",
		}),
		tickets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kiosk_tickets_issued_total",
				Help: "Queue tickets issued by department",
			},
			[]string{"department"},
		),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kiosk_session_duration_seconds",
			Help:    "Lifetime of ended sessions",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200},
		}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_audit_dropped_total",
			Help: "Audit records dropped because the dispatcher buffer was full",
		}),
	}
	m.registry.MustRegister(
		m.transitions,
		m.invalidTriggers,
		m.sessionsActive,
		m.sessionsEnded,
		m.warnings,
		m.tickets,
		m.sessionDuration,
		m.auditDropped,
	)
	return m
}

// Registry returns the Prometheus registry holding the kiosk collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// AuditDropped counts one dropped audit record.
func (m *Metrics) AuditDropped() {
	m.auditDropped.Inc()
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(string(e.Trigger), string(e.To)).Inc()
		},
		OnInvalidTrigger: func(_ context.Context, e *domain.TransitionEvent) {
			m.invalidTriggers.WithLabelValues(string(e.From)).Inc()
		},
		OnSessionStart: func(context.Context, *domain.SessionEvent) {
			m.sessionsActive.Inc()
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			m.sessionsActive.Dec()
			m.sessionsEnded.WithLabelValues(string(e.Type)).Inc()
			m.sessionDuration.Observe(e.Duration.Seconds())
		},
		OnTimeoutWarning: func(context.Context, *domain.SessionEvent) {
			m.warnings.Inc()
		},
		OnTicketIssued: func(_ context.Context, e *domain.TicketEvent) {
			m.tickets.WithLabelValues(string(e.Ticket.Department)).Inc()
		},
	}
}
