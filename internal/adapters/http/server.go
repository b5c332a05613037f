// Package http exposes the kiosk facade over HTTP with chi.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/kiosk"
	"github.com/aretw0/kiosk/api"
	"github.com/aretw0/kiosk/internal/presentation/graph"
	"github.com/aretw0/kiosk/pkg/domain"
	service "github.com/aretw0/kiosk/pkg/kiosk"
	"github.com/aretw0/kiosk/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server serves the kiosk API.
type Server struct {
	Service *service.Service
	Streams *StreamManager

	metrics  http.Handler
	maxInput int
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithMaxInputSize caps every string of a transition context patch.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxInput = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server. streams must be the manager whose Hooks were given to svc.
func NewServer(svc *service.Service, streams *StreamManager, opts ...Option) *Server {
	s := &Server{
		Service:  svc,
		Streams:  streams,
		maxInput: DefaultMaxInputSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(0, s.logger)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Route("/api/session", func(r chi.Router) {
		r.Post("/start", s.StartSession)
		r.Get("/active", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/activity", s.RecordActivity)
			r.Post("/transition", s.ApplyTrigger)
			r.Post("/end", s.EndSession)
			r.Get("/status", s.GetStatus)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	r.Route("/api/reception", func(r chi.Router) {
		r.Post("/check-in", s.CheckIn)
		r.Get("/queue-status/{department}", s.QueueStatus)
		r.Post("/call-next/{department}", s.CallNext)
		r.Post("/complete/{department}/{number}", s.CompleteTicket)
		r.Get("/departments", s.ListDepartments)
		r.Get("/symptoms", s.ListSymptoms)
	})

	r.Get("/api/flow/graph", s.GetGraph)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(api.Spec())
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StatusResponse is the wire form of session.Status, durations in seconds.
type StatusResponse struct {
	ID                string            `json:"session_id"`
	State             domain.State      `json:"state"`
	Lifecycle         session.Lifecycle `json:"lifecycle"`
	StartedAt         time.Time         `json:"started_at"`
	LastActivity      time.Time         `json:"last_activity"`
	Elapsed           float64           `json:"elapsed_seconds"`
	Idle              float64           `json:"idle_seconds"`
	TimeRemaining     float64           `json:"time_remaining_seconds"`
	AvailableTriggers []domain.Trigger  `json:"available_triggers"`
	Context           map[string]any    `json:"context,omitempty"`
}

func toStatusResponse(st session.Status) StatusResponse {
	return StatusResponse{
		ID:                st.ID,
		State:             st.State,
		Lifecycle:         st.Lifecycle,
		StartedAt:         st.StartedAt,
		LastActivity:      st.LastActivity,
		Elapsed:           st.Elapsed.Seconds(),
		Idle:              st.Idle.Seconds(),
		TimeRemaining:     st.TimeRemaining.Seconds(),
		AvailableTriggers: st.AvailableTriggers,
		Context:           st.Context,
	}
}

// StartResponse is the body of POST /api/session/start: the first status snapshot plus
// the idle timeout the front end counts down from.
type StartResponse struct {
	StatusResponse
	TimeoutSeconds float64 `json:"timeout_seconds"`
}

// TransitionRequest is the body of POST /api/session/{id}/transition.
type TransitionRequest struct {
	Trigger domain.Trigger `json:"trigger"`
	Context map[string]any `json:"context,omitempty"`
}

// StartSession handles POST /api/session/start.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	started, err := s.Service.Start(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	st, err := s.Service.Status(r.Context(), started.ID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusCreated, StartResponse{
		StatusResponse: toStatusResponse(st),
		TimeoutSeconds: started.Timeout.Seconds(),
	})
}

// ListSessions handles GET /api/session/active.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	list := s.Service.List(r.Context())
	out := make([]StatusResponse, len(list))
	for i, st := range list {
		out[i] = toStatusResponse(st)
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"count":    len(out),
		"sessions": out,
	})
}

// RecordActivity handles POST /api/session/{id}/activity.
func (s *Server) RecordActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Service.Activity(r.Context(), id); err != nil {
		writeError(w, s.logger, err)
		return
	}
	st, err := s.Service.Status(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	st.Context = nil
	writeJSON(w, s.logger, http.StatusOK, toStatusResponse(st))
}

// ApplyTrigger handles POST /api/session/{id}/transition.
func (s *Server) ApplyTrigger(w http.ResponseWriter, r *http.Request) {
	var body TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("ApplyTrigger: Invalid request body", "err", err)
		badRequest(w, s.logger, "invalid request body")
		return
	}
	if body.Trigger == "" {
		badRequest(w, s.logger, "trigger is required")
		return
	}
	if err := SanitizeContext(body.Context, s.maxInput); err != nil {
		s.logger.Warn("ApplyTrigger: Context rejected", "err", err)
		badRequest(w, s.logger, err.Error())
		return
	}

	res, err := s.Service.Transition(r.Context(), chi.URLParam(r, "id"), body.Trigger, body.Context)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, res)
}

// EndSession handles POST /api/session/{id}/end.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.End(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStatus handles GET /api/session/{id}/status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Service.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, toStatusResponse(st))
}

// SubscribeEvents handles GET /api/session/{id}/events (SSE). The stream ends when
// the session ends or times out.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	// Subscribe before reading the status so no event falls in between.
	events, cancel := s.Streams.Subscribe(id)
	defer cancel()

	st, err := s.Service.Status(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	st.Context = nil
	snapshot, _ := json.Marshal(toStatusResponse(st))
	writeEvent(w, Event{Name: "status", Data: snapshot})
	flusher.Flush()

	s.logger.Debug("SSE: Client subscribed", "session_id", id)
	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: Client disconnected", "session_id", id)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
			if terminal(ev) {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev Event) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
}

// CheckIn handles POST /api/reception/check-in.
func (s *Server) CheckIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Department domain.Department `json:"department"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("CheckIn: Invalid request body", "err", err)
		badRequest(w, s.logger, "invalid request body")
		return
	}
	if body.Department == "" {
		writeError(w, s.logger, domain.ErrMissingDepartment)
		return
	}

	ticket, err := s.Service.CheckIn(r.Context(), body.Department)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusCreated, ticket)
}

// QueueStatus handles GET /api/reception/queue-status/{department}.
func (s *Server) QueueStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Service.QueueStatus(r.Context(), domain.Department(chi.URLParam(r, "department")))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, st)
}

// CallNext handles POST /api/reception/call-next/{department}.
func (s *Server) CallNext(w http.ResponseWriter, r *http.Request) {
	dept := domain.Department(chi.URLParam(r, "department"))
	n, err := s.Service.CallNext(r.Context(), dept)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"department":   dept,
		"queue_number": n,
	})
}

// CompleteTicket handles POST /api/reception/complete/{department}/{number}.
func (s *Server) CompleteTicket(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || n <= 0 {
		badRequest(w, s.logger, "queue number must be a positive integer")
		return
	}
	if err := s.Service.Complete(r.Context(), domain.Department(chi.URLParam(r, "department")), n); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDepartments handles GET /api/reception/departments.
func (s *Server) ListDepartments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.Service.Departments())
}

// ListSymptoms handles GET /api/reception/symptoms.
func (s *Server) ListSymptoms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.Service.Symptoms())
}

// GetGraph handles GET /api/flow/graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.Overlay
	if id := r.URL.Query().Get("session_id"); id != "" {
		st, err := s.Service.Status(r.Context(), id)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		overlay = &graph.Overlay{Current: st.State}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.Service.Registry().Table(), overlay))
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	reg := s.Service.Registry()
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"status":           "ok",
		"active_sessions":  reg.Len(),
		"scheduled_timers": reg.Scheduler().Len(),
	})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := api.Load(r.Context()); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"app":         "kiosk-http",
		"version":     kiosk.Version,
		"api_version": apiVersion,
	})
}
