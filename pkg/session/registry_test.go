package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/kiosk/pkg/adapters/memory"
	"github.com/aretw0/kiosk/pkg/domain"
	"github.com/aretw0/kiosk/pkg/flow"
	"github.com/aretw0/kiosk/pkg/ports"
	"github.com/aretw0/kiosk/pkg/scheduler"
	"github.com/aretw0/kiosk/pkg/session"
)

// endRecorder collects OnSessionEnd events.
type endRecorder struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func (r *endRecorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			r.mu.Lock()
			r.events = append(r.events, *e)
			r.mu.Unlock()
		},
	}
}

func (r *endRecorder) For(id string) []domain.SessionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SessionEvent
	for _, e := range r.events {
		if e.SessionID == id {
			out = append(out, e)
		}
	}
	return out
}

func TestStart(t *testing.T) {
	r := session.New(flow.Kiosk(), session.WithIdleTimeout(time.Minute))
	ctx := context.Background()
	defer r.Close(ctx)

	started, err := r.Start(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, started.ID)
	assert.Equal(t, time.Minute, started.Timeout)

	st, err := r.Status(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateHome, st.State)
	assert.Equal(t, session.Active, st.Lifecycle)
	assert.InDelta(t, time.Minute, st.TimeRemaining, float64(time.Second))
	assert.Empty(t, st.Context)
	assert.Equal(t, 1, r.Len())
}

func TestTransition_ReceptionScenario(t *testing.T) {
	r := session.New(flow.Kiosk())
	ctx := context.Background()
	defer r.Close(ctx)

	started, err := r.Start(ctx)
	require.NoError(t, err)

	steps := []struct {
		trigger domain.Trigger
		want    domain.State
	}{
		{domain.TriggerSelectReception, domain.StateReception},
		{domain.TriggerStartReception, domain.StateReceptionPatientInput},
		{domain.TriggerPatientIdentified, domain.StateReceptionAppointmentCheck},
		{domain.TriggerNoAppointment, domain.StateReceptionSymptomSelect},
		{domain.TriggerSymptomsSelected, domain.StateReceptionDepartmentSelect},
		{domain.TriggerDepartmentSelected, domain.StateReceptionConfirm},
		{domain.TriggerConfirmReception, domain.StateReceptionComplete},
		{domain.TriggerReceptionDone, domain.StateHome},
	}
	for _, s := range steps {
		res, err := r.Transition(ctx, started.ID, s.trigger, nil)
		require.NoError(t, err, "trigger %s", s.trigger)
		assert.Equal(t, s.want, res.State)
		assert.Equal(t, flow.Kiosk().Triggers(s.want), res.AvailableTriggers)
	}
}

func TestUnknownSession(t *testing.T) {
	r := session.New(flow.Kiosk())
	ctx := context.Background()

	assert.ErrorIs(t, r.Activity(ctx, "nope"), domain.ErrSessionNotFound)
	_, err := r.Transition(ctx, "nope", domain.TriggerSelectPayment, nil)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = r.Status(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, r.End(ctx, "nope"), domain.ErrSessionNotFound)
}

func TestTransition_InvalidTrigger(t *testing.T) {
	var invalid atomic.Int32
	r := session.New(flow.Kiosk(), session.WithHooks(domain.LifecycleHooks{
		OnInvalidTrigger: func(context.Context, *domain.TransitionEvent) { invalid.Add(1) },
	}))
	ctx := context.Background()
	defer r.Close(ctx)

	started, _ := r.Start(ctx)
	_, err := r.Transition(ctx, started.ID, domain.TriggerPaymentDone, map[string]any{"patient_id": "P-1"})
	require.ErrorIs(t, err, domain.ErrInvalidTrigger)

	st, err := r.Status(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateHome, st.State)
	assert.Empty(t, st.Context, "a rejected trigger leaves the context untouched")
	assert.Equal(t, int32(1), invalid.Load())
}

func TestTransition_CancelClearsContext(t *testing.T) {
	r := session.New(flow.Kiosk())
	ctx := context.Background()
	defer r.Close(ctx)

	started, _ := r.Start(ctx)
	_, err := r.Transition(ctx, started.ID, domain.TriggerSelectPayment, nil)
	require.NoError(t, err)
	_, err = r.Transition(ctx, started.ID, domain.TriggerStartPayment, map[string]any{"patient_id": "P-9", "card": "4111"})
	require.NoError(t, err)

	res, err := r.Transition(ctx, started.ID, domain.TriggerCancel, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateHome, res.State)

	st, _ := r.Status(ctx, started.ID)
	assert.Empty(t, st.Context)
}

func TestEnd(t *testing.T) {
	ends := &endRecorder{}
	r := session.New(flow.Kiosk(), session.WithHooks(ends.hooks()))
	ctx := context.Background()

	started, _ := r.Start(ctx)
	_, err := r.Transition(ctx, started.ID, domain.TriggerSelectReception, map[string]any{"patient_id": "P-3"})
	require.NoError(t, err)

	require.NoError(t, r.End(ctx, started.ID))
	assert.ErrorIs(t, r.End(ctx, started.ID), domain.ErrSessionNotFound)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.Scheduler().Len(), "timeout and warning handles must be cancelled")

	events := ends.For(started.ID)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventSessionEnded, events[0].Type)
	assert.Equal(t, domain.StateReception, events[0].State)

	// A new session reusing the pooled machine sees nothing of the old one.
	next, _ := r.Start(ctx)
	st, err := r.Status(ctx, next.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateHome, st.State)
	assert.Empty(t, st.Context)
	require.NoError(t, r.End(ctx, next.ID))
}

func TestTimeout_TearsDown(t *testing.T) {
	ends := &endRecorder{}
	log := memory.NewAuditLog()
	r := session.New(flow.Kiosk(),
		session.WithIdleTimeout(50*time.Millisecond),
		session.WithWarningLead(0),
		session.WithHooks(ends.hooks()),
		session.WithAuditSink(log),
	)
	ctx := context.Background()

	started, _ := r.Start(ctx)
	_, err := r.Transition(ctx, started.ID, domain.TriggerSelectCertificate, map[string]any{"patient_id": "P-5"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(ends.For(started.ID)) == 1 }, time.Second, 5*time.Millisecond)

	events := ends.For(started.ID)
	assert.Equal(t, domain.EventSessionTimeout, events[0].Type)
	assert.Equal(t, domain.StateTimeout, events[0].State)

	_, err = r.Status(ctx, started.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, r.Activity(ctx, started.ID), domain.ErrSessionNotFound)

	recs := log.BySession(started.ID)
	require.Len(t, recs, 2)
	assert.Equal(t, domain.TriggerTimeout, recs[1].Trigger)
	assert.Equal(t, domain.StateCertificate, recs[1].From)
	assert.Equal(t, domain.StateTimeout, recs[1].To)
}

func TestTimeout_AtHomeSkipsTrigger(t *testing.T) {
	ends := &endRecorder{}
	log := memory.NewAuditLog()
	r := session.New(flow.Kiosk(),
		session.WithIdleTimeout(20*time.Millisecond),
		session.WithHooks(ends.hooks()),
		session.WithAuditSink(log),
	)

	started, _ := r.Start(context.Background())
	require.Eventually(t, func() bool { return len(ends.For(started.ID)) == 1 }, time.Second, 5*time.Millisecond)

	assert.Empty(t, log.BySession(started.ID))
	assert.Equal(t, domain.StateHome, ends.For(started.ID)[0].State)
}

func TestActivity_KeepsSessionAlive(t *testing.T) {
	r := session.New(flow.Kiosk(), session.WithIdleTimeout(80*time.Millisecond), session.WithWarningLead(0))
	ctx := context.Background()
	defer r.Close(ctx)

	started, _ := r.Start(ctx)
	for i := 0; i < 8; i++ {
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, r.Activity(ctx, started.ID))
	}

	st, err := r.Status(ctx, started.ID)
	require.NoError(t, err)
	assert.Less(t, st.Idle, 40*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, err := r.Status(ctx, started.ID)
		return errors.Is(err, domain.ErrSessionNotFound)
	}, time.Second, 5*time.Millisecond)
}

func TestEndRacingTimeout(t *testing.T) {
	ends := &endRecorder{}
	r := session.New(flow.Kiosk(),
		session.WithIdleTimeout(2*time.Millisecond),
		session.WithWarningLead(0),
		session.WithHooks(ends.hooks()),
	)
	ctx := context.Background()

	const n = 200
	ids := make([]string, n)
	results := make([]error, n)
	for i := range n {
		started, err := r.Start(ctx)
		require.NoError(t, err)
		ids[i] = started.ID
	}

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(time.Duration(i%4) * time.Millisecond)
			results[i] = r.End(ctx, ids[i])
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	for i, id := range ids {
		events := ends.For(id)
		require.Len(t, events, 1, "session %s torn down %d times", id, len(events))
		if results[i] == nil {
			assert.Equal(t, domain.EventSessionEnded, events[0].Type)
		} else {
			assert.ErrorIs(t, results[i], domain.ErrSessionNotFound)
			assert.Equal(t, domain.EventSessionTimeout, events[0].Type)
		}
	}
}

func TestWarning(t *testing.T) {
	warnings := make(chan domain.SessionEvent, 1)
	r := session.New(flow.Kiosk(),
		session.WithIdleTimeout(150*time.Millisecond),
		session.WithWarningLead(100*time.Millisecond),
		session.WithHooks(domain.LifecycleHooks{
			OnTimeoutWarning: func(_ context.Context, e *domain.SessionEvent) { warnings <- *e },
		}),
	)
	ctx := context.Background()
	defer r.Close(ctx)

	started, _ := r.Start(ctx)

	select {
	case w := <-warnings:
		assert.Equal(t, started.ID, w.SessionID)
		assert.Equal(t, domain.EventTimeoutWarning, w.Type)
		assert.Greater(t, w.Remaining, time.Duration(0))
		assert.LessOrEqual(t, w.Remaining, 100*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("warning never emitted")
	}
}

func TestWarning_LeadNotShorterThanTimeoutIsDisabled(t *testing.T) {
	r := session.New(flow.Kiosk(),
		session.WithIdleTimeout(time.Minute),
		session.WithWarningLead(time.Minute),
	)
	ctx := context.Background()
	defer r.Close(ctx)

	_, _ = r.Start(ctx)
	assert.Equal(t, 1, r.Scheduler().Len())
}

func TestEffect(t *testing.T) {
	calls := 0
	r := session.New(flow.Kiosk(),
		session.WithEffect(domain.TriggerPaymentSuccess, func(ctx context.Context, s *session.Scope) (any, error) {
			calls++
			assert.Equal(t, domain.StatePaymentProcess, s.Transition.From)
			assert.Equal(t, domain.StatePaymentComplete, s.Transition.To)
			if s.Context()["method"] == "declined" {
				return nil, fmt.Errorf("card declined")
			}
			s.Set("receipt", "R-1")
			return "R-1", nil
		}),
	)
	ctx := context.Background()
	defer r.Close(ctx)

	started, _ := r.Start(ctx)
	for _, trig := range []domain.Trigger{
		domain.TriggerSelectPayment, domain.TriggerStartPayment, domain.TriggerPatientVerified,
		domain.TriggerAmountConfirmed, domain.TriggerMethodSelected,
	} {
		_, err := r.Transition(ctx, started.ID, trig, nil)
		require.NoError(t, err)
	}

	_, err := r.Transition(ctx, started.ID, domain.TriggerPaymentSuccess, map[string]any{"method": "declined"})
	require.EqualError(t, err, "card declined")
	st, _ := r.Status(ctx, started.ID)
	assert.Equal(t, domain.StatePaymentProcess, st.State)
	assert.NotContains(t, st.Context, "method", "a failed effect rolls the patch back")

	res, err := r.Transition(ctx, started.ID, domain.TriggerPaymentSuccess, map[string]any{"method": "card"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaymentComplete, res.State)
	assert.Equal(t, "R-1", res.Output)
	assert.Equal(t, 2, calls)

	st, _ = r.Status(ctx, started.ID)
	assert.Equal(t, "R-1", st.Context["receipt"])
}

func TestAudit_FailureDoesNotBlockTransition(t *testing.T) {
	var attempts atomic.Int32
	sink := ports.AuditSinkFunc(func(context.Context, domain.AuditRecord) error {
		attempts.Add(1)
		return errors.New("sink down")
	})
	r := session.New(flow.Kiosk(), session.WithAuditSink(sink))
	ctx := context.Background()
	defer r.Close(ctx)

	started, _ := r.Start(ctx)
	res, err := r.Transition(ctx, started.ID, domain.TriggerAdminMode, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateAdminAuth, res.State)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestHooks_Transition(t *testing.T) {
	var seen []domain.TransitionEvent
	r := session.New(flow.Kiosk(), session.WithHooks(domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) { seen = append(seen, *e) },
	}))
	ctx := context.Background()
	defer r.Close(ctx)

	started, _ := r.Start(ctx)
	_, err := r.Transition(ctx, started.ID, domain.TriggerSelectReception, nil)
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, started.ID, seen[0].SessionID)
	assert.Equal(t, domain.StateHome, seen[0].From)
	assert.Equal(t, domain.StateReception, seen[0].To)
}

func TestList(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	seq := 0
	r := session.New(flow.Kiosk(),
		session.WithClock(func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }),
		session.WithIDGenerator(func() string { seq++; return fmt.Sprintf("s-%d", seq) }),
	)
	ctx := context.Background()
	defer r.Close(ctx)

	for i := 0; i < 3; i++ {
		_, err := r.Start(ctx)
		require.NoError(t, err)
	}
	_, err := r.Transition(ctx, "s-2", domain.TriggerSelectPayment, map[string]any{"patient_id": "P-2"})
	require.NoError(t, err)

	list := r.List(ctx)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"s-1", "s-2", "s-3"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, domain.StatePayment, list[1].State)
	assert.Nil(t, list[1].Context, "overview never exposes context")
}

func TestClose(t *testing.T) {
	ends := &endRecorder{}
	r := session.New(flow.Kiosk(), session.WithHooks(ends.hooks()))
	ctx := context.Background()

	a, _ := r.Start(ctx)
	b, _ := r.Start(ctx)

	require.NoError(t, r.Close(ctx))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.Scheduler().Len())
	assert.Len(t, ends.For(a.ID), 1)
	assert.Len(t, ends.For(b.ID), 1)
}

func TestClose_LeavesSharedSchedulerRunning(t *testing.T) {
	shared := scheduler.New()
	defer shared.Stop()
	shared.Schedule("other-owner", time.Hour, func(string) {})

	r := session.New(flow.Kiosk(), session.WithScheduler(shared))
	ctx := context.Background()
	_, err := r.Start(ctx)
	require.NoError(t, err)

	require.NoError(t, r.Close(ctx))
	_, ok := shared.Handle("other-owner")
	assert.True(t, ok, "an injected scheduler belongs to its caller")
	assert.Equal(t, 1, shared.Len())
}
