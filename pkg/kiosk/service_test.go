package kiosk_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/kiosk/pkg/adapters/memory"
	"github.com/aretw0/kiosk/pkg/domain"
	"github.com/aretw0/kiosk/pkg/kiosk"
	"github.com/aretw0/kiosk/pkg/queue"
	"github.com/aretw0/kiosk/pkg/reception"
	"github.com/aretw0/kiosk/pkg/session"
)

func newService(t *testing.T, opts ...kiosk.Option) *kiosk.Service {
	t.Helper()
	alloc := queue.New(memory.NewCounterStore(),
		queue.WithMinutesPerPatient(15),
		queue.WithLocator(reception.DefaultCatalog().Location),
	)
	svc := kiosk.New(alloc, opts...)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc
}

// walk applies triggers in order and returns the last result.
func walk(t *testing.T, svc *kiosk.Service, id string, steps ...domain.Trigger) kiosk.Result {
	t.Helper()
	var res kiosk.Result
	for _, trig := range steps {
		var err error
		res, err = svc.Transition(context.Background(), id, trig, nil)
		require.NoError(t, err, "trigger %s", trig)
	}
	return res
}

func TestReception_SymptomPathIssuesTicket(t *testing.T) {
	var issued []domain.TicketEvent
	svc := newService(t, kiosk.WithHooks(domain.LifecycleHooks{
		OnTicketIssued: func(_ context.Context, e *domain.TicketEvent) { issued = append(issued, *e) },
	}))
	ctx := context.Background()

	started, err := svc.Start(ctx)
	require.NoError(t, err)

	walk(t, svc, started.ID,
		domain.TriggerSelectReception,
		domain.TriggerStartReception,
	)
	_, err = svc.Transition(ctx, started.ID, domain.TriggerPatientIdentified, map[string]any{"patient_id": "P-42"})
	require.NoError(t, err)
	walk(t, svc, started.ID, domain.TriggerNoAppointment)
	_, err = svc.Transition(ctx, started.ID, domain.TriggerSymptomsSelected, map[string]any{"symptoms": []string{"fever", "cough"}})
	require.NoError(t, err)
	walk(t, svc, started.ID, domain.TriggerDepartmentSelected)

	res, err := svc.Transition(ctx, started.ID, domain.TriggerConfirmReception, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateReceptionComplete, res.State)
	require.NotNil(t, res.Ticket)
	assert.Equal(t, domain.DepartmentInternalMedicine, res.Ticket.Department)
	assert.Equal(t, 1, res.Ticket.QueueNumber)
	assert.Equal(t, 15, res.Ticket.EstimatedWaitMinutes)
	assert.Equal(t, "2F Room 201", res.Ticket.Location)

	st, err := svc.Status(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, *res.Ticket, st.Context[reception.KeyQueueTicket])
	assert.Equal(t, "internal_medicine", st.Context[reception.KeyDepartment])

	require.Len(t, issued, 1)
	assert.Equal(t, started.ID, issued[0].SessionID)

	res = walk(t, svc, started.ID, domain.TriggerReceptionDone)
	assert.Equal(t, domain.StateHome, res.State)
	assert.Nil(t, res.Ticket)

	st, err = svc.Status(ctx, started.ID)
	require.NoError(t, err)
	assert.Empty(t, st.Context, "no patient data survives the end of the flow")
}

func TestReception_ExplicitDepartment(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	started, _ := svc.Start(ctx)
	walk(t, svc, started.ID,
		domain.TriggerSelectReception,
		domain.TriggerStartReception,
		domain.TriggerPatientIdentified,
	)
	_, err := svc.Transition(ctx, started.ID, domain.TriggerHasAppointment, map[string]any{
		"appointment_id": "A-7",
		"department":     "pediatrics",
	})
	require.NoError(t, err)

	res := walk(t, svc, started.ID, domain.TriggerConfirmReception)
	require.NotNil(t, res.Ticket)
	assert.Equal(t, domain.DepartmentPediatrics, res.Ticket.Department)
}

func TestReception_MissingDepartmentKeepsConfirmScreen(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	started, _ := svc.Start(ctx)
	walk(t, svc, started.ID,
		domain.TriggerSelectReception,
		domain.TriggerStartReception,
		domain.TriggerPatientIdentified,
		domain.TriggerHasAppointment,
	)

	_, err := svc.Transition(ctx, started.ID, domain.TriggerConfirmReception, nil)
	require.ErrorIs(t, err, domain.ErrMissingDepartment)

	st, _ := svc.Status(ctx, started.ID)
	assert.Equal(t, domain.StateReceptionConfirm, st.State)

	status, err := svc.QueueStatus(ctx, domain.DepartmentInternalMedicine)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Waiting, "a failed check-in must not consume a number")
}

func TestReception_UnknownDepartment(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	started, _ := svc.Start(ctx)
	walk(t, svc, started.ID,
		domain.TriggerSelectReception,
		domain.TriggerStartReception,
		domain.TriggerPatientIdentified,
		domain.TriggerHasAppointment,
	)
	_, err := svc.Transition(ctx, started.ID, domain.TriggerConfirmReception, map[string]any{"department": "dentistry"})
	assert.ErrorIs(t, err, domain.ErrUnknownDepartment)
}

func TestCheckIn_PediatricsScenario(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		ticket, err := svc.CheckIn(ctx, domain.DepartmentPediatrics)
		require.NoError(t, err)
		assert.Equal(t, want, ticket.QueueNumber)
	}

	st, err := svc.QueueStatus(ctx, domain.DepartmentPediatrics)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Current)
	assert.Equal(t, 3, st.Waiting)
	assert.Equal(t, 45, st.EstimatedWaitMinutes)
	assert.Equal(t, "1F Room 101", st.Location)

	n, err := svc.CallNext(ctx, domain.DepartmentPediatrics)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, svc.Complete(ctx, domain.DepartmentPediatrics, 1))

	_, err = svc.CheckIn(ctx, "dentistry")
	assert.ErrorIs(t, err, domain.ErrUnknownDepartment)
	_, err = svc.QueueStatus(ctx, "dentistry")
	assert.ErrorIs(t, err, domain.ErrUnknownDepartment)
	_, err = svc.CallNext(ctx, "dentistry")
	assert.ErrorIs(t, err, domain.ErrUnknownDepartment)
}

func TestCheckIn_LocationFromDeskCatalog(t *testing.T) {
	svc := kiosk.New(queue.New(memory.NewCounterStore()))
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	ctx := context.Background()

	ticket, err := svc.CheckIn(ctx, domain.DepartmentPediatrics)
	require.NoError(t, err)
	assert.Equal(t, "1F Room 101", ticket.Location)

	st, err := svc.QueueStatus(ctx, domain.DepartmentPediatrics)
	require.NoError(t, err)
	assert.Equal(t, "1F Room 101", st.Location)
}

func TestCatalogs(t *testing.T) {
	svc := newService(t)
	assert.Len(t, svc.Departments(), 8)
	assert.Len(t, svc.Symptoms(), len(reception.DefaultSymptoms))
}

func TestSessionOptionsPassThrough(t *testing.T) {
	svc := newService(t, kiosk.WithSessionOptions(session.WithIdleTimeout(30*time.Millisecond)))
	ctx := context.Background()

	started, err := svc.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Millisecond, started.Timeout)

	assert.Eventually(t, func() bool {
		return len(svc.List(ctx)) == 0
	}, time.Second, 5*time.Millisecond)
}
