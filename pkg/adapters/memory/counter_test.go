package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/kiosk/pkg/adapters/memory"
	"github.com/aretw0/kiosk/pkg/domain"
	"github.com/aretw0/kiosk/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterStore_Contract(t *testing.T) {
	store := memory.NewCounterStore()
	ports.RunCounterStoreContract(t, store)
}

func TestCounterStore_Prune(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCounterStore()

	_, _ = store.Increment(ctx, domain.DepartmentPediatrics, "2026-03-01")
	_, _ = store.Increment(ctx, domain.DepartmentPediatrics, "2026-03-02")

	n, err := store.Prune(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	old, err := store.Current(ctx, domain.DepartmentPediatrics, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 0, old)

	cur, err := store.Current(ctx, domain.DepartmentPediatrics, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, 1, cur)
}

func TestAuditLog(t *testing.T) {
	ctx := context.Background()
	log := memory.NewAuditLog()

	require.NoError(t, log.Record(ctx, domain.AuditRecord{SessionID: "a", Trigger: domain.TriggerSelectPayment}))
	require.NoError(t, log.Record(ctx, domain.AuditRecord{SessionID: "b", Trigger: domain.TriggerSelectReception}))
	require.NoError(t, log.Record(ctx, domain.AuditRecord{SessionID: "a", Trigger: domain.TriggerCancel}))

	assert.Len(t, log.Records(), 3)

	recs := log.BySession("a")
	require.Len(t, recs, 2)
	assert.Equal(t, domain.TriggerCancel, recs[1].Trigger)
}
