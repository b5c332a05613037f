package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/kiosk/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCounterStoreContract runs a suite of tests to verify that a CounterStore
// implementation adheres to the defined interface contract.
func RunCounterStoreContract(t *testing.T, store CounterStore) {
	ctx := context.Background()
	day := "contract-" + time.Now().Format("20060102150405")

	t.Run("Current Of Unknown Key", func(t *testing.T) {
		n, err := store.Current(ctx, domain.DepartmentDermatology, day)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("Increment Is Contiguous", func(t *testing.T) {
		for want := 1; want <= 3; want++ {
			got, err := store.Increment(ctx, domain.DepartmentPediatrics, day)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}

		cur, err := store.Current(ctx, domain.DepartmentPediatrics, day)
		require.NoError(t, err)
		assert.Equal(t, 3, cur)
	})

	t.Run("Keys Are Independent", func(t *testing.T) {
		got, err := store.Increment(ctx, domain.DepartmentSurgery, day)
		require.NoError(t, err)
		assert.Equal(t, 1, got)

		got, err = store.Increment(ctx, domain.DepartmentSurgery, day+"-next")
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})

	t.Run("Concurrent Increments", func(t *testing.T) {
		const n = 50
		seen := make(chan int, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := store.Increment(ctx, domain.DepartmentEmergency, day)
				if assert.NoError(t, err) {
					seen <- v
				}
			}()
		}
		wg.Wait()
		close(seen)

		got := make(map[int]bool, n)
		for v := range seen {
			assert.False(t, got[v], "number %d handed out twice", v)
			got[v] = true
		}
		for i := 1; i <= n; i++ {
			assert.True(t, got[i], "number %d missing", i)
		}
	})
}
