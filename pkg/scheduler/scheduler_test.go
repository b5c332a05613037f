package scheduler_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/kiosk/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_Fires(t *testing.T) {
	s := scheduler.New()
	done := make(chan string, 1)

	h := s.Schedule("a", 10*time.Millisecond, func(key string) { done <- key })

	select {
	case key := <-done:
		assert.Equal(t, "a", key)
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	assert.True(t, h.Fired())
	assert.False(t, h.Cancelled())
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Reset("a"), "reset after fire must observe an absent key")
}

func TestReset_Debounces(t *testing.T) {
	s := scheduler.New()
	var fires atomic.Int32
	fired := make(chan time.Time, 1)

	s.Schedule("session", 200*time.Millisecond, func(string) {
		fires.Add(1)
		fired <- time.Now()
	})

	// Keep the key alive for a full second with activity every 50ms.
	var last time.Time
	for i := 0; i < 20; i++ {
		time.Sleep(50 * time.Millisecond)
		require.True(t, s.Reset("session"))
		last = time.Now()
	}
	assert.Equal(t, int32(0), fires.Load(), "no fire while activity keeps arriving")

	select {
	case at := <-fired:
		elapsed := at.Sub(last)
		assert.GreaterOrEqual(t, elapsed, 190*time.Millisecond)
		assert.Less(t, elapsed, 400*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(1), fires.Load(), "exactly one fire per window")
}

func TestCancel(t *testing.T) {
	s := scheduler.New()
	var fires atomic.Int32

	h := s.Schedule("a", 20*time.Millisecond, func(string) { fires.Add(1) })
	assert.True(t, s.Cancel("a"))
	assert.False(t, s.Cancel("a"))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fires.Load())
	assert.True(t, h.Cancelled())
	assert.False(t, h.Fired())
	assert.False(t, s.Reset("a"))
}

func TestSchedule_ReplacesExisting(t *testing.T) {
	s := scheduler.New()
	var first, second atomic.Int32
	done := make(chan struct{})

	old := s.Schedule("a", 20*time.Millisecond, func(string) { first.Add(1) })
	s.Schedule("a", 40*time.Millisecond, func(string) {
		second.Add(1)
		close(done)
	})
	assert.Equal(t, 1, s.Len())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("replacement never fired")
	}
	time.Sleep(30 * time.Millisecond)

	assert.True(t, old.Cancelled())
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestFireTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := scheduler.New(scheduler.WithClock(func() time.Time { return base }))

	s.Schedule("a", time.Hour, func(string) {})
	at, ok := s.FireTime("a")
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Hour), at)

	h, ok := s.Handle("a")
	require.True(t, ok)
	assert.Equal(t, at, h.FireAt())

	_, ok = s.FireTime("missing")
	assert.False(t, ok)
	s.Stop()
}

func TestStop(t *testing.T) {
	s := scheduler.New()
	var fires atomic.Int32

	for _, k := range []string{"a", "b", "c"} {
		s.Schedule(k, 20*time.Millisecond, func(string) { fires.Add(1) })
	}
	require.Equal(t, 3, s.Len())

	s.Stop()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int32(0), fires.Load())
}

func TestCallback_MayReenter(t *testing.T) {
	s := scheduler.New()
	done := make(chan struct{})

	s.Schedule("a", 5*time.Millisecond, func(key string) {
		s.Cancel(key)
		s.Schedule("b", time.Hour, func(string) {})
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback deadlocked")
	}
	assert.Equal(t, 1, s.Len())
	s.Stop()
}

func TestConcurrentResetAndFire(t *testing.T) {
	s := scheduler.New()
	var fires, resets atomic.Int32

	for i := 0; i < 50; i++ {
		key := "k"
		s.Schedule(key, time.Millisecond, func(string) { fires.Add(1) })

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			if s.Reset(key) {
				resets.Add(1)
			}
		}()
		wg.Wait()
		time.Sleep(10 * time.Millisecond)
	}

	// A reset that wins re-arms the window instead of adding a second fire.
	assert.Equal(t, int32(50), fires.Load())
	t.Logf("resets won %d of 50 races", resets.Load())
	assert.Equal(t, 0, s.Len())
}
