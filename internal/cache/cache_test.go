package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Kamar-Folarin/github-ma-intel/internal/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

type result struct {
	ID int
}

func TestCache_SingleFlight(t *testing.T) {
	c := New[*result]()
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (*result, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &result{ID: 7}, nil
	}

	const n = 16
	var wg sync.WaitGroup
	results := make([]*result, n)
	started := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started <- struct{}{}
			v, err := c.GetOrCompute(ctx, "analysis", compute, 600*time.Second)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	for i := 0; i < n; i++ {
		<-started
	}
	// let every goroutine reach the flight before it completes
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestCache_TwoConcurrentCallersShareResult(t *testing.T) {
	c := New[*result]()
	ctx := context.Background()

	var calls int32
	slow := func(ctx context.Context) (*result, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(100 * time.Millisecond)
		return &result{ID: 1}, nil
	}

	var a, b *result
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a, _ = c.GetOrCompute(ctx, "analysis", slow, 600*time.Second)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(time.Millisecond)
		b, _ = c.GetOrCompute(ctx, "analysis", slow, 600*time.Second)
	}()
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.NotNil(t, a)
	assert.Same(t, a, b)
}

func TestCache_CallerStopsWaitingOnCancel(t *testing.T) {
	c := New[*result]()
	c.Set("snapshot", &result{ID: 1}, time.Nanosecond)
	time.Sleep(time.Millisecond)

	release := make(chan struct{})
	finished := make(chan struct{})
	compute := func(ctx context.Context) (*result, error) {
		defer close(finished)
		<-release
		return &result{ID: 2}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var prev *result
	go func() {
		var err error
		prev, err = c.GetOrCompute(ctx, "snapshot", compute, time.Minute)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, prev)
		assert.Equal(t, 1, prev.ID)
	case <-time.After(time.Second):
		t.Fatal("caller kept waiting for the compute after its context ended")
	}

	close(release)
	<-finished
	assert.Eventually(t, func() bool {
		v, ok := c.Get("snapshot")
		return ok && v.ID == 2 && c.Status("snapshot") == StatusFresh
	}, time.Second, time.Millisecond)
}

func TestCache_TTLBoundary(t *testing.T) {
	clock := newClock()
	c := New[int](WithClock(clock.Now))
	ctx := context.Background()
	ttl := 10 * time.Minute

	var calls int
	compute := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, err := c.GetOrCompute(ctx, "snapshot", compute, ttl)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.Advance(ttl - time.Nanosecond)
	assert.Equal(t, StatusFresh, c.Status("snapshot"))
	v, err = c.GetOrCompute(ctx, "snapshot", compute, ttl)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.Advance(2 * time.Nanosecond)
	assert.Equal(t, StatusStale, c.Status("snapshot"))
	v, err = c.GetOrCompute(ctx, "snapshot", compute, ttl)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, StatusFresh, c.Status("snapshot"))
}

func TestCache_FailureKeepsPreviousValue(t *testing.T) {
	clock := newClock()
	c := New[string](WithClock(clock.Now))
	ctx := context.Background()
	boom := errors.New("upstream down")

	t.Run("empty entry stays empty", func(t *testing.T) {
		v, err := c.GetOrCompute(ctx, "snapshot", func(ctx context.Context) (string, error) {
			return "", boom
		}, time.Minute)
		require.Error(t, err)
		assert.True(t, apperrors.IsCacheCompute(err))
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, v)
		assert.Equal(t, StatusEmpty, c.Status("snapshot"))
	})

	t.Run("stale entry stays authoritative", func(t *testing.T) {
		c.Set("snapshot", "v1", time.Minute)
		clock.Advance(2 * time.Minute)

		v, err := c.GetOrCompute(ctx, "snapshot", func(ctx context.Context) (string, error) {
			return "", boom
		}, time.Minute)
		require.Error(t, err)
		assert.Equal(t, "v1", v)
		assert.Equal(t, StatusStale, c.Status("snapshot"))

		got, ok := c.Get("snapshot")
		assert.True(t, ok)
		assert.Equal(t, "v1", got)
	})
}

func TestCache_Invalidate(t *testing.T) {
	c := New[string]()
	ctx := context.Background()

	c.Invalidate("missing")
	assert.Equal(t, StatusEmpty, c.Status("missing"))

	c.Set("snapshot", "v1", time.Hour)
	assert.Equal(t, StatusFresh, c.Status("snapshot"))

	c.Invalidate("snapshot")
	assert.Equal(t, StatusStale, c.Status("snapshot"))
	v, ok := c.Get("snapshot")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	v, err := c.GetOrCompute(ctx, "snapshot", func(ctx context.Context) (string, error) {
		return "v2", nil
	}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	info := c.Info("snapshot")
	assert.Equal(t, StatusFresh, info.Status)
	assert.Equal(t, time.Hour, info.TTL)
}
