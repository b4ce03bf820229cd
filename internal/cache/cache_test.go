package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrComputeCachesValue(t *testing.T) {
	c := New[string](time.Hour)
	calls := 0
	compute := func(ctx context.Context) (string, error) {
		calls++
		return "value", nil
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute(ctx, "k", compute)
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	}
	assert.Equal(t, 1, calls)
}

func TestGetOrComputeDistinctKeys(t *testing.T) {
	c := New[int](time.Hour)
	ctx := context.Background()

	a, err := c.GetOrCompute(ctx, "a", func(ctx context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	b, err := c.GetOrCompute(ctx, "b", func(ctx context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 2, c.Len())
}

func TestExpiryTriggersRecompute(t *testing.T) {
	c := New[string](time.Hour)

	// Control the clock.
	now := time.Now()
	c.now = func() time.Time { return now }

	calls := 0
	compute := func(ctx context.Context) (string, error) {
		calls++
		return "v", nil
	}

	ctx := context.Background()
	_, err := c.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)

	// Still fresh just before the TTL boundary.
	now = now.Add(time.Hour - time.Second)
	_, err = c.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// Expired at the boundary.
	now = now.Add(2 * time.Second)
	_, err = c.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestErrorsAreNotCached(t *testing.T) {
	c := New[string](time.Hour)
	boom := errors.New("boom")

	calls := 0
	ctx := context.Background()

	_, err := c.GetOrCompute(ctx, "k", func(ctx context.Context) (string, error) {
		calls++
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrCompute(ctx, "k", func(ctx context.Context) (string, error) {
		calls++
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, 2, calls)
}

func TestConcurrentMissesShareOneCompute(t *testing.T) {
	c := New[string](time.Hour)

	var (
		mu      sync.Mutex
		calls   int
		started = make(chan struct{})
		release = make(chan struct{})
	)

	compute := func(ctx context.Context) (string, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		return "v", nil
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrCompute(ctx, "k", compute)
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}

	// Let all goroutines queue behind the first flight, then release.
	<-started
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestPurgeDropsExpiredEntries(t *testing.T) {
	c := New[int](time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	ctx := context.Background()
	_, err := c.GetOrCompute(ctx, "old", func(ctx context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = c.GetOrCompute(ctx, "new", func(ctx context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)

	c.Purge()
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("new")
	assert.True(t, ok)
}
