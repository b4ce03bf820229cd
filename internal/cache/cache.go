package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry is one cached value. Entries are never mutated in place; a
// refresh stores a new entry under the same key.
type entry[V any] struct {
	value     V
	createdAt time.Time
}

// Cache is a concurrency-safe, time-bounded memoization cache. Values
// live for a fixed TTL and are lazily evicted on access; there is no
// background sweep. Concurrent misses for the same key are collapsed
// into a single compute call.
type Cache[V any] struct {
	mu    sync.RWMutex
	data  map[string]entry[V]
	ttl   time.Duration
	group singleflight.Group

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Cache whose entries expire after ttl.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		data: make(map[string]entry[V]),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get returns the live value for key, if any.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || c.now().Sub(e.createdAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetOrCompute returns the live value for key, or invokes compute,
// stores its result and returns it. Compute errors propagate to the
// caller and are never cached. Concurrent callers missing on the same
// key share one compute invocation.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: another caller may have
		// populated the entry while we queued.
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.data[key] = entry[V]{value: v, createdAt: c.now()}
		c.mu.Unlock()

		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Purge drops expired entries. The cache works without it; callers may
// run it occasionally to bound memory under high key diversity.
func (c *Cache[V]) Purge() {
	cutoff := c.now().Add(-c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.data {
		if !e.createdAt.After(cutoff) {
			delete(c.data, k)
		}
	}
}

// Len reports the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
