// Package cache provides a keyed TTL cache whose recomputation is
// single-flight per key.
package cache

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/Kamar-Folarin/github-ma-intel/internal/errors"
)

// Status is the freshness state of a cache entry
type Status string

const (
	StatusEmpty Status = "EMPTY"
	StatusFresh Status = "FRESH"
	StatusStale Status = "STALE"
)

// ComputeFunc produces a new value for a key
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// EntryInfo describes a cached entry without its value
type EntryInfo struct {
	Key       string        `json:"key"`
	Status    Status        `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

type entry[V any] struct {
	value     V
	createdAt time.Time
	ttl       time.Duration
	expired   bool
}

// fresh holds while now <= createdAt + ttl
func (e *entry[V]) fresh(now time.Time) bool {
	return !e.expired && !now.After(e.createdAt.Add(e.ttl))
}

// Option configures a Cache
type Option func(*options)

type options struct {
	now       func() time.Time
	meterName string
}

// WithClock replaces the time source used for freshness checks
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithMeterName sets the otel meter the counters are registered on
func WithMeterName(name string) Option {
	return func(o *options) {
		o.meterName = name
	}
}

// Cache stores the last successfully computed value per key. Readers never
// block on staleness; only absent keys make GetOrCompute wait.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[V]
	group   singleflight.Group
	now     func() time.Time

	hits     metric.Int64Counter
	misses   metric.Int64Counter
	computes metric.Int64Counter
	failures metric.Int64Counter
}

// New creates an empty cache
func New[V any](opts ...Option) *Cache[V] {
	o := options{now: time.Now, meterName: "github-ma-intel/cache"}
	for _, opt := range opts {
		opt(&o)
	}

	meter := otel.Meter(o.meterName)
	hits, _ := meter.Int64Counter("cache_hits_total")
	misses, _ := meter.Int64Counter("cache_misses_total")
	computes, _ := meter.Int64Counter("cache_computes_total")
	failures, _ := meter.Int64Counter("cache_compute_failures_total")

	return &Cache[V]{
		entries:  make(map[string]*entry[V]),
		now:      o.now,
		hits:     hits,
		misses:   misses,
		computes: computes,
		failures: failures,
	}
}

// Get returns the last written value for key, fresh or stale
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Status reports the freshness of key
func (c *Cache[V]) Status(key string) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	switch {
	case !ok:
		return StatusEmpty
	case e.fresh(c.now()):
		return StatusFresh
	default:
		return StatusStale
	}
}

// Info describes key
func (c *Cache[V]) Info(key string) EntryInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info := EntryInfo{Key: key, Status: StatusEmpty}
	if e, ok := c.entries[key]; ok {
		info.CreatedAt = e.createdAt
		info.TTL = e.ttl
		info.Status = StatusStale
		if e.fresh(c.now()) {
			info.Status = StatusFresh
		}
	}
	return info
}

// Set stores value under key with a fresh timestamp
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry[V]{value: value, createdAt: c.now(), ttl: ttl}
}

// Invalidate marks key stale. The value stays readable through Get.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.expired = true
	}
}

func (c *Cache[V]) fresh(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok && e.fresh(c.now()) {
		return e.value, true
	}
	var zero V
	return zero, false
}

// GetOrCompute returns the fresh value for key, or runs fn to produce one.
// Concurrent callers for the same key share a single execution of fn, which
// runs with the context of the caller that started it. On failure nothing is
// written and the previous value, if any, is returned with a CACHE_COMPUTE
// error. A caller whose ctx ends first returns the previous value with
// ctx.Err() while the shared execution carries on.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, fn ComputeFunc[V], ttl time.Duration) (V, error) {
	attrs := metric.WithAttributes(attribute.String("key", key))
	if v, ok := c.fresh(key); ok {
		c.hits.Add(ctx, 1, attrs)
		return v, nil
	}
	c.misses.Add(ctx, 1, attrs)

	flight := c.group.DoChan(key, func() (interface{}, error) {
		// another flight may have finished between the check above and now
		if v, ok := c.fresh(key); ok {
			return v, nil
		}
		c.computes.Add(ctx, 1, attrs)
		v, err := fn(ctx)
		if err != nil {
			c.failures.Add(ctx, 1, attrs)
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		prev, _ := c.Get(key)
		return prev, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			prev, _ := c.Get(key)
			return prev, apperrors.NewCacheComputeError(key, res.Err)
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}
