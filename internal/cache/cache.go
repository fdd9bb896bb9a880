package cache

import (
	"context"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache is a process-local map whose entries expire after a TTL.
// Expired entries are never returned. Writes sweep them out at most once per
// TTL, and Purge or PurgeEvery drops them on demand.
type Cache[V any] struct {
	mu        sync.Mutex
	entries   map[string]entry[V]
	ttl       time.Duration
	clk       Clock
	nextSweep time.Time
}

func New[V any](ttl time.Duration, clk Clock) *Cache[V] {
	if clk == nil {
		clk = RealClock{}
	}
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		clk:     clk,
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	now := c.clk.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !now.Before(e.expires) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) Set(key string, v V) {
	c.SetTTL(key, v, c.ttl)
}

// SetTTL stores v with its own lifetime. A non-positive ttl is a no-op.
func (c *Cache[V]) SetTTL(key string, v V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := c.clk.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !now.Before(c.nextSweep) {
		c.sweepLocked(now)
		c.nextSweep = now.Add(c.sweepInterval(ttl))
	}
	c.entries[key] = entry[V]{value: v, expires: now.Add(ttl)}
}

func (c *Cache[V]) sweepInterval(ttl time.Duration) time.Duration {
	if c.ttl > 0 {
		return c.ttl
	}
	return ttl
}

func (c *Cache[V]) sweepLocked(now time.Time) int {
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Purge removes expired entries and returns how many were dropped.
func (c *Cache[V]) Purge() int {
	now := c.clk.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(now)
}

// PurgeEvery runs Purge on a ticker until ctx is done.
func (c *Cache[V]) PurgeEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Purge()
		}
	}
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
