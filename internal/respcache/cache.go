// Package respcache provides an in-memory TTL response cache with hit/miss
// accounting and a bounded entry count.
package respcache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Entry is one memoized response.
type Entry struct {
	Body        []byte
	ContentType string
	StatusCode  int
	CreatedAt   time.Time
}

// Stats is the observable cache state exposed on the status surface.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Size      int   `json:"size"`
	Evictions int64 `json:"evictions"`
}

// Config holds cache sizing and expiry parameters.
type Config struct {
	TTL        time.Duration
	MaxEntries int
	SweepEvery time.Duration
}

type record struct {
	entry Entry
	elem  *list.Element // position in creation order
}

// Cache is a TTL map keyed by derived request keys. Expiry is measured from
// creation, never from last access. When full, the oldest-created entry is
// evicted first.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*record
	order   *list.List // front = oldest created, values are keys

	ttl        time.Duration
	maxEntries int
	sweepEvery time.Duration

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

// New creates a cache. Non-positive config values fall back to defaults
// (5 minute TTL, 1024 entries, 1 minute sweep).
func New(cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1024
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = time.Minute
	}
	return &Cache{
		entries:    make(map[string]*record),
		order:      list.New(),
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		sweepEvery: cfg.SweepEvery,
	}
}

// TTL reports the configured entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// MaxEntries reports the configured size bound.
func (c *Cache) MaxEntries() int { return c.maxEntries }

// Lookup returns a fresh entry for the key. Expired entries are never
// returned; they are removed lazily and counted as misses.
func (c *Cache) Lookup(key string) (Entry, bool) {
	now := c.now()

	c.mu.RLock()
	rec, ok := c.entries[key]
	var entry Entry
	var fresh bool
	if ok {
		entry = rec.entry
		fresh = now.Before(rec.entry.CreatedAt.Add(c.ttl))
	}
	c.mu.RUnlock()

	if ok && fresh {
		c.hits.Add(1)
		return entry, true
	}

	if ok {
		// Expired: drop it so the sweep has less to do. Re-check under the
		// write lock, a concurrent Store may have replaced it.
		c.mu.Lock()
		if cur, still := c.entries[key]; still && !now.Before(cur.entry.CreatedAt.Add(c.ttl)) {
			c.remove(key, cur)
		}
		c.mu.Unlock()
	}

	c.misses.Add(1)
	return Entry{}, false
}

// Store inserts or overwrites the entry for key. Last writer wins. When the
// cache is at capacity the oldest-created entry is evicted first.
func (c *Cache) Store(key string, entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.entries[key]; ok {
		rec.entry = entry
		c.order.MoveToBack(rec.elem)
		return
	}

	for len(c.entries) >= c.maxEntries {
		front := c.order.Front()
		if front == nil {
			break
		}
		oldest := front.Value.(string)
		if rec, ok := c.entries[oldest]; ok {
			c.remove(oldest, rec)
			c.evictions.Add(1)
		} else {
			c.order.Remove(front)
		}
	}

	c.entries[key] = &record{entry: entry, elem: c.order.PushBack(key)}
}

// remove must be called with the write lock held.
func (c *Cache) remove(key string, rec *record) {
	delete(c.entries, key)
	c.order.Remove(rec.elem)
}

// Stats returns the hit/miss counters and current size.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Size:      size,
		Evictions: c.evictions.Load(),
	}
}

// StartJanitor sweeps expired entries on a ticker until the context is
// canceled.
func (c *Cache) StartJanitor(ctx context.Context) {
	t := time.NewTicker(c.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.sweep()
			}
		}
	}()
}

func (c *Cache) sweep() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, rec := range c.entries {
		if !now.Before(rec.entry.CreatedAt.Add(c.ttl)) {
			c.remove(key, rec)
		}
	}
}

func (c *Cache) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}
