package gate

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"sync"
	"time"
)

// MemoConfig holds memoizer sizing and expiry parameters.
type MemoConfig struct {
	TTL        time.Duration
	MaxEntries int
	SweepEvery time.Duration
}

type memoEntry struct {
	ready chan struct{} // closed once the computation settles

	val       any
	err       error
	createdAt time.Time

	elem *list.Element
}

// Memoizer caches recent pure computation results by input fingerprint.
// Concurrent calls for the same fingerprint share one execution. Only
// successful results are retained; failures propagate to every waiter and
// the next caller recomputes.
type Memoizer struct {
	mu      sync.Mutex
	entries map[string]*memoEntry
	order   *list.List // front = oldest completed

	ttl        time.Duration
	maxEntries int
	sweepEvery time.Duration

	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

// NewMemoizer creates a memoizer. Non-positive values fall back to defaults
// (10 minute TTL, 512 entries, 1 minute sweep).
func NewMemoizer(cfg MemoConfig) *Memoizer {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 512
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = time.Minute
	}
	return &Memoizer{
		entries:    make(map[string]*memoEntry),
		order:      list.New(),
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		sweepEvery: cfg.SweepEvery,
	}
}

// Fingerprint hashes the canonical input parts into a memo key.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		io.WriteString(h, strings.TrimSpace(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Do returns the memoized result for fingerprint, or runs task and caches a
// successful result. A caller arriving while the computation is in flight
// waits for it rather than starting a duplicate.
func (m *Memoizer) Do(ctx context.Context, fingerprint string, task Task) (any, error) {
	for {
		m.mu.Lock()
		entry, ok := m.entries[fingerprint]
		if ok && entry.settled() && !m.fresh(entry) {
			m.removeLocked(fingerprint, entry)
			ok = false
		}
		if ok {
			m.mu.Unlock()

			select {
			case <-entry.ready:
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			if entry.err != nil {
				return nil, entry.err
			}

			m.mu.Lock()
			fresh := m.fresh(entry)
			m.mu.Unlock()
			if fresh {
				return entry.val, nil
			}
			// Went stale while we waited; start over.
			continue
		}

		entry = &memoEntry{ready: make(chan struct{})}
		m.entries[fingerprint] = entry
		m.mu.Unlock()

		val, err := task(ctx)

		m.mu.Lock()
		entry.val = val
		entry.err = err
		entry.createdAt = m.now()
		close(entry.ready)
		if err != nil {
			// Do not keep failures; the entry stays visible only long enough
			// for current waiters to observe the error.
			delete(m.entries, fingerprint)
		} else {
			entry.elem = m.order.PushBack(fingerprint)
			m.evictLocked()
		}
		m.mu.Unlock()

		return val, err
	}
}

func (e *memoEntry) settled() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// fresh must be called with the lock held; pending entries count as fresh.
func (m *Memoizer) fresh(e *memoEntry) bool {
	if !e.settled() {
		return true
	}
	return m.now().Before(e.createdAt.Add(m.ttl))
}

func (m *Memoizer) evictLocked() {
	for len(m.entries) > m.maxEntries {
		front := m.order.Front()
		if front == nil {
			return
		}
		key := front.Value.(string)
		if entry, ok := m.entries[key]; ok {
			m.removeLocked(key, entry)
		} else {
			m.order.Remove(front)
		}
	}
}

func (m *Memoizer) removeLocked(key string, entry *memoEntry) {
	delete(m.entries, key)
	if entry.elem != nil {
		m.order.Remove(entry.elem)
	}
}

// Len reports the number of retained entries.
func (m *Memoizer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// StartJanitor sweeps expired entries on a ticker until the context is
// canceled.
func (m *Memoizer) StartJanitor(ctx context.Context) {
	t := time.NewTicker(m.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.sweep()
			}
		}
	}()
}

func (m *Memoizer) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, entry := range m.entries {
		if entry.settled() && !m.fresh(entry) {
			m.removeLocked(key, entry)
		}
	}
}

func (m *Memoizer) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}
