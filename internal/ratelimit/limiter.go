// Package ratelimit implements a per-client sliding-window rate limiter
// with independent per-minute and per-hour horizons.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
)

// Limit names reported on denial and used as metric labels.
const (
	LimitMinute = "minute"
	LimitHour   = "hour"
)

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed bool

	// Limit names the horizon that caused the denial ("minute" or "hour").
	// Empty when allowed.
	Limit string

	// RetryAfter is the suggested client wait before retrying. Always
	// positive on denial.
	RetryAfter time.Duration
}

// Config holds the limiter ceilings and housekeeping cadence.
type Config struct {
	PerMinute int
	PerHour   int

	// IdleGrace extends the hour horizon before an idle client window is
	// reclaimed by the janitor.
	IdleGrace time.Duration

	// SweepEvery is the janitor interval.
	SweepEvery time.Duration
}

// clientWindow holds one caller's recent request history. Timestamps are
// ordered oldest first and trimmed to the hour horizon on access.
type clientWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
	lastSeen   time.Time
}

// Limiter tracks request windows per client key. Unrelated clients never
// block each other: the map lock is only held to locate or create a window,
// mutation happens under the per-client lock.
type Limiter struct {
	mu      sync.RWMutex
	clients map[string]*clientWindow

	perMinute  int
	perHour    int
	idleGrace  time.Duration
	sweepEvery time.Duration

	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

// New creates a limiter with the given ceilings. Non-positive config values
// fall back to conservative defaults.
func New(cfg Config) *Limiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 100
	}
	if cfg.PerHour <= 0 {
		cfg.PerHour = 2000
	}
	if cfg.IdleGrace <= 0 {
		cfg.IdleGrace = 5 * time.Minute
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = time.Minute
	}

	return &Limiter{
		clients:    make(map[string]*clientWindow),
		perMinute:  cfg.PerMinute,
		perHour:    cfg.PerHour,
		idleGrace:  cfg.IdleGrace,
		sweepEvery: cfg.SweepEvery,
	}
}

// Check evaluates both horizons for the client and records the request.
// The timestamp is appended even on denial, so sustained abuse keeps
// tightening its own window.
func (l *Limiter) Check(clientKey string) Decision {
	now := l.now()

	win := l.window(clientKey)

	win.mu.Lock()
	defer win.mu.Unlock()

	win.purge(now)

	minuteCount := win.countSince(now.Add(-minuteWindow))
	hourCount := len(win.timestamps)

	decision := Decision{Allowed: true}

	minuteDenied := minuteCount >= l.perMinute
	hourDenied := hourCount >= l.perHour

	switch {
	case minuteDenied && hourDenied:
		minuteRetry := win.retryAfter(now, minuteWindow)
		hourRetry := win.retryAfter(now, hourWindow)
		if hourRetry >= minuteRetry {
			decision = Decision{Limit: LimitHour, RetryAfter: hourRetry}
		} else {
			decision = Decision{Limit: LimitMinute, RetryAfter: minuteRetry}
		}
	case minuteDenied:
		decision = Decision{Limit: LimitMinute, RetryAfter: win.retryAfter(now, minuteWindow)}
	case hourDenied:
		decision = Decision{Limit: LimitHour, RetryAfter: win.retryAfter(now, hourWindow)}
	}

	win.timestamps = append(win.timestamps, now)
	win.lastSeen = now

	return decision
}

// window returns the client's window, creating it on first request.
func (l *Limiter) window(clientKey string) *clientWindow {
	l.mu.RLock()
	win, ok := l.clients[clientKey]
	l.mu.RUnlock()
	if ok {
		return win
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if win, ok := l.clients[clientKey]; ok {
		return win
	}
	win = &clientWindow{}
	l.clients[clientKey] = win
	return win
}

// purge drops timestamps older than the hour horizon. The minute horizon is
// evaluated by counting, so a single ordered slice serves both.
func (w *clientWindow) purge(now time.Time) {
	cutoff := now.Add(-hourWindow)
	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[i:]...)
	}
}

func (w *clientWindow) countSince(cutoff time.Time) int {
	n := 0
	for i := len(w.timestamps) - 1; i >= 0; i-- {
		if !w.timestamps[i].After(cutoff) {
			break
		}
		n++
	}
	return n
}

// retryAfter reports how long until the oldest in-window timestamp ages out
// of the given horizon, rounded up to whole seconds with a one second floor.
func (w *clientWindow) retryAfter(now time.Time, window time.Duration) time.Duration {
	cutoff := now.Add(-window)
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			retry := ts.Add(window).Sub(now)
			if retry <= time.Second {
				return time.Second
			}
			// Ceil to whole seconds so Retry-After never undershoots.
			return ((retry + time.Second - 1) / time.Second) * time.Second
		}
	}
	return time.Second
}

// Snapshot reports the configured ceilings and tracked client count for the
// status surface.
type Snapshot struct {
	PerMinute      int `json:"requests_per_minute"`
	PerHour        int `json:"requests_per_hour"`
	TrackedClients int `json:"tracked_clients"`
}

func (l *Limiter) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		PerMinute:      l.perMinute,
		PerHour:        l.perHour,
		TrackedClients: len(l.clients),
	}
}

// StartJanitor reclaims idle client windows on a ticker until the context is
// canceled. It takes the same per-client locks as Check, so reclamation never
// races a concurrent evaluation for the same key.
func (l *Limiter) StartJanitor(ctx context.Context) {
	t := time.NewTicker(l.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.sweep()
			}
		}
	}()
}

// sweep removes windows whose last request is past the hour horizon plus
// grace. Holding the map write lock prevents Check from fetching a window
// that is about to be deleted.
func (l *Limiter) sweep() {
	cutoff := l.now().Add(-(hourWindow + l.idleGrace))

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, win := range l.clients {
		win.mu.Lock()
		idle := win.lastSeen.Before(cutoff)
		win.mu.Unlock()
		if idle {
			delete(l.clients, key)
		}
	}
}

func (l *Limiter) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}
