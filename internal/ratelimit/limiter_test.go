package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCheckAllowsUpToMinuteCeiling(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(Config{PerMinute: 100, PerHour: 2000})
	l.Clock = fixedClock(base)

	for i := 0; i < 100; i++ {
		dec := l.Check("client-a")
		if !dec.Allowed {
			t.Fatalf("request %d unexpectedly denied", i+1)
		}
	}

	dec := l.Check("client-a")
	if dec.Allowed {
		t.Fatal("request 101 should be denied")
	}
	if dec.Limit != LimitMinute {
		t.Fatalf("expected minute limit, got %q", dec.Limit)
	}
	if dec.RetryAfter <= 0 {
		t.Fatalf("expected positive retry after, got %v", dec.RetryAfter)
	}
}

func TestCheckAdmitsAgainAfterWindowSlides(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l := New(Config{PerMinute: 3, PerHour: 2000})
	l.Clock = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if dec := l.Check("c"); !dec.Allowed {
			t.Fatalf("request %d denied", i+1)
		}
	}
	if dec := l.Check("c"); dec.Allowed {
		t.Fatal("fourth request within the minute should be denied")
	}

	now = base.Add(61 * time.Second)
	if dec := l.Check("c"); !dec.Allowed {
		t.Fatalf("request after window slid should be allowed, got %+v", dec)
	}
}

func TestDeniedRequestsKeepTighteningTheWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l := New(Config{PerMinute: 2, PerHour: 2000})
	l.Clock = func() time.Time { return now }

	l.Check("c")
	l.Check("c")

	// Denied attempts are still recorded, so even after the original two
	// admissions age out the hammering client stays over its ceiling.
	for i := 0; i < 10; i++ {
		now = now.Add(5 * time.Second)
		if dec := l.Check("c"); dec.Allowed {
			t.Fatalf("attempt at +%v should be denied", now.Sub(base))
		}
	}
}

func TestHourCeilingEvaluatedIndependently(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l := New(Config{PerMinute: 1000, PerHour: 5})
	l.Clock = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		if dec := l.Check("c"); !dec.Allowed {
			t.Fatalf("request %d denied", i+1)
		}
		now = now.Add(2 * time.Minute)
	}

	dec := l.Check("c")
	if dec.Allowed {
		t.Fatal("sixth request within the hour should be denied")
	}
	if dec.Limit != LimitHour {
		t.Fatalf("expected hour limit, got %q", dec.Limit)
	}
}

func TestBothHorizonsDeniedReportsLargerRetry(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(Config{PerMinute: 3, PerHour: 3})
	l.Clock = fixedClock(base)

	for i := 0; i < 3; i++ {
		l.Check("c")
	}

	dec := l.Check("c")
	if dec.Allowed {
		t.Fatal("expected denial")
	}
	if dec.Limit != LimitHour {
		t.Fatalf("hour horizon retries later and should win, got %q", dec.Limit)
	}
	if dec.RetryAfter < 59*time.Minute {
		t.Fatalf("expected roughly an hour retry, got %v", dec.RetryAfter)
	}
}

func TestIndependentClientsDoNotShareWindows(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(Config{PerMinute: 1, PerHour: 100})
	l.Clock = fixedClock(base)

	if dec := l.Check("a"); !dec.Allowed {
		t.Fatal("first request for a denied")
	}
	if dec := l.Check("a"); dec.Allowed {
		t.Fatal("second request for a should be denied")
	}
	if dec := l.Check("b"); !dec.Allowed {
		t.Fatal("b must not inherit a's window")
	}
}

func TestJanitorReclaimsIdleWindows(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l := New(Config{PerMinute: 10, PerHour: 100, IdleGrace: time.Minute})
	l.Clock = func() time.Time { return now }

	l.Check("idle")
	l.Check("busy")

	if snap := l.Snapshot(); snap.TrackedClients != 2 {
		t.Fatalf("expected 2 tracked clients, got %d", snap.TrackedClients)
	}

	now = base.Add(2 * time.Hour)
	l.Check("busy")
	l.sweep()

	snap := l.Snapshot()
	if snap.TrackedClients != 1 {
		t.Fatalf("expected idle window reclaimed, got %d clients", snap.TrackedClients)
	}
}

func TestJanitorStopsOnContextCancel(t *testing.T) {
	l := New(Config{PerMinute: 10, PerHour: 100, SweepEvery: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	l.StartJanitor(ctx)
	cancel()
	// Nothing to assert beyond not hanging or panicking.
	time.Sleep(5 * time.Millisecond)
}

func TestConcurrentChecksNeverOveradmit(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(Config{PerMinute: 50, PerHour: 2000})
	l.Clock = fixedClock(base)

	var wg sync.WaitGroup
	allowed := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Check("shared").Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 50 {
		t.Fatalf("expected exactly 50 admissions, got %d", count)
	}
}

func TestSnapshotReportsConfiguredCeilings(t *testing.T) {
	l := New(Config{PerMinute: 42, PerHour: 420})
	snap := l.Snapshot()
	if snap.PerMinute != 42 || snap.PerHour != 420 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
