package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoizerReturnsCachedResultWithinTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoizer(MemoConfig{TTL: 10 * time.Minute})
	m.Clock = func() time.Time { return now }

	var calls atomic.Int64
	task := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "chart-data", nil
	}

	fp := Fingerprint("natal", "1990-07-15T14:30", "41.9,12.5")

	for i := 0; i < 3; i++ {
		val, err := m.Do(context.Background(), fp, task)
		require.NoError(t, err)
		require.Equal(t, "chart-data", val)
	}
	require.Equal(t, int64(1), calls.Load())
}

func TestMemoizerRecomputesAfterTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoizer(MemoConfig{TTL: time.Minute})
	m.Clock = func() time.Time { return now }

	var calls atomic.Int64
	task := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return calls.Load(), nil
	}

	fp := Fingerprint("input")
	val, err := m.Do(context.Background(), fp, task)
	require.NoError(t, err)
	require.Equal(t, int64(1), val)

	now = now.Add(2 * time.Minute)
	val, err = m.Do(context.Background(), fp, task)
	require.NoError(t, err)
	require.Equal(t, int64(2), val, "stale entry must be recomputed")
}

func TestMemoizerSingleFlight(t *testing.T) {
	m := NewMemoizer(MemoConfig{TTL: time.Minute})

	var calls atomic.Int64
	gateOpen := make(chan struct{})
	task := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-gateOpen
		return "shared", nil
	}

	fp := Fingerprint("same-input")
	var wg sync.WaitGroup
	results := make(chan any, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, err := m.Do(context.Background(), fp, task)
			require.NoError(t, err)
			results <- val
		}()
	}

	// Let every caller reach the memoizer before the task settles.
	time.Sleep(20 * time.Millisecond)
	close(gateOpen)
	wg.Wait()
	close(results)

	require.Equal(t, int64(1), calls.Load(), "concurrent identical calls must share one execution")
	for val := range results {
		require.Equal(t, "shared", val)
	}
}

func TestMemoizerDoesNotRetainFailures(t *testing.T) {
	m := NewMemoizer(MemoConfig{TTL: time.Minute})

	var calls atomic.Int64
	boom := errors.New("computation failed")
	failing := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, boom
	}

	fp := Fingerprint("flaky")
	_, err := m.Do(context.Background(), fp, failing)
	require.ErrorIs(t, err, boom)

	val, err := m.Do(context.Background(), fp, func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "recovered", nil
	})
	require.NoError(t, err)
	require.Equal(t, "recovered", val)
	require.Equal(t, int64(2), calls.Load())
	require.Equal(t, 1, m.Len())
}

func TestMemoizerEvictsOldestWhenFull(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoizer(MemoConfig{TTL: time.Hour, MaxEntries: 2})
	m.Clock = func() time.Time { return now }

	for _, fp := range []string{"a", "b", "c"} {
		_, err := m.Do(context.Background(), fp, func(ctx context.Context) (any, error) {
			return fp, nil
		})
		require.NoError(t, err)
		now = now.Add(time.Second)
	}

	require.Equal(t, 2, m.Len())

	var calls atomic.Int64
	val, err := m.Do(context.Background(), "a", func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "a2", nil
	})
	require.NoError(t, err)
	require.Equal(t, "a2", val)
	require.Equal(t, int64(1), calls.Load(), "oldest entry should have been evicted")
}

func TestMemoizerSweepRemovesExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoizer(MemoConfig{TTL: time.Minute})
	m.Clock = func() time.Time { return now }

	_, _ = m.Do(context.Background(), "x", func(ctx context.Context) (any, error) { return 1, nil })
	require.Equal(t, 1, m.Len())

	now = now.Add(2 * time.Minute)
	m.sweep()
	require.Equal(t, 0, m.Len())
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("natal", "1990-07-15", " Rome ")
	b := Fingerprint("natal", "1990-07-15", "Rome")
	require.Equal(t, a, b, "incidental whitespace must not change the fingerprint")

	c := Fingerprint("natal", "1990-07-16", "Rome")
	require.NotEqual(t, a, c)
}
