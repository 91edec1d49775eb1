package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/astrofront/astrofront/internal/config"
	"github.com/astrofront/astrofront/internal/gate"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func TestNewBuildsAllStages(t *testing.T) {
	p := New(testConfig(t))

	require.NotNil(t, p.Limiter)
	require.NotNil(t, p.Cache)
	require.NotNil(t, p.Compressor)
	require.NotNil(t, p.Gate)
	require.NotNil(t, p.Memo)

	snap := p.Limiter.Snapshot()
	require.Equal(t, 100, snap.PerMinute)
	require.Equal(t, 2000, snap.PerHour)

	stats := p.Gate.Stats()
	require.Equal(t, 4, stats.MaxConcurrent)
	require.Equal(t, 8, stats.QueueDepth)
}

func TestStartAndShutdown(t *testing.T) {
	p := New(testConfig(t))

	p.Start()
	// Second Start is a no-op, not a second set of janitors.
	p.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
	require.NoError(t, p.Shutdown(ctx))
}

func TestCheckHealthReflectsGatePressure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Gate.MaxConcurrent = 1
	cfg.Gate.QueueDepth = 1
	p := New(cfg)

	require.NoError(t, p.CheckHealth(context.Background()))

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	block := func(ctx context.Context) (any, error) {
		started <- struct{}{}
		<-release
		return nil, nil
	}

	// Occupy the permit, then park a second caller in the queue.
	go func() { _, _ = p.Gate.Run(context.Background(), block) }()
	<-started
	go func() { _, _ = p.Gate.Run(context.Background(), block) }()

	require.Eventually(t, func() bool {
		return p.CheckHealth(context.Background()) != nil
	}, time.Second, 5*time.Millisecond)

	close(release)

	require.Eventually(t, func() bool {
		return p.CheckHealth(context.Background()) == nil
	}, time.Second, 5*time.Millisecond)
}

func TestGateErrorsAreDistinct(t *testing.T) {
	require.NotErrorIs(t, gate.ErrSaturated, gate.ErrTimedOut)
}
