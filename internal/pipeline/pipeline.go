// Package pipeline assembles the request-processing stages (rate limiter,
// response cache, compressor, concurrency gate, memoizer) and manages their
// shared lifecycle.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/astrofront/astrofront/internal/compress"
	"github.com/astrofront/astrofront/internal/config"
	"github.com/astrofront/astrofront/internal/gate"
	"github.com/astrofront/astrofront/internal/observability"
	"github.com/astrofront/astrofront/internal/ratelimit"
	"github.com/astrofront/astrofront/internal/respcache"
)

// Pipeline owns every processing stage. Stages are independent: the
// middleware chain decides ordering, the pipeline only builds and sweeps them.
type Pipeline struct {
	Limiter    *ratelimit.Limiter
	Cache      *respcache.Cache
	Compressor *compress.Compressor
	Gate       *gate.Gate
	Memo       *gate.Memoizer

	janitorCtx    context.Context
	janitorCancel context.CancelFunc
}

// New builds all stages from configuration.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		Limiter: ratelimit.New(ratelimit.Config{
			PerMinute:  cfg.Limits.PerMinute,
			PerHour:    cfg.Limits.PerHour,
			IdleGrace:  cfg.Limits.IdleGrace,
			SweepEvery: cfg.Limits.SweepEvery,
		}),
		Cache: respcache.New(respcache.Config{
			TTL:        cfg.Cache.TTL,
			MaxEntries: cfg.Cache.MaxEntries,
			SweepEvery: cfg.Cache.SweepEvery,
		}),
		Compressor: compress.New(cfg.Compress.MinSize, cfg.Compress.Level),
		Gate: gate.New(gate.Config{
			MaxConcurrent: cfg.Gate.MaxConcurrent,
			QueueDepth:    cfg.Gate.QueueDepth,
			TaskTimeout:   cfg.Gate.TaskTimeout,
		}),
		Memo: gate.NewMemoizer(gate.MemoConfig{
			TTL:        cfg.Gate.MemoTTL,
			MaxEntries: cfg.Gate.MemoMaxEntries,
		}),
	}
}

// Start launches the background janitors. Safe to call once; Shutdown stops
// them.
func (p *Pipeline) Start() {
	if p.janitorCancel != nil {
		return
	}
	p.janitorCtx, p.janitorCancel = context.WithCancel(context.Background())

	p.Limiter.StartJanitor(p.janitorCtx)
	p.Cache.StartJanitor(p.janitorCtx)
	p.Memo.StartJanitor(p.janitorCtx)

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Pipeline janitors started",
			zap.Int("gate_permits", p.Gate.Stats().MaxConcurrent))
	}
}

// Shutdown stops the janitors. In-flight gated computations keep running to
// completion; their results are simply no longer retained.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	if p.janitorCancel != nil {
		p.janitorCancel()
		p.janitorCancel = nil
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Pipeline stopped",
			zap.Int64("gate_in_flight", p.Gate.Stats().InFlight))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// CheckHealth reports whether the gate has observable headroom. Used by the
// readiness probe: a fully saturated queue means new work would be rejected.
func (p *Pipeline) CheckHealth(ctx context.Context) error {
	stats := p.Gate.Stats()
	if stats.Queued >= int64(stats.QueueDepth) {
		return fmt.Errorf("gate saturated: %d queued of %d", stats.Queued, stats.QueueDepth)
	}
	return nil
}
