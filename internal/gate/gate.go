// Package gate bounds the number of concurrently executing CPU-bound tasks
// so offloaded computation cannot starve request handling, and memoizes
// recent pure computations.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	// ErrSaturated is returned when every permit is busy and the wait queue
	// is full. Callers should surface it as backpressure, not retry inline.
	ErrSaturated = errors.New("gate: no capacity, queue full")

	// ErrTimedOut is returned when a task exceeds its deadline. The
	// underlying work is abandoned from the caller's perspective; it may
	// still run to completion and will release its permit when it does.
	ErrTimedOut = errors.New("gate: task deadline exceeded")
)

// Task is one unit of CPU-bound or blocking work.
type Task func(ctx context.Context) (any, error)

// Config holds gate capacity parameters.
type Config struct {
	MaxConcurrent int
	QueueDepth    int
	TaskTimeout   time.Duration
}

// Stats is the observable gate state for the status surface.
type Stats struct {
	InFlight      int64 `json:"in_flight"`
	Queued        int64 `json:"queued"`
	MaxConcurrent int   `json:"max_concurrent"`
	QueueDepth    int   `json:"queue_depth"`
}

// Gate is a fixed-size permit pool with a bounded wait queue. Permits are
// acquired and released via channel operations, so release is atomic and
// happens exactly once per run on every exit path.
type Gate struct {
	permits chan struct{}
	queue   chan struct{}

	taskTimeout time.Duration

	inFlight atomic.Int64
	queued   atomic.Int64
}

// New creates a gate. Non-positive values fall back to defaults (4 permits,
// queue of 8, 30 second task deadline).
func New(cfg Config) *Gate {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 8
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Second
	}
	return &Gate{
		permits:     make(chan struct{}, cfg.MaxConcurrent),
		queue:       make(chan struct{}, cfg.QueueDepth),
		taskTimeout: cfg.TaskTimeout,
	}
}

type taskResult struct {
	val any
	err error
}

// Run executes task under a permit with the configured deadline.
//
// The task context carries the caller's values but not its cancellation:
// once admitted, work runs to its own deadline even if the inbound request
// is abandoned, so a shared result is never half-built because one caller
// hung up. The deadline is advisory to the caller; a timed-out task keeps
// its permit until the underlying function returns.
func (g *Gate) Run(ctx context.Context, task Task) (any, error) {
	// Reserve a queue slot or reject immediately. Waiting is bounded, never
	// unbounded queueing.
	select {
	case g.queue <- struct{}{}:
		g.queued.Add(1)
	default:
		return nil, ErrSaturated
	}

	// Wait for a permit, bounded by the caller's context.
	select {
	case g.permits <- struct{}{}:
		g.queued.Add(-1)
		<-g.queue
	case <-ctx.Done():
		g.queued.Add(-1)
		<-g.queue
		return nil, ctx.Err()
	}

	g.inFlight.Add(1)

	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.taskTimeout)
	defer cancel()

	done := make(chan taskResult, 1)
	go func() {
		res := g.invoke(taskCtx, task)
		// Release before publishing so a caller observing the result sees
		// the capacity already recovered.
		g.inFlight.Add(-1)
		<-g.permits
		done <- res
	}()

	select {
	case res := <-done:
		return res.val, res.err
	case <-taskCtx.Done():
		// The task may have finished in the same instant the deadline fired.
		select {
		case res := <-done:
			return res.val, res.err
		default:
		}
		return nil, ErrTimedOut
	}
}

// invoke runs the task, converting a panic into a failure instead of
// crashing the pool.
func (g *Gate) invoke(ctx context.Context, task Task) (res taskResult) {
	defer func() {
		if p := recover(); p != nil {
			res = taskResult{err: fmt.Errorf("gate: task panic: %v", p)}
		}
	}()
	val, err := task(ctx)
	return taskResult{val: val, err: err}
}

// Stats returns current occupancy and configured capacity.
func (g *Gate) Stats() Stats {
	return Stats{
		InFlight:      g.inFlight.Load(),
		Queued:        g.queued.Load(),
		MaxConcurrent: cap(g.permits),
		QueueDepth:    cap(g.queue),
	}
}
