package metrics

import (
	"time"

	"github.com/astrofront/astrofront/internal/observability"
)

// Pipeline metrics following Prometheus conventions
var (
	// Rate limiter metrics
	RateLimitDecisionsTotal = "pipeline_ratelimit_decisions_total"

	// Response cache metrics
	CacheLookupsTotal   = "pipeline_cache_lookups_total"
	CacheEvictionsTotal = "pipeline_cache_evictions_total"
	CacheEntries        = "pipeline_cache_entries"

	// Compression metrics
	CompressionTotal = "pipeline_compression_total"

	// Concurrency gate metrics
	GateOutcomesTotal   = "pipeline_gate_outcomes_total"
	GateInFlight        = "pipeline_gate_in_flight"
	ComputationDuration = "pipeline_computation_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "pipeline_server_start_time_seconds"

	// Health check metrics
	HealthCheckTotal    = "pipeline_health_check_total"
	HealthCheckDuration = "pipeline_health_check_duration_ms"
)

// RecordRateLimit records a rate limiter decision. The horizon label names
// which window denied the request ("minute" or "hour"); allowed decisions
// carry horizon "none".
func RecordRateLimit(allowed bool, horizon string) {
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitDecisionsTotal,
			1,
			map[string]string{
				"decision": decision,
				"horizon":  horizon,
			},
		)
	}
}

// RecordCacheLookup records a cache lookup outcome
func RecordCacheLookup(hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			CacheLookupsTotal,
			1,
			map[string]string{
				"result": result,
			},
		)
	}
}

// RecordCacheEviction records a cache entry removed to make room or by sweep
func RecordCacheEviction(reason string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			CacheEvictionsTotal,
			1,
			map[string]string{
				"reason": reason,
			},
		)
	}
}

// SetCacheEntries sets the current number of live cache entries
func SetCacheEntries(count int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			CacheEntries,
			float64(count),
			nil,
		)
	}
}

// RecordCompression records whether a response body was gzip encoded
func RecordCompression(applied bool) {
	result := "applied"
	if !applied {
		result = "skipped"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			CompressionTotal,
			1,
			map[string]string{
				"result": result,
			},
		)
	}
}

// RecordGateOutcome records a gate admission outcome: completed, memoized,
// saturated, timed_out, or canceled.
func RecordGateOutcome(outcome string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			GateOutcomesTotal,
			1,
			map[string]string{
				"outcome": outcome,
			},
		)
	}
}

// SetGateInFlight sets the current number of computations holding a permit
func SetGateInFlight(count int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			GateInFlight,
			float64(count),
			nil,
		)
	}
}

// RecordComputation records the duration of a gated computation
func RecordComputation(endpoint string, duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			ComputationDuration,
			duration,
			map[string]string{
				"endpoint": endpoint,
			},
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
