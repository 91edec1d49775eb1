package config

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Defaults applied before any file, environment, or flag overrides. Ceilings
// and the 5 minute TTL follow the service's production tuning.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("limits.per_minute", 100)
	v.SetDefault("limits.per_hour", 2000)
	v.SetDefault("limits.idle_grace", "5m")
	v.SetDefault("limits.sweep_every", "1m")
	v.SetDefault("limits.excluded_paths", []string{
		"/", "/health", "/health/live", "/health/ready", "/health/startup",
		"/status", "/version", "/metrics",
	})

	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.max_entries", 1024)
	v.SetDefault("cache.sweep_every", "1m")
	v.SetDefault("cache.methods", []string{"GET"})
	v.SetDefault("cache.excluded_paths", []string{
		"/", "/health", "/health/live", "/health/ready", "/health/startup",
		"/status", "/version", "/metrics", "/api/v4/now",
	})

	v.SetDefault("compress.min_size", 1024)
	v.SetDefault("compress.level", 6)

	v.SetDefault("gate.max_concurrent", 4)
	v.SetDefault("gate.queue_depth", 8)
	v.SetDefault("gate.task_timeout", "30s")
	v.SetDefault("gate.memo_ttl", "10m")
	v.SetDefault("gate.memo_max_entries", 512)

	v.SetDefault("request.max_body_bytes", 2*1024*1024)
	v.SetDefault("request.slow_threshold", "2s")

	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}

// Load decodes the viper state into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))

	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// PathSet turns a path list into a constant-time membership set.
func PathSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}
