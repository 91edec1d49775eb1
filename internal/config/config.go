// Package config provides the typed application configuration, loaded from
// viper (YAML file + ASTROFRONT_ environment variables + flag overrides).
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Compress CompressConfig `mapstructure:"compress"`
	Gate     GateConfig     `mapstructure:"gate"`
	Request  RequestConfig  `mapstructure:"request"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LimitsConfig contains the sliding-window rate limiter ceilings.
type LimitsConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	PerHour   int `mapstructure:"per_hour"`

	// IdleGrace extends the hour horizon before an idle client window is
	// reclaimed.
	IdleGrace  time.Duration `mapstructure:"idle_grace"`
	SweepEvery time.Duration `mapstructure:"sweep_every"`

	// ExcludedPaths bypass the limiter entirely (health, status, docs).
	ExcludedPaths []string `mapstructure:"excluded_paths"`
}

// CacheConfig contains response cache configuration.
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
	SweepEvery time.Duration `mapstructure:"sweep_every"`

	// Methods lists request methods eligible for caching.
	Methods []string `mapstructure:"methods"`

	// ExcludedPaths are never cached regardless of method.
	ExcludedPaths []string `mapstructure:"excluded_paths"`
}

// CompressConfig contains response compression configuration.
type CompressConfig struct {
	MinSize int `mapstructure:"min_size"`
	Level   int `mapstructure:"level"`
}

// GateConfig contains the concurrency gate and computation memoizer
// configuration.
type GateConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	QueueDepth    int           `mapstructure:"queue_depth"`
	TaskTimeout   time.Duration `mapstructure:"task_timeout"`

	MemoTTL        time.Duration `mapstructure:"memo_ttl"`
	MemoMaxEntries int           `mapstructure:"memo_max_entries"`
}

// RequestConfig contains inbound request constraints.
type RequestConfig struct {
	// MaxBodyBytes caps the inbound payload; larger requests are rejected
	// before any processing.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`

	// SlowThreshold marks requests worth a slow-request warning log.
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level: trace, debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Validate rejects configurations that would disable a safety bound.
func (c *Config) Validate() error {
	if c.Limits.PerMinute <= 0 || c.Limits.PerHour <= 0 {
		return fmt.Errorf("limits: ceilings must be positive (per_minute=%d, per_hour=%d)",
			c.Limits.PerMinute, c.Limits.PerHour)
	}
	if c.Limits.PerHour < c.Limits.PerMinute {
		return fmt.Errorf("limits: per_hour (%d) must be at least per_minute (%d)",
			c.Limits.PerHour, c.Limits.PerMinute)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache: ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache: max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Gate.MaxConcurrent <= 0 {
		return fmt.Errorf("gate: max_concurrent must be positive, got %d", c.Gate.MaxConcurrent)
	}
	if c.Gate.QueueDepth <= 0 {
		return fmt.Errorf("gate: queue_depth must be positive, got %d", c.Gate.QueueDepth)
	}
	if c.Gate.TaskTimeout <= 0 {
		return fmt.Errorf("gate: task_timeout must be positive, got %s", c.Gate.TaskTimeout)
	}
	if c.Request.MaxBodyBytes <= 0 {
		return fmt.Errorf("request: max_body_bytes must be positive, got %d", c.Request.MaxBodyBytes)
	}
	return nil
}
