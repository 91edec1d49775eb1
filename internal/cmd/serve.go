package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/astrofront/astrofront/internal/astro"
	"github.com/astrofront/astrofront/internal/config"
	errwrap "github.com/astrofront/astrofront/internal/errors"
	"github.com/astrofront/astrofront/internal/metrics"
	"github.com/astrofront/astrofront/internal/observability"
	"github.com/astrofront/astrofront/internal/pipeline"
	"github.com/astrofront/astrofront/internal/server"
	"github.com/astrofront/astrofront/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

Shutdown stops accepting requests, drains the HTTP server, stops the
pipeline janitors, then flushes logs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration invalid")
		}

		observability.InitServerLogger(appName, cfg.Logging.Level)

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(appName, cfg.Metrics.Port); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics",
					zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", appName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", observability.GetMetricsPort()),
			zap.Int("rate_limit_per_minute", cfg.Limits.PerMinute),
			zap.Int("gate_permits", cfg.Gate.MaxConcurrent))

		// Assemble and start the pipeline stages
		pipe := pipeline.New(cfg)
		pipe.Start()

		// Initialize health manager
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("pipeline", pipe)
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		srv := server.New(cfg, pipe, astro.NewDemoEngine(), versionInfo.Version)

		metrics.SetServerStartTime(time.Now().Unix())

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Graceful shutdown handlers run LIFO: HTTP drain first, then the
		// pipeline janitors, the log flush last.
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Stopping pipeline...")
			return pipe.Shutdown(ctx)
		})

		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Config reload handler (SIGHUP)
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					observability.ServerLogger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded successfully",
				zap.String("file", viper.ConfigFileUsed()))

			// Pipeline ceilings are fixed at startup; a restart picks up
			// changed limits.

			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
