package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"somniadash/internal/api"
	"somniadash/internal/cache"
	"somniadash/internal/client"
	"somniadash/internal/config"
	"somniadash/internal/dashboard"
	"somniadash/internal/poller"
	"somniadash/internal/server"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.json", "path to config file (.json, .yaml)")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		// Basic logger for startup errors
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel)
	logger.Info().
		Str("config", *configPath).
		Str("backend", cfg.BaseURL()).
		Dur("timeout", cfg.GetRequestTimeoutDuration()).
		Dur("cacheTTL", cfg.Cache.GetTTLDuration()).
		Bool("server", cfg.IsServerEnabled()).
		Msg("starting somniadash")

	respCache, err := cache.NewFromConfig(cfg.Cache, time.Now, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cache")
	}

	c := client.NewFromConfig(cfg, respCache, logger)
	backend := api.New(c, logger)

	dash, err := dashboard.NewFromConfig(cfg, backend, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create dashboard")
	}

	var srv *server.Server
	if cfg.IsServerEnabled() {
		srv = server.New(cfg, dash, c, logger)
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}

	dash.Start()

	stats := poller.New("stats", cfg.GetStatsIntervalDuration(), func(context.Context) {
		logStats(logger, c, dash)
	}, logger)
	stats.Start()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats.Stop()

	if srv != nil {
		if err := srv.Stop(ctx); err != nil {
			logger.Error().Err(err).Msg("error during shutdown")
		}
	}

	dash.Stop()

	if err := c.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close client")
	}

	logger.Info().Msg("stopped")
}

// logStats writes one status line with cache and view counters
func logStats(logger zerolog.Logger, c *client.Client, dash *dashboard.Dashboard) {
	st := c.Stats()

	var loaded, failing int
	for _, v := range dash.Snapshots() {
		if v.HasData() {
			loaded++
		}
		if v.Error != "" {
			failing++
		}
	}

	logger.Info().
		Uint64("hits", st.Hits).
		Uint64("misses", st.Misses).
		Uint64("requests", st.Requests).
		Uint64("errors", st.Errors).
		Int("cached", c.CacheLen()).
		Int("viewsLoaded", loaded).
		Int("viewsFailing", failing).
		Msg("status")
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	// Set log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// Configure output
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
