package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/robertddewey/ChatPop-sub000/internal/api"
	"github.com/robertddewey/ChatPop-sub000/internal/cache"
	"github.com/robertddewey/ChatPop-sub000/internal/config"
	"github.com/robertddewey/ChatPop-sub000/internal/monitor"
	"github.com/robertddewey/ChatPop-sub000/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Run migrations
	logger.Info().Msg("running database migrations...")
	if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	logger.Info().Msg("migrations completed")

	// Initialize PostgreSQL store
	pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pgStore.Close()
	logger.Info().Msg("connected to PostgreSQL")

	// Initialize Redis client
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()
	logger.Info().Msg("connected to Redis")

	// Operation monitor; the enabled flag is re-read from the
	// environment so it can be toggled at runtime.
	mon := monitor.New(monitor.DefaultCapacity, func() bool {
		if v := os.Getenv("MONITORING_ENABLED"); v != "" {
			return v == "true"
		}
		return cfg.MonitoringEnabled
	})

	// Cache engine over both stores
	engine := cache.New(client, pgStore, mon, cache.Config{
		MaxMessagesPerRoom: cfg.MaxCachedMessagesPerRoom,
		MessageTTL:         cfg.MessageCacheTTL,
		BlockTTL:           cfg.UserBlockCacheTTL,
		PinnedTTL:          cfg.PinnedCacheTTL,
	}, logger)

	// Create router
	router := api.NewRouter(logger, pgStore, engine, mon)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting ChatPop server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
