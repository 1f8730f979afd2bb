package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/studyflow/supportrelay/internal/api"
	"github.com/studyflow/supportrelay/internal/api/middleware"
	"github.com/studyflow/supportrelay/internal/config"
	"github.com/studyflow/supportrelay/internal/handlers"
	"github.com/studyflow/supportrelay/internal/relay"
	"github.com/studyflow/supportrelay/internal/store"
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

	// Initialize the message store and user directory. Without a MongoDB
	// URL (dev only) everything lives in memory and vanishes on restart.
	var (
		messages store.MessageStore
		dir      store.UserDirectory
	)
	if cfg.MongoURL != "" {
		mongoStore, err := store.NewMongoStore(ctx, cfg.MongoURL, cfg.MongoDB)
		if err != nil {
			logger.Fatal().Err(err).Msg("mongodb connection failed")
		}
		defer mongoStore.Close()
		messages, dir = mongoStore, mongoStore
		logger.Info().Str("db", cfg.MongoDB).Msg("connected to MongoDB")
	} else {
		mem := store.NewMemoryStore()
		messages, dir = mem, mem
		logger.Warn().Msg("MONGO_URL not set, using in-memory store")
	}

	// Initialize Redis (optional; enables rate limiting)
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Wire the relay
	hub := relay.NewHub(logger)
	gateway := relay.NewGateway(logger, messages, dir, hub, cfg.StoreTimeout)
	h := handlers.NewHandler(logger, gateway, hub, messages, redisStore)

	router := api.NewRouter(logger, h, dir, redisStore, middleware.RateLimiterConfig{
		Whitelist: cfg.RateLimitWhitelist,
	})

	// No WriteTimeout: relay connections are long-lived websockets.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting support relay")

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
