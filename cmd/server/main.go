package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/SAHIL7163/Talksy-backend/internal/api"
	"github.com/SAHIL7163/Talksy-backend/internal/bus"
	"github.com/SAHIL7163/Talksy-backend/internal/chat"
	"github.com/SAHIL7163/Talksy-backend/internal/config"
	"github.com/SAHIL7163/Talksy-backend/internal/genai"
	"github.com/SAHIL7163/Talksy-backend/internal/handlers"
	"github.com/SAHIL7163/Talksy-backend/internal/session"
	"github.com/SAHIL7163/Talksy-backend/internal/store"
	"github.com/SAHIL7163/Talksy-backend/internal/ws"
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

	// Initialize the durable message store. PostgreSQL when configured,
	// SQLite otherwise so local development needs no external services.
	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pgStore.Close()
		logger.Info().Msg("connected to PostgreSQL")
		dataStore = pgStore
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		defer sqliteStore.Close()
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite store")
		dataStore = sqliteStore
	}

	// Initialize Redis event bus
	redisBus, err := bus.NewRedisBus(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisBus.Close()
	logger.Info().Msg("connected to Redis")

	// Local session routing
	registry := session.NewRegistry()
	broadcaster := session.NewBroadcaster(registry, logger)

	// AI reply generation
	generator := genai.NewClient(cfg.GenAIBaseURL, cfg.GenAIKey, cfg.GenAIModel)

	orch := chat.New(dataStore, dataStore, redisBus, generator, logger)

	// Every instance subscribes to the full chat topic space; envelopes
	// published anywhere in the fleet fan out to local sessions here.
	if err := redisBus.Subscribe(ctx, broadcaster.Deliver); err != nil {
		logger.Fatal().Err(err).Msg("bus subscribe failed")
	}

	// Create router
	wsHandler := ws.NewHandler(registry, orch, logger)
	h := handlers.NewHandler(orch, dataStore, redisBus)
	router := api.NewRouter(logger, h, wsHandler, cfg.ClientURL)

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
			Msg("starting Talksy server")

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
