package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/api"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/cache"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/config"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/handlers"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/services"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/store"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/websocket"
)

func main() {
	// Load configuration from environment
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsProduction() {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	}
	for _, w := range cfg.Warnings {
		logger.Warn().Msg(w)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Store of record
	raw, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, nil)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("store connection failed")
	}
	defer raw.Close()
	st := store.Instrument(raw, cfg.StoreTimeout)
	logger.Info().Str("driver", cfg.DatabaseDriver).Msg("store ready")

	deps := map[string]handlers.Pinger{"store": st}

	// Optional history cache
	var pageCache services.PageCache = cache.Nop{}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisPageCache(ctx, cfg.RedisURL, cache.DefaultPageTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer rc.Close()
		pageCache = rc
		deps["redis"] = rc
		logger.Info().Msg("connected to Redis, history cache enabled")
	}

	media, err := services.NewLocalMediaStore(cfg.UploadDir, "/uploads")
	if err != nil {
		logger.Fatal().Err(err).Msg("upload directory unavailable")
	}

	// Initialize services
	registry := websocket.NewRegistry(logger)
	pipeline := services.NewMessageService(st, registry, pageCache, logger)
	history := services.NewHistoryService(st, pageCache, cfg.HistoryMaxLimit, logger)

	// Start liveness supervisor
	supervisor := websocket.NewSupervisor(registry, cfg.ProbeInterval, logger)
	go supervisor.Start()

	router := api.NewRouter(logger, api.Deps{
		WS:          websocket.NewHandler(ctx, registry, pipeline, cfg.ProbeInterval, logger),
		History:     handlers.NewHistoryHandler(history, logger),
		Rooms:       handlers.NewRoomHandler(registry),
		Upload:      handlers.NewUploadHandler(media, cfg.MaxUploadBytes, logger),
		Health:      handlers.NewHealthHandler(deps),
		UploadDir:   cfg.UploadDir,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.ServerPort).
			Str("env", cfg.Env).
			Dur("probe_interval", cfg.ProbeInterval).
			Msg("starting ByteChat backend")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	supervisor.Stop()
	registry.CloseAll("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	stop()

	logger.Info().Msg("server stopped")
}
