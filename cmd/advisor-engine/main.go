package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finapp/advisor-engine/internal/analytics"
	"github.com/finapp/advisor-engine/internal/api"
	"github.com/finapp/advisor-engine/internal/cache"
	"github.com/finapp/advisor-engine/internal/catalog"
	"github.com/finapp/advisor-engine/internal/config"
	"github.com/finapp/advisor-engine/internal/engine"
	"github.com/finapp/advisor-engine/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting advisor-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Initialize session repository
	var repo storage.Repository
	if cfg.UseMemoryStore() {
		slog.Info("using in-memory session store")
		repo = storage.NewMemoryRepository()
	} else {
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		pg, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
		})
		if err != nil {
			slog.Error("failed to create database repository", "error", err)
			os.Exit(1)
		}
		slog.Info("database connected successfully")
		repo = pg
	}

	// Initialize Redis-backed insight cache and analytics sink
	var insightCache engine.InsightCache
	var sink analytics.Sink = analytics.NopSink{}
	if cfg.Redis.Address != "" {
		ic, err := cache.NewInsightCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.InsightTTL)
		if err != nil {
			slog.Error("failed to connect insight cache", "error", err)
			os.Exit(1)
		}
		defer ic.Close()
		insightCache = ic

		rs, err := analytics.NewRedisSink(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Analytics.Stream)
		if err != nil {
			slog.Error("failed to connect analytics sink", "error", err)
			os.Exit(1)
		}
		defer rs.Close()
		sink = rs
		slog.Info("redis connected successfully", "address", cfg.Redis.Address)
	} else {
		slog.Warn("redis disabled, insight cache off and analytics events discarded")
	}

	// Load advisor catalog
	cat := catalog.New()
	if err := cat.LoadFromDir(cfg.Catalog.Dir); err != nil {
		slog.Error("failed to load advisor catalog", "dir", cfg.Catalog.Dir, "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start analytics dispatcher
	dispatcher := analytics.NewDispatcher(sink, cfg.Analytics.Buffer)
	dispatcher.Start(ctx)

	// Initialize engine service
	svc := engine.NewService(cat, repo, insightCache, dispatcher)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, svc, cat, dispatcher)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := repo.Close(); err != nil {
		slog.Error("repository close error", "error", err)
	}

	slog.Info("advisor-engine stopped")
}
