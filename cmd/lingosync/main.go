// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// lingosync bridges CMS content to the Lingotek TMS: it tracks entities,
// uploads serialized documents, polls and receives translation progress, and
// applies completed translations back onto the right revisions.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/murrow/lingotek-sub000/internal/config"
	"github.com/murrow/lingotek-sub000/internal/doclock"
	"github.com/murrow/lingotek-sub000/internal/document"
	"github.com/murrow/lingotek-sub000/internal/entity"
	"github.com/murrow/lingotek-sub000/internal/graph"
	"github.com/murrow/lingotek-sub000/internal/handler"
	"github.com/murrow/lingotek-sub000/internal/lingotek"
	"github.com/murrow/lingotek-sub000/internal/locale"
	"github.com/murrow/lingotek-sub000/internal/logging"
	"github.com/murrow/lingotek-sub000/internal/scheduler"
	"github.com/murrow/lingotek-sub000/internal/status"
	"github.com/murrow/lingotek-sub000/internal/store"
	syncpkg "github.com/murrow/lingotek-sub000/internal/sync"
)

// Version information - injected at build time via ldflags
var (
	appVersion = "dev"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: cfg.IsDevelopment(),
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	// Run migrations
	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the Event Log database
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	eventLogHandler := logging.NewEventLogHandler(textHandler, db)
	logger = slog.New(eventLogHandler)
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn", "version", appVersion)

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	queries := store.New(db)

	// Locale mapper from the persisted mapping table
	mappings, err := queries.ListLocaleMappings(ctx)
	if err != nil {
		return fmt.Errorf("loading locale mappings: %w", err)
	}
	mapper := locale.NewMapper(mappings)

	// Field enablement policy snapshot
	enabled, err := queries.ListEnabledFields(ctx)
	if err != nil {
		return fmt.Errorf("loading enabled fields: %w", err)
	}
	policy := entity.PolicyMap(enabled)

	entities := entity.NewMemoryStore()
	walker := graph.NewWalker(entities, policy)
	serializer := document.NewSerializer(walker, policy, nil, cfg.BaseURL)
	deserializer := document.NewDeserializer(entities)
	tracker := status.NewTracker(queries, logger)

	tms, err := lingotek.NewClient(lingotek.ClientOptions{
		BaseURL:           cfg.TMSBaseURL,
		Token:             cfg.TMSToken,
		RequestsPerSecond: cfg.TMSRateLimit,
		Burst:             cfg.TMSRateBurst,
		Timeout:           time.Duration(cfg.TMSTimeoutSecs) * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating TMS client: %w", err)
	}

	locks, err := doclock.New(doclock.Config{
		Backend:     cfg.LockBackend,
		RedisURL:    cfg.RedisURL,
		Prefix:      cfg.LockPrefix,
		Unit:        time.Duration(cfg.LockUnitMillis) * time.Millisecond,
		MaxAttempts: cfg.LockMaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("creating lock manager: %w", err)
	}
	slog.Info("document locks ready", "redis", cfg.UseRedisLock())
	defer func() {
		if err := locks.Close(); err != nil {
			slog.Error("error closing lock manager", "error", err)
		}
	}()

	coord := syncpkg.NewCoordinator(
		entities, tms, tracker, mapper, serializer, deserializer, walker,
		policy, queries,
		syncpkg.Config{
			DefaultProfileID: "automatic",
			TargetLangcodes:  cfg.TargetLangcodes,
			InterimDownloads: cfg.InterimDownloads,
			BaseURL:          cfg.BaseURL,
		},
		logger,
	)

	// Periodic polling covers environments where webhook delivery is flaky
	sched := scheduler.New(queries, coord, cfg.PollSchedule, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	r := handler.NewRouter(handler.RouterConfig{
		DB:       db,
		Queries:  queries,
		Coord:    coord,
		Tracker:  tracker,
		Locks:    locks,
		APIToken: cfg.APIToken,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server",
			"addr", cfg.ServerAddr(), "env", cfg.Env, "notify_url", cfg.NotifyURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
