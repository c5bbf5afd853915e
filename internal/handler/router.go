// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/murrow/lingotek-sub000/internal/batch"
	"github.com/murrow/lingotek-sub000/internal/doclock"
	"github.com/murrow/lingotek-sub000/internal/middleware"
	"github.com/murrow/lingotek-sub000/internal/status"
	"github.com/murrow/lingotek-sub000/internal/store"
	"github.com/murrow/lingotek-sub000/internal/sync"
)

// RouterConfig carries the dependencies for NewRouter.
type RouterConfig struct {
	DB       *sql.DB
	Queries  *store.Queries
	Coord    *sync.Coordinator
	Tracker  *status.Tracker
	Locks    doclock.Manager
	APIToken string
	Logger   *slog.Logger
}

// NewRouter builds the HTTP routing table: the TMS notification callback,
// health checks and the JSON operations API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	health := NewHealthHandler(cfg.DB)
	r.Get("/health", health.Health)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	notify := NewNotifyHandler(cfg.Coord, cfg.Locks, cfg.Logger)
	notifyLimiter := middleware.NewGlobalRateLimiter(20.0, 40)
	r.Group(func(r chi.Router) {
		r.Use(notifyLimiter.Middleware())
		r.Post("/lingotek/notify", notify.Notify)
		// Some TMS environments deliver callbacks as GET.
		r.Get("/lingotek/notify", notify.Notify)
	})

	ops := NewOpsHandler(cfg.Coord, cfg.Tracker, cfg.Queries, cfg.Logger)
	driver := batch.NewDriver(cfg.Coord, cfg.Logger)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.APIToken))

		r.Route("/entities/{type}/{id}", func(r chi.Router) {
			r.Get("/", ops.Status)
			r.Delete("/", ops.Disassociate)
			r.Post("/upload", ops.Upload)
			r.Post("/check-upload", ops.CheckUpload)
			r.Post("/cancel", ops.Cancel)
			r.Route("/targets", func(r chi.Router) {
				r.Post("/request", ops.RequestAll)
				r.Post("/check", ops.CheckAll)
				r.Post("/download", ops.DownloadAll)
				r.Post("/{langcode}/request", ops.RequestOne)
				r.Post("/{langcode}/check", ops.CheckOne)
				r.Post("/{langcode}/download", ops.DownloadOne)
				r.Post("/{langcode}/cancel", ops.CancelTarget)
			})
		})
		r.Get("/documents", ops.Documents)
		r.Post("/batch", ops.Batch(driver))
		r.Get("/events", ops.Events)
	})

	return r
}
