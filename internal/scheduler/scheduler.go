// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler polls the TMS for progress that no webhook delivered:
// sources stuck in IMPORTING and targets still in flight.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/murrow/lingotek-sub000/internal/model"
	"github.com/murrow/lingotek-sub000/internal/store"
	"github.com/murrow/lingotek-sub000/internal/sync"
)

// Scheduler runs the periodic status polling jobs.
type Scheduler struct {
	queries  *store.Queries
	coord    *sync.Coordinator
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
}

// New creates a new scheduler instance. schedule is a cron expression; the
// default polls every five minutes.
func New(queries *store.Queries, coord *sync.Coordinator, schedule string, logger *slog.Logger) *Scheduler {
	if schedule == "" {
		schedule = "*/5 * * * *"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		queries:  queries,
		coord:    coord,
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the polling jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx := context.Background()
		if err := s.pollImportingSources(ctx); err != nil {
			s.logger.Error("failed to poll importing sources", "error", err)
		}
		if err := s.pollInFlightTargets(ctx); err != nil {
			s.logger.Error("failed to poll in-flight targets", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// pollImportingSources checks every document the TMS has not confirmed yet.
func (s *Scheduler) pollImportingSources(ctx context.Context) error {
	docs, err := s.queries.ListSourceDocumentsByStatus(ctx, model.SourceImporting)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.coord.CheckSourceStatus(ctx, doc.EntityType, doc.EntityID); err != nil {
			s.logger.Warn("source status poll failed",
				"entity_type", doc.EntityType, "entity_id", doc.EntityID, "error", err)
			continue
		}
	}
	if len(docs) > 0 {
		s.logger.Info("polled importing sources", "count", len(docs))
	}
	return nil
}

// pollInFlightTargets checks requested and partially translated targets, and
// downloads completed ones for auto-download profiles.
func (s *Scheduler) pollInFlightTargets(ctx context.Context) error {
	docs, err := s.queries.ListDocumentsWithTargetsInStatus(ctx,
		model.TargetRequest, model.TargetPending, model.TargetIntermediate, model.TargetReady)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.coord.CheckTranslationStatuses(ctx, doc.EntityType, doc.EntityID); err != nil {
			s.logger.Warn("target status poll failed",
				"entity_type", doc.EntityType, "entity_id", doc.EntityID, "error", err)
		}

		prof, err := s.queries.GetProfile(ctx, doc.ProfileID)
		if err != nil || !prof.AutoDownload {
			continue
		}
		if err := s.coord.DownloadTranslations(ctx, doc.EntityType, doc.EntityID); err != nil {
			s.logger.Warn("auto-download failed",
				"entity_type", doc.EntityType, "entity_id", doc.EntityID, "error", err)
		}
	}
	if len(docs) > 0 {
		s.logger.Info("polled in-flight targets", "documents", len(docs))
	}
	return nil
}
