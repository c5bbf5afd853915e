// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package batch runs bulk sync operations over many entities, continuing on
// per-unit failures so one bad document does not abort the rest of the run.
package batch

import (
	"context"
	"log/slog"

	"github.com/murrow/lingotek-sub000/internal/sync"
)

// Operation names a bulk action.
type Operation string

const (
	OpUpload       Operation = "upload"
	OpCheckUpload  Operation = "check_upload"
	OpRequestAll   Operation = "request_translations"
	OpRequestOne   Operation = "request_translation"
	OpCheckAll     Operation = "check_translations"
	OpCheckOne     Operation = "check_translation"
	OpDownloadAll  Operation = "download_translations"
	OpDownloadOne  Operation = "download_translation"
	OpCancel       Operation = "cancel"
	OpDisassociate Operation = "disassociate"
)

// Unit identifies one entity in a batch. Langcode applies only to the
// single-locale operations.
type Unit struct {
	EntityType string
	EntityID   string
	Langcode   string
}

// Result records the outcome for one unit.
type Result struct {
	Unit Unit
	Err  error
}

// Summary aggregates a batch run.
type Summary struct {
	Operation Operation
	Succeeded int
	Failed    int
	Results   []Result
}

// Driver executes batch operations through the sync coordinator.
type Driver struct {
	coord  *sync.Coordinator
	logger *slog.Logger
}

// NewDriver creates a batch Driver.
func NewDriver(coord *sync.Coordinator, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{coord: coord, logger: logger}
}

func (d *Driver) run(ctx context.Context, op Operation, u Unit) error {
	switch op {
	case OpUpload:
		return d.coord.Upload(ctx, u.EntityType, u.EntityID)
	case OpCheckUpload:
		return d.coord.CheckSourceStatus(ctx, u.EntityType, u.EntityID)
	case OpRequestAll:
		return d.coord.RequestTranslations(ctx, u.EntityType, u.EntityID)
	case OpRequestOne:
		return d.coord.RequestTranslation(ctx, u.EntityType, u.EntityID, u.Langcode)
	case OpCheckAll:
		return d.coord.CheckTranslationStatuses(ctx, u.EntityType, u.EntityID)
	case OpCheckOne:
		return d.coord.CheckTargetStatus(ctx, u.EntityType, u.EntityID, u.Langcode)
	case OpDownloadAll:
		return d.coord.DownloadTranslations(ctx, u.EntityType, u.EntityID)
	case OpDownloadOne:
		return d.coord.DownloadDocument(ctx, u.EntityType, u.EntityID, u.Langcode)
	case OpCancel:
		return d.coord.CancelDocument(ctx, u.EntityType, u.EntityID)
	case OpDisassociate:
		return d.coord.Disassociate(ctx, u.EntityType, u.EntityID)
	default:
		return &UnknownOperationError{Operation: op}
	}
}

// UnknownOperationError reports an operation the driver does not implement.
type UnknownOperationError struct {
	Operation Operation
}

func (e *UnknownOperationError) Error() string {
	return "batch: unknown operation " + string(e.Operation)
}

// Run executes op over every unit in order. A failing unit is recorded and
// the run continues; ctx cancellation stops the run early.
func (d *Driver) Run(ctx context.Context, op Operation, units []Unit) (Summary, error) {
	summary := Summary{Operation: op}
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		err := d.run(ctx, op, u)
		summary.Results = append(summary.Results, Result{Unit: u, Err: err})
		if err != nil {
			summary.Failed++
			d.logger.Warn("batch unit failed",
				"operation", op, "entity_type", u.EntityType,
				"entity_id", u.EntityID, "error", err)
			continue
		}
		summary.Succeeded++
	}
	d.logger.Info("batch finished",
		"operation", op, "succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary, nil
}
