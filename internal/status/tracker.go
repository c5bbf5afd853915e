// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package status owns the source and target status state machines. All
// status mutation goes through the Tracker so transition rules and
// invariants are enforced in one place.
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/murrow/lingotek-sub000/internal/model"
	"github.com/murrow/lingotek-sub000/internal/store"
)

// Errors raised by the Tracker.
var (
	// ErrInvalidTransition indicates a status change the state machine
	// forbids.
	ErrInvalidTransition = errors.New("status: invalid transition")
	// ErrTargetDisabled indicates an operation against a profile-disabled
	// locale.
	ErrTargetDisabled = errors.New("status: target locale is disabled")
	// ErrTargetAlreadyCompleted indicates a cancel against a target the TMS
	// already completed; the caller should re-check status, not retry.
	ErrTargetAlreadyCompleted = errors.New("status: target already completed")
)

// sourceTransitions lists the permitted source status changes.
var sourceTransitions = map[model.SourceStatus][]model.SourceStatus{
	model.SourceUntracked: {model.SourceImporting, model.SourceEdited, model.SourceError},
	model.SourceEdited:    {model.SourceImporting, model.SourceError, model.SourceCancelled, model.SourceDeleted},
	model.SourceImporting: {model.SourceCurrent, model.SourceEdited, model.SourceError, model.SourceUntracked, model.SourceArchived, model.SourceCancelled, model.SourceDeleted},
	model.SourceCurrent:   {model.SourceEdited, model.SourceImporting, model.SourceError, model.SourceUntracked, model.SourceArchived, model.SourceCancelled, model.SourceDeleted},
	model.SourceError:     {model.SourceImporting, model.SourceEdited, model.SourceUntracked, model.SourceCancelled, model.SourceDeleted},
	model.SourceArchived:  {model.SourceImporting, model.SourceEdited, model.SourceUntracked, model.SourceDeleted},
	model.SourceCancelled: {model.SourceImporting, model.SourceEdited, model.SourceUntracked, model.SourceDeleted},
}

// targetTransitions lists the permitted target status changes. DISABLED is
// terminal while the profile override is active; only an explicit enable
// (DISABLED -> NONE) leaves it.
var targetTransitions = map[model.TargetStatus][]model.TargetStatus{
	model.TargetNone:         {model.TargetRequest, model.TargetPending, model.TargetReady, model.TargetIntermediate, model.TargetDisabled, model.TargetError, model.TargetCancelled, model.TargetDeleted},
	model.TargetRequest:      {model.TargetPending, model.TargetReady, model.TargetError, model.TargetCancelled, model.TargetDisabled, model.TargetArchived, model.TargetDeleted},
	model.TargetPending:      {model.TargetReady, model.TargetIntermediate, model.TargetCurrent, model.TargetError, model.TargetCancelled, model.TargetDisabled, model.TargetArchived, model.TargetDeleted},
	model.TargetIntermediate: {model.TargetReady, model.TargetPending, model.TargetCurrent, model.TargetError, model.TargetCancelled, model.TargetDisabled, model.TargetArchived, model.TargetDeleted},
	model.TargetReady:        {model.TargetCurrent, model.TargetIntermediate, model.TargetError, model.TargetCancelled, model.TargetDisabled, model.TargetArchived, model.TargetDeleted},
	model.TargetCurrent:      {model.TargetEdited, model.TargetError, model.TargetDisabled, model.TargetArchived, model.TargetDeleted},
	model.TargetEdited:       {model.TargetRequest, model.TargetPending, model.TargetError, model.TargetCancelled, model.TargetDisabled, model.TargetArchived, model.TargetDeleted},
	model.TargetError:        {model.TargetRequest, model.TargetPending, model.TargetReady, model.TargetNone, model.TargetCancelled, model.TargetDisabled, model.TargetArchived, model.TargetDeleted},
	model.TargetCancelled:    {model.TargetRequest, model.TargetNone, model.TargetDisabled, model.TargetDeleted},
	model.TargetArchived:     {model.TargetRequest, model.TargetPending, model.TargetNone, model.TargetDisabled, model.TargetDeleted},
	model.TargetDisabled:     {model.TargetNone},
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	if from == to {
		return true
	}
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Tracker persists per-entity, per-locale translation statuses.
type Tracker struct {
	q      *store.Queries
	logger *slog.Logger
	now    func() time.Time
}

// NewTracker creates a Tracker over the given store.
func NewTracker(q *store.Queries, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{q: q, logger: logger, now: time.Now}
}

// GetSource loads the tracking record for an entity.
func (t *Tracker) GetSource(ctx context.Context, entityType, entityID string) (model.SourceDocument, error) {
	return t.q.GetSourceDocument(ctx, entityType, entityID)
}

// GetSourceByDocumentID loads the tracking record owning a TMS document id.
func (t *Tracker) GetSourceByDocumentID(ctx context.Context, documentID string) (model.SourceDocument, error) {
	return t.q.GetSourceDocumentByDocumentID(ctx, documentID)
}

// EnsureSourceParams holds parameters for EnsureSource.
type EnsureSourceParams struct {
	EntityType string
	EntityID   string
	RevisionID int64
	SourceLang string
	ProfileID  string
	ParentID   int64
}

// EnsureSource returns the tracking record for an entity, creating it in
// UNTRACKED state when missing.
func (t *Tracker) EnsureSource(ctx context.Context, arg EnsureSourceParams) (model.SourceDocument, error) {
	doc, err := t.q.GetSourceDocument(ctx, arg.EntityType, arg.EntityID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.SourceDocument{}, err
	}
	now := t.now()
	return t.q.CreateSourceDocument(ctx, store.CreateSourceDocumentParams{
		EntityType: arg.EntityType,
		EntityID:   arg.EntityID,
		RevisionID: arg.RevisionID,
		SourceLang: arg.SourceLang,
		Status:     model.SourceUntracked,
		ProfileID:  arg.ProfileID,
		ParentID:   arg.ParentID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// SetSourceStatus transitions a document's source status, enforcing the
// state machine.
func (t *Tracker) SetSourceStatus(ctx context.Context, doc *model.SourceDocument, to model.SourceStatus) error {
	if !allowed(sourceTransitions, doc.Status, to) {
		return fmt.Errorf("%w: source %s -> %s", ErrInvalidTransition, doc.Status, to)
	}
	if err := t.q.UpdateSourceStatus(ctx, store.UpdateSourceStatusParams{
		ID: doc.ID, Status: to, UpdatedAt: t.now(),
	}); err != nil {
		return err
	}
	t.logger.Debug("source status changed",
		"entity_type", doc.EntityType, "entity_id", doc.EntityID,
		"from", doc.Status, "to", to)
	doc.Status = to
	return nil
}

// RecordUpload stores the outcome of a successful upload: document id,
// uploaded revision, content hash and the IMPORTING status.
func (t *Tracker) RecordUpload(ctx context.Context, doc *model.SourceDocument, documentID string, revisionID int64, contentHash string) error {
	if !allowed(sourceTransitions, doc.Status, model.SourceImporting) {
		return fmt.Errorf("%w: source %s -> %s", ErrInvalidTransition, doc.Status, model.SourceImporting)
	}
	if err := t.q.UpdateSourceUpload(ctx, store.UpdateSourceUploadParams{
		ID:          doc.ID,
		DocumentID:  documentID,
		RevisionID:  revisionID,
		ContentHash: contentHash,
		Status:      model.SourceImporting,
		UpdatedAt:   t.now(),
	}); err != nil {
		return err
	}
	doc.DocumentID = documentID
	doc.RevisionID = revisionID
	doc.ContentHash = contentHash
	doc.Status = model.SourceImporting
	return nil
}

// ReplaceDocumentID swaps the stored TMS document id after a
// document-locked error handed back a replacement.
func (t *Tracker) ReplaceDocumentID(ctx context.Context, doc *model.SourceDocument, documentID string) error {
	if err := t.q.UpdateSourceDocumentID(ctx, doc.ID, documentID, t.now()); err != nil {
		return err
	}
	doc.DocumentID = documentID
	return nil
}

// ResetSource returns a document to UNTRACKED with no TMS linkage, used when
// the TMS reports the document gone.
func (t *Tracker) ResetSource(ctx context.Context, doc *model.SourceDocument) error {
	if err := t.q.UpdateSourceUpload(ctx, store.UpdateSourceUploadParams{
		ID:        doc.ID,
		Status:    model.SourceUntracked,
		UpdatedAt: t.now(),
	}); err != nil {
		return err
	}
	if err := t.q.DeleteTargetsForDocument(ctx, doc.ID); err != nil {
		return err
	}
	doc.DocumentID = ""
	doc.ContentHash = ""
	doc.RevisionID = 0
	doc.Status = model.SourceUntracked
	return nil
}

// GetTarget loads the target row for a locale, returning a NONE placeholder
// when no row exists yet.
func (t *Tracker) GetTarget(ctx context.Context, doc *model.SourceDocument, locale string) (model.Target, error) {
	target, err := t.q.GetTarget(ctx, doc.ID, locale)
	if errors.Is(err, store.ErrNotFound) {
		return model.Target{SourceDocumentID: doc.ID, Locale: locale, Status: model.TargetNone}, nil
	}
	return target, err
}

// ListChildDocuments returns the tracking records of entities embedded in a
// parent document.
func (t *Tracker) ListChildDocuments(ctx context.Context, parentID int64) ([]model.SourceDocument, error) {
	return t.q.ListChildDocuments(ctx, parentID)
}

// Targets returns all target rows for a document.
func (t *Tracker) Targets(ctx context.Context, doc *model.SourceDocument) ([]model.Target, error) {
	return t.q.ListTargets(ctx, doc.ID)
}

// SetTargetStatus transitions a (document, locale) pair, enforcing the state
// machine. A transition out of DISABLED other than an explicit enable is
// rejected with ErrTargetDisabled.
func (t *Tracker) SetTargetStatus(ctx context.Context, doc *model.SourceDocument, locale string, to model.TargetStatus) error {
	return t.setTarget(ctx, doc, locale, to, -1)
}

// SetTargetChecked transitions a pair and records the revision the check ran
// against.
func (t *Tracker) SetTargetChecked(ctx context.Context, doc *model.SourceDocument, locale string, to model.TargetStatus, revision int64) error {
	return t.setTarget(ctx, doc, locale, to, revision)
}

func (t *Tracker) setTarget(ctx context.Context, doc *model.SourceDocument, locale string, to model.TargetStatus, revision int64) error {
	current, err := t.GetTarget(ctx, doc, locale)
	if err != nil {
		return err
	}
	if current.Status == model.TargetDisabled && to != model.TargetNone {
		return fmt.Errorf("%w: %s", ErrTargetDisabled, locale)
	}
	if !allowed(targetTransitions, current.Status, to) {
		return fmt.Errorf("%w: target %s %s -> %s", ErrInvalidTransition, locale, current.Status, to)
	}
	if revision < 0 {
		revision = current.LastCheckedRevision
	}
	if err := t.q.UpsertTarget(ctx, store.UpsertTargetParams{
		SourceDocumentID:    doc.ID,
		Locale:              locale,
		Status:              to,
		LastCheckedRevision: revision,
		UpdatedAt:           t.now(),
	}); err != nil {
		return err
	}
	t.logger.Debug("target status changed",
		"entity_type", doc.EntityType, "entity_id", doc.EntityID,
		"locale", locale, "from", current.Status, "to", to)
	return nil
}

// CancelTarget transitions a target to CANCELLED. A target the TMS already
// completed cannot be cancelled; the distinguishable error tells the caller
// to check status instead of retrying.
func (t *Tracker) CancelTarget(ctx context.Context, doc *model.SourceDocument, locale string) error {
	current, err := t.GetTarget(ctx, doc, locale)
	if err != nil {
		return err
	}
	switch current.Status {
	case model.TargetCurrent, model.TargetReady:
		return fmt.Errorf("%w: %s", ErrTargetAlreadyCompleted, locale)
	case model.TargetDisabled:
		return nil
	}
	return t.setTarget(ctx, doc, locale, model.TargetCancelled, -1)
}

// Disassociate deletes all tracking records for an entity, cascading to
// child documents that only exist because of the parent relationship.
// Entity content is untouched.
func (t *Tracker) Disassociate(ctx context.Context, doc *model.SourceDocument) error {
	children, err := t.q.ListChildDocuments(ctx, doc.ID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := t.Disassociate(ctx, &child); err != nil {
			return err
		}
	}
	if err := t.q.DeleteSourceDocument(ctx, doc.ID); err != nil {
		return err
	}
	t.logger.Info("translation metadata removed",
		"entity_type", doc.EntityType, "entity_id", doc.EntityID,
		"children", len(children))
	return nil
}
