// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store provides SQLite persistence for translation-sync metadata:
// source documents, per-locale target statuses, profiles, locale mappings,
// field enablement and the event log.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/murrow/lingotek-sub000/internal/model"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Queries wraps a database handle with typed query methods.
type Queries struct {
	db *sql.DB
}

// New creates a Queries instance for the given database.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

const sourceDocumentColumns = `id, entity_type, entity_id, revision_id, document_id,
	source_lang, status, profile_id, content_hash, parent_id, created_at, updated_at`

func scanSourceDocument(row interface{ Scan(...any) error }) (model.SourceDocument, error) {
	var d model.SourceDocument
	var status string
	err := row.Scan(&d.ID, &d.EntityType, &d.EntityID, &d.RevisionID, &d.DocumentID,
		&d.SourceLang, &status, &d.ProfileID, &d.ContentHash, &d.ParentID,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	d.Status = model.SourceStatus(status)
	return d, err
}

// CreateSourceDocumentParams holds parameters for CreateSourceDocument.
type CreateSourceDocumentParams struct {
	EntityType string
	EntityID   string
	RevisionID int64
	SourceLang string
	Status     model.SourceStatus
	ProfileID  string
	ParentID   int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateSourceDocument inserts a new source document record.
func (q *Queries) CreateSourceDocument(ctx context.Context, arg CreateSourceDocumentParams) (model.SourceDocument, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO source_documents
		(entity_type, entity_id, revision_id, source_lang, status, profile_id, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.EntityType, arg.EntityID, arg.RevisionID, arg.SourceLang, string(arg.Status),
		arg.ProfileID, arg.ParentID, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return model.SourceDocument{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.SourceDocument{}, err
	}
	return q.GetSourceDocumentByID(ctx, id)
}

// GetSourceDocumentByID loads a source document by its row id.
func (q *Queries) GetSourceDocumentByID(ctx context.Context, id int64) (model.SourceDocument, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+sourceDocumentColumns+` FROM source_documents WHERE id = ?`, id)
	return scanSourceDocument(row)
}

// GetSourceDocument loads the tracking record for an entity.
func (q *Queries) GetSourceDocument(ctx context.Context, entityType, entityID string) (model.SourceDocument, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+sourceDocumentColumns+` FROM source_documents WHERE entity_type = ? AND entity_id = ?`,
		entityType, entityID)
	return scanSourceDocument(row)
}

// GetSourceDocumentByDocumentID loads the tracking record owning a TMS document id.
func (q *Queries) GetSourceDocumentByDocumentID(ctx context.Context, documentID string) (model.SourceDocument, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+sourceDocumentColumns+` FROM source_documents WHERE document_id = ? AND document_id != ''`,
		documentID)
	return scanSourceDocument(row)
}

// ListSourceDocuments returns all root tracking records (children excluded),
// newest first.
func (q *Queries) ListSourceDocuments(ctx context.Context, limit int) ([]model.SourceDocument, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+sourceDocumentColumns+` FROM source_documents WHERE parent_id = 0 ORDER BY updated_at DESC, id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.SourceDocument
	for rows.Next() {
		d, err := scanSourceDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListSourceDocumentsByStatus returns all documents in the given source status.
func (q *Queries) ListSourceDocumentsByStatus(ctx context.Context, status model.SourceStatus) ([]model.SourceDocument, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+sourceDocumentColumns+` FROM source_documents WHERE status = ? ORDER BY id`,
		string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.SourceDocument
	for rows.Next() {
		d, err := scanSourceDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListChildDocuments returns documents that exist only because of a parent
// relationship (embedded entities with their own tracking).
func (q *Queries) ListChildDocuments(ctx context.Context, parentID int64) ([]model.SourceDocument, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+sourceDocumentColumns+` FROM source_documents WHERE parent_id = ? ORDER BY id`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.SourceDocument
	for rows.Next() {
		d, err := scanSourceDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListDocumentsWithTargetsInStatus returns documents that have at least one
// target in any of the given statuses.
func (q *Queries) ListDocumentsWithTargetsInStatus(ctx context.Context, statuses ...model.TargetStatus) ([]model.SourceDocument, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(statuses))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(statuses))
	for _, s := range statuses {
		args = append(args, string(s))
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT DISTINCT d.id, d.entity_type, d.entity_id, d.revision_id, d.document_id,
			d.source_lang, d.status, d.profile_id, d.content_hash, d.parent_id,
			d.created_at, d.updated_at
		FROM source_documents d
		JOIN target_statuses t ON t.source_document_id = d.id
		WHERE t.status IN (`+placeholders+`) ORDER BY d.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.SourceDocument
	for rows.Next() {
		d, err := scanSourceDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateSourceStatusParams holds parameters for UpdateSourceStatus.
type UpdateSourceStatusParams struct {
	ID        int64
	Status    model.SourceStatus
	UpdatedAt time.Time
}

// UpdateSourceStatus sets the source status of a document.
func (q *Queries) UpdateSourceStatus(ctx context.Context, arg UpdateSourceStatusParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE source_documents SET status = ?, updated_at = ? WHERE id = ?`,
		string(arg.Status), arg.UpdatedAt, arg.ID)
	return err
}

// UpdateSourceUploadParams holds parameters for UpdateSourceUpload.
type UpdateSourceUploadParams struct {
	ID          int64
	DocumentID  string
	RevisionID  int64
	ContentHash string
	Status      model.SourceStatus
	UpdatedAt   time.Time
}

// UpdateSourceUpload records the result of an upload attempt in one write.
func (q *Queries) UpdateSourceUpload(ctx context.Context, arg UpdateSourceUploadParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE source_documents SET document_id = ?, revision_id = ?, content_hash = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		arg.DocumentID, arg.RevisionID, arg.ContentHash, string(arg.Status), arg.UpdatedAt, arg.ID)
	return err
}

// UpdateSourceDocumentID swaps the stored TMS document id (document-locked recovery).
func (q *Queries) UpdateSourceDocumentID(ctx context.Context, id int64, documentID string, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE source_documents SET document_id = ?, updated_at = ? WHERE id = ?`,
		documentID, updatedAt, id)
	return err
}

// DeleteSourceDocument removes a tracking record; target rows cascade.
func (q *Queries) DeleteSourceDocument(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM source_documents WHERE id = ?`, id)
	return err
}

// UpsertTargetParams holds parameters for UpsertTarget.
type UpsertTargetParams struct {
	SourceDocumentID    int64
	Locale              string
	Status              model.TargetStatus
	LastCheckedRevision int64
	UpdatedAt           time.Time
}

// UpsertTarget creates or updates the target row for a (document, locale) pair.
func (q *Queries) UpsertTarget(ctx context.Context, arg UpsertTargetParams) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO target_statuses
		(source_document_id, locale, status, last_checked_revision, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (source_document_id, locale)
		DO UPDATE SET status = excluded.status,
			last_checked_revision = excluded.last_checked_revision,
			updated_at = excluded.updated_at`,
		arg.SourceDocumentID, arg.Locale, string(arg.Status), arg.LastCheckedRevision, arg.UpdatedAt)
	return err
}

// GetTarget loads the target row for a (document, locale) pair.
func (q *Queries) GetTarget(ctx context.Context, sourceDocumentID int64, locale string) (model.Target, error) {
	var t model.Target
	var status string
	err := q.db.QueryRowContext(ctx,
		`SELECT id, source_document_id, locale, status, last_checked_revision, updated_at
		FROM target_statuses WHERE source_document_id = ? AND locale = ?`,
		sourceDocumentID, locale).
		Scan(&t.ID, &t.SourceDocumentID, &t.Locale, &status, &t.LastCheckedRevision, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	t.Status = model.TargetStatus(status)
	return t, err
}

// ListTargets returns all target rows for a document ordered by locale.
func (q *Queries) ListTargets(ctx context.Context, sourceDocumentID int64) ([]model.Target, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, source_document_id, locale, status, last_checked_revision, updated_at
		FROM target_statuses WHERE source_document_id = ? ORDER BY locale`,
		sourceDocumentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []model.Target
	for rows.Next() {
		var t model.Target
		var status string
		if err := rows.Scan(&t.ID, &t.SourceDocumentID, &t.Locale, &status, &t.LastCheckedRevision, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Status = model.TargetStatus(status)
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// DeleteTargetsForDocument removes all target rows for a document.
func (q *Queries) DeleteTargetsForDocument(ctx context.Context, sourceDocumentID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM target_statuses WHERE source_document_id = ?`, sourceDocumentID)
	return err
}

// CreateProfileParams holds parameters for CreateProfile.
type CreateProfileParams struct {
	ID           string
	AutoUpload   bool
	AutoDownload bool
	WorkflowID   string
	ProjectID    string
	VaultID      string
	Intelligence *model.IntelligenceSettings
}

// CreateProfile inserts a translation profile.
func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) error {
	intel := "{}"
	if arg.Intelligence != nil {
		b, err := json.Marshal(arg.Intelligence)
		if err != nil {
			return fmt.Errorf("marshaling intelligence settings: %w", err)
		}
		intel = string(b)
	}
	_, err := q.db.ExecContext(ctx, `INSERT INTO profiles
		(id, auto_upload, auto_download, workflow_id, project_id, vault_id, intelligence)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.AutoUpload, arg.AutoDownload, arg.WorkflowID, arg.ProjectID, arg.VaultID, intel)
	return err
}

// UpsertLanguageOverride sets the per-locale override of a profile.
func (q *Queries) UpsertLanguageOverride(ctx context.Context, profileID, locale, mode, workflowID, vaultID string) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO profile_language_overrides
		(profile_id, locale, mode, workflow_id, vault_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (profile_id, locale)
		DO UPDATE SET mode = excluded.mode, workflow_id = excluded.workflow_id, vault_id = excluded.vault_id`,
		profileID, locale, mode, workflowID, vaultID)
	return err
}

// GetProfile loads a profile with its language overrides.
func (q *Queries) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	var p model.Profile
	var intel string
	err := q.db.QueryRowContext(ctx,
		`SELECT id, auto_upload, auto_download, workflow_id, project_id, vault_id, intelligence
		FROM profiles WHERE id = ?`, id).
		Scan(&p.ID, &p.AutoUpload, &p.AutoDownload, &p.WorkflowID, &p.ProjectID, &p.VaultID, &intel)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if intel != "" && intel != "{}" {
		var is model.IntelligenceSettings
		if err := json.Unmarshal([]byte(intel), &is); err == nil {
			p.Intelligence = &is
		}
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT locale, mode, workflow_id, vault_id FROM profile_language_overrides WHERE profile_id = ?`, id)
	if err != nil {
		return p, err
	}
	defer rows.Close()

	for rows.Next() {
		var locale string
		var ov model.LanguageOverride
		if err := rows.Scan(&locale, &ov.Mode, &ov.WorkflowID, &ov.VaultID); err != nil {
			return p, err
		}
		if p.Overrides == nil {
			p.Overrides = make(map[string]model.LanguageOverride)
		}
		p.Overrides[locale] = ov
	}
	return p, rows.Err()
}

// UpsertLocaleMapping records an explicit langcode <-> TMS locale pair.
func (q *Queries) UpsertLocaleMapping(ctx context.Context, langcode, tmsLocale string) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO locale_mappings (langcode, tms_locale) VALUES (?, ?)
		ON CONFLICT (langcode) DO UPDATE SET tms_locale = excluded.tms_locale`,
		langcode, tmsLocale)
	return err
}

// ListLocaleMappings returns all explicit locale mappings keyed by langcode.
func (q *Queries) ListLocaleMappings(ctx context.Context) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT langcode, tms_locale FROM locale_mappings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := make(map[string]string)
	for rows.Next() {
		var langcode, tmsLocale string
		if err := rows.Scan(&langcode, &tmsLocale); err != nil {
			return nil, err
		}
		mappings[langcode] = tmsLocale
	}
	return mappings, rows.Err()
}

// EnableField marks a field as translation-enabled for an entity type + bundle.
func (q *Queries) EnableField(ctx context.Context, entityType, bundle, fieldName string) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO enabled_fields (entity_type, bundle, field_name)
		VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		entityType, bundle, fieldName)
	return err
}

// ListEnabledFields returns every translation-enabled field as
// "entityType/bundle/fieldName" keys.
func (q *Queries) ListEnabledFields(ctx context.Context) (map[string]bool, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT entity_type, bundle, field_name FROM enabled_fields`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enabled := make(map[string]bool)
	for rows.Next() {
		var entityType, bundle, fieldName string
		if err := rows.Scan(&entityType, &bundle, &fieldName); err != nil {
			return nil, err
		}
		enabled[entityType+"/"+bundle+"/"+fieldName] = true
	}
	return enabled, rows.Err()
}

// CreateEventParams holds parameters for CreateEvent.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent inserts an event log entry.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO events (level, category, message, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.Metadata, arg.CreatedAt)
	if err != nil {
		return model.Event{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		ID: id, Level: arg.Level, Category: arg.Category,
		Message: arg.Message, Metadata: arg.Metadata, CreatedAt: arg.CreatedAt,
	}, nil
}

// ListRecentEvents returns the most recent event log entries.
func (q *Queries) ListRecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, level, category, message, metadata, created_at
		FROM events ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
