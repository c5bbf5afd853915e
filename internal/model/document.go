// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// SourceStatus is the upload lifecycle state of a tracked source entity.
type SourceStatus string

// Source document statuses.
const (
	SourceUntracked SourceStatus = "UNTRACKED"
	SourceEdited    SourceStatus = "EDITED"
	SourceImporting SourceStatus = "IMPORTING"
	SourceCurrent   SourceStatus = "CURRENT"
	SourceError     SourceStatus = "ERROR"
	SourceCancelled SourceStatus = "CANCELLED"
	SourceArchived  SourceStatus = "ARCHIVED"
	SourceDeleted   SourceStatus = "DELETED"
)

// TargetStatus is the translation lifecycle state of one target locale.
type TargetStatus string

// Target statuses.
const (
	TargetNone         TargetStatus = "NONE"
	TargetRequest      TargetStatus = "REQUEST"
	TargetPending      TargetStatus = "PENDING"
	TargetReady        TargetStatus = "READY"
	TargetCurrent      TargetStatus = "CURRENT"
	TargetEdited       TargetStatus = "EDITED"
	TargetIntermediate TargetStatus = "INTERMEDIATE"
	TargetError        TargetStatus = "ERROR"
	TargetCancelled    TargetStatus = "CANCELLED"
	TargetDisabled     TargetStatus = "DISABLED"
	TargetArchived     TargetStatus = "ARCHIVED"
	TargetDeleted      TargetStatus = "DELETED"
)

// SourceDocument tracks one source-language entity against the TMS.
// DocumentID is empty until the first successful upload; while it is empty
// no target operation is valid.
type SourceDocument struct {
	ID          int64        `json:"id"`
	EntityType  string       `json:"entity_type"`
	EntityID    string       `json:"entity_id"`
	RevisionID  int64        `json:"revision_id"` // 0 when the entity type is not revisionable
	DocumentID  string       `json:"document_id"` // TMS-assigned opaque id
	SourceLang  string       `json:"source_lang"`
	Status      SourceStatus `json:"status"`
	ProfileID   string       `json:"profile_id"`
	ContentHash string       `json:"content_hash"`
	ParentID    int64        `json:"parent_id"` // owning document for embedded child entities, 0 for roots
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Uploaded reports whether the document has been uploaded at least once.
func (d *SourceDocument) Uploaded() bool {
	return d.DocumentID != ""
}

// Target is the per-locale translation state of a source document.
type Target struct {
	ID                  int64        `json:"id"`
	SourceDocumentID    int64        `json:"source_document_id"`
	Locale              string       `json:"locale"` // TMS locale, e.g. es_MX
	Status              TargetStatus `json:"status"`
	LastCheckedRevision int64        `json:"last_checked_revision"`
	UpdatedAt           time.Time    `json:"updated_at"`
}
