// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package lingotek defines the TMS transport contract the sync core depends
// on, its typed error taxonomy, and a rate-limited HTTP client.
package lingotek

import (
	"context"
	"errors"
	"fmt"

	"github.com/murrow/lingotek-sub000/internal/document"
)

// Typed transport errors. The sync coordinator is the single place that
// translates these into status transitions and user-facing messages.
var (
	// ErrDocumentNotFound: the TMS no longer knows the document.
	ErrDocumentNotFound = errors.New("lingotek: document not found")
	// ErrDocumentArchived: the document was archived upstream; re-upload as
	// a new document.
	ErrDocumentArchived = errors.New("lingotek: document archived")
	// ErrPaymentRequired: the account cannot process the request until an
	// administrator resolves billing.
	ErrPaymentRequired = errors.New("lingotek: payment required")
	// ErrProcessedWordsLimit: the account's processed-words quota is
	// exhausted.
	ErrProcessedWordsLimit = errors.New("lingotek: processed words limit exceeded")
	// ErrTargetAlreadyCompleted: a completed target cannot be cancelled.
	ErrTargetAlreadyCompleted = errors.New("lingotek: target already completed")
)

// LockedError reports that the document was modified concurrently on the
// TMS side; NewDocumentID is the replacement id to retry with.
type LockedError struct {
	NewDocumentID string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("lingotek: document locked, new document id %s", e.NewDocumentID)
}

// APIError is a generic upstream failure carrying the HTTP status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lingotek: api error %d: %s", e.StatusCode, e.Message)
}

// UploadSettings carries the profile-derived settings for an upload.
type UploadSettings struct {
	Title        string
	SourceLocale string
	ProjectID    string
	WorkflowID   string
	VaultID      string
}

// DocumentStatus is the TMS's view of a source document import.
type DocumentStatus struct {
	Completed bool
}

// TargetProgress is the TMS's view of one target locale.
type TargetProgress struct {
	Progress int // 0-100
	Complete bool
}

// Transport is the external TMS API surface the core calls. Implementations
// raise the typed errors above.
type Transport interface {
	// UploadDocument sends a new document and returns its TMS id.
	UploadDocument(ctx context.Context, payload document.Payload, settings UploadSettings) (string, error)
	// UpdateDocument re-uploads content for an existing document.
	UpdateDocument(ctx context.Context, documentID string, payload document.Payload, settings UploadSettings) error
	// AddTarget requests a translation target for a locale. The workflow
	// and TM vault come from the profile, including per-locale overrides.
	AddTarget(ctx context.Context, documentID, locale, workflowID, vaultID string) error
	// GetDocumentStatus reports the import state of a document.
	GetDocumentStatus(ctx context.Context, documentID string) (DocumentStatus, error)
	// GetTargetStatus reports the progress of one target locale.
	GetTargetStatus(ctx context.Context, documentID, locale string) (TargetProgress, error)
	// DownloadTarget fetches the translated payload for a locale.
	DownloadTarget(ctx context.Context, documentID, locale string) (document.Payload, error)
	// CancelDocument cancels the whole document.
	CancelDocument(ctx context.Context, documentID string) error
	// CancelTarget cancels a single target locale.
	CancelTarget(ctx context.Context, documentID, locale string) error
}
