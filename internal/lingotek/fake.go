// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package lingotek

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/murrow/lingotek-sub000/internal/document"
)

// Fake is an in-memory Transport for tests and local development. Target
// translations are produced by the configurable Translate function;
// documents import instantly and targets complete when marked ready.
type Fake struct {
	mu        sync.Mutex
	documents map[string]*fakeDocument

	// Translate produces a translated value for a locale. Defaults to
	// prefixing the locale.
	Translate func(locale, value string) string

	// Err, when set, is returned by the next transport call and cleared.
	Err error

	// AutoComplete marks targets complete as soon as they are added.
	AutoComplete bool
}

type fakeDocument struct {
	payload  document.Payload
	archived bool
	locked   bool
	nextID   string
	targets  map[string]*TargetProgress
	vaults   map[string]string
}

// NewFake creates an empty fake transport.
func NewFake() *Fake {
	return &Fake{
		documents: make(map[string]*fakeDocument),
		Translate: func(locale, value string) string {
			return "[" + locale + "] " + value
		},
	}
}

func (f *Fake) takeErr() error {
	err := f.Err
	f.Err = nil
	return err
}

// SetDocumentArchived marks a document archived so the next operation on it
// fails with ErrDocumentArchived.
func (f *Fake) SetDocumentArchived(documentID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.documents[documentID]; ok {
		doc.archived = true
	}
}

// LockDocument makes the next update fail with a LockedError pointing at a
// fresh replacement id.
func (f *Fake) LockDocument(documentID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[documentID]
	if !ok {
		return ""
	}
	doc.locked = true
	doc.nextID = uuid.NewString()
	f.documents[doc.nextID] = &fakeDocument{
		payload: doc.payload,
		targets: make(map[string]*TargetProgress),
		vaults:  make(map[string]string),
	}
	return doc.nextID
}

// CompleteTarget marks a target locale as fully translated.
func (f *Fake) CompleteTarget(documentID, locale string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.documents[documentID]; ok {
		doc.targets[locale] = &TargetProgress{Progress: 100, Complete: true}
	}
}

// Drop forgets a document entirely, simulating upstream deletion.
func (f *Fake) Drop(documentID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.documents, documentID)
}

// UploadDocument implements Transport.
func (f *Fake) UploadDocument(_ context.Context, payload document.Payload, _ UploadSettings) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	f.documents[id] = &fakeDocument{
		payload: payload,
		targets: make(map[string]*TargetProgress),
		vaults:  make(map[string]string),
	}
	return id, nil
}

// UpdateDocument implements Transport.
func (f *Fake) UpdateDocument(_ context.Context, documentID string, payload document.Payload, _ UploadSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return err
	}
	doc, ok := f.documents[documentID]
	if !ok {
		return ErrDocumentNotFound
	}
	if doc.archived {
		return ErrDocumentArchived
	}
	if doc.locked {
		doc.locked = false
		return &LockedError{NewDocumentID: doc.nextID}
	}
	doc.payload = payload
	return nil
}

// AddTarget implements Transport.
func (f *Fake) AddTarget(_ context.Context, documentID, locale, _ string, vaultID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return err
	}
	doc, ok := f.documents[documentID]
	if !ok {
		return ErrDocumentNotFound
	}
	if doc.archived {
		return ErrDocumentArchived
	}
	progress := &TargetProgress{}
	if f.AutoComplete {
		progress = &TargetProgress{Progress: 100, Complete: true}
	}
	doc.targets[locale] = progress
	doc.vaults[locale] = vaultID
	return nil
}

// TargetVault reports the TM vault the target for a locale was requested
// with. Empty when no target was requested.
func (f *Fake) TargetVault(documentID, locale string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[documentID]
	if !ok {
		return ""
	}
	return doc.vaults[locale]
}

// GetDocumentStatus implements Transport.
func (f *Fake) GetDocumentStatus(_ context.Context, documentID string) (DocumentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return DocumentStatus{}, err
	}
	if _, ok := f.documents[documentID]; !ok {
		return DocumentStatus{}, ErrDocumentNotFound
	}
	return DocumentStatus{Completed: true}, nil
}

// GetTargetStatus implements Transport.
func (f *Fake) GetTargetStatus(_ context.Context, documentID, locale string) (TargetProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return TargetProgress{}, err
	}
	doc, ok := f.documents[documentID]
	if !ok {
		return TargetProgress{}, ErrDocumentNotFound
	}
	if progress, ok := doc.targets[locale]; ok {
		return *progress, nil
	}
	return TargetProgress{}, nil
}

// DownloadTarget implements Transport.
func (f *Fake) DownloadTarget(_ context.Context, documentID, locale string) (document.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	doc, ok := f.documents[documentID]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return f.translatePayload(doc.payload, locale), nil
}

// translatePayload deep-copies a payload with every "value" leaf translated.
func (f *Fake) translatePayload(p document.Payload, locale string) document.Payload {
	out := document.Payload{}
	for k, v := range p {
		out[k] = f.translateValue(k, v, locale)
	}
	return out
}

func (f *Fake) translateValue(key string, v any, locale string) any {
	switch val := v.(type) {
	case document.Payload:
		return f.translatePayload(val, locale)
	case map[string]any:
		if key == document.MetadataKey {
			return val
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			if k == "value" {
				if s, ok := item.(string); ok {
					out[k] = f.Translate(locale, s)
					continue
				}
			}
			out[k] = item
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = f.translateValue(key, item, locale)
		}
		return out
	default:
		return v
	}
}

// CancelDocument implements Transport.
func (f *Fake) CancelDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return err
	}
	if _, ok := f.documents[documentID]; !ok {
		return ErrDocumentNotFound
	}
	delete(f.documents, documentID)
	return nil
}

// CancelTarget implements Transport.
func (f *Fake) CancelTarget(_ context.Context, documentID, locale string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return err
	}
	doc, ok := f.documents[documentID]
	if !ok {
		return ErrDocumentNotFound
	}
	if progress, ok := doc.targets[locale]; ok && progress.Complete {
		return ErrTargetAlreadyCompleted
	}
	delete(doc.targets, locale)
	return nil
}
