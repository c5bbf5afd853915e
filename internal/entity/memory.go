// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package entity

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory revisioned Store. It stands in for the CMS in
// tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Ref]*record
	nextRev int64
}

type record struct {
	revisions  map[int64]*Entity
	defaultRev int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Ref]*record)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, entityType, id string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[Ref{Type: entityType, ID: id}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, entityType, id)
	}
	return rec.revisions[rec.defaultRev].Clone(), nil
}

// LoadRevision implements Store.
func (s *MemoryStore) LoadRevision(_ context.Context, entityType, id string, revision int64) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[Ref{Type: entityType, ID: id}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, entityType, id)
	}
	e, ok := rec.revisions[revision]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s revision %d", ErrNotFound, entityType, id, revision)
	}
	return e.Clone(), nil
}

// Save implements Store. Each save creates a new revision for revisionable
// entities; the new revision becomes the default revision only when the
// entity is published.
func (s *MemoryStore) Save(_ context.Context, e *Entity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := Ref{Type: e.Type, ID: e.ID}
	rec, ok := s.records[ref]
	if !ok {
		rec = &record{revisions: make(map[int64]*Entity)}
		s.records[ref] = rec
	}

	saved := e.Clone()
	if e.Revisionable {
		s.nextRev++
		saved.Revision = s.nextRev
	} else {
		saved.Revision = 0
	}
	rec.revisions[saved.Revision] = saved

	if saved.Published || len(rec.revisions) == 1 {
		rec.defaultRev = saved.Revision
	}
	return saved.Revision, nil
}

// Delete removes an entity and all its revisions. Used by tests to simulate
// orphaned references.
func (s *MemoryStore) Delete(entityType, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, Ref{Type: entityType, ID: id})
}

// DefaultRevision returns the default revision id of an entity.
func (s *MemoryStore) DefaultRevision(entityType, id string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[Ref{Type: entityType, ID: id}]
	if !ok {
		return 0, false
	}
	return rec.defaultRev, true
}
