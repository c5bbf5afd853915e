// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package doclock

import (
	"context"
	"sync"
)

// memoryManager is a per-process keyed mutex.
type memoryManager struct {
	cfg  Config
	mu   sync.Mutex
	held map[string]bool
}

func newMemoryManager(cfg Config) *memoryManager {
	return &memoryManager{cfg: cfg, held: make(map[string]bool)}
}

func (m *memoryManager) tryAcquire(documentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[documentID] {
		return false
	}
	m.held[documentID] = true
	return true
}

func (m *memoryManager) release(documentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, documentID)
}

// WithDocumentLock implements Manager.
func (m *memoryManager) WithDocumentLock(ctx context.Context, documentID string, fn func() error) error {
	acquired := false
	for attempt := 0; attempt < m.cfg.MaxAttempts; attempt++ {
		if m.tryAcquire(documentID) {
			acquired = true
			break
		}
		if err := backoff(ctx, m.cfg.Unit); err != nil {
			return err
		}
	}
	if !acquired {
		return ErrLockTimeout
	}
	defer m.release(documentID)
	return fn()
}

// Close implements Manager.
func (m *memoryManager) Close() error { return nil }
