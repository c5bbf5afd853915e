// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package doclock serializes notification handling per TMS document id.
// At most one handler may mutate a given document's statuses concurrently;
// handlers for different documents run fully concurrent.
package doclock

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ErrLockTimeout indicates the lock could not be acquired within the
// configured attempt budget. Safe to retry later.
var ErrLockTimeout = errors.New("doclock: acquisition timed out")

// Manager serializes actions per document id.
type Manager interface {
	// WithDocumentLock runs fn while holding the named lock for documentID.
	// The lock is released on every exit path. If the lock is contended, the
	// acquisition retries with jittered backoff before giving up with
	// ErrLockTimeout.
	WithDocumentLock(ctx context.Context, documentID string, fn func() error) error

	// Close releases backend resources.
	Close() error
}

// Config selects and tunes the lock backend.
type Config struct {
	// Backend is "memory" or "redis".
	Backend string
	// RedisURL is the Redis connection URL (redis backend only).
	RedisURL string
	// Prefix namespaces lock keys in Redis.
	Prefix string
	// Unit is the base backoff unit; each wait sleeps 1-12 units.
	Unit time.Duration
	// MaxAttempts bounds acquisition retries before ErrLockTimeout.
	MaxAttempts int
	// TTL is the lock expiry guarding against a crashed holder (redis only).
	TTL time.Duration
}

// DefaultConfig returns sensible defaults for the in-memory backend.
func DefaultConfig() Config {
	return Config{
		Backend:     "memory",
		Prefix:      "lingosync:lock:",
		Unit:        250 * time.Millisecond,
		MaxAttempts: 30,
		TTL:         time.Minute,
	}
}

func (c *Config) normalize() {
	if c.Unit <= 0 {
		c.Unit = 250 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 30
	}
	if c.TTL <= 0 {
		c.TTL = time.Minute
	}
	if c.Prefix == "" {
		c.Prefix = "lingosync:lock:"
	}
}

// New creates a lock manager for the configured backend. An empty or
// unknown backend falls back to memory.
func New(cfg Config) (Manager, error) {
	cfg.normalize()
	if cfg.Backend == "redis" && cfg.RedisURL != "" {
		return newRedisManager(cfg)
	}
	return newMemoryManager(cfg), nil
}

// backoff sleeps a jittered 1-12 unit interval, honoring ctx cancellation.
func backoff(ctx context.Context, unit time.Duration) error {
	wait := time.Duration(1+rand.Intn(12)) * unit
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
