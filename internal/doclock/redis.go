// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package doclock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when the caller still owns it, so
// an expired-and-reacquired lock is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// redisManager is a distributed lock backed by SET NX PX with an ownership
// token. Suitable when multiple connector instances receive notifications.
type redisManager struct {
	cfg    Config
	client *redis.Client
}

func newRedisManager(cfg Config) (*redisManager, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("doclock: parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("doclock: pinging redis: %w", err)
	}
	return &redisManager{cfg: cfg, client: client}, nil
}

func (m *redisManager) key(documentID string) string {
	return m.cfg.Prefix + documentID
}

// WithDocumentLock implements Manager.
func (m *redisManager) WithDocumentLock(ctx context.Context, documentID string, fn func() error) error {
	token := uuid.NewString()
	key := m.key(documentID)

	acquired := false
	for attempt := 0; attempt < m.cfg.MaxAttempts; attempt++ {
		ok, err := m.client.SetNX(ctx, key, token, m.cfg.TTL).Result()
		if err != nil {
			return fmt.Errorf("doclock: acquiring %s: %w", documentID, err)
		}
		if ok {
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

	defer func() {
		// Release with a background context so cancellation cannot leak the
		// lock until TTL expiry.
		_ = releaseScript.Run(context.Background(), m.client, []string{key}, token).Err()
	}()
	return fn()
}

// Close implements Manager.
func (m *redisManager) Close() error {
	return m.client.Close()
}
