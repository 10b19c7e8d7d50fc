package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/ports"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "square:sync:progress:"
	// entryTTL bounds how long an abandoned entry can linger; Finalize
	// deletes entries explicitly on every normal run
	entryTTL = 2 * time.Hour
)

// RedisProgressCache implements ProgressCache on Redis. This is the fast
// path for cross-process status polling while a sync runs.
type RedisProgressCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisProgressCache connects to Redis and verifies the connection
func NewRedisProgressCache(addr, password string, db int) (*RedisProgressCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisProgressCache{client: client, keyPrefix: defaultKeyPrefix}, nil
}

// NewRedisProgressCacheWithClient creates a cache around an existing client
func NewRedisProgressCacheWithClient(client *redis.Client, keyPrefix string) *RedisProgressCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisProgressCache{client: client, keyPrefix: keyPrefix}
}

var _ ports.ProgressCache = (*RedisProgressCache)(nil)

// Put stores the current sync state for a merchant
func (c *RedisProgressCache) Put(ctx context.Context, merchantID string, state *domain.SyncState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode sync state: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+merchantID, raw, entryTTL).Err(); err != nil {
		return fmt.Errorf("failed to store sync state: %w", err)
	}
	return nil
}

// Get returns the cached state, or (nil, nil) when no sync is active
func (c *RedisProgressCache) Get(ctx context.Context, merchantID string) (*domain.SyncState, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+merchantID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}
	var state domain.SyncState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode sync state: %w", err)
	}
	return &state, nil
}

// Delete removes the entry so pollers immediately see "no active sync"
func (c *RedisProgressCache) Delete(ctx context.Context, merchantID string) error {
	if err := c.client.Del(ctx, c.keyPrefix+merchantID).Err(); err != nil {
		return fmt.Errorf("failed to delete sync state: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisProgressCache) Close() error {
	return c.client.Close()
}
