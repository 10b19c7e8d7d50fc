package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/ports"
)

// MemoryProgressCache implements ProgressCache with an in-process map. It is
// used when no Redis address is configured (single-process deployments) and
// in tests. Entries are stored serialized so Get returns a copy, matching
// the Redis implementation's semantics.
type MemoryProgressCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryProgressCache creates an empty in-memory progress cache
func NewMemoryProgressCache() *MemoryProgressCache {
	return &MemoryProgressCache{entries: make(map[string][]byte)}
}

var _ ports.ProgressCache = (*MemoryProgressCache)(nil)

// Put stores the current sync state for a merchant
func (c *MemoryProgressCache) Put(_ context.Context, merchantID string, state *domain.SyncState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode sync state: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[merchantID] = raw
	return nil
}

// Get returns the cached state, or (nil, nil) when no sync is active
func (c *MemoryProgressCache) Get(_ context.Context, merchantID string) (*domain.SyncState, error) {
	c.mu.RLock()
	raw, ok := c.entries[merchantID]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var state domain.SyncState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode sync state: %w", err)
	}
	return &state, nil
}

// Delete removes the entry
func (c *MemoryProgressCache) Delete(_ context.Context, merchantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, merchantID)
	return nil
}
