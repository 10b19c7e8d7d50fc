package ports

import (
	"context"

	"savor-core-square-layer/internal/domain"
)

// ProgressCache is the ephemeral side of sync progress tracking: a fast
// key-value store polled by callers while a sync runs, so status checks do
// not hit the relational store. Entries are deleted on finalization.
type ProgressCache interface {
	// Put stores the current sync state for a merchant
	Put(ctx context.Context, merchantID string, state *domain.SyncState) error

	// Get returns the cached state, or (nil, nil) when no sync is active
	Get(ctx context.Context, merchantID string) (*domain.SyncState, error)

	// Delete removes the entry so pollers immediately see "no active sync"
	Delete(ctx context.Context, merchantID string) error
}
