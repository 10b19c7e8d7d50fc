package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/ports"

	"github.com/rs/zerolog"
)

// Progress bands for the time-based estimate. The ceiling leaves headroom
// for finalization, which is what forces 100.
const (
	fullProgressBase        = 40
	fullProgressCap         = 90
	incrementalProgressBase = 60
	incrementalProgressCap  = 95
)

// ProgressEstimate maps how far the newest processed order timestamp has
// advanced from the watermark toward now onto a progress percentage. The
// remote API does not report a total row count up front, so this is an
// estimate, not an exact ratio; it never claims 100 before finalization.
func ProgressEstimate(watermark, processed, now time.Time, fullSync bool) int {
	base, ceil := incrementalProgressBase, incrementalProgressCap
	if fullSync {
		base, ceil = fullProgressBase, fullProgressCap
	}

	window := now.Sub(watermark)
	if window <= 0 {
		return ceil
	}
	ratio := float64(processed.Sub(watermark)) / float64(window)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return base + int(ratio*float64(ceil-base))
}

// ProgressStore tracks sync progress with a dual write: the durable copy on
// the integration record survives restarts and provides history, the
// ephemeral cache entry serves low-latency cross-process polling. All writes
// for one merchant come from the single worker running that merchant's sync,
// so updates are strictly ordered.
type ProgressStore struct {
	integrations ports.IntegrationRepository
	cache        ports.ProgressCache
	logger       zerolog.Logger

	mu     sync.Mutex
	active map[string]*trackedSync
}

type trackedSync struct {
	state *domain.SyncState
	meta  *domain.SyncMetadata
}

// NewProgressStore creates a new progress store
func NewProgressStore(integrations ports.IntegrationRepository, cache ports.ProgressCache, logger zerolog.Logger) *ProgressStore {
	return &ProgressStore{
		integrations: integrations,
		cache:        cache,
		logger:       logger,
		active:       make(map[string]*trackedSync),
	}
}

// Start writes the initial state to both the durable record and the
// ephemeral cache. The existing last_success/last_failure summaries are
// loaded first so they survive the run.
func (s *ProgressStore) Start(ctx context.Context, merchantID, taskID string) error {
	integ, err := s.integrations.FindByMerchantID(ctx, merchantID)
	if err != nil {
		return fmt.Errorf("failed to load integration for sync start: %w", err)
	}

	state := &domain.SyncState{
		TaskID:      taskID,
		Stage:       domain.SyncStageInitializing,
		Progress:    0,
		Active:      true,
		StartedAt:   time.Now().UTC(),
		PerLocation: make(map[string]*domain.LocationProgress),
	}
	meta := integ.SyncMetadata()
	meta.ActiveSync = state

	s.mu.Lock()
	s.active[merchantID] = &trackedSync{state: state, meta: meta}
	s.mu.Unlock()

	return s.persist(ctx, merchantID)
}

// Update applies a typed mutation to the current state and persists it.
// Fields the mutation does not touch are preserved, and progress is clamped
// so it never decreases while the sync is active.
func (s *ProgressStore) Update(ctx context.Context, merchantID string, mutate func(*domain.SyncState)) error {
	s.mu.Lock()
	ts, ok := s.active[merchantID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("no active sync for merchant %s", merchantID)
	}
	prev := ts.state.Progress
	mutate(ts.state)
	if ts.state.Progress < prev {
		ts.state.Progress = prev
	}
	s.mu.Unlock()

	return s.persist(ctx, merchantID)
}

// UpdateLocation applies a mutation to one location's progress bucket
func (s *ProgressStore) UpdateLocation(ctx context.Context, merchantID, locationID string, mutate func(*domain.LocationProgress)) error {
	return s.Update(ctx, merchantID, func(state *domain.SyncState) {
		mutate(state.Location(locationID))
	})
}

// Finalize marks the run completed or failed, stores the outcome summary on
// the durable record, advances last_sync_at only on success, releases the
// sync lease and deletes the ephemeral entry so pollers immediately see
// "no active sync".
func (s *ProgressStore) Finalize(ctx context.Context, merchantID string, success bool, summary string) error {
	s.mu.Lock()
	ts, ok := s.active[merchantID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("no active sync for merchant %s", merchantID)
	}
	delete(s.active, merchantID)
	s.mu.Unlock()

	now := time.Now().UTC()
	ts.state.Active = false
	ts.state.EndedAt = &now
	if success {
		ts.state.Stage = domain.SyncStageCompleted
		ts.state.Progress = 100
	} else {
		ts.state.Stage = domain.SyncStageFailed
		ts.state.Error = summary
	}

	outcome := &domain.SyncSummary{StartedAt: ts.state.StartedAt, EndedAt: now, Summary: summary}
	var lastSyncAt *time.Time
	if success {
		ts.meta.LastSuccess = outcome
		lastSyncAt = &now
	} else {
		ts.meta.LastFailure = outcome
	}

	if err := s.integrations.UpdateSyncMetadata(ctx, merchantID, ts.meta, lastSyncAt); err != nil {
		return fmt.Errorf("failed to finalize sync metadata: %w", err)
	}
	if err := s.cache.Delete(ctx, merchantID); err != nil {
		s.logger.Warn().Err(err).Str("merchant_id", merchantID).Msg("Failed to delete cached sync state")
	}
	if err := s.integrations.ReleaseSyncLease(ctx, merchantID); err != nil {
		return fmt.Errorf("failed to release sync lease: %w", err)
	}

	s.logger.Info().
		Str("merchant_id", merchantID).
		Str("task_id", ts.state.TaskID).
		Bool("success", success).
		Str("summary", summary).
		Msg("Sync finalized")
	return nil
}

// Get returns the current sync state: the ephemeral copy while a sync is
// active, falling back to the durable record's last run otherwise. Returns
// (nil, nil) when the merchant has never synced.
func (s *ProgressStore) Get(ctx context.Context, merchantID string) (*domain.SyncState, error) {
	state, err := s.cache.Get(ctx, merchantID)
	if err != nil {
		s.logger.Warn().Err(err).Str("merchant_id", merchantID).Msg("Progress cache read failed, falling back to durable record")
	}
	if state != nil {
		return state, nil
	}

	integ, err := s.integrations.FindByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	return integ.SyncMetadata().ActiveSync, nil
}

// persist mirrors the current state to the durable record and the cache.
// A cache write failure is logged but does not abort the sync; the durable
// copy is authoritative.
func (s *ProgressStore) persist(ctx context.Context, merchantID string) error {
	s.mu.Lock()
	ts, ok := s.active[merchantID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	if err := s.integrations.UpdateSyncMetadata(ctx, merchantID, ts.meta, nil); err != nil {
		return fmt.Errorf("failed to persist sync state: %w", err)
	}
	if err := s.cache.Put(ctx, merchantID, ts.state); err != nil {
		s.logger.Warn().Err(err).Str("merchant_id", merchantID).Msg("Failed to mirror sync state to cache")
	}
	return nil
}
