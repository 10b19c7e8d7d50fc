package application

import (
	"context"
	"fmt"
	"time"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/infrastructure/metrics"
	"savor-core-square-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SyncService orchestrates one sync run per merchant: token validation,
// location resolution, catalog reconciliation, then order ingestion. Trigger
// acknowledges immediately and runs the pipeline on a background goroutine;
// the per-merchant lease guarantees at most one run is in flight.
type SyncService struct {
	integrations ports.IntegrationRepository
	tokens       ports.TokenSource
	locations    *LocationRegistry
	catalog      *CatalogReconciler
	orders       *OrderIngester
	progress     *ProgressStore
	cache        ports.ProgressCache
	logger       zerolog.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(integrations ports.IntegrationRepository, tokens ports.TokenSource, locations *LocationRegistry, catalog *CatalogReconciler, orders *OrderIngester, progress *ProgressStore, cache ports.ProgressCache, logger zerolog.Logger) *SyncService {
	return &SyncService{
		integrations: integrations,
		tokens:       tokens,
		locations:    locations,
		catalog:      catalog,
		orders:       orders,
		progress:     progress,
		cache:        cache,
		logger:       logger,
	}
}

// Trigger starts a sync for the merchant and returns the task id without
// waiting for completion. Returns domain.ErrIntegrationNotFound when the
// merchant is not connected and domain.ErrSyncAlreadyRunning when another
// sync holds the lease.
func (s *SyncService) Trigger(ctx context.Context, merchantID string, opts SyncOptions) (string, error) {
	integ, err := s.integrations.FindByMerchantID(ctx, merchantID)
	if err != nil {
		return "", err
	}

	acquired, err := s.integrations.AcquireSyncLease(ctx, merchantID)
	if err != nil {
		return "", fmt.Errorf("failed to acquire sync lease: %w", err)
	}
	if !acquired {
		return "", domain.ErrSyncAlreadyRunning
	}

	taskID := uuid.NewString()
	if err := s.progress.Start(ctx, merchantID, taskID); err != nil {
		if releaseErr := s.integrations.ReleaseSyncLease(ctx, merchantID); releaseErr != nil {
			s.logger.Error().Err(releaseErr).Str("merchant_id", merchantID).Msg("Failed to release sync lease after start error")
		}
		return "", err
	}

	metrics.SyncsStarted.Inc()
	s.logger.Info().
		Str("merchant_id", merchantID).
		Str("task_id", taskID).
		Bool("full", opts.Full).
		Msg("Sync triggered")

	// The run outlives the HTTP request that triggered it.
	go s.run(context.Background(), integ, taskID, opts)
	return taskID, nil
}

func (s *SyncService) run(ctx context.Context, integ *domain.Integration, taskID string, opts SyncOptions) {
	start := time.Now()
	defer func() {
		metrics.SyncDuration.Observe(time.Since(start).Seconds())
	}()

	if err := s.execute(ctx, integ, opts); err != nil {
		metrics.SyncFailures.Inc()
		s.logger.Error().Err(err).
			Str("merchant_id", integ.MerchantID).
			Str("task_id", taskID).
			Msg("Sync failed")
		if finErr := s.progress.Finalize(ctx, integ.MerchantID, false, err.Error()); finErr != nil {
			s.logger.Error().Err(finErr).Str("merchant_id", integ.MerchantID).Msg("Failed to finalize failed sync")
		}
		return
	}

	summary := s.buildSummary(ctx, integ.MerchantID)
	if err := s.progress.Finalize(ctx, integ.MerchantID, true, summary); err != nil {
		s.logger.Error().Err(err).Str("merchant_id", integ.MerchantID).Msg("Failed to finalize sync")
	}
}

func (s *SyncService) execute(ctx context.Context, integ *domain.Integration, opts SyncOptions) error {
	if _, err := s.tokens.EnsureValid(ctx, integ); err != nil {
		return err
	}

	locationIDs, err := s.locations.Resolve(ctx, integ)
	if err != nil {
		return err
	}

	if err := s.setStage(ctx, integ.MerchantID, domain.SyncStageSyncingCatalog); err != nil {
		return err
	}
	if err := s.catalog.SyncCatalog(ctx, integ); err != nil {
		return err
	}

	if err := s.setStage(ctx, integ.MerchantID, domain.SyncStageSyncingOrders); err != nil {
		return err
	}
	return s.orders.SyncOrders(ctx, integ, locationIDs, opts)
}

func (s *SyncService) setStage(ctx context.Context, merchantID string, stage domain.SyncStage) error {
	return s.progress.Update(ctx, merchantID, func(state *domain.SyncState) {
		state.Stage = stage
	})
}

func (s *SyncService) buildSummary(ctx context.Context, merchantID string) string {
	state, err := s.progress.Get(ctx, merchantID)
	if err != nil || state == nil {
		return "sync completed"
	}
	return fmt.Sprintf("items: %d created, %d updated; orders: %d created; locations failed: %d",
		state.ItemsCreated, state.ItemsUpdated, state.OrdersCreated, state.LocationsFailed)
}

// Status returns the merchant's current sync state, or the last finished
// run when nothing is active. Returns domain.ErrIntegrationNotFound when
// the merchant is not connected.
func (s *SyncService) Status(ctx context.Context, merchantID string) (*domain.SyncState, error) {
	return s.progress.Get(ctx, merchantID)
}

// Disconnect removes the merchant's integration and any cached sync state.
// Historical items, orders and price history are kept; only the connection
// is severed.
func (s *SyncService) Disconnect(ctx context.Context, merchantID string) error {
	if _, err := s.integrations.FindByMerchantID(ctx, merchantID); err != nil {
		return err
	}
	if err := s.integrations.Delete(ctx, merchantID); err != nil {
		return fmt.Errorf("failed to delete integration: %w", err)
	}
	if err := s.cache.Delete(ctx, merchantID); err != nil {
		s.logger.Warn().Err(err).Str("merchant_id", merchantID).Msg("Failed to delete cached sync state on disconnect")
	}
	s.logger.Info().Str("merchant_id", merchantID).Msg("Integration disconnected")
	return nil
}
