package application

import (
	"context"
	"errors"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/ports"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler triggers periodic syncs for every connected merchant. A merchant
// whose lease is held is skipped silently; the next tick picks it up.
type Scheduler struct {
	cron         *cron.Cron
	integrations ports.IntegrationRepository
	syncs        *SyncService
	logger       zerolog.Logger
}

// NewScheduler creates a scheduler running on the given cron expression
func NewScheduler(spec string, integrations ports.IntegrationRepository, syncs *SyncService, logger zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:         cron.New(),
		integrations: integrations,
		syncs:        syncs,
		logger:       logger,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins scheduling in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("Sync scheduler started")
}

// Stop halts scheduling and waits for a running tick to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	integrations, err := s.integrations.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled sync failed to list integrations")
		return
	}

	for _, integ := range integrations {
		taskID, err := s.syncs.Trigger(ctx, integ.MerchantID, SyncOptions{})
		switch {
		case errors.Is(err, domain.ErrSyncAlreadyRunning):
			s.logger.Debug().Str("merchant_id", integ.MerchantID).Msg("Scheduled sync skipped, sync already running")
		case err != nil:
			s.logger.Error().Err(err).Str("merchant_id", integ.MerchantID).Msg("Scheduled sync failed to trigger")
		default:
			s.logger.Info().Str("merchant_id", integ.MerchantID).Str("task_id", taskID).Msg("Scheduled sync triggered")
		}
	}
}
