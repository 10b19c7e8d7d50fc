package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormIntegrationRepository implements IntegrationRepository on the
// relational store
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new integration repository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

var _ ports.IntegrationRepository = (*GormIntegrationRepository)(nil)

// Create creates a new integration record
func (r *GormIntegrationRepository) Create(ctx context.Context, integration *domain.Integration) error {
	if integration.ID == uuid.Nil {
		integration.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(integration).Error; err != nil {
		return fmt.Errorf("failed to create integration: %w", err)
	}
	return nil
}

// FindByMerchantID retrieves an integration by merchant id
func (r *GormIntegrationRepository) FindByMerchantID(ctx context.Context, merchantID string) (*domain.Integration, error) {
	var integ domain.Integration
	err := r.db.WithContext(ctx).Where("merchant_id = ?", merchantID).First(&integ).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrIntegrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}
	return &integ, nil
}

// List returns all integrations
func (r *GormIntegrationRepository) List(ctx context.Context) ([]domain.Integration, error) {
	var integrations []domain.Integration
	if err := r.db.WithContext(ctx).Find(&integrations).Error; err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	return integrations, nil
}

// UpdateTokens persists a rotated token pair and expiry
func (r *GormIntegrationRepository) UpdateTokens(ctx context.Context, integration *domain.Integration) error {
	err := r.db.WithContext(ctx).Model(&domain.Integration{}).
		Where("merchant_id = ?", integration.MerchantID).
		Updates(map[string]any{
			"access_token":     integration.AccessToken,
			"refresh_token":    integration.RefreshToken,
			"token_expires_at": integration.TokenExpiresAt,
			"updated_at":       time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	return nil
}

// UpdateLocations persists the resolved location list and primary location
func (r *GormIntegrationRepository) UpdateLocations(ctx context.Context, integration *domain.Integration) error {
	err := r.db.WithContext(ctx).Model(&domain.Integration{}).
		Where("merchant_id = ?", integration.MerchantID).
		Updates(map[string]any{
			"location_ids":        integration.LocationIDsJSON,
			"primary_location_id": integration.PrimaryLocationID,
			"updated_at":          time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update locations: %w", err)
	}
	return nil
}

// UpdateSyncMetadata persists the durable sync status block. lastSyncAt is
// only advanced when non-nil (successful finalization).
func (r *GormIntegrationRepository) UpdateSyncMetadata(ctx context.Context, merchantID string, meta *domain.SyncMetadata, lastSyncAt *time.Time) error {
	integ := domain.Integration{}
	integ.SetSyncMetadata(meta)

	updates := map[string]any{
		"sync_metadata": integ.SyncMetadataJSON,
		"updated_at":    time.Now(),
	}
	if lastSyncAt != nil {
		updates["last_sync_at"] = *lastSyncAt
	}

	err := r.db.WithContext(ctx).Model(&domain.Integration{}).
		Where("merchant_id = ?", merchantID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update sync metadata: %w", err)
	}
	return nil
}

// AcquireSyncLease flips sync_active false->true in a single conditional
// update, so two concurrent triggers for the same merchant cannot both win.
func (r *GormIntegrationRepository) AcquireSyncLease(ctx context.Context, merchantID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Integration{}).
		Where("merchant_id = ? AND sync_active = ?", merchantID, false).
		Update("sync_active", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to acquire sync lease: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReleaseSyncLease clears sync_active
func (r *GormIntegrationRepository) ReleaseSyncLease(ctx context.Context, merchantID string) error {
	err := r.db.WithContext(ctx).Model(&domain.Integration{}).
		Where("merchant_id = ?", merchantID).
		Update("sync_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to release sync lease: %w", err)
	}
	return nil
}

// Delete removes the integration on merchant disconnect
func (r *GormIntegrationRepository) Delete(ctx context.Context, merchantID string) error {
	res := r.db.WithContext(ctx).Where("merchant_id = ?", merchantID).Delete(&domain.Integration{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete integration: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrIntegrationNotFound
	}
	return nil
}
