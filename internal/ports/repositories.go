package ports

import (
	"context"
	"time"

	"savor-core-square-layer/internal/domain"

	"github.com/google/uuid"
)

// IntegrationRepository defines the interface for integration persistence
type IntegrationRepository interface {
	// Create creates a new integration record
	Create(ctx context.Context, integration *domain.Integration) error

	// FindByMerchantID retrieves an integration by merchant id; returns
	// domain.ErrIntegrationNotFound when absent
	FindByMerchantID(ctx context.Context, merchantID string) (*domain.Integration, error)

	// List returns all integrations
	List(ctx context.Context) ([]domain.Integration, error)

	// UpdateTokens persists a rotated access/refresh token pair and expiry
	UpdateTokens(ctx context.Context, integration *domain.Integration) error

	// UpdateLocations persists the resolved location list and primary location
	UpdateLocations(ctx context.Context, integration *domain.Integration) error

	// UpdateSyncMetadata persists the durable sync status block; lastSyncAt
	// is advanced only when non-nil
	UpdateSyncMetadata(ctx context.Context, merchantID string, meta *domain.SyncMetadata, lastSyncAt *time.Time) error

	// AcquireSyncLease flips sync_active false->true with a conditional
	// update; returns false when another sync already holds the lease
	AcquireSyncLease(ctx context.Context, merchantID string) (bool, error)

	// ReleaseSyncLease clears sync_active
	ReleaseSyncLease(ctx context.Context, merchantID string) error

	// Delete removes the integration on merchant disconnect
	Delete(ctx context.Context, merchantID string) error
}

// ItemRepository defines the interface for local catalog persistence
type ItemRepository interface {
	// ListByMerchant loads all of a merchant's items in one query
	ListByMerchant(ctx context.Context, merchantID string) ([]domain.Item, error)

	// CreateBatch inserts new items in a single bulk statement
	CreateBatch(ctx context.Context, items []*domain.Item) error

	// Update persists changes to a matched item
	Update(ctx context.Context, item *domain.Item) error
}

// OrderRepository defines the interface for ingested order persistence
type OrderRepository interface {
	// MaxOrderDate returns the newest local order date for the merchant,
	// or nil when no orders exist
	MaxOrderDate(ctx context.Context, merchantID string) (*time.Time, error)

	// ExternalIDs returns the set of already-ingested external order ids
	// for the merchant in one query
	ExternalIDs(ctx context.Context, merchantID string) (map[string]struct{}, error)

	// CreateBatch bulk-inserts orders and then their line items inside one
	// transaction; a unique violation rolls the whole batch back and
	// returns domain.ErrDuplicateExternalID
	CreateBatch(ctx context.Context, orders []*domain.Order) error

	// CountByMerchant returns the number of ingested orders for a merchant
	CountByMerchant(ctx context.Context, merchantID string) (int64, error)
}

// PriceHistoryRepository defines the interface for the price audit trail
type PriceHistoryRepository interface {
	// CreateBatch appends audit rows in a single bulk statement
	CreateBatch(ctx context.Context, rows []*domain.PriceHistory) error

	// ListByItem returns an item's price history, newest first
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]domain.PriceHistory, error)
}
