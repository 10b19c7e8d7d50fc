package persistence

import (
	"context"
	"fmt"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const insertBatchSize = 200

// GormItemRepository implements ItemRepository on the relational store
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new item repository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

var _ ports.ItemRepository = (*GormItemRepository)(nil)

// ListByMerchant loads all of a merchant's items in one query
func (r *GormItemRepository) ListByMerchant(ctx context.Context, merchantID string) ([]domain.Item, error) {
	var items []domain.Item
	if err := r.db.WithContext(ctx).Where("merchant_id = ?", merchantID).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// CreateBatch inserts new items in a single bulk statement
func (r *GormItemRepository) CreateBatch(ctx context.Context, items []*domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
	}
	if err := r.db.WithContext(ctx).CreateInBatches(items, insertBatchSize).Error; err != nil {
		return fmt.Errorf("failed to create items: %w", err)
	}
	return nil
}

// Update persists changes to a matched item
func (r *GormItemRepository) Update(ctx context.Context, item *domain.Item) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}
