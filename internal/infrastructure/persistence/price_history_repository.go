package persistence

import (
	"context"
	"fmt"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPriceHistoryRepository implements PriceHistoryRepository on the
// relational store. The table is append-only; no update or delete methods
// exist.
type GormPriceHistoryRepository struct {
	db *gorm.DB
}

// NewGormPriceHistoryRepository creates a new price history repository
func NewGormPriceHistoryRepository(db *gorm.DB) *GormPriceHistoryRepository {
	return &GormPriceHistoryRepository{db: db}
}

var _ ports.PriceHistoryRepository = (*GormPriceHistoryRepository)(nil)

// CreateBatch appends audit rows in a single bulk statement
func (r *GormPriceHistoryRepository) CreateBatch(ctx context.Context, rows []*domain.PriceHistory) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := r.db.WithContext(ctx).CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("failed to create price history: %w", err)
	}
	return nil
}

// ListByItem returns an item's price history, newest first
func (r *GormPriceHistoryRepository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]domain.PriceHistory, error) {
	var rows []domain.PriceHistory
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list price history: %w", err)
	}
	return rows, nil
}
