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

// GormOrderRepository implements OrderRepository on the relational store
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new order repository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ ports.OrderRepository = (*GormOrderRepository)(nil)

// MaxOrderDate returns the newest local order date for the merchant
func (r *GormOrderRepository) MaxOrderDate(ctx context.Context, merchantID string) (*time.Time, error) {
	var newest domain.Order
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("order_date DESC").
		First(&newest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query max order date: %w", err)
	}
	t := newest.OrderDate
	return &t, nil
}

// ExternalIDs returns the set of already-ingested external order ids for the
// merchant in a single query, so dedup during ingestion is an in-memory
// membership check instead of one query per remote order.
func (r *GormOrderRepository) ExternalIDs(ctx context.Context, merchantID string) (map[string]struct{}, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("merchant_id = ?", merchantID).
		Pluck("external_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load external order ids: %w", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// CreateBatch bulk-inserts the staged orders and then their line items inside
// one transaction. A unique violation (an external id that slipped past the
// dedup set) rolls the whole batch back and surfaces
// domain.ErrDuplicateExternalID so the sync is marked failed rather than
// partially committed.
func (r *GormOrderRepository) CreateBatch(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	var items []*domain.OrderItem
	for _, order := range orders {
		if order.ID == uuid.Nil {
			order.ID = uuid.New()
		}
		for i := range order.Items {
			li := &order.Items[i]
			if li.ID == uuid.Nil {
				li.ID = uuid.New()
			}
			li.OrderID = order.ID
			items = append(items, li)
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").CreateInBatches(orders, insertBatchSize).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.CreateInBatches(items, insertBatchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to insert orders: %w", domain.ErrDuplicateExternalID)
		}
		return fmt.Errorf("failed to insert orders: %w", err)
	}
	return nil
}

// CountByMerchant returns the number of ingested orders for a merchant
func (r *GormOrderRepository) CountByMerchant(ctx context.Context, merchantID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("merchant_id = ?", merchantID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}
