package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a local catalog row. ExternalID links it to a Square catalog
// variation; when present it is unique per merchant. Items without an external
// id are matched by case-insensitive name during reconciliation, and their
// external id is backfilled on first match so later syncs resolve in O(1).
type Item struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	MerchantID   string          `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_items_merchant_external,priority:1" json:"merchant_id"`
	ExternalID   *string         `gorm:"type:varchar(128);uniqueIndex:idx_items_merchant_external,priority:2" json:"external_id,omitempty"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	Category     string          `gorm:"type:varchar(128)" json:"category"`
	CurrentPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"current_price"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName returns the database table name
func (Item) TableName() string {
	return "items"
}
