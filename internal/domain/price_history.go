package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceHistory is an append-only audit record of a price change detected
// during catalog reconciliation. Rows are never mutated or deleted; exactly
// one row is written per detected delta, with NewPrice equal to the item's
// post-update price.
type PriceHistory struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	ItemID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"item_id"`
	PreviousPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"previous_price"`
	NewPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"new_price"`
	Reason        string          `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
}

// TableName returns the database table name
func (PriceHistory) TableName() string {
	return "price_history"
}
