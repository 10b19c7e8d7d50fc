package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is an ingested Square transaction header. ExternalID is the Square
// order id and is unique per merchant; it is the dedup key for incremental
// ingestion. Total is always the sum of the line items' unit_price*quantity,
// never the remote-reported total, so it stays consistent with the stored
// OrderItem rows.
type Order struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	MerchantID string          `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_orders_merchant_external,priority:1" json:"merchant_id"`
	ExternalID string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_orders_merchant_external,priority:2" json:"external_id"`
	LocationID string          `gorm:"type:varchar(64);index" json:"location_id"`
	Total      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	OrderDate  time.Time       `gorm:"not null;index" json:"order_date"`
	Items      []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName returns the database table name
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a single line of an ingested order, referencing the resolved
// local Item (created on the fly when the remote line carried no catalog
// linkage and no name match existed).
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ItemID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"item_id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Quantity  decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

// TableName returns the database table name
func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotal returns unit_price * quantity for this line
func (li *OrderItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(li.Quantity)
}
