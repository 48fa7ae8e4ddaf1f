package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order.TotalCost is derived, never authoritative: it is recomputed from
// the order's items inside the same transaction as any item change.
type Order struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string          `gorm:"type:varchar(36);not null;index" json:"userId"`
	TotalCost decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"totalCost"`
	Items     []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderItem.Cost is a snapshot of the product's cost at the time the item
// was created or last updated. Later product cost changes do not touch it.
type OrderItem struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID   string          `gorm:"type:varchar(36);not null;index" json:"orderId"`
	Order     *Order          `gorm:"foreignKey:OrderID" json:"-"`
	ProductID string          `gorm:"type:varchar(36);not null;index" json:"productId"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Cost      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"cost"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
