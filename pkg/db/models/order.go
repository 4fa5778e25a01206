package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/reloved-shop/reloved-backend/pkg/enums"
	"github.com/reloved-shop/reloved-backend/pkg/types"
)

// Order is an immutable purchase record; only Status may change after
// creation, and only through the order-management transitions.
type Order struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID    *string             `gorm:"column:owner_id;index"`
	Status     enums.OrderStatus   `gorm:"column:status;not null;default:'pending'"`
	TotalCents int                 `gorm:"column:total_cents;not null"`
	Shipping   *types.ShippingInfo `gorm:"column:shipping;type:jsonb;serializer:json"`
	Items      []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
