package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a persisted cart line for an authenticated owner. Guest carts
// never reach this table. VariantKey is the selected size, empty for
// products without variants; the empty string (not NULL) keeps the
// uniqueness constraint effective for variant-less lines.
type CartItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID        string    `gorm:"column:owner_id;not null;uniqueIndex:idx_cart_owner_product_variant"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_owner_product_variant"`
	VariantKey     string    `gorm:"column:variant_key;not null;default:'';uniqueIndex:idx_cart_owner_product_variant"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	StockCeiling   int       `gorm:"column:stock_ceiling;not null"`
	Position       int       `gorm:"column:position;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
