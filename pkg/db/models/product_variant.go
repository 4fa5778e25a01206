package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant tracks the per-size stock count for a product.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_variant_size"`
	Size      string    `gorm:"column:size;not null;uniqueIndex:idx_product_variant_size"`
	Stock     int       `gorm:"column:stock;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
