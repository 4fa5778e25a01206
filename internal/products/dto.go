package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/reloved-shop/reloved-backend/pkg/db/models"
)

// ProductDTO is the catalog read shape returned by the service.
type ProductDTO struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	PriceCents  int          `json:"price_cents"`
	Stock       int          `json:"stock"`
	ImageURL    *string      `json:"image_url,omitempty"`
	IsActive    bool         `json:"is_active"`
	Variants    []VariantDTO `json:"variants"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// VariantDTO is the per-size stock shape.
type VariantDTO struct {
	ID    uuid.UUID `json:"id"`
	Size  string    `json:"size"`
	Stock int       `json:"stock"`
}

// VariantInput defines one size entry when creating or updating a product.
type VariantInput struct {
	Size  string `json:"size" validate:"required"`
	Stock int    `json:"stock" validate:"gte=0"`
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description"`
	PriceCents  int            `json:"price_cents" validate:"gte=0"`
	Stock       int            `json:"stock" validate:"gte=0"`
	ImageURL    *string        `json:"image_url"`
	IsActive    *bool          `json:"is_active"`
	Variants    []VariantInput `json:"variants" validate:"dive"`
}

// UpdateProductInput holds optional mutation values for a product.
// Variants, when present, replace the full variant set.
type UpdateProductInput struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	PriceCents  *int            `json:"price_cents" validate:"omitempty,gte=0"`
	Stock       *int            `json:"stock" validate:"omitempty,gte=0"`
	ImageURL    *string         `json:"image_url"`
	IsActive    *bool           `json:"is_active"`
	Variants    *[]VariantInput `json:"variants" validate:"omitempty,dive"`
}

func toDTO(p *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		IsActive:    p.IsActive,
		Variants:    make([]VariantDTO, 0, len(p.Variants)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, v := range p.Variants {
		dto.Variants = append(dto.Variants, VariantDTO{ID: v.ID, Size: v.Size, Stock: v.Stock})
	}
	return dto
}
