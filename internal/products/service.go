package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reloved-shop/reloved-backend/pkg/db/models"
	pkgerrors "github.com/reloved-shop/reloved-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes catalog read and admin management operations.
type Service interface {
	ListProducts(ctx context.Context) ([]ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) ListProducts(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	dtos := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *toDTO(&rows[i]))
	}
	return dtos, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return toDTO(product), nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	variants, err := buildVariants(input.Variants)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		PriceCents:  input.PriceCents,
		Stock:       input.Stock,
		ImageURL:    input.ImageURL,
		IsActive:    true,
	}
	if product.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	for i := range variants {
		variants[i].ProductID = product.ID
	}
	product.Variants = variants
	// Variant products always track the aggregate as the variant sum.
	if len(variants) > 0 {
		product.Stock = sumVariantStock(variants)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).CreateProduct(ctx, product)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return toDTO(product), nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	var newVariants []models.ProductVariant
	if input.Variants != nil {
		built, err := buildVariants(*input.Variants)
		if err != nil {
			return nil, err
		}
		newVariants = built
	}

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "product name required")
			}
			product.Name = name
		}
		if input.Description != nil {
			product.Description = *input.Description
		}
		if input.PriceCents != nil {
			product.PriceCents = *input.PriceCents
		}
		if input.ImageURL != nil {
			product.ImageURL = input.ImageURL
		}
		if input.IsActive != nil {
			product.IsActive = *input.IsActive
		}

		if input.Variants != nil {
			for i := range newVariants {
				newVariants[i].ProductID = product.ID
			}
			if err := repo.ReplaceVariants(ctx, product.ID, newVariants); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace variants")
			}
			product.Variants = newVariants
		}

		switch {
		case len(product.Variants) > 0:
			product.Stock = sumVariantStock(product.Variants)
		case input.Stock != nil:
			product.Stock = *input.Stock
		}

		if _, err := repo.UpdateProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDTO(updated), nil
}

func buildVariants(inputs []VariantInput) ([]models.ProductVariant, error) {
	seen := make(map[string]struct{}, len(inputs))
	variants := make([]models.ProductVariant, 0, len(inputs))
	for _, in := range inputs {
		size := strings.TrimSpace(in.Size)
		if size == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant size required")
		}
		if in.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant stock must not be negative")
		}
		if _, dup := seen[size]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate variant size %q", size))
		}
		seen[size] = struct{}{}
		variants = append(variants, models.ProductVariant{
			ID:    uuid.New(),
			Size:  size,
			Stock: in.Stock,
		})
	}
	return variants, nil
}

func sumVariantStock(variants []models.ProductVariant) int {
	total := 0
	for _, v := range variants {
		total += v.Stock
	}
	return total
}
