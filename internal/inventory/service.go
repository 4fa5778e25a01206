package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/reloved-shop/reloved-backend/pkg/db/models"
	pkgerrors "github.com/reloved-shop/reloved-backend/pkg/errors"
)

// Stock is the live availability for one product: the aggregate count plus
// the per-size breakdown for variant products.
type Stock struct {
	ProductID  uuid.UUID
	PriceCents int
	Aggregate  int
	Variants   map[string]int
}

// AvailabilityFor resolves the quantity available for a variant key.
// The empty key addresses the aggregate; an unknown size reports 0.
func (s Stock) AvailabilityFor(variantKey string) int {
	if variantKey == "" {
		return s.Aggregate
	}
	return s.Variants[variantKey]
}

type catalogReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Service is a stateless, read-only view over live catalog stock.
type Service struct {
	catalog catalogReader
}

// NewService builds the stock lookup service.
func NewService(catalog catalogReader) (*Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	return &Service{catalog: catalog}, nil
}

// FetchStock batch-reads current stock for the given product ids. Missing or
// inactive products are omitted from the result; callers treat absence as
// availability 0. Results reflect a single read, not a reservation.
func (s *Service) FetchStock(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Stock, error) {
	result := make(map[uuid.UUID]Stock, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	distinct := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}

	products, err := s.catalog.FindByIDs(ctx, distinct)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stock")
	}

	for id, product := range products {
		if !product.IsActive {
			continue
		}
		stock := Stock{
			ProductID:  id,
			PriceCents: product.PriceCents,
			Aggregate:  product.Stock,
			Variants:   make(map[string]int, len(product.Variants)),
		}
		for _, variant := range product.Variants {
			stock.Variants[variant.Size] = variant.Stock
		}
		result[id] = stock
	}
	return result, nil
}
