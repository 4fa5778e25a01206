package cart

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/google/uuid"
	"github.com/reloved-shop/reloved-backend/pkg/db/models"
)

// RemoteBackend persists authenticated carts as cart_items rows. SaveLine is
// an upsert on (owner_id, product_id, variant_key): the worker always writes
// the latest full per-key state, so out-of-order completion against the
// network cannot resurrect older quantities.
type RemoteBackend struct {
	db *gorm.DB
}

// NewRemoteBackend builds the authenticated cart backend.
func NewRemoteBackend(db *gorm.DB) (*RemoteBackend, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &RemoteBackend{db: db}, nil
}

// BestEffort marks remote writes as authoritative: failures roll the local
// state back.
func (b *RemoteBackend) BestEffort() bool { return false }

func (b *RemoteBackend) Load(ctx context.Context, owner Owner) ([]Line, error) {
	var rows []models.CartItem
	err := b.db.WithContext(ctx).
		Where("owner_id = ?", owner.Key()).
		Order("position ASC").
		Order("created_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}

	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		if row.Quantity < 1 {
			continue
		}
		lines = append(lines, Line{
			ProductID:      row.ProductID,
			VariantKey:     row.VariantKey,
			Quantity:       row.Quantity,
			UnitPriceCents: row.UnitPriceCents,
			StockCeiling:   row.StockCeiling,
		})
	}
	return lines, nil
}

func (b *RemoteBackend) SaveLine(ctx context.Context, owner Owner, line Line, position int) error {
	item := models.CartItem{
		ID:             uuid.New(),
		OwnerID:        owner.Key(),
		ProductID:      line.ProductID,
		VariantKey:     line.VariantKey,
		Quantity:       line.Quantity,
		UnitPriceCents: line.UnitPriceCents,
		StockCeiling:   line.StockCeiling,
		Position:       position,
	}
	err := b.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "owner_id"},
				{Name: "product_id"},
				{Name: "variant_key"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"quantity", "unit_price_cents", "stock_ceiling", "position", "updated_at",
			}),
		}).
		Create(&item).
		Error
	if err != nil {
		return fmt.Errorf("save cart item: %w", err)
	}
	return nil
}

func (b *RemoteBackend) DeleteLine(ctx context.Context, owner Owner, key LineKey) error {
	err := b.db.WithContext(ctx).
		Where("owner_id = ? AND product_id = ? AND variant_key = ?",
			owner.Key(), key.ProductID, key.VariantKey).
		Delete(&models.CartItem{}).
		Error
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (b *RemoteBackend) Clear(ctx context.Context, owner Owner) error {
	err := b.db.WithContext(ctx).
		Where("owner_id = ?", owner.Key()).
		Delete(&models.CartItem{}).
		Error
	if err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	return nil
}
