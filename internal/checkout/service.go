package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reloved-shop/reloved-backend/internal/cart"
	"github.com/reloved-shop/reloved-backend/internal/inventory"
	"github.com/reloved-shop/reloved-backend/internal/orders"
	"github.com/reloved-shop/reloved-backend/pkg/db/models"
	"github.com/reloved-shop/reloved-backend/pkg/enums"
	pkgerrors "github.com/reloved-shop/reloved-backend/pkg/errors"
	"github.com/reloved-shop/reloved-backend/pkg/logger"
	"github.com/reloved-shop/reloved-backend/pkg/metrics"
	"github.com/reloved-shop/reloved-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockFetcher interface {
	FetchStock(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]inventory.Stock, error)
}

// Confirmation is the successful checkout result.
type Confirmation struct {
	OrderID    uuid.UUID `json:"order_id"`
	TotalCents int       `json:"total_cents"`
}

// InsufficientLine describes one cart line that exceeds live availability.
type InsufficientLine struct {
	ProductID  uuid.UUID `json:"product_id"`
	VariantKey string    `json:"variant_key"`
	Requested  int       `json:"requested"`
	Available  int       `json:"available"`
}

// Service reconciles a cart snapshot against live stock and commits orders.
type Service interface {
	PlaceOrder(ctx context.Context, owner cart.Owner, snapshot cart.Snapshot, shipping types.ShippingInfo) (*Confirmation, error)
}

type service struct {
	stock   stockFetcher
	orders  orders.Repository
	tx      txRunner
	timeout time.Duration
	stats   *metrics.CheckoutMetrics
	logg    *logger.Logger
}

// NewService builds the checkout reconciler.
func NewService(stock stockFetcher, ordersRepo orders.Repository, tx txRunner, timeout time.Duration, stats *metrics.CheckoutMetrics, logg *logger.Logger) (Service, error) {
	if stock == nil {
		return nil, fmt.Errorf("stock fetcher required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &service{
		stock:   stock,
		orders:  ordersRepo,
		tx:      tx,
		timeout: timeout,
		stats:   stats,
		logg:    logg,
	}, nil
}

// PlaceOrder validates every line against live stock, then commits the order
// and its stock decrements in a single transaction. Each decrement is
// conditional on sufficiency at write time, so concurrent checkouts racing
// for the same unit cannot both win; the loser's transaction rolls back,
// removing any order rows it wrote.
func (s *service) PlaceOrder(ctx context.Context, owner cart.Owner, snapshot cart.Snapshot, shipping types.ShippingInfo) (*Confirmation, error) {
	started := time.Now()

	if len(snapshot) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if missing := shipping.MissingFields(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping information incomplete").
			WithDetails(map[string]any{"missing_fields": missing})
	}

	// Validate phase: one batched read of live stock. Absent products count
	// as availability 0.
	stocks, err := s.stock.FetchStock(ctx, snapshot.ProductIDs())
	if err != nil {
		s.observe("error", started)
		return nil, err
	}
	var short []InsufficientLine
	for _, line := range snapshot {
		available := 0
		if stock, ok := stocks[line.ProductID]; ok {
			available = stock.AvailabilityFor(line.VariantKey)
		}
		if line.Quantity > available {
			short = append(short, InsufficientLine{
				ProductID:  line.ProductID,
				VariantKey: line.VariantKey,
				Requested:  line.Quantity,
				Available:  available,
			})
		}
	}
	if len(short) > 0 {
		s.stats.IncStockConflict("validate")
		s.observe("stock_insufficient", started)
		return nil, stockInsufficient(short)
	}

	// Commit phase: order rows plus conditional decrements, all or nothing.
	// A timeout cancels the transaction, which rolls back identically to a
	// lost race.
	commitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order := &models.Order{
		ID:         uuid.New(),
		Status:     enums.OrderStatusPending,
		TotalCents: snapshot.Subtotal(),
		Shipping:   &shipping,
	}
	if owner.Kind == enums.OwnerKindUser && owner.ID != "" {
		key := owner.Key()
		order.OwnerID = &key
	}

	err = s.tx.WithTx(commitCtx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		if _, err := repo.Create(commitCtx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		items := make([]models.OrderLineItem, 0, len(snapshot))
		for _, line := range snapshot {
			items = append(items, models.OrderLineItem{
				ID:             uuid.New(),
				OrderID:        order.ID,
				ProductID:      line.ProductID,
				VariantKey:     line.VariantKey,
				Quantity:       line.Quantity,
				UnitPriceCents: line.UnitPriceCents,
			})
		}
		if err := repo.CreateLineItems(commitCtx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order line items")
		}

		for _, line := range snapshot {
			ok, err := decrementStock(commitCtx, tx, line)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				// Lost the race between validate and commit. Returning an
				// error rolls back the order rows and every decrement this
				// attempt already made.
				available, readErr := readAvailability(commitCtx, tx, line)
				if readErr != nil {
					available = 0
				}
				s.stats.IncStockConflict("commit")
				return stockInsufficient([]InsufficientLine{{
					ProductID:  line.ProductID,
					VariantKey: line.VariantKey,
					Requested:  line.Quantity,
					Available:  available,
				}})
			}
		}
		return nil
	})
	if err != nil {
		if commitCtx.Err() != nil && pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout timed out")
		}
		s.observe(outcomeOf(err), started)
		return nil, err
	}

	s.stats.IncOrdersPlaced()
	s.observe("committed", started)
	return &Confirmation{OrderID: order.ID, TotalCents: order.TotalCents}, nil
}

// decrementStock applies the conditional decrement for one line. Variant
// lines decrement both the variant row and the product aggregate so the
// aggregate stays equal to the variant sum.
func decrementStock(ctx context.Context, tx *gorm.DB, line cart.Line) (bool, error) {
	if line.VariantKey != "" {
		res := tx.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("product_id = ? AND size = ? AND stock >= ?", line.ProductID, line.VariantKey, line.Quantity).
			Update("stock", gorm.Expr("stock - ?", line.Quantity))
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected == 0 {
			return false, nil
		}
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", line.ProductID, line.Quantity).
		Update("stock", gorm.Expr("stock - ?", line.Quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func readAvailability(ctx context.Context, tx *gorm.DB, line cart.Line) (int, error) {
	var stock int
	if line.VariantKey != "" {
		err := tx.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("product_id = ? AND size = ?", line.ProductID, line.VariantKey).
			Pluck("stock", &stock).Error
		return stock, err
	}
	err := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", line.ProductID).
		Pluck("stock", &stock).Error
	return stock, err
}

func stockInsufficient(lines []InsufficientLine) error {
	return pkgerrors.New(pkgerrors.CodeStockInsufficient, "one or more lines exceed available stock").
		WithDetails(map[string]any{"lines": lines})
}

func (s *service) observe(outcome string, started time.Time) {
	s.stats.ObserveDuration(outcome, time.Since(started))
}

func outcomeOf(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStockInsufficient {
		return "stock_insufficient"
	}
	return "error"
}
