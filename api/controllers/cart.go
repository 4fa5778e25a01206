package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/reloved-shop/reloved-backend/api/middleware"
	"github.com/reloved-shop/reloved-backend/api/responses"
	"github.com/reloved-shop/reloved-backend/api/validators"
	"github.com/reloved-shop/reloved-backend/internal/cart"
	"github.com/reloved-shop/reloved-backend/internal/inventory"
	pkgerrors "github.com/reloved-shop/reloved-backend/pkg/errors"
	"github.com/reloved-shop/reloved-backend/pkg/logger"
)

// StockService resolves live availability and pricing for cart writes.
type StockService interface {
	FetchStock(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]inventory.Stock, error)
}

type cartLineResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantKey     string    `json:"variant_key"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	LineTotalCents int       `json:"line_total_cents"`
	StockCeiling   int       `json:"stock_ceiling"`
}

type cartResponse struct {
	Lines         []cartLineResponse `json:"lines"`
	SubtotalCents int                `json:"subtotal_cents"`
}

func newCartResponse(snapshot cart.Snapshot) cartResponse {
	resp := cartResponse{
		Lines:         make([]cartLineResponse, 0, len(snapshot)),
		SubtotalCents: snapshot.Subtotal(),
	}
	for _, line := range snapshot {
		resp.Lines = append(resp.Lines, cartLineResponse{
			ProductID:      line.ProductID,
			VariantKey:     line.VariantKey,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			LineTotalCents: line.UnitPriceCents * line.Quantity,
			StockCeiling:   line.StockCeiling,
		})
	}
	return resp
}

// CartFetch returns the owner's cart in insertion order.
func CartFetch(mgr *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := ownerStore(r, mgr, logg, w)
		if err != nil {
			return
		}
		responses.WriteSuccess(w, newCartResponse(store.Snapshot()))
	}
}

type addLineRequest struct {
	ProductID  uuid.UUID `json:"product_id" validate:"required"`
	VariantKey string    `json:"variant_key"`
	Quantity   int       `json:"quantity" validate:"required,min=1"`
}

type addLineResponse struct {
	Cart     cartResponse `json:"cart"`
	Added    int          `json:"added"`
	Clamped  bool         `json:"clamped"`
	Quantity int          `json:"quantity"`
}

// CartAddLine adds quantity to a line, pricing it from the live catalog and
// clamping to current availability. The response reports how much of the
// request actually landed.
func CartAddLine(mgr *cart.Manager, stock StockService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if stock == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}
		store, err := ownerStore(r, mgr, logg, w)
		if err != nil {
			return
		}

		var payload addLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stocks, err := stock.FetchStock(r.Context(), []uuid.UUID{payload.ProductID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		live, ok := stocks[payload.ProductID]
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product unavailable"))
			return
		}
		available := live.AvailabilityFor(payload.VariantKey)

		added, done, err := store.AddLine(payload.ProductID, payload.VariantKey, payload.Quantity, live.PriceCents, available)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := awaitPersist(r.Context(), done); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot := store.Snapshot()
		quantity := 0
		for _, line := range snapshot {
			if line.ProductID == payload.ProductID && line.VariantKey == payload.VariantKey {
				quantity = line.Quantity
			}
		}
		responses.WriteSuccess(w, addLineResponse{
			Cart:     newCartResponse(snapshot),
			Added:    added,
			Clamped:  added < payload.Quantity,
			Quantity: quantity,
		})
	}
}

type updateLineRequest struct {
	VariantKey string `json:"variant_key"`
	Delta      int    `json:"delta" validate:"required"`
}

// CartUpdateLine applies a quantity delta, clamped to [1, availability].
func CartUpdateLine(mgr *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := ownerStore(r, mgr, logg, w)
		if err != nil {
			return
		}
		productID, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity, done, err := store.UpdateQuantity(productID, payload.VariantKey, payload.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := awaitPersist(r.Context(), done); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"cart":     newCartResponse(store.Snapshot()),
			"quantity": quantity,
		})
	}
}

// CartRemoveLine deletes one line; the variant is addressed by query param.
func CartRemoveLine(mgr *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := ownerStore(r, mgr, logg, w)
		if err != nil {
			return
		}
		productID, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantKey := r.URL.Query().Get("variant_key")

		done, err := store.RemoveLine(productID, variantKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := awaitPersist(r.Context(), done); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store.Snapshot()))
	}
}

// CartClear wipes the owner's cart.
func CartClear(mgr *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := ownerStore(r, mgr, logg, w)
		if err != nil {
			return
		}
		if err := awaitPersist(r.Context(), store.Clear()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store.Snapshot()))
	}
}

// CartMerge folds the guest device cart into the authenticated user's cart.
// Requires a bearer token plus the X-Device-Id header of the guest session.
func CartMerge(mgr *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart manager unavailable"))
			return
		}
		owner, ok := middleware.OwnerFromContext(r.Context())
		if !ok || !owner.IsUser() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		deviceID := middleware.DeviceIDFromContext(r.Context())
		if deviceID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Device-Id header required"))
			return
		}

		store, err := mgr.Login(r.Context(), deviceID, owner.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store.Snapshot()))
	}
}

func ownerStore(r *http.Request, mgr *cart.Manager, logg *logger.Logger, w http.ResponseWriter) (*cart.Store, error) {
	if mgr == nil {
		err := pkgerrors.New(pkgerrors.CodeInternal, "cart manager unavailable")
		responses.WriteError(r.Context(), logg, w, err)
		return nil, err
	}
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		err := pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
		responses.WriteError(r.Context(), logg, w, err)
		return nil, err
	}
	store, err := mgr.StoreFor(r.Context(), owner)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, err
	}
	return store, nil
}

// awaitPersist blocks until the queued backend write resolves, so the HTTP
// response reflects whether an authoritative write actually landed. A nil
// channel means there was nothing to persist.
func awaitPersist(ctx context.Context, done <-chan error) error {
	if done == nil {
		return nil
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "cart write not confirmed")
	}
}
