package controllers

import (
	"net/http"

	"github.com/reloved-shop/reloved-backend/api/middleware"
	"github.com/reloved-shop/reloved-backend/api/responses"
	"github.com/reloved-shop/reloved-backend/api/validators"
	"github.com/reloved-shop/reloved-backend/internal/cart"
	"github.com/reloved-shop/reloved-backend/internal/checkout"
	pkgerrors "github.com/reloved-shop/reloved-backend/pkg/errors"
	"github.com/reloved-shop/reloved-backend/pkg/logger"
	"github.com/reloved-shop/reloved-backend/pkg/types"
)

type checkoutRequest struct {
	Shipping types.ShippingInfo `json:"shipping" validate:"required"`
}

// Checkout reconciles the owner's cart against live stock and commits the
// order. The cart is cleared only after the order lands; a failed checkout
// leaves it untouched so the buyer can adjust and retry.
func Checkout(svc checkout.Service, mgr *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		owner, ok := middleware.OwnerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := mgr.StoreFor(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		confirmation, err := svc.PlaceOrder(r.Context(), owner, store.Snapshot(), payload.Shipping)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// The order is committed; cart cleanup must not fail the response.
		store.Clear()

		responses.WriteSuccessStatus(w, http.StatusCreated, confirmation)
	}
}
