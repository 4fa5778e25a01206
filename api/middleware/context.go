package middleware

import (
	"context"

	"github.com/reloved-shop/reloved-backend/internal/cart"
)

type contextKey string

const (
	ctxOwner    contextKey = "cart_owner"
	ctxDeviceID contextKey = "device_id"
)

// OwnerFromContext returns the resolved cart owner, or false when the
// request went through no owner middleware.
func OwnerFromContext(ctx context.Context) (cart.Owner, bool) {
	if ctx == nil {
		return cart.Owner{}, false
	}
	owner, ok := ctx.Value(ctxOwner).(cart.Owner)
	return owner, ok
}

// DeviceIDFromContext returns the guest device header value, empty when the
// request carried none.
func DeviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDeviceID).(string); ok {
		return v
	}
	return ""
}

// WithOwner injects the owner into the context. Exposed for handler tests.
func WithOwner(ctx context.Context, owner cart.Owner) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxOwner, owner)
}

func withDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, ctxDeviceID, deviceID)
}
