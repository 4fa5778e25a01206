package middleware

import (
	"net/http"
	"strings"

	"github.com/reloved-shop/reloved-backend/api/responses"
	"github.com/reloved-shop/reloved-backend/internal/cart"
	pkgauth "github.com/reloved-shop/reloved-backend/pkg/auth"
	"github.com/reloved-shop/reloved-backend/pkg/config"
	pkgerrors "github.com/reloved-shop/reloved-backend/pkg/errors"
	"github.com/reloved-shop/reloved-backend/pkg/logger"
)

const deviceIDHeader = "X-Device-Id"

// Owner resolves the cart owner for a request. A valid bearer token maps to
// the authenticated user; otherwise the X-Device-Id header maps to a guest.
// A request with neither cannot own a cart, and a request with an invalid
// token is rejected rather than silently downgraded to guest.
func Owner(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token := bearerToken(r); token != "" {
				claims, err := pkgauth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				owner := cart.UserOwner(claims.UserID.String())
				ctx = WithOwner(ctx, owner)
				if deviceID := strings.TrimSpace(r.Header.Get(deviceIDHeader)); deviceID != "" {
					ctx = withDeviceID(ctx, deviceID)
				}
				if logg != nil {
					ctx = logg.WithOwner(ctx, string(owner.Kind), owner.ID)
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			deviceID := strings.TrimSpace(r.Header.Get(deviceIDHeader))
			if deviceID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			owner := cart.GuestOwner(deviceID)
			ctx = WithOwner(ctx, owner)
			ctx = withDeviceID(ctx, deviceID)
			if logg != nil {
				ctx = logg.WithOwner(ctx, string(owner.Kind), owner.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests that did not authenticate with a bearer
// token. Must run after Owner.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, ok := OwnerFromContext(r.Context())
			if !ok || !owner.IsUser() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
