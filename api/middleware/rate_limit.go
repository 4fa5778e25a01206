package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/reloved-shop/reloved-backend/api/responses"
	"github.com/reloved-shop/reloved-backend/pkg/config"
	pkgerrors "github.com/reloved-shop/reloved-backend/pkg/errors"
	"github.com/reloved-shop/reloved-backend/pkg/logger"
)

type windowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit applies a fixed-window cap to write requests, scoped per cart
// owner. Reads pass through. Redis being unreachable fails open: a degraded
// limiter must not take cart writes down with it.
func RateLimit(limiter windowLimiter, cfg config.RateLimitConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || limiter == nil || !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			scope := "anonymous"
			if owner, ok := OwnerFromContext(r.Context()); ok {
				scope = owner.Key()
			}

			allowed, _, err := limiter.FixedWindowAllow(r.Context(), scope, cfg.WriteLimit, cfg.Window)
			if err != nil {
				if logg != nil {
					logg.Warn(r.Context(), "rate limit check failed, allowing request")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many cart writes"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
