package controllers

import (
	"net/http"

	"github.com/reloved-shop/reloved-backend/api/responses"
	"github.com/reloved-shop/reloved-backend/pkg/config"
	"github.com/reloved-shop/reloved-backend/pkg/db"
	pkgerrors "github.com/reloved-shop/reloved-backend/pkg/errors"
	"github.com/reloved-shop/reloved-backend/pkg/logger"
)

const envHeader = "X-Reloved-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the hard dependencies. Redis being down degrades guest
// carts but does not block serving, so it reports but does not fail.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		if dbP == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "database unavailable"))
			return
		}
		if err := dbP.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database ping"))
			return
		}

		redisStatus := "ok"
		if redisP == nil {
			redisStatus = "unconfigured"
		} else if err := redisP.Ping(r.Context()); err != nil {
			redisStatus = "down"
			if logg != nil {
				logg.Warn(r.Context(), "redis ping failed during readiness check")
			}
		}

		responses.WriteSuccess(w, map[string]string{
			"status": "ready",
			"db":     "ok",
			"redis":  redisStatus,
		})
	}
}
