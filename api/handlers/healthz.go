package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/multierr"

	"github.com/mateovidal/stocklane-backend/api/responses"
	"github.com/mateovidal/stocklane-backend/pkg/config"
	"github.com/mateovidal/stocklane-backend/pkg/db"
	pkgerrors "github.com/mateovidal/stocklane-backend/pkg/errors"
	"github.com/mateovidal/stocklane-backend/pkg/logger"
	pkgredis "github.com/mateovidal/stocklane-backend/pkg/redis"
)

const envHeader = "X-Stocklane-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every datastore answers a ping. All
// failing dependencies are reported together.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP pkgredis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		var errs error
		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("database: %w", err))
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("redis: %w", err))
			}
		}
		if errs != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "dependencies not ready"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
