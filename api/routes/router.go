package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	inventorycontrollers "github.com/mateovidal/stocklane-backend/api/controllers/inventory"
	"github.com/mateovidal/stocklane-backend/api/handlers"
	"github.com/mateovidal/stocklane-backend/api/middleware"
	invsvc "github.com/mateovidal/stocklane-backend/internal/inventory"
	pkgauth "github.com/mateovidal/stocklane-backend/pkg/auth"
	"github.com/mateovidal/stocklane-backend/pkg/config"
	"github.com/mateovidal/stocklane-backend/pkg/db"
	"github.com/mateovidal/stocklane-backend/pkg/logger"
	pkgredis "github.com/mateovidal/stocklane-backend/pkg/redis"
)

// RouterParams collects the dependencies the HTTP surface needs.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DBPinger         db.Pinger
	RedisPinger      pkgredis.Pinger
	IdempotencyStore pkgredis.IdempotencyStore
	Inventory        invsvc.Service
	MetricsRegistry  *prometheus.Registry
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", handlers.HealthLive(cfg))
		r.Get("/ready", handlers.HealthReady(cfg, logg, params.DBPinger, params.RedisPinger))
	})

	if params.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(params.IdempotencyStore, logg))

		r.Get("/", inventorycontrollers.List(params.Inventory, logg))
		r.Get("/availability", inventorycontrollers.Availability(params.Inventory, logg))
		r.Get("/item", inventorycontrollers.GetRecord(params.Inventory, logg))

		r.Post("/reserve", inventorycontrollers.Reserve(params.Inventory, logg))
		r.Post("/release", inventorycontrollers.Release(params.Inventory, logg))
		r.Post("/commit", inventorycontrollers.Commit(params.Inventory, logg))

		r.With(middleware.RequireRoles(logg, pkgauth.RoleOwner, pkgauth.RoleAdmin)).
			Put("/", inventorycontrollers.Upsert(params.Inventory, logg))
	})

	return r
}
