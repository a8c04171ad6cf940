package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mateovidal/stocklane-backend/api/routes"
	"github.com/mateovidal/stocklane-backend/internal/inventory"
	"github.com/mateovidal/stocklane-backend/internal/movements"
	"github.com/mateovidal/stocklane-backend/internal/partners"
	"github.com/mateovidal/stocklane-backend/pkg/config"
	"github.com/mateovidal/stocklane-backend/pkg/db"
	"github.com/mateovidal/stocklane-backend/pkg/instance"
	"github.com/mateovidal/stocklane-backend/pkg/logger"
	"github.com/mateovidal/stocklane-backend/pkg/metrics"
	"github.com/mateovidal/stocklane-backend/pkg/migrate"
	"github.com/mateovidal/stocklane-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	productChecker, ownershipChecker, err := buildPartnerClients(cfg.Partners)
	if err != nil {
		logg.Error(context.Background(), "failed to create partner clients", err)
		os.Exit(1)
	}
	if productChecker == nil {
		logg.Warn(context.Background(), "product service URL not set, catalog checks disabled")
	}
	if ownershipChecker == nil {
		logg.Warn(context.Background(), "shop service URL not set, ownership checks disabled")
	}

	movementsService, err := movements.NewService(movements.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create movements service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.NewEngineMetrics(registry)

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Client:    dbClient,
		Repo:      inventory.NewRepository(dbClient.DB()),
		Movements: movementsService,
		Products:  productChecker,
		Shops:     ownershipChecker,
		Logger:    logg,
		Metrics:   engineMetrics,
		Engine:    cfg.Engine,
		Partners:  cfg.Partners,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:           cfg,
			Logger:           logg,
			DBPinger:         dbClient,
			RedisPinger:      redisClient,
			IdempotencyStore: redisClient,
			Inventory:        inventoryService,
			MetricsRegistry:  registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildPartnerClients returns nil checkers for services whose URL is unset,
// which disables that check in the inventory service.
func buildPartnerClients(cfg config.PartnersConfig) (partners.ProductChecker, partners.OwnershipChecker, error) {
	var opts []partners.Option
	if cfg.ServiceToken != "" {
		opts = append(opts, partners.WithServiceToken(cfg.ServiceToken))
	}

	var productChecker partners.ProductChecker
	if cfg.ProductServiceURL != "" {
		client, err := partners.NewProductClient(cfg.ProductServiceURL, cfg.RequestTimeout, opts...)
		if err != nil {
			return nil, nil, err
		}
		productChecker = client
	}

	var ownershipChecker partners.OwnershipChecker
	if cfg.ShopServiceURL != "" {
		client, err := partners.NewShopClient(cfg.ShopServiceURL, cfg.RequestTimeout, opts...)
		if err != nil {
			return nil, nil, err
		}
		ownershipChecker = client
	}

	return productChecker, ownershipChecker, nil
}
