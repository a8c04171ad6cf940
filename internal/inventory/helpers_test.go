package inventory

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mateovidal/stocklane-backend/internal/movements"
	"github.com/mateovidal/stocklane-backend/internal/partners"
	"github.com/mateovidal/stocklane-backend/pkg/config"
	"github.com/mateovidal/stocklane-backend/pkg/db"
	"github.com/mateovidal/stocklane-backend/pkg/db/models"
	"github.com/mateovidal/stocklane-backend/pkg/logger"
)

type harness struct {
	client    *db.Client
	svc       Service
	movements movements.Repository
}

type harnessOptions struct {
	engine   config.EngineConfig
	partners config.PartnersConfig
	products partners.ProductChecker
	shops    partners.OwnershipChecker
	wrapRepo func(Repository) Repository
}

func newTestClient(t *testing.T) *db.Client {
	t.Helper()

	cfg := config.DBConfig{
		DSN:          "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared",
		Driver:       "sqlite",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	client, err := db.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.DB().AutoMigrate(&models.InventoryRecord{}, &models.StockMovement{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return client
}

func newTestHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()

	client := newTestClient(t)
	movementRepo := movements.NewRepository(client.DB())
	movementSvc, err := movements.NewService(movementRepo)
	if err != nil {
		t.Fatalf("movement service: %v", err)
	}

	if opts.engine.ConflictRetries == 0 {
		opts.engine.ConflictRetries = 3
	}

	repo := NewRepository(client.DB())
	if opts.wrapRepo != nil {
		repo = opts.wrapRepo(repo)
	}

	svc, err := NewService(ServiceParams{
		Client:    client,
		Repo:      repo,
		Movements: movementSvc,
		Products:  opts.products,
		Shops:     opts.shops,
		Logger:    logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard}),
		Engine:    opts.engine,
		Partners:  opts.partners,
	})
	if err != nil {
		t.Fatalf("inventory service: %v", err)
	}

	return &harness{client: client, svc: svc, movements: movementRepo}
}

func (h *harness) seed(t *testing.T, productID, shopID int64, stock, reserved, threshold int) *models.InventoryRecord {
	t.Helper()

	record := &models.InventoryRecord{
		ID:        uuid.New(),
		ProductID: productID,
		ShopID:    shopID,
		Stock:     stock,
		Reserved:  reserved,
		Threshold: threshold,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.client.DB().Create(record).Error; err != nil {
		t.Fatalf("seed record: %v", err)
	}
	return record
}

func (h *harness) load(t *testing.T, productID, shopID int64) *models.InventoryRecord {
	t.Helper()

	var record models.InventoryRecord
	if err := h.client.DB().
		Where("product_id = ? AND shop_id = ?", productID, shopID).
		First(&record).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	return &record
}

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }
