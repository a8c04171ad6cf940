package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	invsvc "github.com/mateovidal/stocklane-backend/internal/inventory"
	pkgAuth "github.com/mateovidal/stocklane-backend/pkg/auth"
	"github.com/mateovidal/stocklane-backend/pkg/config"
	"github.com/mateovidal/stocklane-backend/pkg/db/models"
	pkgerrors "github.com/mateovidal/stocklane-backend/pkg/errors"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type memoryStore struct {
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	m.data[key] = str
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("test:%s:%s", scope, id)
}

type stubInventory struct {
	reserveCalls int
}

func (s *stubInventory) Reserve(ctx context.Context, input invsvc.TransitionInput) (*models.InventoryRecord, error) {
	s.reserveCalls++
	return &models.InventoryRecord{ProductID: input.ProductID, ShopID: input.ShopID, Stock: 10, Reserved: input.Quantity}, nil
}

func (s *stubInventory) Release(ctx context.Context, input invsvc.TransitionInput) (*models.InventoryRecord, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
}

func (s *stubInventory) Commit(ctx context.Context, input invsvc.TransitionInput) (*models.InventoryRecord, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
}

func (s *stubInventory) Availability(ctx context.Context, productID, shopID int64) (*invsvc.AvailabilityView, error) {
	return &invsvc.AvailabilityView{ProductID: productID, ShopID: shopID}, nil
}

func (s *stubInventory) Get(ctx context.Context, productID, shopID int64) (*models.InventoryRecord, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
}

func (s *stubInventory) List(ctx context.Context, input invsvc.ListInput) (*invsvc.ListResult, error) {
	return &invsvc.ListResult{}, nil
}

func (s *stubInventory) Upsert(ctx context.Context, input invsvc.UpsertInput) (*models.InventoryRecord, error) {
	return &models.InventoryRecord{ProductID: input.ProductID, ShopID: input.ShopID}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "stocklane", ExpirationMinutes: 30},
	}
}

func testRouter(t *testing.T, inv invsvc.Service) http.Handler {
	t.Helper()
	return NewRouter(RouterParams{
		Config:           testConfig(),
		Logger:           nil,
		DBPinger:         stubPinger{},
		RedisPinger:      stubPinger{},
		IdempotencyStore: &memoryStore{data: map[string]string{}},
		Inventory:        inv,
	})
}

func mintToken(t *testing.T, cfg *config.Config, callerID string, role pkgAuth.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{CallerID: callerID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterHealthEndpoints(t *testing.T) {
	router := testRouter(t, &stubInventory{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, w.Code)
		}
	}
}

func TestRouterRequiresAuth(t *testing.T) {
	router := testRouter(t, &stubInventory{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/availability?product_id=1&shop_id=2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestRouterReserveFlowWithIdempotency(t *testing.T) {
	inv := &stubInventory{}
	router := testRouter(t, inv)
	token := mintToken(t, testConfig(), "svc:checkout", pkgAuth.RoleService)

	body := `{"product_id":1,"shop_id":10,"quantity":3}`

	// missing idempotency key is rejected
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/reserve", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d", w.Code)
	}

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/reserve", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "order-77")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send()
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", first.Code, first.Body.String())
	}

	replay := send()
	if replay.Code != http.StatusOK {
		t.Fatalf("expected replay 200 got %d", replay.Code)
	}
	if inv.reserveCalls != 1 {
		t.Fatalf("reserve executed %d times, expected 1", inv.reserveCalls)
	}
	if first.Body.String() != replay.Body.String() {
		t.Fatalf("replay body mismatch:\nfirst: %s\nreplay: %s", first.Body.String(), replay.Body.String())
	}
}

func TestRouterUpsertRequiresOwnerRole(t *testing.T) {
	router := testRouter(t, &stubInventory{})

	send := func(role pkgAuth.Role) *httptest.ResponseRecorder {
		token := mintToken(t, testConfig(), "caller-1", role)
		req := httptest.NewRequest(http.MethodPut, "/api/v1/inventory", strings.NewReader(`{"product_id":1,"shop_id":2,"stock":5}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "upsert-"+string(role))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	if w := send(pkgAuth.RoleService); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for service role, got %d", w.Code)
	}
	if w := send(pkgAuth.RoleOwner); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner role, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRouterAvailability(t *testing.T) {
	router := testRouter(t, &stubInventory{})
	token := mintToken(t, testConfig(), "usr-1", pkgAuth.RoleOwner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/availability?product_id=1&shop_id=2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}
