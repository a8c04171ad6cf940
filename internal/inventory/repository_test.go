package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mateovidal/stocklane-backend/pkg/db/models"
	"github.com/mateovidal/stocklane-backend/pkg/pagination"
)

func TestRepositoryApplyReserve(t *testing.T) {
	h := newTestHarness(t, harnessOptions{})
	repo := NewRepository(h.client.DB())
	ctx := context.Background()
	h.seed(t, 1, 10, 5, 3, 0)

	rows, err := repo.ApplyReserve(ctx, 1, 10, 2)
	if err != nil {
		t.Fatalf("apply reserve: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row affected, got %d", rows)
	}

	// condition no longer holds, statement must be a no-op
	rows, err = repo.ApplyReserve(ctx, 1, 10, 1)
	if err != nil {
		t.Fatalf("apply reserve past capacity: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows affected, got %d", rows)
	}

	rows, err = repo.ApplyReserve(ctx, 99, 10, 1)
	if err != nil {
		t.Fatalf("apply reserve on missing row: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows for missing row, got %d", rows)
	}
}

func TestRepositoryFindByKeyForUpdate(t *testing.T) {
	h := newTestHarness(t, harnessOptions{})
	repo := NewRepository(h.client.DB())
	ctx := context.Background()
	h.seed(t, 1, 10, 5, 3, 0)

	record, err := repo.FindByKeyForUpdate(ctx, 1, 10)
	if err != nil {
		t.Fatalf("find for update: %v", err)
	}
	if record.Stock != 5 || record.Reserved != 3 {
		t.Fatalf("unexpected record: %+v", record)
	}

	if _, err := repo.FindByKeyForUpdate(ctx, 1, 11); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected gorm.ErrRecordNotFound, got %v", err)
	}
}

func TestRepositoryCompareAndSetCounters(t *testing.T) {
	h := newTestHarness(t, harnessOptions{})
	repo := NewRepository(h.client.DB())
	ctx := context.Background()
	record := h.seed(t, 1, 10, 5, 3, 0)

	rows, err := repo.CompareAndSetCounters(ctx, record.ID, 5, 3, 5, 1)
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected cas hit, got %d rows", rows)
	}

	// stale expectation misses
	rows, err = repo.CompareAndSetCounters(ctx, record.ID, 5, 3, 5, 0)
	if err != nil {
		t.Fatalf("stale cas: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected cas miss, got %d rows", rows)
	}
}

func TestRepositoryFindByKey(t *testing.T) {
	h := newTestHarness(t, harnessOptions{})
	repo := NewRepository(h.client.DB())
	ctx := context.Background()
	h.seed(t, 1, 10, 5, 3, 0)

	record, err := repo.FindByKey(ctx, 1, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if record.ProductID != 1 || record.ShopID != 10 {
		t.Fatalf("unexpected record: %+v", record)
	}

	if _, err := repo.FindByKey(ctx, 1, 11); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected gorm.ErrRecordNotFound, got %v", err)
	}
}

func TestRepositoryListKeysetPagination(t *testing.T) {
	h := newTestHarness(t, harnessOptions{})
	repo := NewRepository(h.client.DB())
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	ids := make([]uuid.UUID, 4)
	for i := 0; i < 4; i++ {
		record := h.seed(t, int64(i+1), 10, 10, 0, 0)
		ids[i] = record.ID
		if err := h.client.DB().Model(record).
			Update("updated_at", base.Add(time.Duration(i)*time.Minute)).Error; err != nil {
			t.Fatalf("set updated_at: %v", err)
		}
	}

	first, err := repo.List(ctx, ListFilter{ShopID: int64Ptr(10), Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 2 || first[0].ProductID != 4 || first[1].ProductID != 3 {
		t.Fatalf("unexpected first page: %+v", first)
	}

	cursor := &pagination.Cursor{UpdatedAt: first[1].UpdatedAt, ID: first[1].ID}
	rest, err := repo.List(ctx, ListFilter{ShopID: int64Ptr(10), Cursor: cursor, Limit: 10})
	if err != nil {
		t.Fatalf("list after cursor: %v", err)
	}
	if len(rest) != 2 || rest[0].ProductID != 2 || rest[1].ProductID != 1 {
		t.Fatalf("unexpected second page: %+v", rest)
	}
}

func TestRepositoryCreateEnforcesUniqueKey(t *testing.T) {
	h := newTestHarness(t, harnessOptions{})
	repo := NewRepository(h.client.DB())
	ctx := context.Background()
	h.seed(t, 1, 10, 5, 0, 0)

	err := repo.Create(ctx, &models.InventoryRecord{ID: uuid.New(), ProductID: 1, ShopID: 10})
	if err == nil {
		t.Fatalf("expected unique violation")
	}
}
