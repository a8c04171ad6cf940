package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mateovidal/stocklane-backend/pkg/db/models"
	"github.com/mateovidal/stocklane-backend/pkg/pagination"
)

// ListFilter narrows and pages an inventory listing. Results always come back
// ordered by updated_at descending with the record id as tie-breaker.
type ListFilter struct {
	ShopID    *int64
	ProductID *int64
	Cursor    *pagination.Cursor
	Limit     int
}

// Repository manages persistence for inventory records. Counter transitions
// are expressed as conditional single-statement updates so the invariant
// check and the write happen atomically at the storage level.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.InventoryRecord) error
	FindByKey(ctx context.Context, productID, shopID int64) (*models.InventoryRecord, error)
	FindByKeyForUpdate(ctx context.Context, productID, shopID int64) (*models.InventoryRecord, error)
	List(ctx context.Context, filter ListFilter) ([]models.InventoryRecord, error)
	ApplyReserve(ctx context.Context, productID, shopID int64, quantity int) (int64, error)
	CompareAndSetCounters(ctx context.Context, id uuid.UUID, expectedStock, expectedReserved, newStock, newReserved int) (int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.InventoryRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByKey(ctx context.Context, productID, shopID int64) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND shop_id = ?", productID, shopID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByKeyForUpdate reads the row holding its lock until the surrounding
// transaction ends, so counter decisions made from the result cannot race a
// concurrent transition. sqlite has no FOR UPDATE; its writers already
// serialize on the database lock.
func (r *repository) FindByKeyForUpdate(ctx context.Context, productID, shopID int64) (*models.InventoryRecord, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var record models.InventoryRecord
	if err := query.
		Where("product_id = ? AND shop_id = ?", productID, shopID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.InventoryRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryRecord{})

	if filter.ShopID != nil {
		query = query.Where("shop_id = ?", *filter.ShopID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Cursor != nil {
		query = query.Where(
			"(updated_at < ?) OR (updated_at = ? AND id < ?)",
			filter.Cursor.UpdatedAt, filter.Cursor.UpdatedAt, filter.Cursor.ID,
		)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}

	var records []models.InventoryRecord
	if err := query.
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ApplyReserve raises the reserved counter iff enough unreserved stock
// remains. Zero rows affected means the record is missing or availability is
// short; the caller disambiguates with a follow-up read.
func (r *repository) ApplyReserve(ctx context.Context, productID, shopID int64, quantity int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("product_id = ? AND shop_id = ? AND stock - reserved >= ?", productID, shopID, quantity).
		Updates(map[string]any{
			"reserved":   gorm.Expr("reserved + ?", quantity),
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

// CompareAndSetCounters writes both counters iff the row still holds the
// expected values. Zero rows affected means a concurrent writer won the race.
func (r *repository) CompareAndSetCounters(ctx context.Context, id uuid.UUID, expectedStock, expectedReserved, newStock, newReserved int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("id = ? AND stock = ? AND reserved = ?", id, expectedStock, expectedReserved).
		Updates(map[string]any{
			"stock":      newStock,
			"reserved":   newReserved,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("id = ?", id).
		Updates(fields).Error
}
