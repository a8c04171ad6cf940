package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mateovidal/stocklane-backend/pkg/db/types"
)

// InventoryRecord tracks stock and reservation counters for one
// (product_id, shop_id) pair. The pair is unique at the storage level.
type InventoryRecord struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ProductID int64      `gorm:"column:product_id;not null;index;uniqueIndex:uq_inventory_product_shop,priority:1"`
	ShopID    int64      `gorm:"column:shop_id;not null;index;uniqueIndex:uq_inventory_product_shop,priority:2"`
	Stock     int        `gorm:"column:stock;not null;default:0"`
	Reserved  int        `gorm:"column:reserved;not null;default:0"`
	Threshold int        `gorm:"column:threshold;not null;default:0"`
	Meta      types.Meta `gorm:"column:meta;type:jsonb"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryRecord) TableName() string {
	return "inventory_records"
}

// Available returns the quantity that can still be newly reserved.
func (r InventoryRecord) Available() int {
	if avail := r.Stock - r.Reserved; avail > 0 {
		return avail
	}
	return 0
}

// LowStock reports whether stock has fallen below the advisory threshold.
func (r InventoryRecord) LowStock() bool {
	return r.Threshold > 0 && r.Stock < r.Threshold
}
