package dto

import "time"

// TransitionRequest is the shared payload for reserve, release and commit.
type TransitionRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	ShopID    int64 `json:"shop_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// UpsertRequest patches (or creates) one inventory record. Omitted fields
// keep their current values.
type UpsertRequest struct {
	ProductID int64          `json:"product_id" validate:"required,gt=0"`
	ShopID    int64          `json:"shop_id" validate:"required,gt=0"`
	Stock     *int           `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Threshold *int           `json:"threshold,omitempty" validate:"omitempty,gte=0"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// InventoryView is the public shape of an inventory record.
type InventoryView struct {
	ProductID int64          `json:"product_id"`
	ShopID    int64          `json:"shop_id"`
	Stock     int            `json:"stock"`
	Reserved  int            `json:"reserved"`
	Available int            `json:"available"`
	Threshold int            `json:"threshold"`
	LowStock  bool           `json:"low_stock"`
	Meta      map[string]any `json:"meta,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// AvailabilityView answers the availability read for one pair. Untracked
// pairs come back with zeros and tracked=false.
type AvailabilityView struct {
	ProductID int64 `json:"product_id"`
	ShopID    int64 `json:"shop_id"`
	Stock     int   `json:"stock"`
	Reserved  int   `json:"reserved"`
	Available int   `json:"available"`
	Tracked   bool  `json:"tracked"`
}

// ListView is one page of inventory records.
type ListView struct {
	Records    []InventoryView `json:"records"`
	NextCursor string          `json:"next_cursor,omitempty"`
}
