package models

import (
	"time"

	"github.com/google/uuid"
)

// MovementType labels a stock movement journal entry.
type MovementType string

const (
	MovementReserve MovementType = "reserve"
	MovementRelease MovementType = "release"
	MovementCommit  MovementType = "commit"
	MovementAdjust  MovementType = "adjust"
)

// IsValid reports whether the value is a known movement type.
func (t MovementType) IsValid() bool {
	switch t {
	case MovementReserve, MovementRelease, MovementCommit, MovementAdjust:
		return true
	}
	return false
}

// StockMovement is an immutable journal row recorded after every applied
// inventory transition, capturing the counters before and after.
type StockMovement struct {
	ID             uuid.UUID    `gorm:"column:id;type:uuid;primaryKey"`
	RecordID       uuid.UUID    `gorm:"column:record_id;type:uuid;not null;index"`
	Type           MovementType `gorm:"column:type;not null"`
	Quantity       int          `gorm:"column:quantity;not null"`
	StockBefore    int          `gorm:"column:stock_before;not null"`
	StockAfter     int          `gorm:"column:stock_after;not null"`
	ReservedBefore int          `gorm:"column:reserved_before;not null"`
	ReservedAfter  int          `gorm:"column:reserved_after;not null"`
	Actor          string       `gorm:"column:actor"`
	CreatedAt      time.Time    `gorm:"column:created_at;autoCreateTime"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}
