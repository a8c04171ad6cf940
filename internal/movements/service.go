package movements

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mateovidal/stocklane-backend/pkg/db/models"
)

// Service defines operations that journal counter transitions.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordMovement(ctx context.Context, input RecordMovementInput) (*models.StockMovement, error)
	History(ctx context.Context, recordID uuid.UUID) ([]models.StockMovement, error)
}

type service struct {
	repo Repository
}

// RecordMovementInput captures the immutable data a journal entry requires.
type RecordMovementInput struct {
	RecordID       uuid.UUID           `json:"record_id"`
	Type           models.MovementType `json:"type"`
	Quantity       int                 `json:"quantity"`
	StockBefore    int                 `json:"stock_before"`
	StockAfter     int                 `json:"stock_after"`
	ReservedBefore int                 `json:"reserved_before"`
	ReservedAfter  int                 `json:"reserved_after"`
	Actor          string              `json:"actor"`
}

// NewService wires a movement service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) RecordMovement(ctx context.Context, input RecordMovementInput) (*models.StockMovement, error) {
	if input.RecordID == uuid.Nil {
		return nil, fmt.Errorf("record id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid movement type %q", input.Type)
	}
	if input.Quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}
	if input.StockBefore < 0 || input.StockAfter < 0 || input.ReservedBefore < 0 || input.ReservedAfter < 0 {
		return nil, fmt.Errorf("counter snapshots must not be negative")
	}

	movement := &models.StockMovement{
		ID:             uuid.New(),
		RecordID:       input.RecordID,
		Type:           input.Type,
		Quantity:       input.Quantity,
		StockBefore:    input.StockBefore,
		StockAfter:     input.StockAfter,
		ReservedBefore: input.ReservedBefore,
		ReservedAfter:  input.ReservedAfter,
		Actor:          input.Actor,
	}

	if err := s.repo.Create(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

func (s *service) History(ctx context.Context, recordID uuid.UUID) ([]models.StockMovement, error) {
	if recordID == uuid.Nil {
		return nil, fmt.Errorf("record id is required")
	}
	return s.repo.ListByRecordID(ctx, recordID)
}
