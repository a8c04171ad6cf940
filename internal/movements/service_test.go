package movements

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mateovidal/stocklane-backend/pkg/db/models"
)

type fakeRepository struct {
	createFn func(ctx context.Context, movement *models.StockMovement) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, movement *models.StockMovement) error {
	if f.createFn != nil {
		return f.createFn(ctx, movement)
	}
	return nil
}

func (f *fakeRepository) ListByRecordID(ctx context.Context, recordID uuid.UUID) ([]models.StockMovement, error) {
	return nil, nil
}

func TestService_RecordMovement(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	input := RecordMovementInput{
		RecordID:       uuid.New(),
		Type:           models.MovementReserve,
		Quantity:       3,
		StockBefore:    10,
		StockAfter:     10,
		ReservedBefore: 0,
		ReservedAfter:  3,
		Actor:          "svc:checkout",
	}

	var created *models.StockMovement
	repo.createFn = func(ctx context.Context, movement *models.StockMovement) error {
		created = movement
		return nil
	}

	got, err := svc.RecordMovement(context.Background(), input)
	if err != nil {
		t.Fatalf("RecordMovement error: %v", err)
	}
	if created == nil {
		t.Fatalf("expected repository create to be called")
	}
	if got.ID == uuid.Nil {
		t.Fatalf("expected generated movement id")
	}
	if got.Type != models.MovementReserve || got.Quantity != 3 {
		t.Fatalf("unexpected movement: %+v", got)
	}
	if got.ReservedAfter != 3 || got.StockAfter != 10 {
		t.Fatalf("unexpected counter snapshots: %+v", got)
	}
}

func TestService_RecordMovementValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	cases := []struct {
		name  string
		input RecordMovementInput
	}{
		{"missing record id", RecordMovementInput{Type: models.MovementReserve, Quantity: 1}},
		{"invalid type", RecordMovementInput{RecordID: uuid.New(), Type: "teleport", Quantity: 1}},
		{"negative quantity", RecordMovementInput{RecordID: uuid.New(), Type: models.MovementRelease, Quantity: -1}},
		{"negative snapshot", RecordMovementInput{RecordID: uuid.New(), Type: models.MovementCommit, Quantity: 1, StockBefore: -2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.RecordMovement(context.Background(), tc.input); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestRepository_History(t *testing.T) {
	dsn := "file:movements_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.InventoryRecord{}, &models.StockMovement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	recordID := uuid.New()
	ctx := context.Background()
	for i, mt := range []models.MovementType{models.MovementReserve, models.MovementCommit} {
		if _, err := svc.RecordMovement(ctx, RecordMovementInput{
			RecordID:       recordID,
			Type:           mt,
			Quantity:       i + 1,
			StockBefore:    5,
			StockAfter:     5,
			ReservedBefore: i,
			ReservedAfter:  i + 1,
		}); err != nil {
			t.Fatalf("record movement: %v", err)
		}
	}

	history, err := svc.History(ctx, recordID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(history))
	}
	if history[0].Type != models.MovementReserve || history[1].Type != models.MovementCommit {
		t.Fatalf("unexpected ordering: %+v", history)
	}
}
