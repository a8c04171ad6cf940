package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mateovidal/stocklane-backend/internal/movements"
	"github.com/mateovidal/stocklane-backend/internal/partners"
	"github.com/mateovidal/stocklane-backend/pkg/config"
	"github.com/mateovidal/stocklane-backend/pkg/db"
	"github.com/mateovidal/stocklane-backend/pkg/db/models"
	dbtypes "github.com/mateovidal/stocklane-backend/pkg/db/types"
	pkgerrors "github.com/mateovidal/stocklane-backend/pkg/errors"
	"github.com/mateovidal/stocklane-backend/pkg/logger"
	"github.com/mateovidal/stocklane-backend/pkg/metrics"
	"github.com/mateovidal/stocklane-backend/pkg/pagination"
)

const (
	opReserve = "reserve"
	opRelease = "release"
	opCommit  = "commit"
	opUpsert  = "upsert"
)

// TransitionInput identifies a record and the quantity a state transition
// should move between counters.
type TransitionInput struct {
	ProductID int64  `json:"product_id"`
	ShopID    int64  `json:"shop_id"`
	Quantity  int    `json:"quantity"`
	Actor     string `json:"actor"`
}

// UpsertInput carries the admin-facing patch for a record. Nil fields are
// left untouched; a missing record is created.
type UpsertInput struct {
	ProductID int64        `json:"product_id"`
	ShopID    int64        `json:"shop_id"`
	Stock     *int         `json:"stock"`
	Threshold *int         `json:"threshold"`
	Meta      dbtypes.Meta `json:"meta"`
	CallerID  string       `json:"caller_id"`
}

// ListInput filters and pages the inventory listing.
type ListInput struct {
	ShopID    *int64
	ProductID *int64
	Limit     int
	Cursor    string
}

// ListResult is one page of records plus the cursor for the next page.
type ListResult struct {
	Records    []models.InventoryRecord `json:"records"`
	NextCursor string                   `json:"next_cursor,omitempty"`
}

// AvailabilityView is the read-side answer for a single (product, shop)
// pair. Untracked pairs answer with zeros rather than an error.
type AvailabilityView struct {
	ProductID int64 `json:"product_id"`
	ShopID    int64 `json:"shop_id"`
	Stock     int   `json:"stock"`
	Reserved  int   `json:"reserved"`
	Available int   `json:"available"`
	Tracked   bool  `json:"tracked"`
}

// Service exposes the inventory ledger operations.
type Service interface {
	Reserve(ctx context.Context, input TransitionInput) (*models.InventoryRecord, error)
	Release(ctx context.Context, input TransitionInput) (*models.InventoryRecord, error)
	Commit(ctx context.Context, input TransitionInput) (*models.InventoryRecord, error)
	Availability(ctx context.Context, productID, shopID int64) (*AvailabilityView, error)
	Get(ctx context.Context, productID, shopID int64) (*models.InventoryRecord, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Upsert(ctx context.Context, input UpsertInput) (*models.InventoryRecord, error)
}

type service struct {
	client    *db.Client
	repo      Repository
	movements movements.Service
	products  partners.ProductChecker
	shops     partners.OwnershipChecker
	logg      *logger.Logger
	metrics   *metrics.EngineMetrics
	engine    config.EngineConfig
	partners  config.PartnersConfig
}

// ServiceParams bundles the service dependencies. Products and Shops are
// optional; leaving one nil disables that partner check. Metrics may be nil.
type ServiceParams struct {
	Client    *db.Client
	Repo      Repository
	Movements movements.Service
	Products  partners.ProductChecker
	Shops     partners.OwnershipChecker
	Logger    *logger.Logger
	Metrics   *metrics.EngineMetrics
	Engine    config.EngineConfig
	Partners  config.PartnersConfig
}

// NewService wires the inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Movements == nil {
		return nil, fmt.Errorf("movement service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Engine.ConflictRetries < 0 {
		return nil, fmt.Errorf("conflict retries must not be negative")
	}
	return &service{
		client:    params.Client,
		repo:      params.Repo,
		movements: params.Movements,
		products:  params.Products,
		shops:     params.Shops,
		logg:      params.Logger,
		metrics:   params.Metrics,
		engine:    params.Engine,
		partners:  params.Partners,
	}, nil
}

func (s *service) Reserve(ctx context.Context, input TransitionInput) (*models.InventoryRecord, error) {
	return s.timedTransition(ctx, opReserve, input, s.reserveOnce)
}

func (s *service) Commit(ctx context.Context, input TransitionInput) (*models.InventoryRecord, error) {
	return s.timedTransition(ctx, opCommit, input, s.commitOnce)
}

func (s *service) Release(ctx context.Context, input TransitionInput) (*models.InventoryRecord, error) {
	return s.timedTransition(ctx, opRelease, input, s.releaseOnce)
}

// errCASMiss signals a lost compare-and-set race that the bounded retry loop
// should absorb.
var errCASMiss = errors.New("counter compare-and-set missed")

type attemptFn func(ctx context.Context, input TransitionInput) (*models.InventoryRecord, error)

func (s *service) timedTransition(ctx context.Context, op string, input TransitionInput, attempt attemptFn) (*models.InventoryRecord, error) {
	start := time.Now()
	record, err := s.runTransition(ctx, op, input, attempt)
	s.metrics.ObserveDuration(op, time.Since(start))
	if err != nil {
		s.metrics.IncRejected(op, string(pkgerrors.As(err).Code()))
		return nil, err
	}
	s.metrics.IncApplied(op)
	return record, nil
}

func (s *service) runTransition(ctx context.Context, op string, input TransitionInput, attempt attemptFn) (*models.InventoryRecord, error) {
	if err := validateTransition(input); err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"op":         op,
		"product_id": input.ProductID,
		"shop_id":    input.ShopID,
		"quantity":   input.Quantity,
	})

	attempts := s.engine.ConflictRetries + 1
	for i := 0; i < attempts; i++ {
		record, err := attempt(ctx, input)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, errCASMiss) && !db.IsRetryableConflict(err) {
			return nil, err
		}
		s.metrics.IncConflictRetry()
		if i < attempts-1 && s.engine.RetryBackoff > 0 {
			select {
			case <-ctx.Done():
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "transition cancelled")
			case <-time.After(s.engine.RetryBackoff):
			}
		}
	}

	s.logg.Warn(ctx, "inventory transition exhausted conflict retries")
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "concurrent update contention, retry the request")
}

// reserveOnce applies the reservation through a single conditional update.
// The availability check and the counter bump are one statement, so two
// racing reservations can never both win the same units.
func (s *service) reserveOnce(ctx context.Context, input TransitionInput) (*models.InventoryRecord, error) {
	var record *models.InventoryRecord
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows, err := repo.ApplyReserve(ctx, input.ProductID, input.ShopID, input.Quantity)
		if err != nil {
			return err
		}
		if rows == 0 {
			return s.explainReserveRejection(ctx, repo, input)
		}

		current, err := repo.FindByKey(ctx, input.ProductID, input.ShopID)
		if err != nil {
			return err
		}
		record = current

		_, err = s.movements.WithTx(tx).RecordMovement(ctx, movements.RecordMovementInput{
			RecordID:       current.ID,
			Type:           models.MovementReserve,
			Quantity:       input.Quantity,
			StockBefore:    current.Stock,
			StockAfter:     current.Stock,
			ReservedBefore: current.Reserved - input.Quantity,
			ReservedAfter:  current.Reserved,
			Actor:          input.Actor,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// commitOnce consumes reserved units and deducts the same quantity from
// stock. The read-compute-write runs as a compare-and-set so the journal
// records the exact pre-transition counters; a miss is retried by the
// transition loop. The stock side clamps at zero as a guard against rows
// that already violate the reserved <= stock invariant.
func (s *service) commitOnce(ctx context.Context, input TransitionInput) (*models.InventoryRecord, error) {
	var record *models.InventoryRecord
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByKey(ctx, input.ProductID, input.ShopID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return recordNotFound(input.ProductID, input.ShopID)
			}
			return err
		}

		if current.Reserved < input.Quantity {
			return pkgerrors.New(pkgerrors.CodeInsufficientReserved, "not enough reserved units").
				WithDetails(map[string]any{
					"requested": input.Quantity,
					"reserved":  current.Reserved,
				})
		}

		newReserved := current.Reserved - input.Quantity
		newStock := current.Stock - input.Quantity
		clamped := false
		if newStock < 0 {
			newStock = 0
			clamped = true
		}

		rows, err := repo.CompareAndSetCounters(ctx, current.ID, current.Stock, current.Reserved, newStock, newReserved)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errCASMiss
		}

		if clamped {
			s.metrics.IncClampAnomaly()
			s.logg.Warn(ctx, "commit quantity exceeded stock, clamped to zero")
		}

		if _, err := s.movements.WithTx(tx).RecordMovement(ctx, movements.RecordMovementInput{
			RecordID:       current.ID,
			Type:           models.MovementCommit,
			Quantity:       input.Quantity,
			StockBefore:    current.Stock,
			StockAfter:     newStock,
			ReservedBefore: current.Reserved,
			ReservedAfter:  newReserved,
			Actor:          input.Actor,
		}); err != nil {
			return err
		}

		updated := *current
		updated.Stock = newStock
		updated.Reserved = newReserved
		record = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// releaseOnce returns reserved units to the pool. Releasing more than is
// currently reserved clamps the counter at zero instead of rejecting, so a
// double release stays harmless. The read-compute-write runs as a
// compare-and-set; a miss is retried by the transition loop.
func (s *service) releaseOnce(ctx context.Context, input TransitionInput) (*models.InventoryRecord, error) {
	var record *models.InventoryRecord
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByKey(ctx, input.ProductID, input.ShopID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return recordNotFound(input.ProductID, input.ShopID)
			}
			return err
		}

		newReserved := current.Reserved - input.Quantity
		clamped := false
		if newReserved < 0 {
			newReserved = 0
			clamped = true
		}

		rows, err := repo.CompareAndSetCounters(ctx, current.ID, current.Stock, current.Reserved, current.Stock, newReserved)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errCASMiss
		}

		if clamped {
			s.metrics.IncClampAnomaly()
			s.logg.Warn(ctx, "release quantity exceeded reserved, clamped to zero")
		}

		if _, err := s.movements.WithTx(tx).RecordMovement(ctx, movements.RecordMovementInput{
			RecordID:       current.ID,
			Type:           models.MovementRelease,
			Quantity:       input.Quantity,
			StockBefore:    current.Stock,
			StockAfter:     current.Stock,
			ReservedBefore: current.Reserved,
			ReservedAfter:  newReserved,
			Actor:          input.Actor,
		}); err != nil {
			return err
		}

		updated := *current
		updated.Reserved = newReserved
		record = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// explainReserveRejection turns a zero-rows conditional update into the
// precise rejection: the record does not exist, or the requested quantity
// does not fit the available stock.
func (s *service) explainReserveRejection(ctx context.Context, repo Repository, input TransitionInput) error {
	current, err := repo.FindByKey(ctx, input.ProductID, input.ShopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return recordNotFound(input.ProductID, input.ShopID)
		}
		return err
	}

	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough unreserved stock").
		WithDetails(map[string]any{
			"requested": input.Quantity,
			"available": current.Available(),
		})
}

func (s *service) Availability(ctx context.Context, productID, shopID int64) (*AvailabilityView, error) {
	if err := validateKey(productID, shopID); err != nil {
		return nil, err
	}

	record, err := s.repo.FindByKey(ctx, productID, shopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &AvailabilityView{ProductID: productID, ShopID: shopID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load availability")
	}

	return &AvailabilityView{
		ProductID: productID,
		ShopID:    shopID,
		Stock:     record.Stock,
		Reserved:  record.Reserved,
		Available: record.Available(),
		Tracked:   true,
	}, nil
}

func (s *service) Get(ctx context.Context, productID, shopID int64) (*models.InventoryRecord, error) {
	if err := validateKey(productID, shopID); err != nil {
		return nil, err
	}

	record, err := s.repo.FindByKey(ctx, productID, shopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recordNotFound(productID, shopID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory record")
	}
	return record, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.ShopID != nil && *input.ShopID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id must be positive")
	}
	if input.ProductID != nil && *input.ProductID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}

	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(input.Limit)
	records, err := s.repo.List(ctx, ListFilter{
		ShopID:    input.ShopID,
		ProductID: input.ProductID,
		Cursor:    cursor,
		Limit:     pagination.LimitWithBuffer(input.Limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inventory records")
	}

	result := &ListResult{Records: records}
	if len(records) > limit {
		result.Records = records[:limit]
		last := result.Records[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			UpdatedAt: last.UpdatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

func (s *service) Upsert(ctx context.Context, input UpsertInput) (*models.InventoryRecord, error) {
	if err := validateUpsert(input); err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"op":         opUpsert,
		"product_id": input.ProductID,
		"shop_id":    input.ShopID,
	})

	if err := s.checkOwnership(ctx, input.CallerID, input.ShopID); err != nil {
		return nil, err
	}

	// The existence probe happens before the transaction, so a slow catalog
	// never extends the critical section.
	existing, err := s.repo.FindByKey(ctx, input.ProductID, input.ShopID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory record")
	}
	if existing == nil {
		if err := s.checkProductExists(ctx, input.ProductID); err != nil {
			return nil, err
		}
	}

	var record *models.InventoryRecord
	txErr := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := s.findOrCreate(ctx, repo, input)
		if err != nil {
			return err
		}

		fields := map[string]any{}
		newStock := current.Stock
		if input.Stock != nil && *input.Stock != current.Stock {
			newStock = *input.Stock
			fields["stock"] = newStock
		}
		if input.Threshold != nil && *input.Threshold != current.Threshold {
			fields["threshold"] = *input.Threshold
		}
		if input.Meta != nil {
			fields["meta"] = input.Meta
		}

		newReserved := current.Reserved
		if newStock < current.Reserved {
			// Lowering stock below the reserved level would break the
			// reserved <= stock invariant; the reserved counter is clamped
			// down and the anomaly surfaced through logs and metrics.
			newReserved = newStock
			fields["reserved"] = newReserved
			s.metrics.IncClampAnomaly()
			s.logg.Warn(ctx, "admin stock update below reserved level, reserved clamped")
		}

		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, current.ID, fields); err != nil {
				return err
			}
		}

		if newStock != current.Stock || newReserved != current.Reserved {
			if _, err := s.movements.WithTx(tx).RecordMovement(ctx, movements.RecordMovementInput{
				RecordID:       current.ID,
				Type:           models.MovementAdjust,
				Quantity:       abs(newStock - current.Stock),
				StockBefore:    current.Stock,
				StockAfter:     newStock,
				ReservedBefore: current.Reserved,
				ReservedAfter:  newReserved,
				Actor:          input.CallerID,
			}); err != nil {
				return err
			}
		}

		fresh, err := repo.FindByKey(ctx, input.ProductID, input.ShopID)
		if err != nil {
			return err
		}
		record = fresh
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return record, nil
}

// findOrCreate loads the record inside the transaction, creating it when
// missing. The read locks the row for the rest of the transaction so the
// clamp decision in Upsert cannot race a concurrent transition committing
// between the read and the write. A unique violation means a concurrent
// creator won; the row is re-read and treated as the existing record.
func (s *service) findOrCreate(ctx context.Context, repo Repository, input UpsertInput) (*models.InventoryRecord, error) {
	current, err := repo.FindByKeyForUpdate(ctx, input.ProductID, input.ShopID)
	if err == nil {
		return current, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := &models.InventoryRecord{
		ID:        uuid.New(),
		ProductID: input.ProductID,
		ShopID:    input.ShopID,
	}
	if createErr := repo.Create(ctx, fresh); createErr != nil {
		if db.IsUniqueViolation(createErr, "uq_inventory_product_shop") {
			return repo.FindByKeyForUpdate(ctx, input.ProductID, input.ShopID)
		}
		return nil, createErr
	}
	return fresh, nil
}

func (s *service) checkOwnership(ctx context.Context, callerID string, shopID int64) error {
	if s.shops == nil {
		return nil
	}
	if strings.TrimSpace(callerID) == "" {
		return pkgerrors.New(pkgerrors.CodeForbidden, "caller identity required")
	}

	owner, err := s.shops.IsOwner(ctx, callerID, shopID)
	if err != nil {
		s.logg.Error(ctx, "ownership check failed, rejecting", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shop registry unavailable")
	}
	if !owner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "caller does not own this shop")
	}
	return nil
}

func (s *service) checkProductExists(ctx context.Context, productID int64) error {
	if s.products == nil {
		return nil
	}

	exists, err := s.products.ProductExists(ctx, productID)
	if err != nil {
		if s.partners.FailOpenProductCheck() {
			s.logg.Warn(ctx, "product catalog unreachable, allowing upsert (fail-open)")
			return nil
		}
		s.logg.Error(ctx, "product catalog unreachable, rejecting (fail-closed)", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "product catalog unavailable")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found in catalog").
			WithDetails(map[string]any{"product_id": productID})
	}
	return nil
}

func validateTransition(input TransitionInput) error {
	if err := validateKey(input.ProductID, input.ShopID); err != nil {
		return err
	}
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}

func validateUpsert(input UpsertInput) error {
	if err := validateKey(input.ProductID, input.ShopID); err != nil {
		return err
	}
	if input.Stock != nil && *input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	if input.Threshold != nil && *input.Threshold < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "threshold must not be negative")
	}
	return nil
}

func validateKey(productID, shopID int64) error {
	if productID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	if shopID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shop id must be positive")
	}
	return nil
}

func recordNotFound(productID, shopID int64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found").
		WithDetails(map[string]any{"product_id": productID, "shop_id": shopID})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
