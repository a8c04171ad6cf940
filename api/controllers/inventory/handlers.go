package inventory

import (
	"net/http"

	invdto "github.com/mateovidal/stocklane-backend/api/controllers/inventory/dto"
	"github.com/mateovidal/stocklane-backend/api/middleware"
	"github.com/mateovidal/stocklane-backend/api/responses"
	"github.com/mateovidal/stocklane-backend/api/validators"
	invsvc "github.com/mateovidal/stocklane-backend/internal/inventory"
	dbtypes "github.com/mateovidal/stocklane-backend/pkg/db/types"
	pkgerrors "github.com/mateovidal/stocklane-backend/pkg/errors"
	"github.com/mateovidal/stocklane-backend/pkg/logger"
	"github.com/mateovidal/stocklane-backend/pkg/pagination"
)

// Reserve handles POST /inventory/reserve.
func Reserve(svc invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(r *http.Request, input invsvc.TransitionInput) (any, error) {
		record, err := svc.Reserve(r.Context(), input)
		if err != nil {
			return nil, err
		}
		return newInventoryView(record), nil
	})
}

// Release handles POST /inventory/release.
func Release(svc invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(r *http.Request, input invsvc.TransitionInput) (any, error) {
		record, err := svc.Release(r.Context(), input)
		if err != nil {
			return nil, err
		}
		return newInventoryView(record), nil
	})
}

// Commit handles POST /inventory/commit.
func Commit(svc invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(r *http.Request, input invsvc.TransitionInput) (any, error) {
		record, err := svc.Commit(r.Context(), input)
		if err != nil {
			return nil, err
		}
		return newInventoryView(record), nil
	})
}

func transitionHandler(svc invsvc.Service, logg *logger.Logger, apply func(r *http.Request, input invsvc.TransitionInput) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload invdto.TransitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := invsvc.TransitionInput{
			ProductID: payload.ProductID,
			ShopID:    payload.ShopID,
			Quantity:  payload.Quantity,
			Actor:     middleware.CallerIDFromContext(r.Context()),
		}

		view, err := apply(r, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Availability handles GET /inventory/availability.
func Availability(svc invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		productID, shopID, err := pairFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Availability(r.Context(), productID, shopID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newAvailabilityView(view))
	}
}

// GetRecord handles GET /inventory/item.
func GetRecord(svc invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		productID, shopID, err := pairFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), productID, shopID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventoryView(record))
	}
}

// List handles GET /inventory.
func List(svc invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		shopID, err := validators.ParseQueryID(r, "shop_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseQueryID(r, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), invsvc.ListInput{
			ShopID:    shopID,
			ProductID: productID,
			Limit:     limit,
			Cursor:    r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newListView(result))
	}
}

// Upsert handles PUT /inventory.
func Upsert(svc invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload invdto.UpsertRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Upsert(r.Context(), invsvc.UpsertInput{
			ProductID: payload.ProductID,
			ShopID:    payload.ShopID,
			Stock:     payload.Stock,
			Threshold: payload.Threshold,
			Meta:      dbtypes.Meta(payload.Meta),
			CallerID:  middleware.CallerIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventoryView(record))
	}
}

func pairFromQuery(r *http.Request) (int64, int64, error) {
	productID, err := validators.ParseQueryID(r, "product_id")
	if err != nil {
		return 0, 0, err
	}
	if productID == nil {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	shopID, err := validators.ParseQueryID(r, "shop_id")
	if err != nil {
		return 0, 0, err
	}
	if shopID == nil {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "shop_id is required")
	}
	return *productID, *shopID, nil
}
