package inventory

import (
	invdto "github.com/mateovidal/stocklane-backend/api/controllers/inventory/dto"
	invsvc "github.com/mateovidal/stocklane-backend/internal/inventory"
	"github.com/mateovidal/stocklane-backend/pkg/db/models"
)

func newInventoryView(record *models.InventoryRecord) invdto.InventoryView {
	return invdto.InventoryView{
		ProductID: record.ProductID,
		ShopID:    record.ShopID,
		Stock:     record.Stock,
		Reserved:  record.Reserved,
		Available: record.Available(),
		Threshold: record.Threshold,
		LowStock:  record.LowStock(),
		Meta:      record.Meta,
		UpdatedAt: record.UpdatedAt,
	}
}

func newAvailabilityView(view *invsvc.AvailabilityView) invdto.AvailabilityView {
	return invdto.AvailabilityView{
		ProductID: view.ProductID,
		ShopID:    view.ShopID,
		Stock:     view.Stock,
		Reserved:  view.Reserved,
		Available: view.Available,
		Tracked:   view.Tracked,
	}
}

func newListView(result *invsvc.ListResult) invdto.ListView {
	records := make([]invdto.InventoryView, 0, len(result.Records))
	for i := range result.Records {
		records = append(records, newInventoryView(&result.Records[i]))
	}
	return invdto.ListView{
		Records:    records,
		NextCursor: result.NextCursor,
	}
}
