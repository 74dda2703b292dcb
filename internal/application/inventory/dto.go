package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/uom"
	csvimport "github.com/wms/backend/internal/infrastructure/import"
)

// ItemRequest is the body of item create, update and upsert requests.
type ItemRequest struct {
	SKU             string          `json:"sku" binding:"required,max=64"`
	Name            string          `json:"name" binding:"required,max=200"`
	Category        string          `json:"category" binding:"max=100"`
	Location        string          `json:"location" binding:"max=100"`
	Unit            string          `json:"unit" binding:"max=20"`
	Price           decimal.Decimal `json:"price"`
	MinLevel        decimal.Decimal `json:"min_level"`
	ConversionUnit  string          `json:"conversion_unit" binding:"max=20"`
	ConversionRatio decimal.Decimal `json:"conversion_ratio"`
	// Stock is the opening stock on create. Update ignores it; upsert
	// overwrites the stock of an existing item only when it is set.
	Stock *decimal.Decimal `json:"stock"`
}

func (r ItemRequest) attributes() inventory.Attributes {
	return inventory.Attributes{
		SKU:             r.SKU,
		Name:            r.Name,
		Category:        r.Category,
		Location:        r.Location,
		Unit:            r.Unit,
		Price:           r.Price,
		MinLevel:        r.MinLevel,
		ConversionUnit:  r.ConversionUnit,
		ConversionRatio: r.ConversionRatio,
	}
}

func (r ItemRequest) openingStock() decimal.Decimal {
	if r.Stock == nil {
		return decimal.Zero
	}
	return *r.Stock
}

// SetStockRequest is a manual stock correction, e.g. after a stocktake.
type SetStockRequest struct {
	Stock  decimal.Decimal `json:"stock"`
	Reason string          `json:"reason" binding:"max=500"`
}

// ItemResponse represents an inventory item in API responses
type ItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Location        string          `json:"location"`
	Unit            string          `json:"unit"`
	Price           decimal.Decimal `json:"price"`
	Stock           decimal.Decimal `json:"stock"`
	MinLevel        decimal.Decimal `json:"min_level"`
	Active          bool            `json:"active"`
	ConversionUnit  string          `json:"conversion_unit,omitempty"`
	ConversionRatio decimal.Decimal `json:"conversion_ratio"`
	TotalValue      decimal.Decimal `json:"total_value"`
	IsLowStock      bool            `json:"is_low_stock"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ToItemResponse converts a domain item to its response
func ToItemResponse(item *inventory.InventoryItem) ItemResponse {
	return ItemResponse{
		ID:              item.ID,
		SKU:             item.SKU,
		Name:            item.Name,
		Category:        item.Category,
		Location:        item.Location,
		Unit:            item.Unit,
		Price:           item.Price,
		Stock:           item.Stock,
		MinLevel:        item.MinLevel,
		Active:          item.Active,
		ConversionUnit:  item.ConversionUnit,
		ConversionRatio: item.ConversionRatio,
		TotalValue:      item.TotalValue(),
		IsLowStock:      item.IsLowStock(),
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
}

// ItemListFilter represents filter options for item lists
type ItemListFilter struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Active   *bool  `form:"active"`
	LowStock bool   `form:"low_stock"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=500"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ResolveConversionRequest asks how much base stock a typed quantity is.
type ResolveConversionRequest struct {
	ItemID uuid.UUID       `json:"item_id" binding:"required"`
	Qty    decimal.Decimal `json:"qty"`
	Unit   string          `json:"unit"`
}

// ConversionResponse is a resolved quantity together with the units the
// item accepts.
type ConversionResponse struct {
	uom.Resolution
	Units     []string        `json:"units"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	TotalRows   int                  `json:"total_rows"`
	Created     int                  `json:"created"`
	Updated     int                  `json:"updated"`
	ErrorRows   int                  `json:"error_rows"`
	Errors      []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated bool                 `json:"is_truncated,omitempty"`
	TotalErrors int                  `json:"total_errors,omitempty"`
}
