package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// ItemFilter narrows item listings.
type ItemFilter struct {
	shared.Filter
	Category string
	Active   *bool
	LowStock bool
}

// ItemRepository persists InventoryItem records.
type ItemRepository interface {
	// FindByID finds an item by ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error)

	// FindBySKU finds an item by its unique SKU
	FindBySKU(ctx context.Context, sku string) (*InventoryItem, error)

	// FindAll lists items. A zero PageSize returns every match.
	FindAll(ctx context.Context, filter ItemFilter) ([]InventoryItem, error)

	// Count counts items matching the filter
	Count(ctx context.Context, filter ItemFilter) (int64, error)

	// Save inserts a new item with its opening stock, or updates the master
	// data of an existing one. The stock of an existing row is only written
	// by SetStock.
	Save(ctx context.Context, item *InventoryItem) error

	// Delete removes an item. Transaction history is not touched.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetForUpdate loads an item and locks its row until the surrounding
	// database transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*InventoryItem, error)

	// SetStock overwrites the stock of one item
	SetStock(ctx context.Context, id uuid.UUID, stock decimal.Decimal) error
}
