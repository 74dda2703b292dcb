package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/stock"
	"github.com/wms/backend/internal/testutil"
)

// setupTestDB opens a migrated in-memory SQLite database
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewSQLiteDB(t)
}

func newTestItem(t *testing.T, sku string, price, stockQty, minLevel int64) *inventory.InventoryItem {
	t.Helper()
	item, err := inventory.NewInventoryItem(inventory.Attributes{
		SKU:      sku,
		Name:     "Item " + sku,
		Category: "General",
		Location: "A-01",
		Unit:     "Pcs",
		Price:    decimal.NewFromInt(price),
		MinLevel: decimal.NewFromInt(minLevel),
	}, decimal.NewFromInt(stockQty))
	require.NoError(t, err)
	return item
}

func newTestTransaction(t *testing.T, id string, typ stock.TransactionType, date time.Time, lines ...stock.TransactionItem) *stock.Transaction {
	t.Helper()
	details := stock.InboundDetails{}
	if typ == stock.TransactionTypeInbound {
		details = stock.InboundDetails{Supplier: "PT Sumber Makmur", PONumber: "PO-7781", DeliveryNote: "SJ-12"}
	}
	tx, err := stock.NewTransaction(id, typ, date, "operator", "", details, lines)
	require.NoError(t, err)
	return tx
}

func line(itemID uuid.UUID, sku string, qty int64) stock.TransactionItem {
	return stock.TransactionItem{
		ItemID:    itemID,
		SKU:       sku,
		Name:      "Item " + sku,
		Qty:       decimal.NewFromInt(qty),
		InputQty:  decimal.NewFromInt(qty),
		UOM:       "Pcs",
		UnitPrice: decimal.NewFromInt(1000),
	}
}
