package inventory

import "github.com/shopspring/decimal"

// Stats summarizes the item master for dashboards.
type Stats struct {
	TotalValue    decimal.Decimal `json:"total_value"`
	TotalUnits    decimal.Decimal `json:"total_units"`
	LowStockCount int             `json:"low_stock_count"`
	SKUCount      int             `json:"sku_count"`
}

// ComputeStats folds items into Stats.
func ComputeStats(items []InventoryItem) Stats {
	s := Stats{
		TotalValue: decimal.Zero,
		TotalUnits: decimal.Zero,
		SKUCount:   len(items),
	}
	for i := range items {
		s.TotalValue = s.TotalValue.Add(items[i].TotalValue())
		s.TotalUnits = s.TotalUnits.Add(items[i].Stock)
		if items[i].IsLowStock() {
			s.LowStockCount++
		}
	}
	return s
}
