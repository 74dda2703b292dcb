package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	appinventory "github.com/wms/backend/internal/application/inventory"
	appstock "github.com/wms/backend/internal/application/stock"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/stock"
)

const meterName = "github.com/wms/backend/stock"

// StockMetrics records ledger movements and inventory snapshots as
// OpenTelemetry instruments.
type StockMetrics struct {
	adjustments metric.Int64Counter
	quantity    metric.Float64Counter
	dangling    metric.Int64Counter
	lowStock    metric.Int64Gauge
	skuCount    metric.Int64Gauge
	totalValue  metric.Float64Gauge
	totalUnits  metric.Float64Gauge
}

// NewStockMetrics creates the instruments on provider, or on the global
// provider when nil.
func NewStockMetrics(provider metric.MeterProvider) (*StockMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	var (
		m   StockMetrics
		err error
	)
	if m.adjustments, err = meter.Int64Counter("wms.stock.adjustments",
		metric.WithDescription("Item stock adjustments applied by committed transactions"),
		metric.WithUnit("{adjustment}")); err != nil {
		return nil, err
	}
	if m.quantity, err = meter.Float64Counter("wms.stock.moved_quantity",
		metric.WithDescription("Absolute base-unit quantity moved through the ledger")); err != nil {
		return nil, err
	}
	if m.dangling, err = meter.Int64Counter("wms.stock.dangling_reversals",
		metric.WithDescription("Reversals skipped because the item no longer exists"),
		metric.WithUnit("{item}")); err != nil {
		return nil, err
	}
	if m.lowStock, err = meter.Int64Gauge("wms.inventory.low_stock_items",
		metric.WithDescription("Items at or below their minimum stock"),
		metric.WithUnit("{item}")); err != nil {
		return nil, err
	}
	if m.skuCount, err = meter.Int64Gauge("wms.inventory.sku_count",
		metric.WithUnit("{item}")); err != nil {
		return nil, err
	}
	if m.totalValue, err = meter.Float64Gauge("wms.inventory.total_value",
		metric.WithDescription("Sum of stock times unit price")); err != nil {
		return nil, err
	}
	if m.totalUnits, err = meter.Float64Gauge("wms.inventory.total_units"); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordMovement implements appstock.MovementRecorder
func (m *StockMetrics) RecordMovement(ctx context.Context, operation string, txType stock.TransactionType, mv stock.Movement) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("type", txType.String()),
	)
	for _, a := range mv.Adjustments {
		m.adjustments.Add(ctx, 1, attrs)
		qty, _ := a.Delta.Abs().Float64()
		m.quantity.Add(ctx, qty, attrs)
	}
	if n := len(mv.Dangling); n > 0 {
		m.dangling.Add(ctx, int64(n), attrs)
	}
}

// RecordStats implements appinventory.StatsRecorder
func (m *StockMetrics) RecordStats(ctx context.Context, s inventory.Stats) {
	m.lowStock.Record(ctx, int64(s.LowStockCount))
	m.skuCount.Record(ctx, int64(s.SKUCount))
	value, _ := s.TotalValue.Float64()
	m.totalValue.Record(ctx, value)
	units, _ := s.TotalUnits.Float64()
	m.totalUnits.Record(ctx, units)
}

var (
	_ appstock.MovementRecorder  = (*StockMetrics)(nil)
	_ appinventory.StatsRecorder = (*StockMetrics)(nil)
)
