package telemetry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/stock"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestStockMetrics_RecordMovement(t *testing.T) {
	reader, provider := newTestMeter(t)
	m, err := NewStockMetrics(provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordMovement(ctx, "create", stock.TransactionTypeOutbound, stock.Movement{
		Adjustments: []stock.Adjustment{
			{ItemID: uuid.New(), SKU: "A-1", Before: decimal.NewFromInt(10), Delta: decimal.NewFromInt(-4), After: decimal.NewFromInt(6)},
			{ItemID: uuid.New(), SKU: "B-2", Before: decimal.NewFromInt(3), Delta: decimal.RequireFromString("-1.5"), After: decimal.RequireFromString("1.5")},
		},
	})
	m.RecordMovement(ctx, "delete", stock.TransactionTypeInbound, stock.Movement{
		Dangling: []uuid.UUID{uuid.New(), uuid.New()},
	})

	got := collect(t, reader)

	adjustments := got["wms.stock.adjustments"].Data.(metricdata.Sum[int64])
	require.Len(t, adjustments.DataPoints, 1)
	assert.Equal(t, int64(2), adjustments.DataPoints[0].Value)
	op, _ := adjustments.DataPoints[0].Attributes.Value(attribute.Key("operation"))
	assert.Equal(t, "create", op.AsString())
	typ, _ := adjustments.DataPoints[0].Attributes.Value(attribute.Key("type"))
	assert.Equal(t, "outbound", typ.AsString())

	moved := got["wms.stock.moved_quantity"].Data.(metricdata.Sum[float64])
	require.Len(t, moved.DataPoints, 1)
	assert.InDelta(t, 5.5, moved.DataPoints[0].Value, 1e-9)

	dangling := got["wms.stock.dangling_reversals"].Data.(metricdata.Sum[int64])
	require.Len(t, dangling.DataPoints, 1)
	assert.Equal(t, int64(2), dangling.DataPoints[0].Value)
}

func TestStockMetrics_RecordStats(t *testing.T) {
	reader, provider := newTestMeter(t)
	m, err := NewStockMetrics(provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordStats(ctx, inventory.Stats{
		TotalValue:    decimal.RequireFromString("1250.50"),
		TotalUnits:    decimal.NewFromInt(40),
		LowStockCount: 3,
		SKUCount:      12,
	})
	m.RecordStats(ctx, inventory.Stats{
		TotalValue:    decimal.NewFromInt(900),
		TotalUnits:    decimal.NewFromInt(30),
		LowStockCount: 1,
		SKUCount:      12,
	})

	got := collect(t, reader)

	low := got["wms.inventory.low_stock_items"].Data.(metricdata.Gauge[int64])
	require.Len(t, low.DataPoints, 1)
	assert.Equal(t, int64(1), low.DataPoints[0].Value)

	skus := got["wms.inventory.sku_count"].Data.(metricdata.Gauge[int64])
	assert.Equal(t, int64(12), skus.DataPoints[0].Value)

	value := got["wms.inventory.total_value"].Data.(metricdata.Gauge[float64])
	assert.InDelta(t, 900.0, value.DataPoints[0].Value, 1e-9)
}

func TestNewStockMetrics_GlobalProvider(t *testing.T) {
	m, err := NewStockMetrics(nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordMovement(context.Background(), "update", stock.TransactionTypeInbound, stock.Movement{})
	})
}
