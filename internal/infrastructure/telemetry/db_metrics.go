package telemetry

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

// RegisterDBPoolMetrics reports sql.DBStats through observable gauges.
// The returned function unregisters the callback.
func RegisterDBPoolMetrics(db *gorm.DB, provider metric.MeterProvider) (func() error, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	open, err := meter.Int64ObservableGauge("db.pool.open_connections", metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	inUse, err := meter.Int64ObservableGauge("db.pool.in_use", metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	idle, err := meter.Int64ObservableGauge("db.pool.idle", metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	waits, err := meter.Int64ObservableCounter("db.pool.wait_count",
		metric.WithDescription("Connections waited for since start"))
	if err != nil {
		return nil, err
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		observePool(o, sqlDB.Stats(), open, inUse, idle, waits)
		return nil
	}, open, inUse, idle, waits)
	if err != nil {
		return nil, err
	}
	return reg.Unregister, nil
}

func observePool(o metric.Observer, s sql.DBStats, open, inUse, idle metric.Int64Observable, waits metric.Int64Observable) {
	o.ObserveInt64(open, int64(s.OpenConnections))
	o.ObserveInt64(inUse, int64(s.InUse))
	o.ObserveInt64(idle, int64(s.Idle))
	o.ObserveInt64(waits, s.WaitCount)
}
