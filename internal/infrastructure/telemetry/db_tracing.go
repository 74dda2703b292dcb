package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type queryStartKey struct{}

// DBTracingConfig holds configuration for database tracing
type DBTracingConfig struct {
	LogFullSQL      bool // include bound variables in span statements
	SlowQueryThresh time.Duration
	DBSystem        string
	// TracerProvider overrides the global provider.
	TracerProvider trace.TracerProvider
}

// RegisterDBTracing installs otelgorm and tags spans of statements slower
// than the threshold with db.slow_query.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(cfg.TracerProvider))
	}
	// Timing callbacks go first so they observe the span before otelgorm ends it.
	if cfg.SlowQueryThresh > 0 {
		if err := registerSlowQueryCallbacks(db, cfg.SlowQueryThresh); err != nil {
			return err
		}
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh))
	return nil
}

func registerSlowQueryCallbacks(db *gorm.DB, threshold time.Duration) error {
	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) {
		markSlowQuery(tx, threshold)
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("wms:timing_before_create", before),
		cb.Query().Before("gorm:query").Register("wms:timing_before_query", before),
		cb.Update().Before("gorm:update").Register("wms:timing_before_update", before),
		cb.Delete().Before("gorm:delete").Register("wms:timing_before_delete", before),
		cb.Row().Before("gorm:row").Register("wms:timing_before_row", before),
		cb.Raw().Before("gorm:raw").Register("wms:timing_before_raw", before),
		cb.Create().After("gorm:create").Register("wms:slow_create", after),
		cb.Query().After("gorm:query").Register("wms:slow_query", after),
		cb.Update().After("gorm:update").Register("wms:slow_update", after),
		cb.Delete().After("gorm:delete").Register("wms:slow_delete", after),
		cb.Row().After("gorm:row").Register("wms:slow_row", after),
		cb.Raw().After("gorm:raw").Register("wms:slow_raw", after),
	)
}

func markSlowQuery(tx *gorm.DB, threshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed <= threshold {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
	)
}
