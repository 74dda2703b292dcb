package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/testutil"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tp
}

func TestRegisterDBTracing(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	sr, tp := newRecorder(t)

	err := RegisterDBTracing(db, DBTracingConfig{
		DBSystem:        "sqlite",
		SlowQueryThresh: time.Second,
		TracerProvider:  tp,
	}, zap.NewNop())
	require.NoError(t, err)

	ctx, parent := tp.Tracer("test").Start(context.Background(), "request")
	var n int64
	require.NoError(t, db.WithContext(ctx).Raw("SELECT COUNT(*) FROM inventory_items").Scan(&n).Error)
	parent.End()

	spans := sr.Ended()
	require.GreaterOrEqual(t, len(spans), 2)
	var dbSpans int
	for _, s := range spans {
		if s.Parent().SpanID() == parent.SpanContext().SpanID() {
			dbSpans++
		}
	}
	assert.GreaterOrEqual(t, dbSpans, 1)
}

func TestMarkSlowQuery(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	sr, tp := newRecorder(t)

	t.Run("tags slow statements", func(t *testing.T) {
		ctx, span := tp.Tracer("test").Start(context.Background(), "query")
		ctx = context.WithValue(ctx, queryStartKey{}, time.Now().Add(-time.Second))
		markSlowQuery(db.WithContext(ctx), 100*time.Millisecond)
		span.End()

		ended := sr.Ended()
		attrs := attribute.NewSet(ended[len(ended)-1].Attributes()...)
		slow, ok := attrs.Value("db.slow_query")
		require.True(t, ok)
		assert.True(t, slow.AsBool())
		ms, _ := attrs.Value("db.query_duration_ms")
		assert.GreaterOrEqual(t, ms.AsInt64(), int64(1000))
	})

	t.Run("leaves fast statements alone", func(t *testing.T) {
		ctx, span := tp.Tracer("test").Start(context.Background(), "query")
		ctx = context.WithValue(ctx, queryStartKey{}, time.Now())
		markSlowQuery(db.WithContext(ctx), time.Hour)
		span.End()

		ended := sr.Ended()
		attrs := attribute.NewSet(ended[len(ended)-1].Attributes()...)
		_, ok := attrs.Value("db.slow_query")
		assert.False(t, ok)
	})

	t.Run("no start time", func(t *testing.T) {
		assert.NotPanics(t, func() {
			markSlowQuery(db.WithContext(context.Background()), time.Millisecond)
		})
	})
}
