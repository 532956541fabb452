package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/payments/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTracedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func useRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return tp, recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestNewDBTracing(t *testing.T) {
	p := NewDBTracing(config.TelemetryConfig{Enabled: true, DBTraceEnabled: true}, zap.NewNop())
	assert.True(t, p.enabled)
	assert.Equal(t, defaultSlowQueryThreshold, p.threshold)

	p = NewDBTracing(config.TelemetryConfig{Enabled: false, DBTraceEnabled: true, DBSlowQueryThresh: time.Second}, zap.NewNop())
	assert.False(t, p.enabled)
	assert.Equal(t, time.Second, p.threshold)
}

func TestDBTracing_Register_Disabled(t *testing.T) {
	db := setupTracedDB(t)
	_, recorder := useRecorder(t)

	p := NewDBTracing(config.TelemetryConfig{}, zap.NewNop())
	require.NoError(t, p.Register(db))

	require.NoError(t, db.WithContext(context.Background()).Create(&tracedRow{Name: "a"}).Error)
	assert.Empty(t, recorder.Ended())
}

func TestDBTracing_Register_RecordsSpans(t *testing.T) {
	db := setupTracedDB(t)
	_, recorder := useRecorder(t)

	p := NewDBTracing(config.TelemetryConfig{Enabled: true, DBTraceEnabled: true}, zap.NewNop())
	require.NoError(t, p.Register(db))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "a"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)

	assert.GreaterOrEqual(t, len(recorder.Ended()), 2)
}

func TestDBTracing_Annotate(t *testing.T) {
	db := setupTracedDB(t)
	tp, recorder := useRecorder(t)
	p := NewDBTracing(config.TelemetryConfig{Enabled: true, DBTraceEnabled: true, DBSlowQueryThresh: time.Millisecond}, zap.NewNop())

	ctx, span := tp.Tracer("test").Start(context.Background(), "query")
	ctx = context.WithValue(ctx, queryStartTimeKey, time.Now().Add(-time.Second))

	tx := db.WithContext(ctx)
	tx.Statement.Table = "customers"
	tx.Statement.RowsAffected = 3
	tx.Error = errors.New("connection reset")

	p.annotate(tx)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	got := ended[0]

	v, ok := spanAttr(got, "db.sql.table")
	require.True(t, ok)
	assert.Equal(t, "customers", v.AsString())
	v, ok = spanAttr(got, "db.rows_affected")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.AsInt64())
	v, ok = spanAttr(got, "db.slow_query")
	require.True(t, ok)
	assert.True(t, v.AsBool())

	assert.Equal(t, codes.Error, got.Status().Code)
	require.NotEmpty(t, got.Events())
}

func TestDBTracing_Annotate_RecordNotFoundIsNotAnError(t *testing.T) {
	db := setupTracedDB(t)
	tp, recorder := useRecorder(t)
	p := NewDBTracing(config.TelemetryConfig{Enabled: true, DBTraceEnabled: true}, zap.NewNop())

	ctx, span := tp.Tracer("test").Start(context.Background(), "query")
	tx := db.WithContext(ctx)
	tx.Error = gorm.ErrRecordNotFound

	p.annotate(tx)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.NotEqual(t, codes.Error, ended[0].Status().Code)
}
