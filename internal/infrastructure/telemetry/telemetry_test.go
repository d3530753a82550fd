package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ==================== helpers ====================

// setupTestTracer installs a recording tracer provider for the test
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

// counterValue sums the data points of an int64 counter that carry attr
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
					total += dp.Value
				}
			}
		}
	}
	return total
}

// ==================== providers ====================

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := NewTracerProvider(ctx, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, Config{Enabled: false}, nil)
	require.NoError(t, err)
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

// ==================== spans ====================

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := StartSpan(context.Background(), "asset_embedder.fetch",
		attribute.String(SpanAttrAssetScheme, "https"))
	assert.NotEmpty(t, TraceID(ctx))
	RecordError(span, errors.New("connection refused"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "asset_embedder.fetch", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String(SpanAttrAssetScheme, "https"))
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

// ==================== metrics ====================

func TestNewLetterMetrics_NilMeter(t *testing.T) {
	m, err := NewLetterMetrics(nil)
	require.Error(t, err)
	assert.Nil(t, m)
	assert.Equal(t, "NewLetterMetrics: meter cannot be nil", err.Error())
}

func TestLetterMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewLetterMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordNumberAllocated(ctx, "magang")
	m.RecordNumberAllocated(ctx, "magang")
	m.RecordNumberAllocated(ctx, "beasiswa")
	m.RecordPlaceholderFallback(ctx, FallbackEphemeral)
	m.RecordRenderError(ctx, "ARTIFACT_NOT_FOUND")

	assert.Equal(t, int64(2), counterValue(t, reader, "letter_numbers_allocated_total", AttrLetterType.String("magang")))
	assert.Equal(t, int64(1), counterValue(t, reader, "letter_numbers_allocated_total", AttrLetterType.String("beasiswa")))
	assert.Equal(t, int64(1), counterValue(t, reader, "letter_asset_placeholder_total", AttrFallbackReason.String(FallbackEphemeral)))
	assert.Equal(t, int64(1), counterValue(t, reader, "letter_render_errors_total", AttrRenderError.String("ARTIFACT_NOT_FOUND")))
}

func TestLetterMetrics_NilIsNoop(t *testing.T) {
	var m *LetterMetrics
	assert.NotPanics(t, func() {
		m.RecordNumberAllocated(context.Background(), "magang")
		m.RecordPlaceholderFallback(context.Background(), FallbackEmpty)
		m.RecordRenderError(context.Background(), "LOAD_FAILED")
	})
}

// ==================== database ====================

type tracedRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func TestRegisterDBTracing(t *testing.T) {
	t.Run("disabled registers nothing", func(t *testing.T) {
		sr := setupTestTracer(t)
		db := setupTestDB(t)

		require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: false}, nil))
		require.NoError(t, db.Create(&tracedRow{Name: "a"}).Error)
		assert.Empty(t, sr.Ended())
	})

	t.Run("enabled emits statement spans", func(t *testing.T) {
		sr := setupTestTracer(t)
		db := setupTestDB(t)

		require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: true, DBName: "tulip"}, zap.NewNop()))

		ctx, parent := StartSpan(context.Background(), "letter.approve")
		require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "b"}).Error)
		parent.End()

		spans := sr.Ended()
		require.GreaterOrEqual(t, len(spans), 2)
		var child sdktrace.ReadOnlySpan
		for _, s := range spans {
			if s.Name() != "letter.approve" {
				child = s
			}
		}
		require.NotNil(t, child)
		assert.Equal(t, parent.SpanContext().TraceID(), child.SpanContext().TraceID())
	})

	t.Run("nil database", func(t *testing.T) {
		assert.Error(t, RegisterDBTracing(nil, DBTracingConfig{Enabled: true}, nil))
	})
}
