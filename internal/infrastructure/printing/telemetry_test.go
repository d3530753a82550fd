package printing

import (
	"context"
	"errors"
	"testing"

	"github.com/Ayash13/tulip-sub000/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestMetrics(t *testing.T) (*telemetry.LetterMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	m, err := telemetry.NewLetterMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collectCounter(t *testing.T, reader *sdkmetric.ManualReader, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
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

func TestAssetEmbedder_CountsPlaceholderFallbacks(t *testing.T) {
	srv, _ := imageServer(t)
	m, reader := newTestMetrics(t)
	e := newTestEmbedder(t, nil, WithEmbedderMetrics(m))
	ctx := context.Background()

	assert.Equal(t, TransparentPlaceholder, e.Embed(ctx, ""))
	assert.Equal(t, TransparentPlaceholder, e.Embed(ctx, "blob:https://portal.example.ac.id/6f1c2a4e"))
	assert.Equal(t, TransparentPlaceholder, e.Embed(ctx, "/static/logo.png"))
	assert.Equal(t, TransparentPlaceholder, e.Embed(ctx, srv.URL+"/missing"))
	assert.NotEqual(t, TransparentPlaceholder, e.Embed(ctx, srv.URL+"/logo.png"))

	name := "letter_asset_placeholder_total"
	assert.Equal(t, int64(1), collectCounter(t, reader, name, telemetry.AttrFallbackReason.String(telemetry.FallbackEmpty)))
	assert.Equal(t, int64(1), collectCounter(t, reader, name, telemetry.AttrFallbackReason.String(telemetry.FallbackEphemeral)))
	assert.Equal(t, int64(1), collectCounter(t, reader, name, telemetry.AttrFallbackReason.String(telemetry.FallbackUnresolvable)))
	assert.Equal(t, int64(1), collectCounter(t, reader, name, telemetry.AttrFallbackReason.String(telemetry.FallbackFetchFailed)))
}

func TestAssetEmbedder_FetchSpans(t *testing.T) {
	sr := recordSpans(t)
	srv, _ := imageServer(t)
	e := newTestEmbedder(t, nil)
	ctx := context.Background()

	e.Embed(ctx, srv.URL+"/logo.png")
	e.Embed(ctx, srv.URL+"/text")

	spans := sr.Ended()
	require.Len(t, spans, 2, "one span per fetch")
	for _, s := range spans {
		assert.Equal(t, "asset_embedder.fetch", s.Name())
		assert.Contains(t, s.Attributes(), attribute.String(telemetry.SpanAttrAssetScheme, "http"))
	}
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code, "non-image body fails the span")
}

func TestRenderer_CountsErrorTransitions(t *testing.T) {
	m, reader := newTestMetrics(t)
	surface := &fakeSurface{renderErr: errors.New("crashed")}
	r := NewRenderer(surface, &RendererConfig{Metrics: m})
	defer r.Close()

	snap := r.Load(context.Background(), RenderInput{Document: "<p>surat</p>"})
	require.Equal(t, RenderStateError, snap.State)
	require.Equal(t, ErrCodeSurfaceUnavailable, snap.ErrorCode)

	surface.mu.Lock()
	surface.renderErr = nil
	surface.mu.Unlock()
	snap = r.Retry(context.Background())
	require.Equal(t, RenderStateReady, snap.State)

	assert.Equal(t, int64(1), collectCounter(t, reader, "letter_render_errors_total",
		telemetry.AttrRenderError.String(ErrCodeSurfaceUnavailable)), "READY after retry is not counted")
}
