package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrLetterType     = attribute.Key("letter_type")
	AttrFallbackReason = attribute.Key("reason")
	AttrRenderError    = attribute.Key("error_code")
)

// Placeholder fallback reasons
const (
	FallbackEmpty        = "empty"
	FallbackEphemeral    = "ephemeral"
	FallbackUnresolvable = "unresolvable"
	FallbackFetchFailed  = "fetch_failed"
)

// LetterMetrics counts numbering, embedding and preview outcomes.
// A nil *LetterMetrics records nothing.
type LetterMetrics struct {
	numbersAllocated     *Counter
	placeholderFallbacks *Counter
	renderErrors         *Counter
}

// NewLetterMetrics registers the letter counters on meter
func NewLetterMetrics(meter metric.Meter) (*LetterMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	numbers, err := NewCounter(meter,
		"letter_numbers_allocated_total",
		"Letter numbers allocated on approval",
		"{numbers}")
	if err != nil {
		return nil, err
	}
	fallbacks, err := NewCounter(meter,
		"letter_asset_placeholder_total",
		"Image references replaced by the transparent placeholder",
		"{assets}")
	if err != nil {
		return nil, err
	}
	renders, err := NewCounter(meter,
		"letter_render_errors_total",
		"Preview renders that ended in the ERROR state",
		"{renders}")
	if err != nil {
		return nil, err
	}
	return &LetterMetrics{
		numbersAllocated:     numbers,
		placeholderFallbacks: fallbacks,
		renderErrors:         renders,
	}, nil
}

// RecordNumberAllocated counts one issued letter number
func (m *LetterMetrics) RecordNumberAllocated(ctx context.Context, letterType string) {
	if m == nil {
		return
	}
	m.numbersAllocated.Inc(ctx, AttrLetterType.String(letterType))
}

// RecordPlaceholderFallback counts one image reference that could not be inlined
func (m *LetterMetrics) RecordPlaceholderFallback(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.placeholderFallbacks.Inc(ctx, AttrFallbackReason.String(reason))
}

// RecordRenderError counts one transition into the ERROR state
func (m *LetterMetrics) RecordRenderError(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.renderErrors.Inc(ctx, AttrRenderError.String(code))
}

// ErrMeterNil is returned when no meter is given
var ErrMeterNil = &MetricsError{Op: "NewLetterMetrics", Err: "meter cannot be nil"}

// MetricsError is a metrics setup error
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
