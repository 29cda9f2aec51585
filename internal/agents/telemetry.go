package agents

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// InstrumentationName is the name used for OTEL instrumentation.
	InstrumentationName = "github.com/fyrsmithlabs/agentd/internal/agents"
)

// Metrics provides OpenTelemetry metrics for the agents package. Attribute
// values are limited to the closed role and outcome sets.
type Metrics struct {
	generateTotal    metric.Int64Counter
	generateDuration metric.Float64Histogram
	fallbackTotal    metric.Int64Counter

	// initialized tracks if metrics were successfully initialized
	initialized bool
}

// NewMetrics creates a new Metrics instance with the provided meter.
// If meter is nil, uses the global meter provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	var err error

	m.generateTotal, err = meter.Int64Counter(
		"agents.generate.total",
		metric.WithDescription("Total collaborator generation calls by role and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	m.generateDuration, err = meter.Float64Histogram(
		"agents.generate.duration",
		metric.WithDescription("Collaborator generation call duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000),
	)
	if err != nil {
		return nil, err
	}

	m.fallbackTotal, err = meter.Int64Counter(
		"agents.parse.fallback.total",
		metric.WithDescription("Total unparseable responses replaced by deterministic fallbacks"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordGenerate records one collaborator call. Outcome is one of
// "complete", "clarification", or "error".
func (m *Metrics) RecordGenerate(ctx context.Context, role, outcome string, d time.Duration) {
	if m == nil || !m.initialized {
		return
	}
	m.generateTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", role),
		attribute.String("outcome", outcome),
	))
	m.generateDuration.Record(ctx, float64(d.Milliseconds()), metric.WithAttributes(
		attribute.String("role", role),
	))
}

// RecordParseFallback records a fallback replacing a malformed response.
func (m *Metrics) RecordParseFallback(ctx context.Context, role string) {
	if m == nil || !m.initialized {
		return
	}
	m.fallbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", role),
	))
}

// Tracer returns a tracer for the agents package.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// StartSpan starts a new span with the given attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err, trace.WithAttributes(attrs...))
	}
}

// SetSpanStatus sets the status on the current span.
func SetSpanStatus(ctx context.Context, code codes.Code, description string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetStatus(code, description)
	}
}
