package condense

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// InstrumentationName is the name used for OTEL instrumentation.
	InstrumentationName = "github.com/fyrsmithlabs/agentd/internal/condense"
)

// Metrics provides OpenTelemetry metrics for the condense package.
// Fragment IDs, sources, and tags are never used as metric attributes;
// attribute values are limited to the closed layer/kind/strategy/reason sets
// to keep cardinality bounded.
type Metrics struct {
	// Counters
	fragmentAddedTotal   metric.Int64Counter
	fragmentEvictedTotal metric.Int64Counter
	summaryTotal         metric.Int64Counter

	// Gauges (using UpDownCounter for gauge semantics)
	fragmentStoredCount metric.Int64UpDownCounter

	// Histograms
	summaryTokens     metric.Int64Histogram
	budgetUtilization metric.Float64Histogram

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

	// Counters
	m.fragmentAddedTotal, err = meter.Int64Counter(
		"condense.fragment.added.total",
		metric.WithDescription("Total number of fragments added"),
		metric.WithUnit("{fragment}"),
	)
	if err != nil {
		return nil, err
	}

	m.fragmentEvictedTotal, err = meter.Int64Counter(
		"condense.fragment.evicted.total",
		metric.WithDescription("Total number of fragments removed by retention or cleanup"),
		metric.WithUnit("{fragment}"),
	)
	if err != nil {
		return nil, err
	}

	m.summaryTotal, err = meter.Int64Counter(
		"condense.summary.produced.total",
		metric.WithDescription("Total number of condensed summaries produced"),
		metric.WithUnit("{summary}"),
	)
	if err != nil {
		return nil, err
	}

	// Gauges
	m.fragmentStoredCount, err = meter.Int64UpDownCounter(
		"condense.fragment.stored.count",
		metric.WithDescription("Number of fragments currently stored across layers"),
		metric.WithUnit("{fragment}"),
	)
	if err != nil {
		return nil, err
	}

	// Histograms
	m.summaryTokens, err = meter.Int64Histogram(
		"condense.summary.tokens",
		metric.WithDescription("Estimated tokens per condensed summary"),
		metric.WithUnit("{token}"),
		metric.WithExplicitBucketBoundaries(100, 250, 500, 1000, 2000, 4000, 8000, 16000),
	)
	if err != nil {
		return nil, err
	}

	m.budgetUtilization, err = meter.Float64Histogram(
		"condense.budget.utilization.ratio",
		metric.WithDescription("Budget utilization ratio (tokens used / budget)"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.4, 0.6, 0.8, 0.9, 0.95, 1.0),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordFragmentAdded records a fragment insertion.
func (m *Metrics) RecordFragmentAdded(ctx context.Context, layer LayerName, kind Kind, tokens int) {
	if m == nil || !m.initialized {
		return
	}
	m.fragmentAddedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("layer", string(layer)),
		attribute.String("kind", string(kind)),
	))
	m.fragmentStoredCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("layer", string(layer)),
	))
}

// RecordEvicted records fragments leaving a layer. Reason is one of "age",
// "capacity", or "cleanup".
func (m *Metrics) RecordEvicted(ctx context.Context, layer LayerName, reason string, count int) {
	if m == nil || !m.initialized || count <= 0 {
		return
	}
	m.fragmentEvictedTotal.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("layer", string(layer)),
		attribute.String("reason", reason),
	))
	m.fragmentStoredCount.Add(ctx, -int64(count), metric.WithAttributes(
		attribute.String("layer", string(layer)),
	))
}

// RecordCondensed records a produced summary.
func (m *Metrics) RecordCondensed(ctx context.Context, strategy Strategy, items, tokensUsed, budget int) {
	if m == nil || !m.initialized {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("strategy", string(strategy)),
	)
	m.summaryTotal.Add(ctx, 1, attrs)
	m.summaryTokens.Record(ctx, int64(tokensUsed), attrs)
	if budget > 0 {
		m.budgetUtilization.Record(ctx, float64(tokensUsed)/float64(budget), attrs)
	}
}

// Tracer returns a tracer for the condense package.
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
