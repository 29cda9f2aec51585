package orchestrator

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
	InstrumentationName = "github.com/fyrsmithlabs/agentd/internal/orchestrator"
)

// Metrics provides OpenTelemetry metrics for the orchestrator. Thread IDs
// are never used as attributes; values come from the closed node, mode, and
// status sets.
type Metrics struct {
	turnsTotal     metric.Int64Counter
	turnDuration   metric.Float64Histogram
	nodesTotal     metric.Int64Counter
	nodeDuration   metric.Float64Histogram
	iterations     metric.Int64Histogram
	clarifications metric.Int64Counter

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

	m.turnsTotal, err = meter.Int64Counter(
		"orchestrator.turns.total",
		metric.WithDescription("Total workflow turns by mode and outcome"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		return nil, err
	}

	m.turnDuration, err = meter.Float64Histogram(
		"orchestrator.turn.duration",
		metric.WithDescription("Wall-clock duration of a workflow turn"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(10, 50, 100, 500, 1000, 5000, 10000, 30000, 60000, 120000),
	)
	if err != nil {
		return nil, err
	}

	m.nodesTotal, err = meter.Int64Counter(
		"orchestrator.nodes.total",
		metric.WithDescription("Total node visits by node"),
		metric.WithUnit("{visit}"),
	)
	if err != nil {
		return nil, err
	}

	m.nodeDuration, err = meter.Float64Histogram(
		"orchestrator.node.duration",
		metric.WithDescription("Duration of a single node visit"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 10, 50, 100, 500, 1000, 5000, 10000, 30000, 60000),
	)
	if err != nil {
		return nil, err
	}

	m.iterations, err = meter.Int64Histogram(
		"orchestrator.turn.iterations",
		metric.WithDescription("Reviewer iterations per completed turn"),
		metric.WithUnit("{iteration}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 4, 5),
	)
	if err != nil {
		return nil, err
	}

	m.clarifications, err = meter.Int64Counter(
		"orchestrator.clarifications.total",
		metric.WithDescription("Clarification pauses by requesting node"),
		metric.WithUnit("{pause}"),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordTurn records one finished turn. Mode is "run" or "resume"; status is
// "complete", "paused", or "failed".
func (m *Metrics) RecordTurn(ctx context.Context, mode, status string, d time.Duration) {
	if m == nil || !m.initialized {
		return
	}
	m.turnsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", status),
	))
	m.turnDuration.Record(ctx, float64(d.Microseconds())/1000.0, metric.WithAttributes(
		attribute.String("status", status),
	))
}

// RecordNode records one node visit.
func (m *Metrics) RecordNode(ctx context.Context, node Node, d time.Duration) {
	if m == nil || !m.initialized {
		return
	}
	attrs := metric.WithAttributes(attribute.String("node", string(node)))
	m.nodesTotal.Add(ctx, 1, attrs)
	m.nodeDuration.Record(ctx, float64(d.Microseconds())/1000.0, attrs)
}

// RecordIterations records the reviewer iteration count of a completed turn.
func (m *Metrics) RecordIterations(ctx context.Context, n int) {
	if m == nil || !m.initialized {
		return
	}
	m.iterations.Record(ctx, int64(n))
}

// RecordClarification records one clarification pause.
func (m *Metrics) RecordClarification(ctx context.Context, fromNode string) {
	if m == nil || !m.initialized {
		return
	}
	m.clarifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from_node", fromNode),
	))
}

// Tracer returns a tracer for the orchestrator package.
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
