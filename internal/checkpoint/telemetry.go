package checkpoint

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// InstrumentationName is the name used for OTEL instrumentation.
	InstrumentationName = "github.com/fyrsmithlabs/agentd/internal/checkpoint"
)

// Metrics provides OpenTelemetry metrics for the checkpoint package. Thread
// IDs are never used as attributes; values are limited to the closed
// backend/op/status sets.
type Metrics struct {
	opsTotal   metric.Int64Counter
	opDuration metric.Float64Histogram

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

	m.opsTotal, err = meter.Int64Counter(
		"checkpoint.ops.total",
		metric.WithDescription("Total checkpoint store operations by op and status"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	m.opDuration, err = meter.Float64Histogram(
		"checkpoint.op.duration",
		metric.WithDescription("Checkpoint store operation duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100, 500),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordOp records one store operation. Status is "ok", "not_found", or
// "error".
func (m *Metrics) RecordOp(ctx context.Context, backend, op string, err error, d time.Duration) {
	if m == nil || !m.initialized {
		return
	}
	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("op", op),
		attribute.String("status", status),
	)
	m.opsTotal.Add(ctx, 1, attrs)
	m.opDuration.Record(ctx, float64(d.Microseconds())/1000.0, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("op", op),
	))
}

// Tracer returns a tracer for the checkpoint package.
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
