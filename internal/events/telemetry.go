package events

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// InstrumentationName is the name used for OTEL instrumentation.
	InstrumentationName = "github.com/fyrsmithlabs/agentd/internal/events"
)

// Metrics counts published lifecycle events. Thread IDs are never used as
// attributes; values are limited to the closed event-name set.
type Metrics struct {
	publishedTotal metric.Int64Counter

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

	m.publishedTotal, err = meter.Int64Counter(
		"events.published.total",
		metric.WithDescription("Lifecycle events published by event name and status"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordPublish records one publish attempt. Status is "ok" or "error".
func (m *Metrics) RecordPublish(ctx context.Context, event string, err error) {
	if m == nil || !m.initialized {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.publishedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("status", status),
	))
}
