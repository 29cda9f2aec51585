package events

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Logger wraps zap.Logger with event-specific structured logging.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger. If logger is nil, uses a no-op logger.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("events")}
}

// Published logs a delivered event.
func (l *Logger) Published(ctx context.Context, threadID, event string) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("thread_id", threadID),
		zap.String("event", event),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Debug("event published", fields...)
}

// PublishFailed logs a dropped event. The turn continues regardless.
func (l *Logger) PublishFailed(ctx context.Context, threadID, event string, err error) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("thread_id", threadID),
		zap.String("event", event),
		zap.Error(err),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Warn("event publish failed", fields...)
}

// traceFields extracts trace context from the context.
func (l *Logger) traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	sc := span.SpanContext()
	fields := []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
	if sc.IsSampled() {
		fields = append(fields, zap.Bool("trace_sampled", true))
	}
	return fields
}
