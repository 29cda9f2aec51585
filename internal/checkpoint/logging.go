package checkpoint

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Logger wraps zap.Logger with checkpoint-specific structured logging.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger. If logger is nil, uses a no-op logger.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("checkpoint")}
}

// Saved logs a persisted pause.
func (l *Logger) Saved(ctx context.Context, threadID, pausedNode string, stateBytes int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("thread_id", threadID),
		zap.String("paused_node", pausedNode),
		zap.Int("state_bytes", stateBytes),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Info("checkpoint saved", fields...)
}

// Loaded logs a checkpoint read.
func (l *Logger) Loaded(ctx context.Context, threadID, pausedNode string) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("thread_id", threadID),
		zap.String("paused_node", pausedNode),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Debug("checkpoint loaded", fields...)
}

// Deleted logs a checkpoint removal.
func (l *Logger) Deleted(ctx context.Context, threadID string) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("thread_id", threadID),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Info("checkpoint deleted", fields...)
}

// OpFailed logs a failed store operation.
func (l *Logger) OpFailed(ctx context.Context, op, threadID string, err error) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("op", op),
		zap.Error(err),
	}
	if threadID != "" {
		fields = append(fields, zap.String("thread_id", threadID))
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Error("checkpoint operation failed", fields...)
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
