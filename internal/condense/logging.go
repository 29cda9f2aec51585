package condense

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Logger wraps zap.Logger with condensation-specific structured logging.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger. If logger is nil, uses a no-op logger.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("condense")}
}

// FragmentAdded logs a fragment insertion.
func (l *Logger) FragmentAdded(ctx context.Context, fragmentID string, layer LayerName, kind Kind, tokens int, importance float64) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("fragment_id", fragmentID),
		zap.String("layer", string(layer)),
		zap.String("kind", string(kind)),
		zap.Int("tokens", tokens),
		zap.Float64("importance", importance),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Debug("fragment added", fields...)
}

// FragmentsEvicted logs retention removing fragments from a layer.
func (l *Logger) FragmentsEvicted(ctx context.Context, layer LayerName, byAge, byCapacity int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("layer", string(layer)),
		zap.Int("evicted_by_age", byAge),
		zap.Int("evicted_by_capacity", byCapacity),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Debug("fragments evicted", fields...)
}

// ContextCondensed logs a produced summary.
func (l *Logger) ContextCondensed(ctx context.Context, strategy Strategy, items, tokensUsed, budget int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("strategy", string(strategy)),
		zap.Int("items", items),
		zap.Int("tokens_used", tokensUsed),
		zap.Int("token_budget", budget),
		zap.Float64("budget_utilization", budgetUtilization(tokensUsed, budget)),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Info("context condensed", fields...)
}

// CleanupRun logs an explicit cleanup sweep.
func (l *Logger) CleanupRun(ctx context.Context, maxAge time.Duration, removed int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.Duration("max_age", maxAge),
		zap.Int("removed", removed),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Info("context cleanup", fields...)
}

// SessionReset logs the manager dropping all state.
func (l *Logger) SessionReset(ctx context.Context, droppedItems int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.Int("dropped_items", droppedItems),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Info("session reset", fields...)
}

// Error logs an error with context.
func (l *Logger) Error(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if l == nil || l.logger == nil {
		return
	}
	allFields := l.traceFields(ctx)
	allFields = append(allFields, zap.Error(err))
	allFields = append(allFields, fields...)
	l.logger.Error(msg, allFields...)
}

// Debug logs a debug message with context.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	if l == nil || l.logger == nil {
		return
	}
	allFields := l.traceFields(ctx)
	allFields = append(allFields, fields...)
	l.logger.Debug(msg, allFields...)
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

// budgetUtilization calculates budget utilization ratio.
func budgetUtilization(used, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(used) / float64(total)
}
