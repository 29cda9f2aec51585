package agents

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Logger wraps zap.Logger with collaborator-specific structured logging.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger. If logger is nil, uses a no-op logger.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("agents")}
}

// GenerateFailed logs a collaborator LLM call failure. The turn continues;
// the failure travels as an error message.
func (l *Logger) GenerateFailed(ctx context.Context, role string, err error) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("role", role),
		zap.Error(err),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Error("generation failed", fields...)
}

// ParseFallback logs a malformed collaborator response replaced by the
// deterministic fallback value.
func (l *Logger) ParseFallback(ctx context.Context, role string) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("role", role),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Warn("unparseable response, using fallback", fields...)
}

// ClarificationRaised logs a collaborator asking for user input.
func (l *Logger) ClarificationRaised(ctx context.Context, role string, questions int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("role", role),
		zap.Int("questions", questions),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Info("clarification requested", fields...)
}

// PlanProduced logs a completed planning call.
func (l *Logger) PlanProduced(ctx context.Context, mode Mode, steps, iteration int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("mode", string(mode)),
		zap.Int("steps", steps),
		zap.Int("iteration", iteration),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Debug("plan produced", fields...)
}

// ExecutionProduced logs a completed execution call.
func (l *Logger) ExecutionProduced(ctx context.Context, outputChars, iteration int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.Int("output_chars", outputChars),
		zap.Int("iteration", iteration),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Debug("execution produced", fields...)
}

// ReviewProduced logs a completed review call.
func (l *Logger) ReviewProduced(ctx context.Context, qualityScore float64, needsIteration bool) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.Float64("quality_score", qualityScore),
		zap.Bool("needs_iteration", needsIteration),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Debug("review produced", fields...)
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
