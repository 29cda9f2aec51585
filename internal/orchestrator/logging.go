package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Logger wraps zap.Logger with workflow-specific structured logging.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger. If logger is nil, uses a no-op logger.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("orchestrator")}
}

// TurnStarted logs the start of a turn.
func (l *Logger) TurnStarted(ctx context.Context, threadID string, resumed bool) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("thread_id", threadID),
		zap.Bool("resumed", resumed),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Info("turn started", fields...)
}

// NodeCompleted logs one completed node visit.
func (l *Logger) NodeCompleted(ctx context.Context, threadID string, node Node, iteration int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("thread_id", threadID),
		zap.String("node", string(node)),
		zap.Int("iteration", iteration),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Debug("node completed", fields...)
}

// TurnPaused logs a clarification pause.
func (l *Logger) TurnPaused(ctx context.Context, threadID, fromNode string, questions int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("thread_id", threadID),
		zap.String("from_node", fromNode),
		zap.Int("questions", questions),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Info("turn paused for clarification", fields...)
}

// TurnCompleted logs a finished turn.
func (l *Logger) TurnCompleted(ctx context.Context, threadID string, iterations, responseBytes int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("thread_id", threadID),
		zap.Int("iterations", iterations),
		zap.Int("response_bytes", responseBytes),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Info("turn completed", fields...)
}

// TurnFailed logs a turn that could not finish.
func (l *Logger) TurnFailed(ctx context.Context, threadID string, err error) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("thread_id", threadID),
		zap.Error(err),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Error("turn failed", fields...)
}

// CondenseFailed logs a context condensation failure during prompting.
func (l *Logger) CondenseFailed(ctx context.Context, threadID string, err error) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("thread_id", threadID),
		zap.Error(err),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Warn("context condensation failed, prompting without summary", fields...)
}

// FragmentSkipped logs a session fragment that could not be recorded.
func (l *Logger) FragmentSkipped(ctx context.Context, threadID string, err error) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("thread_id", threadID),
		zap.Error(err),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Warn("fragment recording skipped", fields...)
}

// CheckpointClearFailed logs a leftover checkpoint that could not be
// removed after a completed turn.
func (l *Logger) CheckpointClearFailed(ctx context.Context, threadID string, err error) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("thread_id", threadID),
		zap.Error(err),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Warn("stale checkpoint not cleared", fields...)
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
