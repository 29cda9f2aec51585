package checkpoint

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Service wraps a Store with logging and telemetry. It satisfies Store, so
// callers depend on the interface and wiring decides whether ops are
// observed.
type Service struct {
	store   Store
	backend string
	logger  *Logger
	metrics *Metrics
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l *Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithMetrics sets custom metrics for the service.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService wraps the store. Backend is recorded as a metric attribute.
func NewService(store Store, opts ...ServiceOption) *Service {
	metrics, _ := NewMetrics(nil)
	s := &Service{
		store:   store,
		backend: backendName(store),
		logger:  NewLogger(nil),
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func backendName(store Store) string {
	switch store.(type) {
	case *MemoryStore:
		return "memory"
	case *FileStore:
		return "file"
	default:
		return "custom"
	}
}

// Save persists the checkpoint and records the pause.
func (s *Service) Save(ctx context.Context, cp *Checkpoint) error {
	ctx, span := StartSpan(ctx, "checkpoint.save",
		attribute.String("thread_id", cp.ThreadID),
		attribute.String("paused_node", cp.PausedNode),
	)
	defer span.End()

	start := time.Now()
	err := s.store.Save(ctx, cp)
	s.metrics.RecordOp(ctx, s.backend, "save", err, time.Since(start))
	if err != nil {
		RecordError(ctx, err)
		SetSpanStatus(ctx, codes.Error, "save failed")
		s.logger.OpFailed(ctx, "save", cp.ThreadID, err)
		return err
	}
	s.logger.Saved(ctx, cp.ThreadID, cp.PausedNode, len(cp.State))
	return nil
}

// Load retrieves the checkpoint for a thread.
func (s *Service) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	ctx, span := StartSpan(ctx, "checkpoint.load",
		attribute.String("thread_id", threadID),
	)
	defer span.End()

	start := time.Now()
	cp, err := s.store.Load(ctx, threadID)
	s.metrics.RecordOp(ctx, s.backend, "load", err, time.Since(start))
	if err != nil {
		RecordError(ctx, err)
		SetSpanStatus(ctx, codes.Error, "load failed")
		s.logger.OpFailed(ctx, "load", threadID, err)
		return nil, err
	}
	s.logger.Loaded(ctx, threadID, cp.PausedNode)
	return cp, nil
}

// Delete removes the checkpoint for a thread.
func (s *Service) Delete(ctx context.Context, threadID string) error {
	ctx, span := StartSpan(ctx, "checkpoint.delete",
		attribute.String("thread_id", threadID),
	)
	defer span.End()

	start := time.Now()
	err := s.store.Delete(ctx, threadID)
	s.metrics.RecordOp(ctx, s.backend, "delete", err, time.Since(start))
	if err != nil {
		RecordError(ctx, err)
		SetSpanStatus(ctx, codes.Error, "delete failed")
		s.logger.OpFailed(ctx, "delete", threadID, err)
		return err
	}
	s.logger.Deleted(ctx, threadID)
	return nil
}

// List returns all checkpoints, most recently updated first.
func (s *Service) List(ctx context.Context) ([]*Checkpoint, error) {
	ctx, span := StartSpan(ctx, "checkpoint.list")
	defer span.End()

	start := time.Now()
	cps, err := s.store.List(ctx)
	s.metrics.RecordOp(ctx, s.backend, "list", err, time.Since(start))
	if err != nil {
		RecordError(ctx, err)
		SetSpanStatus(ctx, codes.Error, "list failed")
		s.logger.OpFailed(ctx, "list", "", err)
		return nil, err
	}
	return cps, nil
}

// Close closes the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

var _ Store = (*Service)(nil)
