package agents

// Option configures a collaborator.
type Option func(*options)

type options struct {
	logger  *Logger
	metrics *Metrics
}

func defaultOptions() *options {
	metrics, _ := NewMetrics(nil)
	return &options{
		logger:  NewLogger(nil),
		metrics: metrics,
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets custom metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
