package condense

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Manager owns the four context layers plus the append-only session trail.
// One Manager serves one workflow session and lives until the session ends
// or Reset is called. All methods are safe for concurrent use.
type Manager struct {
	cfg      *Config
	scrubber SecretScrubber
	metrics  *Metrics
	logger   *Logger
	now      func() time.Time

	mu      sync.RWMutex
	layers  map[LayerName]*layer
	session []*Fragment
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMetrics sets custom metrics for the manager.
func WithMetrics(m *Metrics) ManagerOption {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// WithLogger sets a custom logger for the manager.
func WithLogger(l *Logger) ManagerOption {
	return func(mgr *Manager) {
		mgr.logger = l
	}
}

// WithScrubber sets a secret scrubber applied to fragment content before
// storage. If not set, content is stored as given.
func WithScrubber(s SecretScrubber) ManagerOption {
	return func(mgr *Manager) {
		mgr.scrubber = s
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(mgr *Manager) {
		mgr.now = now
	}
}

// NewManager creates a condensation manager. A nil config uses defaults; a
// config with a zero or negative token budget is rejected with
// ErrInvalidBudget.
func NewManager(cfg *Config, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Initialize with defaults
	metrics, _ := NewMetrics(nil)
	logger := NewLogger(nil)

	m := &Manager{
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		layers:  make(map[LayerName]*layer, len(LayerOrder())),
	}
	for _, name := range LayerOrder() {
		m.layers[name] = newLayer(name, cfg.Layer(name))
	}

	// Apply options
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// TokenBudget returns the configured total token budget.
func (m *Manager) TokenBudget() int {
	return m.cfg.TokenBudget
}

// AddFragment records one fragment of history. The token cost is estimated
// from content length, a target layer is selected from kind and importance,
// and that layer's retention policy runs before the call returns. The
// fragment is also appended to the session trail, which retention never
// touches. Returns the new fragment's ID.
func (m *Manager) AddFragment(ctx context.Context, req AddFragmentRequest) (string, error) {
	ctx, span := StartSpan(ctx, "condense.add_fragment")
	defer span.End()

	if err := req.Validate(); err != nil {
		RecordError(ctx, err)
		SetSpanStatus(ctx, codes.Error, "validation failed")
		return "", err
	}
	req.ApplyDefaults()

	content := req.Content
	if m.scrubber != nil {
		scrubbed, err := m.scrubber.Scrub(content)
		if err != nil {
			m.logger.Error(ctx, "fragment scrubbing failed", err)
			RecordError(ctx, err)
			SetSpanStatus(ctx, codes.Error, "scrubbing failed")
			return "", fmt.Errorf("%w: %v", ErrScrubbingFailed, err)
		}
		content = scrubbed
	}

	frag := &Fragment{
		ID:            "frag_" + uuid.New().String()[:8],
		Kind:          req.Kind,
		Content:       content,
		CreatedAt:     m.now(),
		Importance:    req.Importance,
		TokenEstimate: estimateTokens(content),
		Source:        req.Source,
		Tags:          append([]string(nil), req.Tags...),
	}
	target := TargetLayer(frag.Kind, frag.Importance)

	m.mu.Lock()
	l := m.layers[target]
	l.add(frag)
	m.session = append(m.session, frag)
	byAge, byCapacity := l.retain(frag.CreatedAt)
	m.mu.Unlock()

	m.logger.FragmentAdded(ctx, frag.ID, target, frag.Kind, frag.TokenEstimate, frag.Importance)
	m.metrics.RecordFragmentAdded(ctx, target, frag.Kind, frag.TokenEstimate)
	if byAge > 0 || byCapacity > 0 {
		m.logger.FragmentsEvicted(ctx, target, byAge, byCapacity)
		m.metrics.RecordEvicted(ctx, target, "age", byAge)
		m.metrics.RecordEvicted(ctx, target, "capacity", byCapacity)
	}

	return frag.ID, nil
}

// Condensed produces a token-budgeted summary using the manager's configured
// budget.
func (m *Manager) Condensed(ctx context.Context, strategy Strategy) (*Summary, error) {
	return m.CondensedWithBudget(ctx, strategy, m.cfg.TokenBudget)
}

// CondensedWithBudget produces a summary under an explicit budget. The
// summary's total estimated tokens never exceed the budget; when nothing
// fits, the summary is empty and the full budget is reported as remaining.
// A zero or negative budget is rejected with ErrInvalidBudget.
func (m *Manager) CondensedWithBudget(ctx context.Context, strategy Strategy, budget int) (*Summary, error) {
	ctx, span := StartSpan(ctx, "condense.condensed",
		attribute.String("strategy", string(strategy)),
	)
	defer span.End()

	if !strategy.Valid() {
		RecordError(ctx, ErrUnknownStrategy)
		SetSpanStatus(ctx, codes.Error, "unknown strategy")
		return nil, ErrUnknownStrategy
	}
	if budget <= 0 {
		RecordError(ctx, ErrInvalidBudget)
		SetSpanStatus(ctx, codes.Error, "invalid budget")
		return nil, ErrInvalidBudget
	}

	m.mu.RLock()
	all := m.collectLocked()
	m.mu.RUnlock()

	selected := selectFragments(strategy, all, budget)
	summary := buildSummary(strategy, selected, budget)

	used := budget - summary.TokenBudgetRemaining
	if summary.Empty() {
		m.logger.Debug(ctx, "condensed summary empty",
			zap.String("strategy", string(strategy)),
			zap.Int("stored_items", len(all)),
		)
	}
	m.logger.ContextCondensed(ctx, strategy, len(selected), used, budget)
	m.metrics.RecordCondensed(ctx, strategy, len(selected), used, budget)

	return summary, nil
}

// CleanupOldContext removes fragments older than maxAge from every layer.
// The sweep is idempotent and never touches the session trail. A maxAge of
// zero or less clears every layer. Returns the number of fragments removed.
func (m *Manager) CleanupOldContext(ctx context.Context, maxAge time.Duration) int {
	ctx, span := StartSpan(ctx, "condense.cleanup")
	defer span.End()

	now := m.now()
	removed := 0
	perLayer := make(map[LayerName]int, len(LayerOrder()))

	m.mu.Lock()
	for _, name := range LayerOrder() {
		n := m.layers[name].sweep(maxAge, now)
		perLayer[name] = n
		removed += n
	}
	m.mu.Unlock()

	m.logger.CleanupRun(ctx, maxAge, removed)
	for name, n := range perLayer {
		m.metrics.RecordEvicted(ctx, name, "cleanup", n)
	}

	return removed
}

// Stats returns a read-only snapshot of item and token counts. No side
// effects.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{
		SessionItems: len(m.session),
		Layers:       make(map[LayerName]LayerStats, len(LayerOrder())),
	}
	for _, name := range LayerOrder() {
		ls := m.layers[name].stats()
		s.Layers[name] = ls
		s.TotalItems += ls.Items
		s.TotalTokens += ls.Tokens
	}
	return s
}

// SessionItems returns the append-only session trail in insertion order.
// Fragments are immutable; callers must not modify them.
func (m *Manager) SessionItems() []*Fragment {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Fragment, len(m.session))
	copy(out, m.session)
	return out
}

// Reset clears every layer and starts a new session trail.
func (m *Manager) Reset(ctx context.Context) {
	m.mu.Lock()
	dropped := len(m.session)
	for _, name := range LayerOrder() {
		m.layers[name] = newLayer(name, m.cfg.Layer(name))
	}
	m.session = nil
	m.mu.Unlock()

	m.logger.SessionReset(ctx, dropped)
}

// collectLocked flattens the layers in declaration order, insertion order
// within each layer. Caller must hold at least a read lock.
func (m *Manager) collectLocked() []layeredFragment {
	var all []layeredFragment
	for _, name := range LayerOrder() {
		for _, f := range m.layers[name].items {
			all = append(all, layeredFragment{frag: f, layer: name})
		}
	}
	return all
}
