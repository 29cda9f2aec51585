package condense

import (
	"time"
)

// Kind classifies a fragment of conversational history.
type Kind string

const (
	KindDecision   Kind = "decision"
	KindAction     Kind = "action"
	KindResult     Kind = "result"
	KindLearning   Kind = "learning"
	KindDependency Kind = "dependency"
	KindMetadata   Kind = "metadata"
)

// AllKinds returns every valid fragment kind.
func AllKinds() []Kind {
	return []Kind{KindDecision, KindAction, KindResult, KindLearning, KindDependency, KindMetadata}
}

// Valid reports whether k is a recognized kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDecision, KindAction, KindResult, KindLearning, KindDependency, KindMetadata:
		return true
	}
	return false
}

// LayerName identifies one of the four context layers.
type LayerName string

const (
	LayerImmediate  LayerName = "immediate"
	LayerShortTerm  LayerName = "short_term"
	LayerMediumTerm LayerName = "medium_term"
	LayerLongTerm   LayerName = "long_term"
)

// LayerOrder returns the layers in declaration order, from most to least
// volatile. Comprehensive condensation and stats reporting iterate in this
// order.
func LayerOrder() []LayerName {
	return []LayerName{LayerImmediate, LayerShortTerm, LayerMediumTerm, LayerLongTerm}
}

// TargetLayer selects the layer a fragment belongs to. High-importance
// fragments and durable kinds (decisions, learnings) land in long_term;
// transient low-importance fragments land in immediate. The thresholds are
// strict: importance exactly 0.8 with a metadata kind goes to medium_term,
// not long_term.
func TargetLayer(kind Kind, importance float64) LayerName {
	switch {
	case importance > 0.8 || kind == KindDecision || kind == KindLearning:
		return LayerLongTerm
	case importance > 0.6 || kind == KindResult || kind == KindDependency:
		return LayerMediumTerm
	case importance > 0.4 || kind == KindAction:
		return LayerShortTerm
	default:
		return LayerImmediate
	}
}

// Fragment is an immutable unit of condensable history. Once created a
// fragment is never mutated; it leaves the manager only through layer
// retention or an explicit cleanup sweep.
type Fragment struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	Importance    float64   `json:"importance"`
	TokenEstimate int       `json:"token_estimate"`
	Source        string    `json:"source"`
	Tags          []string  `json:"tags,omitempty"`
}

// Age returns how long ago the fragment was created.
func (f *Fragment) Age(now time.Time) time.Duration {
	return now.Sub(f.CreatedAt)
}

// HasTag reports whether the fragment carries the given tag.
func (f *Fragment) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LayerConfig bounds a single layer. MaxAge zero means the layer has no age
// bound; MaxItems must be positive.
type LayerConfig struct {
	MaxItems int           `json:"max_items" koanf:"max_items"`
	MaxAge   time.Duration `json:"max_age" koanf:"max_age"`

	// CompressionThreshold is the fullness ratio above which a layer's
	// fragments become candidates for summarization. Reserved for a future
	// compression pass; retention ignores it.
	CompressionThreshold float64 `json:"compression_threshold,omitempty" koanf:"compression_threshold"`
}

// Config holds configuration for the condensation manager.
type Config struct {
	TokenBudget int         `json:"token_budget" koanf:"token_budget"`
	Immediate   LayerConfig `json:"immediate" koanf:"immediate"`
	ShortTerm   LayerConfig `json:"short_term" koanf:"short_term"`
	MediumTerm  LayerConfig `json:"medium_term" koanf:"medium_term"`
	LongTerm    LayerConfig `json:"long_term" koanf:"long_term"`
}

// Default configuration values.
const (
	DefaultTokenBudget = 4000
	DefaultImportance  = 0.5
	MaxContentLength   = 50000
)

// DefaultConfig returns sensible defaults. The more durable the layer, the
// larger and longer-lived it is.
func DefaultConfig() *Config {
	return &Config{
		TokenBudget: DefaultTokenBudget,
		Immediate:   LayerConfig{MaxItems: 10, MaxAge: 30 * time.Minute, CompressionThreshold: 0.8},
		ShortTerm:   LayerConfig{MaxItems: 20, MaxAge: 2 * time.Hour, CompressionThreshold: 0.8},
		MediumTerm:  LayerConfig{MaxItems: 50, MaxAge: 24 * time.Hour, CompressionThreshold: 0.8},
		LongTerm:    LayerConfig{MaxItems: 100, MaxAge: 7 * 24 * time.Hour, CompressionThreshold: 0.8},
	}
}

// Validate checks the configuration for programming errors.
func (c *Config) Validate() error {
	if c.TokenBudget <= 0 {
		return ErrInvalidBudget
	}
	for _, lc := range []LayerConfig{c.Immediate, c.ShortTerm, c.MediumTerm, c.LongTerm} {
		if lc.MaxItems <= 0 {
			return ErrInvalidLayerConfig
		}
		if lc.MaxAge < 0 {
			return ErrInvalidLayerConfig
		}
		if lc.CompressionThreshold < 0 || lc.CompressionThreshold > 1 {
			return ErrInvalidLayerConfig
		}
	}
	return nil
}

// Layer returns the config for the named layer.
func (c *Config) Layer(name LayerName) LayerConfig {
	switch name {
	case LayerImmediate:
		return c.Immediate
	case LayerShortTerm:
		return c.ShortTerm
	case LayerMediumTerm:
		return c.MediumTerm
	case LayerLongTerm:
		return c.LongTerm
	}
	return LayerConfig{}
}

// AddFragmentRequest carries one fragment into the manager.
type AddFragmentRequest struct {
	Content    string   `json:"content"`
	Kind       Kind     `json:"kind"`
	Importance float64  `json:"importance,omitempty"`
	Source     string   `json:"source"`
	Tags       []string `json:"tags,omitempty"`
}

// Validate checks the request fields.
func (r *AddFragmentRequest) Validate() error {
	if len(r.Content) == 0 {
		return ErrEmptyContent
	}
	if len(r.Content) > MaxContentLength {
		return ErrContentTooLong
	}
	if !r.Kind.Valid() {
		return ErrUnknownKind
	}
	if r.Importance < 0 || r.Importance > 1 {
		return ErrInvalidImportance
	}
	if r.Source == "" {
		return ErrEmptySource
	}
	return nil
}

// ApplyDefaults sets default values for optional fields. An importance of
// zero is treated as unset and raised to DefaultImportance.
func (r *AddFragmentRequest) ApplyDefaults() {
	if r.Importance == 0 {
		r.Importance = DefaultImportance
	}
}

// Summary is the token-budgeted condensed view of the stored fragments.
// Memory buckets hold fragment contents grouped by source layer; the
// immediate layer folds into the short-term bucket.
type Summary struct {
	ShortTermMemory      []string `json:"short_term_memory"`
	MediumTermMemory     []string `json:"medium_term_memory"`
	LongTermMemory       []string `json:"long_term_memory"`
	TokenBudgetRemaining int      `json:"token_budget_remaining"`
	Strategy             Strategy `json:"strategy"`
}

// Empty reports whether no fragment made it into the summary.
func (s *Summary) Empty() bool {
	return len(s.ShortTermMemory) == 0 && len(s.MediumTermMemory) == 0 && len(s.LongTermMemory) == 0
}

// Render formats the summary as a prompt section. Buckets appear from most
// durable to most recent; empty buckets are omitted. Returns "" for an empty
// summary.
func (s *Summary) Render() string {
	if s.Empty() {
		return ""
	}
	var b []byte
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		if len(b) > 0 {
			b = append(b, '\n')
		}
		b = append(b, "## "...)
		b = append(b, title...)
		b = append(b, '\n')
		for _, item := range items {
			b = append(b, "- "...)
			b = append(b, item...)
			b = append(b, '\n')
		}
	}
	section("Established context", s.LongTermMemory)
	section("Working context", s.MediumTermMemory)
	section("Recent activity", s.ShortTermMemory)
	return string(b)
}

// LayerStats reports item and token counts for one layer.
type LayerStats struct {
	Items  int `json:"items"`
	Tokens int `json:"tokens"`
}

// Stats is a read-only snapshot of the manager's contents.
type Stats struct {
	TotalItems   int                      `json:"total_items"`
	TotalTokens  int                      `json:"total_tokens"`
	SessionItems int                      `json:"session_items"`
	Layers       map[LayerName]LayerStats `json:"layers"`
}

// estimateTokens approximates the token cost of content at four characters
// per token.
func estimateTokens(content string) int {
	return len(content) / 4
}
