package secrets

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Scrubber detects and redacts secrets from content.
type Scrubber interface {
	// Scrub redacts secrets from the content, returning scrubbed version.
	Scrub(content string) (string, error)

	// Check detects secrets without redacting.
	Check(content string) (*Result, error)

	// IsEnabled returns whether scrubbing is enabled.
	IsEnabled() bool
}

// scrubber is the default implementation backed by a Gitleaks detector.
type scrubber struct {
	config   *Config
	detector *Detector

	// DetectString shares detector state; serialize access.
	mu sync.Mutex
}

// New creates a new Scrubber with the given configuration.
// If config is nil, DefaultConfig() is used.
func New(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Enabled {
		return &NoopScrubber{}, nil
	}

	allowlist, err := LoadAllowlists(cfg.ProjectPath, cfg.UserAllowlistPath)
	if err != nil {
		return nil, fmt.Errorf("loading allowlists: %w", err)
	}
	allowlist.Regexes = append(allowlist.Regexes, cfg.AllowRegexes...)

	detector, err := NewDetector(allowlist)
	if err != nil {
		return nil, err
	}

	return &scrubber{
		config:   cfg,
		detector: detector,
	}, nil
}

// MustNew creates a new Scrubber, panicking on error.
func MustNew(cfg *Config) Scrubber {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Scrub redacts secrets from the content.
func (s *scrubber) Scrub(content string) (string, error) {
	result, err := s.scan(content)
	if err != nil {
		return "", err
	}
	return result.Scrubbed, nil
}

// Check detects secrets without redacting.
func (s *scrubber) Check(content string) (*Result, error) {
	result, err := s.scan(content)
	if err != nil {
		return nil, err
	}
	result.Scrubbed = result.Original
	return result, nil
}

// IsEnabled returns whether scrubbing is enabled.
func (s *scrubber) IsEnabled() bool {
	return s.config.Enabled
}

// scan runs detection and builds a redacted result.
func (s *scrubber) scan(content string) (*Result, error) {
	start := time.Now()

	s.mu.Lock()
	matches := s.detector.Detect(content)
	s.mu.Unlock()

	result := &Result{
		Original: content,
		Scrubbed: content,
		Findings: make([]Finding, 0, len(matches)),
		ByRule:   make(map[string]int),
	}

	for _, m := range matches {
		result.Findings = append(result.Findings, Finding{
			RuleID:      m.RuleID,
			Description: m.Description,
			Line:        m.Line,
			Preview:     preview(m.Secret, 4),
		})
		result.ByRule[m.RuleID]++
	}
	result.TotalFindings = len(matches)

	if len(matches) > 0 {
		result.Scrubbed = s.redact(content, matches)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// redact replaces every occurrence of each detected secret value with a
// [MARKER:rule-id:prev] marker. Longer secrets are replaced first so a
// secret that contains another as a substring does not leave fragments
// behind.
func (s *scrubber) redact(content string, matches []Match) string {
	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i].Secret) > len(sorted[j].Secret)
	})

	for _, m := range sorted {
		if m.Secret == "" {
			continue
		}
		marker := fmt.Sprintf("[%s:%s:%s]", s.config.RedactionMarker, m.RuleID, preview(m.Secret, 4))
		content = strings.ReplaceAll(content, m.Secret, marker)
	}
	return content
}

// preview returns the first n characters of a string.
func preview(v string, n int) string {
	if len(v) <= n {
		return v
	}
	return v[:n]
}

// NoopScrubber is a scrubber that does nothing (for testing or disabled mode).
type NoopScrubber struct{}

// Scrub returns content unchanged.
func (n *NoopScrubber) Scrub(content string) (string, error) {
	return content, nil
}

// Check returns an empty result.
func (n *NoopScrubber) Check(content string) (*Result, error) {
	return &Result{
		Original: content,
		Scrubbed: content,
		Findings: make([]Finding, 0),
		ByRule:   make(map[string]int),
	}, nil
}

// IsEnabled returns false.
func (n *NoopScrubber) IsEnabled() bool {
	return false
}

// Compile-time check that implementations satisfy Scrubber.
var (
	_ Scrubber = (*scrubber)(nil)
	_ Scrubber = (*NoopScrubber)(nil)
)
