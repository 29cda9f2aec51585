package secrets

import (
	"fmt"
	"regexp"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// Match is a detected secret with its value. Matches stay inside this
// package; exported results carry Finding, which omits the value.
type Match struct {
	RuleID      string
	Description string
	Secret      string
	Line        int
}

// Detector scans content for secrets using the Gitleaks SDK with its default
// ruleset (800+ patterns). Building the underlying detector is expensive, so
// a Detector is constructed once and reused across scans.
type Detector struct {
	detector *detect.Detector
}

// NewDetector creates a detector with the default Gitleaks config plus the
// given allowlist (nil to skip).
func NewDetector(allowlist *Allowlist) (*Detector, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetectorInit, err)
	}

	if allowlist != nil {
		applyAllowlist(&detector.Config, allowlist)
	}

	return &Detector{detector: detector}, nil
}

// Detect scans content and returns all matches.
func (d *Detector) Detect(content string) []Match {
	findings := d.detector.DetectString(content)

	result := make([]Match, 0, len(findings))
	for _, f := range findings {
		result = append(result, Match{
			RuleID:      f.RuleID,
			Description: f.Description,
			Secret:      f.Secret,
			Line:        f.StartLine,
		})
	}
	return result
}

// applyAllowlist merges allowlist patterns into the Gitleaks config.
// Patterns are pre-validated in loadTOML and Config.Validate; a compile
// failure here is a programming error.
func applyAllowlist(cfg *gitleaksConfig.Config, allowlist *Allowlist) {
	globalAllowlist := &gitleaksConfig.Allowlist{
		Description: "agentd user/project allowlist",
	}

	for _, pattern := range allowlist.Paths {
		re, err := regexp.Compile(pattern)
		if err != nil {
			panic("BUG: pre-validated regex pattern failed to compile: " + pattern + ": " + err.Error())
		}
		globalAllowlist.Paths = append(globalAllowlist.Paths, (*gitleaksRegexp.Regexp)(re))
	}

	for _, pattern := range allowlist.Regexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			panic("BUG: pre-validated regex pattern failed to compile: " + pattern + ": " + err.Error())
		}
		globalAllowlist.Regexes = append(globalAllowlist.Regexes, (*gitleaksRegexp.Regexp)(re))
	}

	globalAllowlist.StopWords = append(globalAllowlist.StopWords, allowlist.Regexes...)

	cfg.Allowlists = append(cfg.Allowlists, globalAllowlist)
}
