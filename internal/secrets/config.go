package secrets

import (
	"fmt"
	"regexp"
)

// Config configures the scrubber.
type Config struct {
	// Enabled controls whether scrubbing is active (default: true)
	Enabled bool `koanf:"enabled"`

	// RedactionMarker is the prefix used in redaction markers
	// (default: "REDACTED"). Markers render as [REDACTED:rule-id:prev].
	RedactionMarker string `koanf:"redaction_marker"`

	// ProjectPath is a directory searched for a .gitleaks.toml allowlist
	// (empty string to skip)
	ProjectPath string `koanf:"project_path"`

	// UserAllowlistPath is the full path to a user allowlist.toml (empty
	// string to skip)
	UserAllowlistPath string `koanf:"user_allowlist_path"`

	// AllowRegexes contains inline content patterns to exclude from
	// detection, merged with any file-based allowlists
	AllowRegexes []string `koanf:"allow_regexes"`
}

// DefaultConfig returns a configuration with scrubbing enabled and no
// allowlists.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		RedactionMarker: "REDACTED",
	}
}

// Validate checks the configuration. Inline allow patterns are compiled
// fail-fast so a bad pattern is caught at startup, not at scrub time.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RedactionMarker == "" {
		c.RedactionMarker = "REDACTED"
	}
	for _, pattern := range c.AllowRegexes {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w: invalid allow pattern %q: %v", ErrInvalidRegex, pattern, err)
		}
	}
	return nil
}
