package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Allowlist contains path and content regex patterns to exclude from secret
// detection.
type Allowlist struct {
	Paths   []string // File path regex patterns to ignore
	Regexes []string // Content regex patterns to ignore
}

// LoadAllowlists loads and merges project and user allowlists using union
// (OR) logic. Missing files are silently ignored. Invalid TOML or regex
// patterns return errors.
//
// projectPath: Directory containing .gitleaks.toml (empty string to skip)
// userPath: Full path to user allowlist.toml file (empty string to skip)
func LoadAllowlists(projectPath, userPath string) (*Allowlist, error) {
	merged := &Allowlist{
		Paths:   []string{},
		Regexes: []string{},
	}

	if projectPath != "" {
		projectFile := filepath.Join(projectPath, ".gitleaks.toml")
		project, err := loadTOML(projectFile)
		switch {
		case err == nil:
			merged.Paths = append(merged.Paths, project.Paths...)
			merged.Regexes = append(merged.Regexes, project.Regexes...)
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if userPath != "" {
		user, err := loadTOML(userPath)
		switch {
		case err == nil:
			merged.Paths = append(merged.Paths, user.Paths...)
			merged.Regexes = append(merged.Regexes, user.Regexes...)
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	return merged, nil
}

// loadTOML loads and validates a single allowlist file.
func loadTOML(path string) (*Allowlist, error) {
	var config struct {
		Allowlist struct {
			Paths   []string
			Regexes []string
		}
	}

	if _, err := os.Stat(path); err != nil {
		return nil, err // os.IsNotExist can identify this
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	// Validate patterns fail-fast so a broken allowlist surfaces at load
	// time, not mid-detection.
	for _, pattern := range config.Allowlist.Paths {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: invalid path pattern '%s' in %s: %v",
				ErrInvalidRegex, pattern, path, err)
		}
	}
	for _, pattern := range config.Allowlist.Regexes {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: invalid content pattern '%s' in %s: %v",
				ErrInvalidRegex, pattern, path, err)
		}
	}

	return &Allowlist{
		Paths:   config.Allowlist.Paths,
		Regexes: config.Allowlist.Regexes,
	}, nil
}
