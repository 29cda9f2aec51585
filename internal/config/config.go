// Package config provides configuration loading for agentd.
//
// Configuration is assembled from three layers, highest precedence first:
// AGENTD_-prefixed environment variables, a YAML config file, and built-in
// defaults. Domain packages own their section types (workflow, condense,
// secrets, logging, telemetry); this package composes them and adds the
// daemon-only sections.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyrsmithlabs/agentd/internal/condense"
	"github.com/fyrsmithlabs/agentd/internal/llm"
	"github.com/fyrsmithlabs/agentd/internal/logging"
	"github.com/fyrsmithlabs/agentd/internal/orchestrator"
	"github.com/fyrsmithlabs/agentd/internal/secrets"
	"github.com/fyrsmithlabs/agentd/internal/telemetry"
)

// Config holds the complete agentd configuration.
type Config struct {
	Server     ServerConfig
	Workflow   orchestrator.Config
	Condense   condense.Config
	LLM        LLMConfig
	Secrets    secrets.Config
	Events     EventsConfig
	Checkpoint CheckpointConfig
	Logging    logging.Config
	Telemetry  telemetry.Config
	MCP        MCPConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Addr returns the host:port the HTTP server binds to.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LLMConfig holds provider settings for the agent nodes.
type LLMConfig struct {
	// Provider selects the backend: "anthropic", "openai", or "static".
	Provider string `koanf:"provider"`

	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`

	// MaxTokens, Temperature, and TopP are generation defaults applied to
	// requests that do not set their own.
	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`
	TopP        float64 `koanf:"top_p"`

	Timeout    Duration `koanf:"timeout"`
	MaxRetries int      `koanf:"max_retries"`

	// RateLimit is the sustained request rate against the provider in
	// requests per second; Burst is the limiter burst size.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

// ClientConfig converts the section into the llm package's client config.
func (c LLMConfig) ClientConfig() llm.Config {
	return llm.Config{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey.Value(),
		BaseURL:     c.BaseURL,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		TopP:        c.TopP,
		Timeout:     int(c.Timeout.Duration() / time.Second),
		MaxRetries:  c.MaxRetries,
		RateLimit:   c.RateLimit,
		Burst:       c.Burst,
	}
}

// EventsConfig holds NATS lifecycle event publishing configuration.
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

// CheckpointConfig holds checkpoint store configuration.
type CheckpointConfig struct {
	// Backend selects the store: "memory" or "file".
	Backend string `koanf:"backend"`

	// Dir is the file backend's directory. A leading ~ expands to the
	// user's home directory.
	Dir string `koanf:"dir"`
}

// ExpandedDir returns Dir with a leading ~ expanded.
func (c CheckpointConfig) ExpandedDir() (string, error) {
	return expandHome(c.Dir)
}

// MCPConfig holds Model Context Protocol server configuration.
type MCPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// NewDefaultConfig returns the full default configuration. Defaults are
// populated before unmarshaling so booleans that default to true survive
// a config file that does not mention them.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Workflow: *orchestrator.DefaultConfig(),
		Condense: *condense.DefaultConfig(),
		LLM: LLMConfig{
			Provider:    "static",
			MaxTokens:   4096,
			Temperature: 0.3,
			Timeout:     Duration(60 * time.Second),
			MaxRetries:  3,
			RateLimit:   50.0 / 60.0,
			Burst:       5,
		},
		Secrets: *secrets.DefaultConfig(),
		Events: EventsConfig{
			Enabled: false,
			URL:     "nats://127.0.0.1:4222",
		},
		Checkpoint: CheckpointConfig{
			Backend: "file",
			Dir:     "~/.config/agentd/checkpoints",
		},
		Logging:   *logging.NewDefaultConfig(),
		Telemetry: *telemetry.NewDefaultConfig(),
		MCP: MCPConfig{
			Enabled: false,
			Name:    "agentd",
			Version: "0.1.0",
		},
	}
}

// Validate checks the configuration, delegating to section validators.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	if err := c.Workflow.Validate(); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	if err := c.Condense.Validate(); err != nil {
		return fmt.Errorf("condense: %w", err)
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.Secrets.Validate(); err != nil {
		return fmt.Errorf("secrets: %w", err)
	}

	switch c.Checkpoint.Backend {
	case "memory":
	case "file":
		if c.Checkpoint.Dir == "" {
			return fmt.Errorf("checkpoint.dir is required for the file backend")
		}
	default:
		return fmt.Errorf("checkpoint.backend must be 'memory' or 'file', got %q", c.Checkpoint.Backend)
	}

	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("events.url is required when events enabled")
	}
	if c.MCP.Enabled && c.MCP.Name == "" {
		return fmt.Errorf("mcp.name is required when the MCP server is enabled")
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case "anthropic", "openai", "static":
	default:
		return fmt.Errorf("llm.provider must be 'anthropic', 'openai', or 'static', got %q", c.LLM.Provider)
	}
	if c.LLM.Timeout.Duration() <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must be >= 0, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must be >= 0, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		return fmt.Errorf("llm.top_p must be between 0 and 1, got %v", c.LLM.TopP)
	}
	if c.LLM.RateLimit < 0 {
		return fmt.Errorf("llm.rate_limit must be >= 0, got %v", c.LLM.RateLimit)
	}
	if c.LLM.Burst < 0 {
		return fmt.Errorf("llm.burst must be >= 0, got %d", c.LLM.Burst)
	}
	return nil
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
