package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout.Duration() != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout.Duration())
	}
	if cfg.Workflow.MaxIterations != 3 {
		t.Errorf("Workflow.MaxIterations = %d, want 3", cfg.Workflow.MaxIterations)
	}
	if cfg.Workflow.QualityThreshold != 0.6 {
		t.Errorf("Workflow.QualityThreshold = %g, want 0.6", cfg.Workflow.QualityThreshold)
	}
	if cfg.Condense.TokenBudget != 4000 {
		t.Errorf("Condense.TokenBudget = %d, want 4000", cfg.Condense.TokenBudget)
	}
	if cfg.LLM.Provider != "static" {
		t.Errorf("LLM.Provider = %q, want static", cfg.LLM.Provider)
	}
	if !cfg.Secrets.Enabled {
		t.Error("Secrets.Enabled = false, want true")
	}
	if cfg.Events.Enabled {
		t.Error("Events.Enabled = true, want false")
	}
	if cfg.Checkpoint.Backend != "file" {
		t.Errorf("Checkpoint.Backend = %q, want file", cfg.Checkpoint.Backend)
	}
	if cfg.Checkpoint.Dir != "~/.config/agentd/checkpoints" {
		t.Errorf("Checkpoint.Dir = %q, want ~/.config/agentd/checkpoints", cfg.Checkpoint.Dir)
	}
	if cfg.MCP.Name != "agentd" {
		t.Errorf("MCP.Name = %q, want agentd", cfg.MCP.Name)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "invalid port low",
			mutate: func(c *Config) { c.Server.Port = 0 },
			errMsg: "server.port",
		},
		{
			name:   "invalid port high",
			mutate: func(c *Config) { c.Server.Port = 99999 },
			errMsg: "server.port",
		},
		{
			name:   "zero shutdown timeout",
			mutate: func(c *Config) { c.Server.ShutdownTimeout = 0 },
			errMsg: "server.shutdown_timeout",
		},
		{
			name:   "workflow error is wrapped",
			mutate: func(c *Config) { c.Workflow.MaxIterations = 0 },
			errMsg: "workflow:",
		},
		{
			name:   "condense error is wrapped",
			mutate: func(c *Config) { c.Condense.TokenBudget = -1 },
			errMsg: "condense:",
		},
		{
			name:   "unknown llm provider",
			mutate: func(c *Config) { c.LLM.Provider = "cohere" },
			errMsg: "llm.provider",
		},
		{
			name:   "zero llm timeout",
			mutate: func(c *Config) { c.LLM.Timeout = 0 },
			errMsg: "llm.timeout",
		},
		{
			name:   "negative llm retries",
			mutate: func(c *Config) { c.LLM.MaxRetries = -1 },
			errMsg: "llm.max_retries",
		},
		{
			name:   "llm temperature out of range",
			mutate: func(c *Config) { c.LLM.Temperature = 2.5 },
			errMsg: "llm.temperature",
		},
		{
			name:   "llm top_p out of range",
			mutate: func(c *Config) { c.LLM.TopP = 1.5 },
			errMsg: "llm.top_p",
		},
		{
			name:   "negative llm rate limit",
			mutate: func(c *Config) { c.LLM.RateLimit = -1 },
			errMsg: "llm.rate_limit",
		},
		{
			name:   "unknown checkpoint backend",
			mutate: func(c *Config) { c.Checkpoint.Backend = "redis" },
			errMsg: "checkpoint.backend",
		},
		{
			name: "file backend requires dir",
			mutate: func(c *Config) {
				c.Checkpoint.Backend = "file"
				c.Checkpoint.Dir = ""
			},
			errMsg: "checkpoint.dir",
		},
		{
			name: "memory backend needs no dir",
			mutate: func(c *Config) {
				c.Checkpoint.Backend = "memory"
				c.Checkpoint.Dir = ""
			},
		},
		{
			name: "events enabled requires url",
			mutate: func(c *Config) {
				c.Events.Enabled = true
				c.Events.URL = ""
			},
			errMsg: "events.url",
		},
		{
			name: "mcp enabled requires name",
			mutate: func(c *Config) {
				c.MCP.Enabled = true
				c.MCP.Name = ""
			},
			errMsg: "mcp.name",
		},
		{
			name:   "logging error is wrapped",
			mutate: func(c *Config) { c.Logging.Format = "xml" },
			errMsg: "logging:",
		},
		{
			name: "telemetry error is wrapped",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			errMsg: "telemetry:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestLLMConfig_ClientConfig(t *testing.T) {
	section := LLMConfig{
		Provider:    "anthropic",
		Model:       "claude-model",
		APIKey:      Secret("sk-test-key"),
		BaseURL:     "https://api.example.com",
		MaxTokens:   2048,
		Temperature: 0.7,
		TopP:        0.9,
		Timeout:     Duration(45 * time.Second),
		MaxRetries:  2,
		RateLimit:   1.5,
		Burst:       3,
	}

	cc := section.ClientConfig()
	if cc.Provider != "anthropic" {
		t.Errorf("Provider = %q, want anthropic", cc.Provider)
	}
	if cc.Model != "claude-model" {
		t.Errorf("Model = %q, want claude-model", cc.Model)
	}
	if cc.APIKey != "sk-test-key" {
		t.Errorf("APIKey = %q, want the raw key", cc.APIKey)
	}
	if cc.BaseURL != "https://api.example.com" {
		t.Errorf("BaseURL = %q", cc.BaseURL)
	}
	if cc.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want 2048", cc.MaxTokens)
	}
	if cc.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cc.Temperature)
	}
	if cc.TopP != 0.9 {
		t.Errorf("TopP = %v, want 0.9", cc.TopP)
	}
	if cc.Timeout != 45 {
		t.Errorf("Timeout = %d seconds, want 45", cc.Timeout)
	}
	if cc.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cc.MaxRetries)
	}
	if cc.RateLimit != 1.5 {
		t.Errorf("RateLimit = %v, want 1.5", cc.RateLimit)
	}
	if cc.Burst != 3 {
		t.Errorf("Burst = %d, want 3", cc.Burst)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	c := ServerConfig{Host: "0.0.0.0", Port: 9000}
	if got := c.Addr(); got != "0.0.0.0:9000" {
		t.Errorf("Addr() = %q, want 0.0.0.0:9000", got)
	}
}

func TestCheckpointConfig_ExpandedDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	c := CheckpointConfig{Dir: "~/.config/agentd/checkpoints"}
	got, err := c.ExpandedDir()
	if err != nil {
		t.Fatalf("ExpandedDir() error = %v", err)
	}
	want := filepath.Join(home, ".config", "agentd", "checkpoints")
	if got != want {
		t.Errorf("ExpandedDir() = %q, want %q", got, want)
	}

	// Absolute paths pass through unchanged
	c = CheckpointConfig{Dir: "/var/lib/agentd"}
	got, err = c.ExpandedDir()
	if err != nil {
		t.Fatalf("ExpandedDir() error = %v", err)
	}
	if got != "/var/lib/agentd" {
		t.Errorf("ExpandedDir() = %q, want /var/lib/agentd", got)
	}
}
