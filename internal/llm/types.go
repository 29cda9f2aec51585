package llm

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// Provider defaults.
const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-sonnet-20241022"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultOpenAIModel      = "gpt-4o-mini"

	defaultMaxTokens   = 4096
	defaultTemperature = 0.3

	defaultTimeout     = 60 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = 1 * time.Second

	// Conservative rate limit: 50 requests per minute with small bursts.
	defaultRateLimit = 50.0 / 60.0
	defaultBurst     = 5
)

// Generation errors.
var (
	ErrMissingAPIKey   = errors.New("API key required")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrEmptyResponse   = errors.New("empty response from API")
)

// Config holds provider configuration.
type Config struct {
	// Provider selects the backend: "anthropic", "openai", or "static".
	Provider string `json:"provider" koanf:"provider"`

	Model   string `json:"model,omitempty" koanf:"model"`
	APIKey  string `json:"api_key,omitempty" koanf:"api_key"`
	BaseURL string `json:"base_url,omitempty" koanf:"base_url"`

	// MaxTokens caps completion length for requests that do not set their
	// own; zero uses the package default.
	MaxTokens int `json:"max_tokens,omitempty" koanf:"max_tokens"`

	// Temperature and TopP are sampling defaults for requests that do not
	// set their own.
	Temperature float64 `json:"temperature,omitempty" koanf:"temperature"`
	TopP        float64 `json:"top_p,omitempty" koanf:"top_p"`

	// Timeout is the per-request HTTP timeout in seconds.
	Timeout int `json:"timeout,omitempty" koanf:"timeout"`

	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int `json:"max_retries,omitempty" koanf:"max_retries"`

	// RateLimit is the sustained request rate in requests per second and
	// Burst the limiter burst size; zero values use conservative defaults.
	RateLimit float64 `json:"rate_limit,omitempty" koanf:"rate_limit"`
	Burst     int     `json:"burst,omitempty" koanf:"burst"`
}

// Request describes one generation call.
type Request struct {
	// System is the system prompt framing the role (optional).
	System string

	// Prompt is the user-turn content.
	Prompt string

	// MaxTokens caps the completion length; zero uses the default.
	MaxTokens int

	// Temperature controls sampling; zero uses the default.
	Temperature float64

	// TopP is nucleus sampling; zero leaves it to the provider.
	TopP float64
}

// genDefaults holds a client's generation defaults resolved from Config.
type genDefaults struct {
	maxTokens   int
	temperature float64
	topP        float64
}

func defaultsFromConfig(cfg Config) genDefaults {
	d := genDefaults{
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}
	if d.maxTokens <= 0 {
		d.maxTokens = defaultMaxTokens
	}
	if d.temperature == 0 {
		d.temperature = defaultTemperature
	}
	return d
}

// apply fills zero-valued request fields from the client defaults.
func (d genDefaults) apply(r *Request) {
	if r.MaxTokens <= 0 {
		r.MaxTokens = d.maxTokens
	}
	if r.Temperature == 0 {
		r.Temperature = d.temperature
	}
	if r.TopP == 0 {
		r.TopP = d.topP
	}
}

// newLimiter builds a client rate limiter from Config, falling back to the
// conservative package defaults.
func newLimiter(cfg Config) *rate.Limiter {
	limit := rate.Limit(cfg.RateLimit)
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return rate.NewLimiter(limit, burst)
}

// Generator produces a completion for a request.
type Generator interface {
	// Generate returns the completion text for the request.
	Generate(ctx context.Context, req Request) (string, error)
}
