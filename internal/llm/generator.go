package llm

import (
	"context"
	"fmt"
)

// New creates a Generator for the configured provider.
func New(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case "anthropic":
		return newAnthropicGenerator(cfg)
	case "openai":
		return newOpenAIGenerator(cfg)
	case "static", "":
		return &StaticGenerator{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// StaticGenerator returns canned responses. It backs tests and offline
// development where no provider credentials exist.
type StaticGenerator struct {
	// Response is returned verbatim for every call. Empty means echo a
	// short acknowledgement of the prompt.
	Response string

	// Err, when set, fails every call.
	Err error

	// Calls counts invocations. Not safe for concurrent mutation; intended
	// for single-goroutine tests.
	Calls int

	// LastRequest records the most recent request for assertions.
	LastRequest Request
}

// Generate returns the canned response.
func (s *StaticGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.Calls++
	s.LastRequest = req
	if s.Err != nil {
		return "", s.Err
	}
	if s.Response != "" {
		return s.Response, nil
	}
	return fmt.Sprintf("ack: %.60s", req.Prompt), nil
}

var _ Generator = (*StaticGenerator)(nil)
