package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestNew tests the provider factory.
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "anthropic",
			cfg:  Config{Provider: "anthropic", APIKey: "sk-ant-test123"},
		},
		{
			name: "openai",
			cfg:  Config{Provider: "openai", APIKey: "sk-test123"},
		},
		{
			name: "static",
			cfg:  Config{Provider: "static"},
		},
		{
			name: "empty provider defaults to static",
			cfg:  Config{},
		},
		{
			name:    "anthropic without key",
			cfg:     Config{Provider: "anthropic"},
			wantErr: ErrMissingAPIKey,
		},
		{
			name:    "openai without key",
			cfg:     Config{Provider: "openai"},
			wantErr: ErrMissingAPIKey,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "cohere"},
			wantErr: ErrUnknownProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := New(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}
			if gen == nil {
				t.Error("New() returned nil generator")
			}
		})
	}
}

// TestStaticGenerator tests the offline generator.
func TestStaticGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("canned response", func(t *testing.T) {
		gen := &StaticGenerator{Response: "canned"}
		got, err := gen.Generate(ctx, Request{Prompt: "anything"})
		if err != nil {
			t.Fatalf("Generate() error: %v", err)
		}
		if got != "canned" {
			t.Errorf("Generate() = %q, want %q", got, "canned")
		}
		if gen.Calls != 1 {
			t.Errorf("Calls = %d, want 1", gen.Calls)
		}
	})

	t.Run("injected error", func(t *testing.T) {
		wantErr := errors.New("boom")
		gen := &StaticGenerator{Err: wantErr}
		_, err := gen.Generate(ctx, Request{Prompt: "anything"})
		if !errors.Is(err, wantErr) {
			t.Errorf("Generate() error = %v, want %v", err, wantErr)
		}
	})

	t.Run("default echoes prompt", func(t *testing.T) {
		gen := &StaticGenerator{}
		got, err := gen.Generate(ctx, Request{Prompt: "plan the refactor"})
		if err != nil {
			t.Fatalf("Generate() error: %v", err)
		}
		if !strings.Contains(got, "plan the refactor") {
			t.Errorf("Generate() = %q, want prompt echoed", got)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		gen := &StaticGenerator{Response: "canned"}
		if _, err := gen.Generate(cancelled, Request{Prompt: "x"}); err == nil {
			t.Error("Generate() with cancelled context should fail")
		}
	})
}

// TestNewAnthropicGenerator tests anthropic generator construction.
func TestNewAnthropicGenerator(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				APIKey:  "sk-ant-test123",
				BaseURL: "https://api.anthropic.com",
				Model:   "claude-3-5-sonnet-20241022",
			},
			wantErr: false,
		},
		{
			name: "empty API key",
			cfg: Config{
				BaseURL: "https://api.anthropic.com",
			},
			wantErr: true,
		},
		{
			name: "default baseURL and model",
			cfg: Config{
				APIKey: "sk-ant-test123",
			},
			wantErr: false,
		},
		{
			name: "custom timeout and retries",
			cfg: Config{
				APIKey:     "sk-ant-test123",
				Timeout:    120,
				MaxRetries: 5,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := newAnthropicGenerator(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("newAnthropicGenerator() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && gen == nil {
				t.Error("newAnthropicGenerator() returned nil generator")
			}
		})
	}
}

// TestAnthropicGenerator_Generate tests the anthropic generator against a mock server.
func TestAnthropicGenerator_Generate(t *testing.T) {
	tests := []struct {
		name           string
		req            Request
		serverResponse string
		statusCode     int
		wantErr        bool
		wantText       string
	}{
		{
			name: "successful generation",
			req:  Request{System: "You are a planner.", Prompt: "Plan the work."},
			serverResponse: `{
				"id": "msg_123",
				"type": "message",
				"role": "assistant",
				"content": [{
					"type": "text",
					"text": "1. Read the code\n2. Write the fix"
				}],
				"model": "claude-3-5-sonnet-20241022",
				"stop_reason": "end_turn"
			}`,
			statusCode: http.StatusOK,
			wantErr:    false,
			wantText:   "1. Read the code\n2. Write the fix",
		},
		{
			name: "unauthorized error",
			req:  Request{Prompt: "Plan the work."},
			serverResponse: `{
				"type": "error",
				"error": {
					"type": "authentication_error",
					"message": "Invalid API key"
				}
			}`,
			statusCode: http.StatusUnauthorized,
			wantErr:    true,
		},
		{
			name: "empty content",
			req:  Request{Prompt: "Plan the work."},
			serverResponse: `{
				"id": "msg_123",
				"type": "message",
				"role": "assistant",
				"content": [],
				"model": "claude-3-5-sonnet-20241022"
			}`,
			statusCode: http.StatusOK,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("X-API-Key") == "" {
					t.Error("Missing X-API-Key header")
				}
				if r.Header.Get("Content-Type") != "application/json" {
					t.Error("Missing Content-Type header")
				}
				if r.Header.Get("Anthropic-Version") != "2023-06-01" {
					t.Error("Missing or incorrect Anthropic-Version header")
				}

				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.serverResponse))
			}))
			defer server.Close()

			gen, err := newAnthropicGenerator(Config{
				APIKey:  "sk-ant-test123",
				BaseURL: server.URL,
			})
			if err != nil {
				t.Fatalf("Failed to create generator: %v", err)
			}

			got, err := gen.Generate(context.Background(), tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("Generate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.wantText {
				t.Errorf("Generate() = %q, want %q", got, tt.wantText)
			}
		})
	}
}

// TestAnthropicGenerator_EmptyResponseError tests the sentinel for empty content.
func TestAnthropicGenerator_EmptyResponseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"content": []}`))
	}))
	defer server.Close()

	gen, err := newAnthropicGenerator(Config{APIKey: "sk-ant-test123", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	_, err = gen.Generate(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Generate() error = %v, want ErrEmptyResponse", err)
	}
}

// TestAnthropicGenerator_Retry tests retry behavior on server errors.
func TestAnthropicGenerator_Retry(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		if requestCount <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": {"message": "Service temporarily unavailable"}}`))
			return
		}
		response := `{
			"id": "msg_123",
			"type": "message",
			"role": "assistant",
			"content": [{
				"type": "text",
				"text": "Success after retry"
			}],
			"model": "claude-3-5-sonnet-20241022"
		}`
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(response))
	}))
	defer server.Close()

	gen, err := newAnthropicGenerator(Config{APIKey: "sk-ant-test123", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	got, err := gen.Generate(context.Background(), Request{Prompt: "Test"})
	if err != nil {
		t.Fatalf("Generate() failed after retries: %v", err)
	}
	if got != "Success after retry" {
		t.Errorf("Generate() = %q, want %q", got, "Success after retry")
	}
	if requestCount != 3 {
		t.Errorf("Expected 3 requests (2 retries), got %d", requestCount)
	}
}

// TestAnthropicGenerator_NoRetryOnClientError tests that 4xx responses fail fast.
func TestAnthropicGenerator_NoRetryOnClientError(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "max_tokens too large"}}`))
	}))
	defer server.Close()

	gen, err := newAnthropicGenerator(Config{APIKey: "sk-ant-test123", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	_, err = gen.Generate(context.Background(), Request{Prompt: "Test"})
	if err == nil {
		t.Fatal("Generate() should fail on bad request")
	}
	if !strings.Contains(err.Error(), "max_tokens too large") {
		t.Errorf("Generate() error = %v, want API message surfaced", err)
	}
	if requestCount != 1 {
		t.Errorf("Expected 1 request (no retries), got %d", requestCount)
	}
}

// TestAnthropicGenerator_ContextCancellation tests that cancellation is respected.
func TestAnthropicGenerator_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gen, err := newAnthropicGenerator(Config{APIKey: "sk-ant-test123", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := gen.Generate(ctx, Request{Prompt: "Test"}); err == nil {
		t.Error("Expected error due to context cancellation")
	}
}

// TestNewOpenAIGenerator tests openai generator construction.
func TestNewOpenAIGenerator(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				APIKey:  "sk-test123",
				BaseURL: "https://api.openai.com",
				Model:   "gpt-4o-mini",
			},
			wantErr: false,
		},
		{
			name:    "empty API key",
			cfg:     Config{BaseURL: "https://api.openai.com"},
			wantErr: true,
		},
		{
			name:    "default baseURL and model",
			cfg:     Config{APIKey: "sk-test123"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := newOpenAIGenerator(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("newOpenAIGenerator() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && gen == nil {
				t.Error("newOpenAIGenerator() returned nil generator")
			}
		})
	}
}

// TestOpenAIGenerator_Generate tests the openai generator against a mock server.
func TestOpenAIGenerator_Generate(t *testing.T) {
	tests := []struct {
		name           string
		req            Request
		serverResponse string
		statusCode     int
		wantErr        bool
		wantText       string
	}{
		{
			name: "successful generation",
			req:  Request{System: "You are a reviewer.", Prompt: "Review the change."},
			serverResponse: `{
				"id": "chatcmpl-123",
				"object": "chat.completion",
				"created": 1677652288,
				"model": "gpt-4o-mini",
				"choices": [{
					"index": 0,
					"message": {
						"role": "assistant",
						"content": "Looks correct; add a boundary test."
					},
					"finish_reason": "stop"
				}]
			}`,
			statusCode: http.StatusOK,
			wantErr:    false,
			wantText:   "Looks correct; add a boundary test.",
		},
		{
			name: "unauthorized error",
			req:  Request{Prompt: "Review the change."},
			serverResponse: `{
				"error": {
					"message": "Invalid API key",
					"type": "invalid_request_error",
					"code": "invalid_api_key"
				}
			}`,
			statusCode: http.StatusUnauthorized,
			wantErr:    true,
		},
		{
			name: "empty choices",
			req:  Request{Prompt: "Review the change."},
			serverResponse: `{
				"id": "chatcmpl-123",
				"object": "chat.completion",
				"choices": []
			}`,
			statusCode: http.StatusOK,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth := r.Header.Get("Authorization")
				if !strings.HasPrefix(auth, "Bearer ") {
					t.Error("Missing or invalid Authorization header")
				}
				if r.Header.Get("Content-Type") != "application/json" {
					t.Error("Missing Content-Type header")
				}

				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.serverResponse))
			}))
			defer server.Close()

			gen, err := newOpenAIGenerator(Config{
				APIKey:  "sk-test123",
				BaseURL: server.URL,
			})
			if err != nil {
				t.Fatalf("Failed to create generator: %v", err)
			}

			got, err := gen.Generate(context.Background(), tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("Generate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.wantText {
				t.Errorf("Generate() = %q, want %q", got, tt.wantText)
			}
		})
	}
}

// TestOpenAIGenerator_SystemMessage tests that the system prompt becomes a system role message.
func TestOpenAIGenerator_SystemMessage(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer server.Close()

	gen, err := newOpenAIGenerator(Config{APIKey: "sk-test123", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	if _, err := gen.Generate(context.Background(), Request{System: "act as planner", Prompt: "go"}); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !strings.Contains(gotBody, `"role":"system"`) {
		t.Errorf("request body missing system message: %s", gotBody)
	}
	if !strings.Contains(gotBody, "act as planner") {
		t.Errorf("request body missing system content: %s", gotBody)
	}
}

// TestGenerationDefaults tests default fill-in for generation parameters.
func TestGenerationDefaults(t *testing.T) {
	d := defaultsFromConfig(Config{})
	req := Request{Prompt: "x"}
	d.apply(&req)
	if req.MaxTokens != defaultMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", req.MaxTokens, defaultMaxTokens)
	}
	if req.Temperature != defaultTemperature {
		t.Errorf("Temperature = %v, want %v", req.Temperature, defaultTemperature)
	}

	d = defaultsFromConfig(Config{MaxTokens: 2048, Temperature: 0.7, TopP: 0.9})
	req = Request{Prompt: "x"}
	d.apply(&req)
	if req.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want configured 2048", req.MaxTokens)
	}
	if req.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want configured 0.7", req.Temperature)
	}
	if req.TopP != 0.9 {
		t.Errorf("TopP = %v, want configured 0.9", req.TopP)
	}

	req = Request{Prompt: "x", MaxTokens: 100, Temperature: 0.9}
	d.apply(&req)
	if req.MaxTokens != 100 {
		t.Errorf("MaxTokens = %d, want 100 preserved", req.MaxTokens)
	}
	if req.Temperature != 0.9 {
		t.Errorf("Temperature = %v, want 0.9 preserved", req.Temperature)
	}
}

// TestNewLimiter tests limiter construction from config.
func TestNewLimiter(t *testing.T) {
	l := newLimiter(Config{RateLimit: 2, Burst: 4})
	if got := float64(l.Limit()); got != 2 {
		t.Errorf("Limit() = %v, want 2", got)
	}
	if got := l.Burst(); got != 4 {
		t.Errorf("Burst() = %d, want 4", got)
	}

	l = newLimiter(Config{})
	if got := float64(l.Limit()); got != defaultRateLimit {
		t.Errorf("Limit() = %v, want default %v", got, defaultRateLimit)
	}
	if got := l.Burst(); got != defaultBurst {
		t.Errorf("Burst() = %d, want default %d", got, defaultBurst)
	}
}
