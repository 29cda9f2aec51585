package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/config"
)

func TestMainIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	// Pin the port and keep checkpoint state out of the user's home
	os.Setenv("AGENTD_SERVER_PORT", "8184")
	os.Setenv("AGENTD_CHECKPOINT_BACKEND", "memory")
	defer os.Unsetenv("AGENTD_SERVER_PORT")
	defer os.Unsetenv("AGENTD_CHECKPOINT_BACKEND")

	// Create context with timeout for the test
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	// Wait for server to start
	time.Sleep(200 * time.Millisecond)

	// Test health check endpoint
	resp, err := http.Get("http://127.0.0.1:8184/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// Cancel context to shutdown server
	cancel()

	// Wait for server to stop
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shutdown in time")
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func mustTestConfig(t *testing.T, backend, dir string) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Checkpoint.Backend = backend
	cfg.Checkpoint.Dir = dir
	return cfg
}

func TestOpenCheckpointStore(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		cfg := mustTestConfig(t, "memory", "")
		store, err := openCheckpointStore(cfg, testLogger())
		if err != nil {
			t.Fatalf("openCheckpointStore() error = %v", err)
		}
		defer store.Close()
	})

	t.Run("file backend creates the directory", func(t *testing.T) {
		dir := t.TempDir() + "/checkpoints"
		cfg := mustTestConfig(t, "file", dir)
		store, err := openCheckpointStore(cfg, testLogger())
		if err != nil {
			t.Fatalf("openCheckpointStore() error = %v", err)
		}
		defer store.Close()

		if _, err := os.Stat(dir); err != nil {
			t.Errorf("checkpoint directory not created: %v", err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := mustTestConfig(t, "redis", "")
		if _, err := openCheckpointStore(cfg, testLogger()); err == nil {
			t.Error("openCheckpointStore() expected error for unknown backend")
		}
	})
}
