package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/agentd/internal/config"
	"github.com/fyrsmithlabs/agentd/internal/logging"
	"github.com/fyrsmithlabs/agentd/internal/mcp"
)

// runStdioServer serves the Model Context Protocol on stdio for editor and
// coding assistant integration.
//
// The workflow service is wired directly rather than through the HTTP API,
// so a stdio session needs no running daemon. Checkpoints still go through
// the configured store, which keeps paused threads resumable across
// sessions and visible to the daemon.
func runStdioServer(ctx context.Context, cfg *config.Config) error {
	// Stdout carries the protocol frames, so logs go to stderr.
	zlog := newStderrLogger(&cfg.Logging)
	defer func() {
		_ = zlog.Sync()
	}()

	zlog.Info("starting agentd in MCP stdio mode",
		zap.String("name", cfg.MCP.Name),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("checkpoint_backend", cfg.Checkpoint.Backend))

	deps, err := initDependencies(ctx, cfg, zlog)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	workflow, err := initWorkflow(cfg, deps, zlog)
	if err != nil {
		return fmt.Errorf("failed to initialize workflow service: %w", err)
	}

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
		Logger:  zlog,
	}, workflow)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer func() {
		_ = srv.Close()
	}()

	fmt.Fprintf(os.Stderr, "agentd MCP server started (%s %s)\n", cfg.MCP.Name, version)

	// Run stdio server (blocks until context cancellation)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("stdio server error: %w", err)
	}

	zlog.Info("MCP stdio server shutdown complete")
	return nil
}

// newStderrLogger builds a zap logger writing to stderr. The logging
// package writes to stdout, which stdio mode cannot share with the
// protocol stream.
func newStderrLogger(cfg *logging.Config) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.Format == "console" {
		enc = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(os.Stderr), cfg.Level)
	return zap.New(core)
}
