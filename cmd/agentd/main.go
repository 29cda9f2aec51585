// Agentd is the multi-agent coding workflow daemon.
//
// The binary starts the agentd HTTP server with full service initialization,
// including the LLM-backed agent collaborators, checkpoint persistence, NATS
// lifecycle events, and OpenTelemetry instrumentation.
//
// Configuration is loaded from ~/.config/agentd/config.yaml and AGENTD_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	agentd
//
//	# Configure via environment
//	AGENTD_SERVER_PORT=9090 AGENTD_LLM_PROVIDER=anthropic agentd
//
//	# Serve the Model Context Protocol on stdio for editor integration
//	agentd --mcp
//
//	# Show version information
//	agentd version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/agents"
	"github.com/fyrsmithlabs/agentd/internal/checkpoint"
	"github.com/fyrsmithlabs/agentd/internal/config"
	"github.com/fyrsmithlabs/agentd/internal/events"
	httpserver "github.com/fyrsmithlabs/agentd/internal/http"
	"github.com/fyrsmithlabs/agentd/internal/llm"
	"github.com/fyrsmithlabs/agentd/internal/logging"
	"github.com/fyrsmithlabs/agentd/internal/orchestrator"
	"github.com/fyrsmithlabs/agentd/internal/secrets"
	"github.com/fyrsmithlabs/agentd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	configPath = flag.String("config", "", "path to config.yaml (defaults to ~/.config/agentd/config.yaml)")
	mcpMode    = flag.Bool("mcp", false, "serve the Model Context Protocol on stdio instead of HTTP")
)

func main() {
	flag.Parse()
	args := flag.Args()

	// Handle subcommands
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  agentd           Start the agentd daemon\n")
			fmt.Fprintf(os.Stderr, "  agentd --mcp     Serve MCP on stdio instead of HTTP\n")
			fmt.Fprintf(os.Stderr, "  agentd version   Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("agentd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts agentd and blocks until the context is cancelled.
//
// In daemon mode this initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes telemetry and the structured logger
//  3. Connects infrastructure (NATS, checkpoint store, LLM client)
//  4. Wires the agent collaborators into the workflow service
//  5. Starts the HTTP server with the metrics endpoint
//  6. Performs graceful shutdown on context cancellation
//
// With --mcp (or mcp.enabled in the config file) the process serves the
// Model Context Protocol on stdio instead of HTTP.
//
// Returns http.ErrServerClosed on graceful shutdown of the HTTP server.
func run(ctx context.Context) error {
	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if *mcpMode || cfg.MCP.Enabled {
		return runStdioServer(ctx, cfg)
	}

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		_ = tel.Shutdown(context.Background())
	}()

	logger, err := logging.New(&cfg.Logging, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "starting agentd",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	deps, err := initDependencies(ctx, cfg, logger.Underlying())
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	logger.Info(ctx, "dependencies initialized",
		zap.Bool("nats_connected", deps.natsConn != nil),
		zap.String("checkpoint_backend", cfg.Checkpoint.Backend))

	workflow, err := initWorkflow(cfg, deps, logger.Underlying())
	if err != nil {
		return fmt.Errorf("failed to initialize workflow service: %w", err)
	}

	srv, err := initHTTPServer(cfg, deps, workflow, logger)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	logger.Info(ctx, "server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s/health", cfg.Server.Addr())),
		zap.String("metrics_endpoint", "/metrics"))

	// Start server (blocks until context cancellation)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return <-errCh
}

// dependencies holds the infrastructure the services are built on.
type dependencies struct {
	natsConn  *nats.Conn
	store     checkpoint.Store
	generator llm.Generator
}

// Close releases all infrastructure resources.
func (d *dependencies) Close() {
	if d.natsConn != nil {
		d.natsConn.Close()
	}
	if d.store != nil {
		_ = d.store.Close()
	}
}

// initDependencies initializes all infrastructure dependencies.
//
// This function:
//  1. Connects to NATS when lifecycle events are enabled
//  2. Opens the checkpoint store selected by checkpoint.backend
//  3. Creates the LLM client the agent collaborators share
func initDependencies(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*dependencies, error) {
	deps := &dependencies{}

	if cfg.Events.Enabled {
		nc, err := events.Connect(cfg.Events.URL)
		if err != nil {
			return nil, err
		}
		deps.natsConn = nc
		zlog.Info("connected to NATS", zap.String("url", cfg.Events.URL))
	}

	store, err := openCheckpointStore(cfg, zlog)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.store = store

	gen, err := llm.New(cfg.LLM.ClientConfig())
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	deps.generator = gen

	return deps, nil
}

// openCheckpointStore opens the configured checkpoint backend and wraps it
// with logging and telemetry.
func openCheckpointStore(cfg *config.Config, zlog *zap.Logger) (checkpoint.Store, error) {
	var store checkpoint.Store
	switch cfg.Checkpoint.Backend {
	case "memory":
		store = checkpoint.NewMemoryStore()
	case "file":
		dir, err := cfg.Checkpoint.ExpandedDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve checkpoint directory: %w", err)
		}
		fs, err := checkpoint.NewFileStore(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
		}
		store = fs
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Checkpoint.Backend)
	}

	return checkpoint.NewService(store,
		checkpoint.WithLogger(checkpoint.NewLogger(zlog)),
	), nil
}

// initWorkflow wires the agent collaborators into the workflow service.
func initWorkflow(cfg *config.Config, deps *dependencies, zlog *zap.Logger) (*orchestrator.Service, error) {
	scrubber, err := secrets.New(&cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret scrubber: %w", err)
	}

	agentLogger := agents.NewLogger(zlog)
	planner := agents.NewPlanner(deps.generator, agents.WithLogger(agentLogger))
	executor := agents.NewExecutor(deps.generator, agents.WithLogger(agentLogger))
	reviewer := agents.NewReviewer(deps.generator, agents.WithLogger(agentLogger))

	opts := []orchestrator.ServiceOption{
		orchestrator.WithConfig(&cfg.Workflow),
		orchestrator.WithCheckpointStore(deps.store),
		orchestrator.WithCondenseConfig(&cfg.Condense),
		orchestrator.WithScrubber(scrubber),
		orchestrator.WithLogger(orchestrator.NewLogger(zlog)),
	}
	if deps.natsConn != nil {
		opts = append(opts, orchestrator.WithEvents(events.NewPublisher(deps.natsConn,
			events.WithLogger(events.NewLogger(zlog)),
		)))
	}

	return orchestrator.NewService(planner, executor, reviewer, opts...)
}

// initHTTPServer creates the HTTP server and attaches the Prometheus
// metrics endpoint.
func initHTTPServer(cfg *config.Config, deps *dependencies, workflow *orchestrator.Service, logger *logging.Logger) (*httpserver.Server, error) {
	opts := []httpserver.ServerOption{
		httpserver.WithMetrics(httpserver.NewHTTPMetrics(logger.Underlying())),
		httpserver.WithVersion(version),
	}
	if deps.natsConn != nil {
		opts = append(opts, httpserver.WithEventStream(deps.natsConn))
	}

	srv, err := httpserver.NewServer(workflow, logger, &httpserver.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, opts...)
	if err != nil {
		return nil, err
	}

	// Register metrics endpoint
	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return srv, nil
}
