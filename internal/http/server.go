// Package http provides the HTTP API for agentd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/checkpoint"
	"github.com/fyrsmithlabs/agentd/internal/condense"
	"github.com/fyrsmithlabs/agentd/internal/logging"
	"github.com/fyrsmithlabs/agentd/internal/orchestrator"
)

// Server exposes the workflow service over HTTP.
type Server struct {
	echo    *echo.Echo
	service *orchestrator.Service
	nc      *nats.Conn
	logger  *logging.Logger
	config  *Config
	version string
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// ServerOption configures optional server collaborators.
type ServerOption func(*Server)

// WithEventStream enables the SSE endpoint by giving the server the NATS
// connection lifecycle events are published on.
func WithEventStream(nc *nats.Conn) ServerOption {
	return func(s *Server) {
		s.nc = nc
	}
}

// WithMetrics installs request metrics middleware.
func WithMetrics(m *HTTPMetrics) ServerOption {
	return func(s *Server) {
		if m != nil {
			s.echo.Use(m.MetricsMiddleware())
		}
	}
}

// WithVersion sets the daemon version reported by the status endpoint.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// NewServer creates a new HTTP server around the workflow service.
func NewServer(service *orchestrator.Service, logger *logging.Logger, cfg *Config, opts ...ServerOption) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("workflow service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// The request ID may come from the client, so it is vetted
			// before it reaches the logging context.
			ctx := c.Request().Context()
			if rid := c.Response().Header().Get(echo.HeaderXRequestID); logging.ValidID(rid) {
				ctx = logging.WithRequestID(ctx, rid)
				c.SetRequest(c.Request().WithContext(ctx))
			}

			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
			)

			return err
		}
	})

	s := &Server{
		echo:    e,
		service: service,
		logger:  logger,
		config:  cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check
	s.echo.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	v1.POST("/turns", s.handleTurn)
	v1.POST("/turns/:thread_id/resume", s.handleResume)
	v1.GET("/turns/:thread_id/events", s.handleEvents)
	v1.GET("/sessions/:thread_id/context", s.handleSessionContext)
	v1.GET("/sessions/:thread_id/stats", s.handleSessionStats)
	v1.GET("/checkpoints", s.handleCheckpointList)
	v1.DELETE("/checkpoints/:thread_id", s.handleCheckpointDelete)
	v1.GET("/status", s.handleStatus)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleTurn runs one workflow turn and returns its result. A missing
// thread_id starts a fresh thread.
func (s *Server) handleTurn(c echo.Context) error {
	var req TurnRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid turn request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := s.service.Run(c.Request().Context(), req.ThreadID, req.Input, req.Context)
	if err != nil {
		return s.turnError(c, req.ThreadID, err)
	}
	return c.JSON(http.StatusOK, res)
}

// handleResume continues a paused thread with the caller's answers.
func (s *Server) handleResume(c echo.Context) error {
	threadID := c.Param("thread_id")

	var req ResumeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid resume request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := s.service.Resume(c.Request().Context(), threadID, req.Answers)
	if err != nil {
		return s.turnError(c, threadID, err)
	}
	return c.JSON(http.StatusOK, res)
}

// handleSessionContext returns the condensed session context for a thread.
// The strategy query parameter defaults to balanced.
func (s *Server) handleSessionContext(c echo.Context) error {
	threadID := c.Param("thread_id")

	strategy := condense.Strategy(c.QueryParam("strategy"))
	if strategy == "" {
		strategy = condense.StrategyBalanced
	}
	if !strategy.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%v: %q", condense.ErrUnknownStrategy, strategy))
	}

	summary, err := s.service.SessionContext(c.Request().Context(), threadID, strategy)
	if err != nil {
		return echo.NewHTTPError(httpStatus(err), err.Error())
	}

	return c.JSON(http.StatusOK, ContextResponse{
		Summary:  summary,
		Rendered: summary.Render(),
	})
}

// handleSessionStats reports layer occupancy for a thread's session context.
func (s *Server) handleSessionStats(c echo.Context) error {
	stats, err := s.service.SessionStats(c.Request().Context(), c.Param("thread_id"))
	if err != nil {
		return echo.NewHTTPError(httpStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

// handleCheckpointList lists every thread paused awaiting clarification.
func (s *Server) handleCheckpointList(c echo.Context) error {
	cps, err := s.service.Checkpoints().List(c.Request().Context())
	if err != nil {
		s.logger.Error(c.Request().Context(), "listing checkpoints failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "listing checkpoints failed")
	}

	resp := CheckpointsResponse{
		Checkpoints: make([]CheckpointInfo, 0, len(cps)),
		Count:       len(cps),
	}
	for _, cp := range cps {
		resp.Checkpoints = append(resp.Checkpoints, newCheckpointInfo(cp))
	}
	return c.JSON(http.StatusOK, resp)
}

// handleCheckpointDelete abandons a paused thread by discarding its
// checkpoint.
func (s *Server) handleCheckpointDelete(c echo.Context) error {
	threadID := c.Param("thread_id")
	if !checkpoint.ValidThreadID(threadID) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid thread_id %q", threadID))
	}

	if err := s.service.Checkpoints().Delete(c.Request().Context(), threadID); err != nil {
		return echo.NewHTTPError(httpStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// handleStatus reports daemon-level counters for dashboards and agentctl.
func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Status:         "ok",
		Version:        s.version,
		PausedThreads:  CountPausedThreads(c.Request().Context(), s.service.Checkpoints()),
		ActiveSessions: s.service.ActiveSessions(),
		Events:         eventStreamState(s.nc),
	})
}

// turnError renders a failed turn in the shared result envelope so clients
// see one response shape on every path.
func (s *Server) turnError(c echo.Context, threadID string, err error) error {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "turn failed",
			zap.String("thread_id", threadID),
			zap.Error(err),
		)
	}
	return c.JSON(status, orchestrator.ErrorResult(threadID, err))
}

// httpStatus maps service errors onto API status codes. Unrecognized errors
// are internal.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyInput),
		errors.Is(err, orchestrator.ErrInvalidThreadID),
		errors.Is(err, condense.ErrUnknownStrategy):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrThreadPaused),
		errors.Is(err, checkpoint.ErrInvalidCheckpoint):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrThreadNotPaused),
		errors.Is(err, orchestrator.ErrUnknownThread),
		errors.Is(err, checkpoint.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance for registering additional routes.
//
// The daemon uses this to attach the Prometheus metrics endpoint.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
