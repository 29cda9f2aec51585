package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"

	"github.com/fyrsmithlabs/agentd/internal/checkpoint"
	"github.com/fyrsmithlabs/agentd/internal/events"
)

// sseHeartbeat keeps proxies from closing streams that are idle while a
// slow node runs.
const sseHeartbeat = 30 * time.Second

// handleEvents streams a thread's lifecycle events via Server-Sent Events.
//
// The handler subscribes to the thread's NATS subjects and relays each
// message as one SSE event. The connection stays open until the turn
// reaches a terminal event or the client disconnects.
//
// SSE Event Types:
//   - turn_started: a turn began executing (resumed flag distinguishes)
//   - node_completed: one agent node finished
//   - clarification_requested: the turn paused on questions
//   - turn_completed: the turn produced a final response
//   - turn_failed: the turn errored
//
// Example:
//
//	GET /api/v1/turns/thread_4fa2/events
//
//	event: turn_started
//	data: {"event":"turn_started","thread_id":"thread_4fa2",...}
//
//	event: node_completed
//	data: {"event":"node_completed","thread_id":"thread_4fa2","node":"planner",...}
//
//	event: turn_completed
//	data: {"event":"turn_completed","thread_id":"thread_4fa2",...}
func (s *Server) handleEvents(c echo.Context) error {
	threadID := c.Param("thread_id")
	if !checkpoint.ValidThreadID(threadID) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid thread_id %q", threadID))
	}
	if s.nc == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "event streaming requires the events section to be enabled")
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Subscribe to every event published for this thread
	msgChan := make(chan *nats.Msg, 10)
	sub, err := s.nc.ChanSubscribe(events.ThreadSubjects(threadID), msgChan)
	if err != nil {
		return fmt.Errorf("subscribing to thread events: %w", err)
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	// Commit the headers now so clients see the stream open before the
	// first event arrives.
	c.Response().Flush()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	// Stream events until the turn settles or the client disconnects
	for {
		select {
		case msg := <-msgChan:
			event := events.EventFromSubject(msg.Subject)
			if event == "" {
				continue
			}

			fmt.Fprintf(c.Response(), "event: %s\n", event)
			fmt.Fprintf(c.Response(), "data: %s\n\n", string(msg.Data))
			c.Response().Flush()

			if terminalEvent(event) {
				return nil
			}

		case <-ticker.C:
			// Send heartbeat to keep connection alive
			fmt.Fprintf(c.Response(), ": heartbeat\n\n")
			c.Response().Flush()

		case <-c.Request().Context().Done():
			// Client disconnected
			return nil
		}
	}
}

// terminalEvent reports whether the event ends the stream. A clarification
// pause settles the turn as far as the stream is concerned; resuming starts
// a fresh turn and a fresh stream.
func terminalEvent(event string) bool {
	switch event {
	case events.EventTurnCompleted, events.EventTurnFailed, events.EventClarificationRequested:
		return true
	}
	return false
}

// eventStreamState describes the SSE bridge for the status endpoint. It is
// the NATS connection state, or disabled when the daemon runs without
// events.
func eventStreamState(nc *nats.Conn) string {
	if nc == nil {
		return "disabled"
	}
	return strings.ToLower(nc.Status().String())
}
