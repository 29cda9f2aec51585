// Package http provides the HTTP API for agentd.
package http

import (
	"time"

	"github.com/fyrsmithlabs/agentd/internal/checkpoint"
	"github.com/fyrsmithlabs/agentd/internal/condense"
	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

// TurnRequest is the request body for POST /api/v1/turns. An empty
// thread_id starts a fresh thread; context carries caller metadata that is
// folded into agent prompts.
type TurnRequest struct {
	ThreadID string         `json:"thread_id,omitempty"`
	Input    string         `json:"input"`
	Context  map[string]any `json:"context,omitempty"`
}

// ResumeRequest is the request body for POST /api/v1/turns/:thread_id/resume.
// Answers are keyed by question ID; unanswered questions are recorded as
// unanswered, not rejected.
type ResumeRequest struct {
	Answers map[string]string `json:"answers"`
}

// ContextResponse is the response body for GET
// /api/v1/sessions/:thread_id/context. Rendered is the summary formatted as
// a prompt section, empty when nothing was selected.
type ContextResponse struct {
	*condense.Summary
	Rendered string `json:"rendered,omitempty"`
}

// CheckpointInfo describes one paused thread. The serialized workflow state
// stays server side; clients get the questions they need to resume.
type CheckpointInfo struct {
	ThreadID   string              `json:"thread_id"`
	PausedNode string              `json:"paused_node"`
	Questions  []protocol.Question `json:"questions,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func newCheckpointInfo(cp *checkpoint.Checkpoint) CheckpointInfo {
	return CheckpointInfo{
		ThreadID:   cp.ThreadID,
		PausedNode: cp.PausedNode,
		Questions:  cp.Questions,
		CreatedAt:  cp.CreatedAt,
		UpdatedAt:  cp.UpdatedAt,
	}
}

// CheckpointsResponse is the response body for GET /api/v1/checkpoints.
type CheckpointsResponse struct {
	Checkpoints []CheckpointInfo `json:"checkpoints"`
	Count       int              `json:"count"`
}

// StatusResponse is the response body for GET /api/v1/status. PausedThreads
// is -1 when the checkpoint store cannot be queried.
type StatusResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version,omitempty"`
	PausedThreads  int    `json:"paused_threads"`
	ActiveSessions int    `json:"active_sessions"`
	Events         string `json:"events"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
