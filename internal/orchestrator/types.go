package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/agentd/internal/agents"
	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

// Node identifies a station in the workflow graph.
type Node string

const (
	// NodePlanner turns the user request into a task plan.
	NodePlanner Node = "planner"
	// NodeExecutor carries out the plan and produces the work product.
	NodeExecutor Node = "executor"
	// NodeReviewer assesses the executor's output and decides on iteration.
	NodeReviewer Node = "reviewer"
	// NodeClarification pauses the turn and renders questions for the user.
	NodeClarification Node = "clarification"
	// NodeFormatter renders the final response. Always the last node.
	NodeFormatter Node = "formatter"
)

// AllNodes returns every node in graph order.
func AllNodes() []Node {
	return []Node{NodePlanner, NodeExecutor, NodeReviewer, NodeClarification, NodeFormatter}
}

// Valid reports whether n is a recognized node.
func (n Node) Valid() bool {
	switch n {
	case NodePlanner, NodeExecutor, NodeReviewer, NodeClarification, NodeFormatter:
		return true
	}
	return false
}

// resumable reports whether a paused thread may re-enter the graph at n.
// Only the agent nodes raise clarifications, so only they can be re-entered.
func (n Node) resumable() bool {
	switch n {
	case NodePlanner, NodeExecutor, NodeReviewer:
		return true
	}
	return false
}

// RunStatus is the lifecycle state of a workflow turn.
type RunStatus string

const (
	StatusRunning  RunStatus = "running"
	StatusPaused   RunStatus = "paused"
	StatusComplete RunStatus = "complete"
)

var (
	ErrEmptyInput      = errors.New("input is required")
	ErrInvalidThreadID = errors.New("thread_id contains invalid characters")
	ErrThreadPaused    = errors.New("thread is paused awaiting clarification")
	ErrThreadNotPaused = errors.New("thread has no pending clarification")
	ErrUnknownThread   = errors.New("unknown thread")
	ErrInvalidConfig   = errors.New("invalid workflow config")
)

// WorkflowState is the full state of one conversational turn. It accumulates
// as the turn moves through the graph and is what gets checkpointed when a
// clarification pauses the thread, so every field must survive a JSON
// round-trip.
type WorkflowState struct {
	ThreadID  string         `json:"thread_id"`
	UserInput string         `json:"user_input"`
	Context   map[string]any `json:"context,omitempty"`

	TaskPlan       *agents.TaskPlan     `json:"task_plan,omitempty"`
	ExecutorOutput string               `json:"executor_output,omitempty"`
	ReviewResult   *agents.ReviewResult `json:"review_result,omitempty"`
	IterationCount int                  `json:"iteration_count"`

	NeedsClarification     bool                `json:"needs_clarification"`
	ClarificationFrom      string              `json:"clarification_from,omitempty"`
	ClarificationQuestions []protocol.Question `json:"clarification_questions,omitempty"`
	ClarificationPrompt    string              `json:"clarification_prompt,omitempty"`

	// Answers holds user-provided clarification answers, keyed by question
	// text (or question ID when the text is unknown). Merged on resume and
	// folded into later prompts.
	Answers map[string]string `json:"answers,omitempty"`

	// Errors collects collaborator failures that were recovered and carried
	// forward so the formatter can surface them.
	Errors []string `json:"errors,omitempty"`

	FinalResponse string    `json:"final_response,omitempty"`
	Status        RunStatus `json:"status"`
	CurrentNode   Node      `json:"current_node"`
	StartedAt     time.Time `json:"started_at"`
}

// NewWorkflowState creates the state for a fresh turn, positioned at the
// planner.
func NewWorkflowState(threadID, input string, meta map[string]any) *WorkflowState {
	return &WorkflowState{
		ThreadID:    threadID,
		UserInput:   input,
		Context:     meta,
		Status:      StatusRunning,
		CurrentNode: NodePlanner,
		StartedAt:   time.Now(),
	}
}

// Config bounds the review loop.
type Config struct {
	// MaxIterations is the hard cap on reviewer visits per turn.
	MaxIterations int `json:"max_iterations" koanf:"max_iterations"`

	// QualityThreshold is the review score at or above which output is
	// accepted without another iteration.
	QualityThreshold float64 `json:"quality_threshold" koanf:"quality_threshold"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxIterations:    3,
		QualityThreshold: 0.6,
	}
}

// Validate checks the config bounds.
func (c *Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max_iterations must be at least 1, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 1 {
		return fmt.Errorf("%w: quality_threshold must be between 0 and 1, got %g", ErrInvalidConfig, c.QualityThreshold)
	}
	return nil
}

// TurnStatus is the caller-facing outcome of Run or Resume.
type TurnStatus string

const (
	TurnComplete              TurnStatus = "complete"
	TurnAwaitingClarification TurnStatus = "awaiting_clarification"
	TurnError                 TurnStatus = "error"
)

// TurnResult is what a transport returns to the caller for one turn.
// Output is set for complete turns; FromNode, Questions, and Message for
// clarification pauses; Message alone for errors.
type TurnResult struct {
	Status    TurnStatus          `json:"status"`
	ThreadID  string              `json:"thread_id"`
	Output    string              `json:"output,omitempty"`
	FromNode  string              `json:"from_node,omitempty"`
	Questions []protocol.Question `json:"questions,omitempty"`
	Message   string              `json:"message,omitempty"`
}

// ErrorResult wraps a service error in the caller-facing result shape.
// Transports use it so every response has the same envelope.
func ErrorResult(threadID string, err error) *TurnResult {
	return &TurnResult{
		Status:   TurnError,
		ThreadID: threadID,
		Message:  err.Error(),
	}
}
