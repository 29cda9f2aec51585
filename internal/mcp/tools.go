package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/agentd/internal/checkpoint"
	"github.com/fyrsmithlabs/agentd/internal/condense"
	"github.com/fyrsmithlabs/agentd/internal/orchestrator"
	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	// Workflow tools
	s.registerWorkflowTools()

	// Context tools (condensed session views)
	s.registerContextTools()

	// Checkpoint tools
	s.registerCheckpointTools()
}

// textResult wraps a one-line summary in the result shape every tool returns
// alongside its structured output.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ===== WORKFLOW TOOLS =====

type workflowRunInput struct {
	ThreadID string         `json:"thread_id,omitempty" jsonschema:"Thread identifier (generated when omitted)"`
	Input    string         `json:"input" jsonschema:"required,The user request to run through the workflow"`
	Context  map[string]any `json:"context,omitempty" jsonschema:"Optional metadata recorded with the turn"`
}

type workflowResumeInput struct {
	ThreadID string            `json:"thread_id" jsonschema:"required,Paused thread to resume"`
	Answers  map[string]string `json:"answers,omitempty" jsonschema:"Clarification answers keyed by question text or question ID"`
}

type workflowTurnOutput struct {
	ThreadID  string              `json:"thread_id" jsonschema:"Thread identifier for follow-up calls"`
	Status    string              `json:"status" jsonschema:"Turn outcome (complete or awaiting_clarification)"`
	Output    string              `json:"output,omitempty" jsonschema:"Formatted response for complete turns"`
	FromNode  string              `json:"from_node,omitempty" jsonschema:"Node that requested clarification"`
	Questions []protocol.Question `json:"questions,omitempty" jsonschema:"Pending clarification questions"`
	Message   string              `json:"message,omitempty" jsonschema:"Clarification prompt"`
}

// turnOutput maps a turn result onto the tool output shape.
func turnOutput(res *orchestrator.TurnResult) workflowTurnOutput {
	return workflowTurnOutput{
		ThreadID:  res.ThreadID,
		Status:    string(res.Status),
		Output:    res.Output,
		FromNode:  res.FromNode,
		Questions: res.Questions,
		Message:   res.Message,
	}
}

// turnText renders the one-line summary for a turn result.
func turnText(res *orchestrator.TurnResult) string {
	if res.Status == orchestrator.TurnAwaitingClarification {
		return fmt.Sprintf("Thread %s paused with %d clarification questions", res.ThreadID, len(res.Questions))
	}
	return fmt.Sprintf("Turn complete on thread %s", res.ThreadID)
}

func (s *Server) registerWorkflowTools() {
	// workflow_run
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "workflow_run",
		Description: "Run a coding request through the planner, executor, and reviewer workflow. Returns the formatted result, or clarification questions when an agent needs more detail.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args workflowRunInput) (*mcp.CallToolResult, workflowTurnOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "workflow_run")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "workflow_run")
			s.metrics.RecordInvocation(ctx, "workflow_run", time.Since(start), toolErr)
		}()

		res, err := s.service.Run(ctx, args.ThreadID, args.Input, args.Context)
		if err != nil {
			toolErr = fmt.Errorf("workflow run failed: %w", err)
			return nil, workflowTurnOutput{}, toolErr
		}

		return textResult(turnText(res)), turnOutput(res), nil
	})

	// workflow_resume
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "workflow_resume",
		Description: "Resume a paused thread by answering its clarification questions. The workflow re-enters at the node that asked, not at the planner.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args workflowResumeInput) (*mcp.CallToolResult, workflowTurnOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "workflow_resume")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "workflow_resume")
			s.metrics.RecordInvocation(ctx, "workflow_resume", time.Since(start), toolErr)
		}()

		res, err := s.service.Resume(ctx, args.ThreadID, args.Answers)
		if err != nil {
			toolErr = fmt.Errorf("workflow resume failed: %w", err)
			return nil, workflowTurnOutput{}, toolErr
		}

		return textResult(turnText(res)), turnOutput(res), nil
	})
}

// ===== CONTEXT TOOLS =====

type contextStatsInput struct {
	ThreadID string `json:"thread_id" jsonschema:"required,Thread whose session to inspect"`
}

type contextStatsOutput struct {
	ThreadID string         `json:"thread_id" jsonschema:"Thread inspected"`
	Stats    condense.Stats `json:"stats" jsonschema:"Item and token counts per condensation layer"`
}

type contextViewInput struct {
	ThreadID string `json:"thread_id" jsonschema:"required,Thread whose session to condense"`
	Strategy string `json:"strategy,omitempty" jsonschema:"Condensation strategy: recent important balanced or comprehensive (default: balanced)"`
}

type contextViewOutput struct {
	ThreadID string            `json:"thread_id" jsonschema:"Thread condensed"`
	Summary  *condense.Summary `json:"summary" jsonschema:"Layered summary selected under the token budget"`
	Rendered string            `json:"rendered,omitempty" jsonschema:"Summary formatted as a prompt section"`
}

func (s *Server) registerContextTools() {
	// context_stats
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "context_stats",
		Description: "Inspect a thread's session memory: total items and tokens plus per-layer breakdowns.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args contextStatsInput) (*mcp.CallToolResult, contextStatsOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "context_stats")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "context_stats")
			s.metrics.RecordInvocation(ctx, "context_stats", time.Since(start), toolErr)
		}()

		stats, err := s.service.SessionStats(ctx, args.ThreadID)
		if err != nil {
			toolErr = fmt.Errorf("context stats failed: %w", err)
			return nil, contextStatsOutput{}, toolErr
		}

		output := contextStatsOutput{
			ThreadID: args.ThreadID,
			Stats:    stats,
		}

		return textResult(fmt.Sprintf("Thread %s holds %d items (~%d tokens)", args.ThreadID, stats.TotalItems, stats.TotalTokens)), output, nil
	})

	// context_view
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "context_view",
		Description: "Render a thread's session context condensed under the token budget, using the requested strategy.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args contextViewInput) (*mcp.CallToolResult, contextViewOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "context_view")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "context_view")
			s.metrics.RecordInvocation(ctx, "context_view", time.Since(start), toolErr)
		}()

		strategy := condense.StrategyBalanced
		if args.Strategy != "" {
			strategy = condense.Strategy(args.Strategy)
			if !strategy.Valid() {
				toolErr = fmt.Errorf("%w: %q", condense.ErrUnknownStrategy, args.Strategy)
				return nil, contextViewOutput{}, toolErr
			}
		}

		summary, err := s.service.SessionContext(ctx, args.ThreadID, strategy)
		if err != nil {
			toolErr = fmt.Errorf("context view failed: %w", err)
			return nil, contextViewOutput{}, toolErr
		}

		output := contextViewOutput{
			ThreadID: args.ThreadID,
			Summary:  summary,
			Rendered: summary.Render(),
		}

		return textResult(fmt.Sprintf("Condensed thread %s with the %s strategy", args.ThreadID, strategy)), output, nil
	})
}

// ===== CHECKPOINT TOOLS =====

type checkpointListInput struct{}

type checkpointSummary struct {
	ThreadID   string              `json:"thread_id" jsonschema:"Paused thread"`
	PausedNode string              `json:"paused_node" jsonschema:"Node that requested clarification"`
	Questions  []protocol.Question `json:"questions,omitempty" jsonschema:"Pending clarification questions"`
	CreatedAt  time.Time           `json:"created_at" jsonschema:"When the thread first paused"`
	UpdatedAt  time.Time           `json:"updated_at" jsonschema:"Last checkpoint write"`
}

type checkpointListOutput struct {
	Checkpoints []checkpointSummary `json:"checkpoints" jsonschema:"Paused threads awaiting answers"`
	Count       int                 `json:"count" jsonschema:"Number of paused threads"`
}

type checkpointDeleteInput struct {
	ThreadID string `json:"thread_id" jsonschema:"required,Paused thread whose checkpoint to discard"`
}

type checkpointDeleteOutput struct {
	ThreadID string `json:"thread_id" jsonschema:"Thread whose checkpoint was removed"`
	Deleted  bool   `json:"deleted" jsonschema:"True when a checkpoint was removed"`
}

// checkpointSummaries maps stored checkpoints onto the listing shape. The
// serialized workflow state stays server side.
func checkpointSummaries(cps []*checkpoint.Checkpoint) []checkpointSummary {
	out := make([]checkpointSummary, 0, len(cps))
	for _, cp := range cps {
		out = append(out, checkpointSummary{
			ThreadID:   cp.ThreadID,
			PausedNode: cp.PausedNode,
			Questions:  cp.Questions,
			CreatedAt:  cp.CreatedAt,
			UpdatedAt:  cp.UpdatedAt,
		})
	}
	return out
}

func (s *Server) registerCheckpointTools() {
	// checkpoint_list
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "checkpoint_list",
		Description: "List paused threads awaiting clarification answers, most recently paused first.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args checkpointListInput) (*mcp.CallToolResult, checkpointListOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "checkpoint_list")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "checkpoint_list")
			s.metrics.RecordInvocation(ctx, "checkpoint_list", time.Since(start), toolErr)
		}()

		cps, err := s.service.Checkpoints().List(ctx)
		if err != nil {
			toolErr = fmt.Errorf("checkpoint list failed: %w", err)
			return nil, checkpointListOutput{}, toolErr
		}

		output := checkpointListOutput{
			Checkpoints: checkpointSummaries(cps),
			Count:       len(cps),
		}

		return textResult(fmt.Sprintf("Found %d paused threads", output.Count)), output, nil
	})

	// checkpoint_delete
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "checkpoint_delete",
		Description: "Discard a paused thread's checkpoint, abandoning its pending turn. The thread accepts fresh turns afterwards.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args checkpointDeleteInput) (*mcp.CallToolResult, checkpointDeleteOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "checkpoint_delete")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "checkpoint_delete")
			s.metrics.RecordInvocation(ctx, "checkpoint_delete", time.Since(start), toolErr)
		}()

		if err := s.service.Checkpoints().Delete(ctx, args.ThreadID); err != nil {
			toolErr = fmt.Errorf("checkpoint delete failed: %w", err)
			return nil, checkpointDeleteOutput{}, toolErr
		}

		output := checkpointDeleteOutput{
			ThreadID: args.ThreadID,
			Deleted:  true,
		}

		return textResult(fmt.Sprintf("Checkpoint deleted for thread %s", args.ThreadID)), output, nil
	})
}
