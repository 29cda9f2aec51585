package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/agentd/internal/agents"
	"github.com/fyrsmithlabs/agentd/internal/condense"
	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

// PlannerAgent produces a task plan for a user request.
type PlannerAgent interface {
	Plan(ctx context.Context, in agents.PlanInput) *protocol.Message
}

// ExecutorAgent carries out a task plan.
type ExecutorAgent interface {
	Execute(ctx context.Context, in agents.ExecuteInput) *protocol.Message
}

// ReviewerAgent assesses an executor's output.
type ReviewerAgent interface {
	Review(ctx context.Context, in agents.ReviewInput) *protocol.Message
}

// NodeProgress reports one completed node to a per-turn callback.
type NodeProgress struct {
	ThreadID  string
	Node      Node
	Iteration int
}

// ProgressFunc receives node progress during a turn. Callbacks run on the
// turn's goroutine and should return quickly.
type ProgressFunc func(NodeProgress)

// engine walks the node graph for a single turn. It holds no per-turn
// state, so one engine serves every thread.
type engine struct {
	planner  PlannerAgent
	executor ExecutorAgent
	reviewer ReviewerAgent
	cfg      *Config
	logger   *Logger
	metrics  *Metrics
}

// runTurn advances the state through nodes starting at entry until the turn
// pauses for clarification or completes at the formatter. The context is
// checked between nodes; cancellation aborts the turn with the context's
// error and leaves the state mid-flight.
func (e *engine) runTurn(ctx context.Context, s *WorkflowState, mgr *condense.Manager, entry Node, report ProgressFunc) error {
	node := entry
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		nodeCtx, span := StartSpan(ctx, "orchestrator.node",
			attribute.String("node", string(node)),
			attribute.String("thread_id", s.ThreadID),
		)
		start := time.Now()
		switch node {
		case NodePlanner:
			e.runPlanner(nodeCtx, s, mgr)
		case NodeExecutor:
			e.runExecutor(nodeCtx, s, mgr)
		case NodeReviewer:
			e.runReviewer(nodeCtx, s, mgr)
		case NodeClarification:
			runClarification(s)
		case NodeFormatter:
			runFormatter(s)
		default:
			span.End()
			return fmt.Errorf("no handler for node %q", node)
		}
		e.metrics.RecordNode(nodeCtx, node, time.Since(start))
		span.End()

		e.logger.NodeCompleted(ctx, s.ThreadID, node, s.IterationCount)
		if report != nil {
			report(NodeProgress{ThreadID: s.ThreadID, Node: node, Iteration: s.IterationCount})
		}

		if node == NodeClarification || node == NodeFormatter {
			return nil
		}
		node = routeAfter(node, s, e.cfg)
	}
}
