package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/agentd/internal/llm"
	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

// Executor carries out a TaskPlan and produces the work product as text.
type Executor struct {
	gen     llm.Generator
	logger  *Logger
	metrics *Metrics
}

// NewExecutor creates the executing collaborator.
func NewExecutor(gen llm.Generator, opts ...Option) *Executor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Executor{gen: gen, logger: o.logger, metrics: o.metrics}
}

// Execute makes exactly one generation call and wraps the outcome in a
// Message. Failures come back as error messages, never as Go errors.
func (e *Executor) Execute(ctx context.Context, in ExecuteInput) *protocol.Message {
	ctx, span := StartSpan(ctx, "agents.execute")
	defer span.End()

	if in.Plan == nil {
		return protocol.NewError(RoleExecutor, "no task plan to execute", nil)
	}

	start := time.Now()
	text, err := e.gen.Generate(ctx, llm.Request{
		System: executorPrompt,
		Prompt: buildExecutePrompt(in),
	})
	if err != nil {
		RecordError(ctx, err)
		e.logger.GenerateFailed(ctx, RoleExecutor, err)
		e.metrics.RecordGenerate(ctx, RoleExecutor, "error", time.Since(start))
		return protocol.NewError(RoleExecutor, fmt.Sprintf("execution failed: %v", err), nil)
	}

	if msg := clarificationMessage(RoleExecutor, text); msg != nil {
		e.logger.ClarificationRaised(ctx, RoleExecutor, len(msg.Questions))
		e.metrics.RecordGenerate(ctx, RoleExecutor, "clarification", time.Since(start))
		return msg
	}

	output := strings.TrimSpace(text)
	if output == "" {
		e.metrics.RecordGenerate(ctx, RoleExecutor, "error", time.Since(start))
		return protocol.NewError(RoleExecutor, "executor produced no output", nil)
	}

	e.logger.ExecutionProduced(ctx, len(output), in.Iteration)
	e.metrics.RecordGenerate(ctx, RoleExecutor, "complete", time.Since(start))
	return protocol.NewExecutionComplete(RoleExecutor, output, nil)
}
