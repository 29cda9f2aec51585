package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/agentd/internal/llm"
	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

// Planner turns a user request into an ordered TaskPlan.
type Planner struct {
	gen     llm.Generator
	logger  *Logger
	metrics *Metrics
}

// NewPlanner creates the planning collaborator.
func NewPlanner(gen llm.Generator, opts ...Option) *Planner {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Planner{gen: gen, logger: o.logger, metrics: o.metrics}
}

// Plan makes exactly one generation call and wraps the outcome in a Message.
// Failures come back as error messages, never as Go errors.
func (p *Planner) Plan(ctx context.Context, in PlanInput) *protocol.Message {
	ctx, span := StartSpan(ctx, "agents.plan")
	defer span.End()

	start := time.Now()
	text, err := p.gen.Generate(ctx, llm.Request{
		System: plannerPrompt,
		Prompt: buildPlanPrompt(in),
	})
	if err != nil {
		RecordError(ctx, err)
		p.logger.GenerateFailed(ctx, RolePlanner, err)
		p.metrics.RecordGenerate(ctx, RolePlanner, "error", time.Since(start))
		return protocol.NewError(RolePlanner, fmt.Sprintf("planning failed: %v", err), nil)
	}

	if msg := clarificationMessage(RolePlanner, text); msg != nil {
		p.logger.ClarificationRaised(ctx, RolePlanner, len(msg.Questions))
		p.metrics.RecordGenerate(ctx, RolePlanner, "clarification", time.Since(start))
		return msg
	}

	plan, fellBack := parsePlanJSON(text, in.UserInput)
	if fellBack {
		p.logger.ParseFallback(ctx, RolePlanner)
		p.metrics.RecordParseFallback(ctx, RolePlanner)
	}
	p.logger.PlanProduced(ctx, plan.Mode, len(plan.Steps), in.Iteration)
	p.metrics.RecordGenerate(ctx, RolePlanner, "complete", time.Since(start))
	return protocol.NewExecutionComplete(RolePlanner, plan, map[string]any{"mode": string(plan.Mode)})
}
