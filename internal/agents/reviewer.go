package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/agentd/internal/llm"
	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

// Reviewer scores the executor's output against the planned task.
type Reviewer struct {
	gen     llm.Generator
	logger  *Logger
	metrics *Metrics
}

// NewReviewer creates the reviewing collaborator.
func NewReviewer(gen llm.Generator, opts ...Option) *Reviewer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Reviewer{gen: gen, logger: o.logger, metrics: o.metrics}
}

// Review makes exactly one generation call and wraps the outcome in a
// Message. Failures come back as error messages, never as Go errors.
func (r *Reviewer) Review(ctx context.Context, in ReviewInput) *protocol.Message {
	ctx, span := StartSpan(ctx, "agents.review")
	defer span.End()

	start := time.Now()
	text, err := r.gen.Generate(ctx, llm.Request{
		System: reviewerPrompt,
		Prompt: buildReviewPrompt(in),
	})
	if err != nil {
		RecordError(ctx, err)
		r.logger.GenerateFailed(ctx, RoleReviewer, err)
		r.metrics.RecordGenerate(ctx, RoleReviewer, "error", time.Since(start))
		return protocol.NewError(RoleReviewer, fmt.Sprintf("review failed: %v", err), nil)
	}

	if msg := clarificationMessage(RoleReviewer, text); msg != nil {
		r.logger.ClarificationRaised(ctx, RoleReviewer, len(msg.Questions))
		r.metrics.RecordGenerate(ctx, RoleReviewer, "clarification", time.Since(start))
		return msg
	}

	review, fellBack := parseReviewJSON(text)
	if fellBack {
		r.logger.ParseFallback(ctx, RoleReviewer)
		r.metrics.RecordParseFallback(ctx, RoleReviewer)
	}
	r.logger.ReviewProduced(ctx, review.QualityScore, review.NeedsIteration)
	r.metrics.RecordGenerate(ctx, RoleReviewer, "complete", time.Since(start))
	return protocol.NewExecutionComplete(RoleReviewer, review, map[string]any{
		"quality_score":   review.QualityScore,
		"needs_iteration": review.NeedsIteration,
	})
}
