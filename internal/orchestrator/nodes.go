package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/agentd/internal/agents"
	"github.com/fyrsmithlabs/agentd/internal/condense"
	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

const (
	// maxSuggestions bounds the review suggestions shown in the final
	// response.
	maxSuggestions = 3

	// fragmentPreviewLen bounds how much of an executor result is recorded
	// into session context.
	fragmentPreviewLen = 500
)

// runPlanner asks the planner collaborator for a task plan and merges the
// result into the state.
func (e *engine) runPlanner(ctx context.Context, s *WorkflowState, mgr *condense.Manager) {
	s.CurrentNode = NodePlanner

	in := agents.PlanInput{
		UserInput: s.UserInput,
		Context:   e.promptContext(ctx, s, mgr, condense.StrategyBalanced),
		Iteration: s.IterationCount,
	}
	if s.IterationCount > 0 && s.ReviewResult != nil {
		in.Feedback = s.ReviewResult.Feedback
	}

	msg := e.planner.Plan(ctx, in)
	switch {
	case msg.IsClarification():
		markClarification(s, msg)
	case msg.IsError():
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", msg.FromNode, msg.Err))
	default:
		plan, ok := msg.Output.(*agents.TaskPlan)
		if !ok {
			s.Errors = append(s.Errors, fmt.Sprintf("%s: unexpected output type %T", msg.FromNode, msg.Output))
			return
		}
		s.TaskPlan = plan
		e.addFragment(ctx, s, mgr, condense.AddFragmentRequest{
			Content:    fmt.Sprintf("Plan (%s): %s", plan.Mode, plan.Description),
			Kind:       condense.KindDecision,
			Importance: 0.8,
			Source:     agents.RolePlanner,
		})
	}
}

// runExecutor asks the executor collaborator to carry out the plan. Failures
// are recorded into ExecutorOutput so the reviewer and formatter see them.
func (e *engine) runExecutor(ctx context.Context, s *WorkflowState, mgr *condense.Manager) {
	s.CurrentNode = NodeExecutor

	in := agents.ExecuteInput{
		Plan:      s.TaskPlan,
		Context:   e.promptContext(ctx, s, mgr, condense.StrategyRecent),
		Iteration: s.IterationCount,
	}
	if s.IterationCount > 0 && s.ReviewResult != nil {
		in.Feedback = s.ReviewResult.Feedback
	}

	msg := e.executor.Execute(ctx, in)
	switch {
	case msg.IsClarification():
		markClarification(s, msg)
	case msg.IsError():
		s.ExecutorOutput = "Error: " + msg.Err
		e.addFragment(ctx, s, mgr, condense.AddFragmentRequest{
			Content:    "Execution failed: " + msg.Err,
			Kind:       condense.KindResult,
			Importance: 0.3,
			Source:     agents.RoleExecutor,
		})
	default:
		text, ok := msg.Output.(string)
		if !ok {
			s.Errors = append(s.Errors, fmt.Sprintf("%s: unexpected output type %T", msg.FromNode, msg.Output))
			return
		}
		s.ExecutorOutput = text
		if s.TaskPlan != nil {
			e.addFragment(ctx, s, mgr, condense.AddFragmentRequest{
				Content:    "Executed plan: " + s.TaskPlan.Description,
				Kind:       condense.KindAction,
				Importance: 0.5,
				Source:     agents.RoleExecutor,
			})
		}
		e.addFragment(ctx, s, mgr, condense.AddFragmentRequest{
			Content:    truncate(text, fragmentPreviewLen),
			Kind:       condense.KindResult,
			Importance: 0.6,
			Source:     agents.RoleExecutor,
		})
	}
}

// runReviewer asks the reviewer collaborator to assess the executor output.
// The iteration count advances on every visit, whatever the outcome, which
// is what bounds the turn.
func (e *engine) runReviewer(ctx context.Context, s *WorkflowState, mgr *condense.Manager) {
	s.CurrentNode = NodeReviewer

	desc := s.UserInput
	if s.TaskPlan != nil {
		desc = s.TaskPlan.Description
	}

	msg := e.reviewer.Review(ctx, agents.ReviewInput{
		TaskDescription: desc,
		Output:          s.ExecutorOutput,
	})
	switch {
	case msg.IsClarification():
		markClarification(s, msg)
	case msg.IsError():
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", msg.FromNode, msg.Err))
	default:
		review, ok := msg.Output.(*agents.ReviewResult)
		if !ok {
			s.Errors = append(s.Errors, fmt.Sprintf("%s: unexpected output type %T", msg.FromNode, msg.Output))
			break
		}
		s.ReviewResult = review
		e.addFragment(ctx, s, mgr, condense.AddFragmentRequest{
			Content:    fmt.Sprintf("Review %d: score %.2f, iterate=%t", s.IterationCount+1, review.QualityScore, review.NeedsIteration),
			Kind:       condense.KindResult,
			Importance: review.QualityScore,
			Source:     agents.RoleReviewer,
		})
		if review.NeedsIteration && review.Feedback != "" {
			e.addFragment(ctx, s, mgr, condense.AddFragmentRequest{
				Content:    "Review feedback: " + review.Feedback,
				Kind:       condense.KindLearning,
				Importance: 0.7,
				Source:     agents.RoleReviewer,
			})
		}
	}
	s.IterationCount++
}

// runClarification pauses the turn. It renders the pending questions into a
// user-facing prompt and marks the state paused. Pure state transform, no
// collaborator involved.
func runClarification(s *WorkflowState) {
	s.CurrentNode = NodeClarification
	s.ClarificationPrompt = renderQuestions(s.ClarificationFrom, s.ClarificationQuestions)
	s.Status = StatusPaused
}

// runFormatter renders the final response from whatever the turn produced
// and marks the state complete. Pure state transform.
func runFormatter(s *WorkflowState) {
	s.CurrentNode = NodeFormatter
	s.FinalResponse = formatResponse(s)
	s.Status = StatusComplete
}

// markClarification records a clarification request in the state. Routing
// then sends the turn to the clarification node regardless of anything else.
func markClarification(s *WorkflowState, msg *protocol.Message) {
	s.NeedsClarification = true
	s.ClarificationFrom = msg.FromNode
	s.ClarificationQuestions = msg.Questions
}

// promptContext builds the context string handed to a collaborator: the
// condensed session summary, then caller-supplied metadata, then any
// clarification answers. Condensation failures degrade to an empty section.
func (e *engine) promptContext(ctx context.Context, s *WorkflowState, mgr *condense.Manager, strategy condense.Strategy) string {
	var parts []string
	if mgr != nil {
		summary, err := mgr.Condensed(ctx, strategy)
		if err != nil {
			e.logger.CondenseFailed(ctx, s.ThreadID, err)
		} else if !summary.Empty() {
			parts = append(parts, summary.Render())
		}
	}
	if len(s.Context) > 0 {
		parts = append(parts, renderMeta(s.Context))
	}
	if len(s.Answers) > 0 {
		parts = append(parts, renderAnswers(s.Answers))
	}
	return strings.Join(parts, "\n\n")
}

// addFragment records one fragment of turn history into the session context.
// Recording failures are logged and swallowed; context bookkeeping must
// never fail a turn.
func (e *engine) addFragment(ctx context.Context, s *WorkflowState, mgr *condense.Manager, req condense.AddFragmentRequest) {
	if mgr == nil || req.Content == "" {
		return
	}
	if _, err := mgr.AddFragment(ctx, req); err != nil {
		e.logger.FragmentSkipped(ctx, s.ThreadID, err)
	}
}

// renderQuestions formats pending questions as a numbered list with resume
// instructions.
func renderQuestions(fromNode string, qs []protocol.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The %s needs clarification before continuing:\n\n", fromNode)
	for i, q := range qs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Question)
		if len(q.Options) > 0 {
			fmt.Fprintf(&b, "   Options: %s\n", strings.Join(q.Options, ", "))
		}
		if q.Context != "" {
			fmt.Fprintf(&b, "   Context: %s\n", q.Context)
		}
	}
	b.WriteString("\nAnswer these questions to resume the thread.")
	return b.String()
}

// formatResponse assembles the final response text: the work product, any
// recovered failures, and the review verdict with up to three suggestions.
func formatResponse(s *WorkflowState) string {
	var b strings.Builder

	if s.TaskPlan != nil {
		fmt.Fprintf(&b, "Task: %s [%s]\n\n", s.TaskPlan.Description, s.TaskPlan.Mode)
	}
	if s.ExecutorOutput != "" {
		b.WriteString(s.ExecutorOutput)
	} else {
		b.WriteString("No output was produced.")
	}

	if len(s.Errors) > 0 {
		b.WriteString("\n\nIssues encountered:")
		for _, msg := range s.Errors {
			b.WriteString("\n- " + msg)
		}
	}

	if r := s.ReviewResult; r != nil {
		fmt.Fprintf(&b, "\n\nQuality score: %.2f", r.QualityScore)
		if s.IterationCount > 1 {
			fmt.Fprintf(&b, " after %d review iterations", s.IterationCount)
		}
		suggestions := r.Suggestions
		if len(suggestions) > maxSuggestions {
			suggestions = suggestions[:maxSuggestions]
		}
		if len(suggestions) > 0 {
			b.WriteString("\n\nSuggestions:")
			for _, sg := range suggestions {
				b.WriteString("\n- " + sg)
			}
		}
	}

	return b.String()
}

// renderMeta formats the caller-supplied context map in stable key order.
func renderMeta(meta map[string]any) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Session metadata:")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n- %s: %v", k, meta[k])
	}
	return b.String()
}

// renderAnswers formats clarification answers in stable key order.
func renderAnswers(answers map[string]string) string {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Clarification answers:")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n- %s: %s", k, answers[k])
	}
	return b.String()
}

// truncate bounds s to max bytes, marking the cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
