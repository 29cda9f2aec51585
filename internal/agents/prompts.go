package agents

import (
	"fmt"
	"strings"
)

// plannerPrompt is the system prompt for the planning role.
const plannerPrompt = `You are an expert software planning agent. Break the user's coding request into a small, ordered implementation plan.

Respond with a JSON object containing:
- "description": A one-sentence restatement of the task
- "steps": An ordered array of concrete implementation steps (strings)
- "mode": One of "implement", "fix", "refactor", "explain", "test"

If the request is too ambiguous to plan, respond instead with a JSON object containing:
- "questions": An array of objects {"question": "...", "type": "text" or "choice", "options": [...]}

Respond ONLY with the JSON object, no additional text.`

// executorPrompt is the system prompt for the executing role.
const executorPrompt = `You are an expert software engineering agent. Carry out the given implementation plan and produce the resulting code, changes, or explanation.

If the plan cannot be carried out without more information from the user, respond with a JSON object containing:
- "questions": An array of objects {"question": "...", "type": "text" or "choice", "options": [...]}

Otherwise respond with the work product directly as plain text, no JSON wrapper.`

// reviewerPrompt is the system prompt for the reviewing role.
const reviewerPrompt = `You are an expert code review agent. Assess whether the produced output fulfills the stated task.

Respond with a JSON object containing:
- "quality_score": Your assessment from 0.0 to 1.0
- "needs_iteration": true if the output should be revised before delivery
- "feedback": Specific, actionable feedback for the next revision
- "suggestions": Up to 3 follow-up suggestions (array of strings)

Respond ONLY with the JSON object, no additional text.`

func buildPlanPrompt(in PlanInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s", in.UserInput)
	if in.Context != "" {
		fmt.Fprintf(&b, "\n\nSession context:\n%s", in.Context)
	}
	if in.Iteration > 0 && in.Feedback != "" {
		fmt.Fprintf(&b, "\n\nReview feedback from iteration %d:\n%s", in.Iteration, in.Feedback)
	}
	return b.String()
}

func buildExecutePrompt(in ExecuteInput) string {
	var b strings.Builder
	b.WriteString("Implementation plan:\n")
	b.WriteString(in.Plan.Render())
	if in.Context != "" {
		fmt.Fprintf(&b, "\nSession context:\n%s", in.Context)
	}
	if in.Iteration > 0 && in.Feedback != "" {
		fmt.Fprintf(&b, "\nThis is revision %d. Address this review feedback:\n%s", in.Iteration, in.Feedback)
	}
	return b.String()
}

func buildReviewPrompt(in ReviewInput) string {
	return fmt.Sprintf("Task:\n%s\n\nProduced output:\n%s", in.TaskDescription, in.Output)
}
