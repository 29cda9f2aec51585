package agents

import (
	"fmt"
	"strings"
)

// Role identifiers used as protocol from_node values.
const (
	RolePlanner  = "planner"
	RoleExecutor = "executor"
	RoleReviewer = "reviewer"
)

// Mode is the planner's operating mode for a task.
type Mode string

const (
	ModeImplement Mode = "implement"
	ModeFix       Mode = "fix"
	ModeRefactor  Mode = "refactor"
	ModeExplain   Mode = "explain"
	ModeTest      Mode = "test"
)

// AllModes returns the closed mode set in declaration order.
func AllModes() []Mode {
	return []Mode{ModeImplement, ModeFix, ModeRefactor, ModeExplain, ModeTest}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeImplement, ModeFix, ModeRefactor, ModeExplain, ModeTest:
		return true
	}
	return false
}

// TaskPlan is the planner's output: an ordered implementation plan.
type TaskPlan struct {
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Mode        Mode     `json:"mode"`
}

// Render formats the plan for inclusion in a downstream prompt.
func (p *TaskPlan) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mode: %s\n", p.Mode)
	fmt.Fprintf(&b, "Task: %s\n", p.Description)
	b.WriteString("Steps:\n")
	for i, step := range p.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return b.String()
}

// ReviewResult is the reviewer's output. QualityScore is treated as an
// opaque assessment in [0,1]; the routing layer compares it against the
// configured threshold.
type ReviewResult struct {
	QualityScore   float64  `json:"quality_score"`
	NeedsIteration bool     `json:"needs_iteration"`
	Feedback       string   `json:"feedback,omitempty"`
	Suggestions    []string `json:"suggestions,omitempty"`
}

// neutralQualityScore is the score assigned when the reviewer's response
// cannot be parsed. It sits above the default iteration threshold so an
// unparseable review accepts the output instead of spinning.
const neutralQualityScore = 0.7

// PlanInput is the planner node's view of the workflow state.
type PlanInput struct {
	// UserInput is the original task request.
	UserInput string

	// Context is the condensed session context rendered for prompting.
	Context string

	// Feedback carries the prior review feedback when iterating.
	Feedback string

	// Iteration is the current iteration count (zero on the first pass).
	Iteration int
}

// ExecuteInput is the executor node's view of the workflow state.
type ExecuteInput struct {
	Plan      *TaskPlan
	Context   string
	Feedback  string
	Iteration int
}

// ReviewInput is the reviewer node's view of the workflow state.
type ReviewInput struct {
	// TaskDescription is the plan's description of what was asked.
	TaskDescription string

	// Output is the executor's produced output to be assessed.
	Output string
}
