// Package orchestrator drives a turn of the coding workflow through its
// node graph: plan, execute, review, format, with an optional pause for
// user clarification at any agent node.
//
// The engine walks nodes sequentially. Each node merges its collaborator's
// message into the WorkflowState, and every routing decision is a pure
// function of that state. Collaborator failures never abort a turn; they
// are recorded in the state and surfaced in the formatted response.
//
// A clarification pause persists the full state through a checkpoint.Store
// before the paused result is returned, so the thread can be resumed with
// answers after a process restart. Turns on the same thread are strictly
// serialized; distinct threads run independently.
package orchestrator
