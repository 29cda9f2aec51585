// Package agents implements the role collaborators behind the workflow
// nodes: a planner that turns a user request into an ordered task plan, an
// executor that carries the plan out, and a reviewer that scores the result.
//
// Each collaborator renders a role prompt, makes exactly one Generator call
// per node visit, and wraps the outcome in a protocol Message. Failures never
// escape as errors: a generation failure becomes a Message of type error, and
// a malformed JSON plan or review falls back to a deterministic minimal value
// so the workflow can always proceed.
package agents
