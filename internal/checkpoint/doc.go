// Package checkpoint persists paused workflow state keyed by thread ID.
//
// When a run suspends for clarification, the orchestrator saves the complete
// workflow state here before returning to the caller; resume loads it back,
// possibly in a different process. Two backends exist: an in-memory store for
// tests and single-process runs, and a file store writing one JSON document
// per thread with atomic renames so a crash never leaves a torn checkpoint.
package checkpoint
