package checkpoint

import (
	"context"
)

// Store persists checkpoints keyed by thread ID. One checkpoint per thread:
// saving again overwrites, which is correct because a thread can only be
// paused at one node at a time.
type Store interface {
	// Save writes the checkpoint, overwriting any prior one for the thread.
	// CreatedAt is preserved across overwrites; UpdatedAt is set on every
	// save. Save must complete durably before the paused turn result is
	// returned to the caller.
	Save(ctx context.Context, cp *Checkpoint) error

	// Load returns the checkpoint for the thread, or ErrNotFound.
	Load(ctx context.Context, threadID string) (*Checkpoint, error)

	// Delete removes the thread's checkpoint. Deleting a missing thread
	// returns ErrNotFound.
	Delete(ctx context.Context, threadID string) error

	// List returns all checkpoints, most recently updated first.
	List(ctx context.Context) ([]*Checkpoint, error)

	// Close releases backend resources.
	Close() error
}
