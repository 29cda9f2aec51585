// Package http provides the HTTP API for agentd.
package http

import (
	"context"

	"github.com/fyrsmithlabs/agentd/internal/checkpoint"
)

// CountPausedThreads counts the checkpoints held for threads that are paused
// awaiting clarification.
//
// Returns -1 if:
//   - store is nil
//   - listing checkpoints fails
//
// so the status endpoint can distinguish "none paused" from "unknown".
func CountPausedThreads(ctx context.Context, store checkpoint.Store) int {
	if store == nil {
		return -1
	}

	cps, err := store.List(ctx)
	if err != nil {
		return -1
	}
	return len(cps)
}
