package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

// Store errors.
var (
	// ErrNotFound is returned when no checkpoint exists for a thread.
	ErrNotFound = errors.New("checkpoint not found")

	ErrInvalidCheckpoint  = errors.New("invalid checkpoint")
	ErrThreadIDRequired   = errors.New("thread_id is required")
	ErrInvalidThreadID    = errors.New("thread_id contains invalid characters")
	ErrPausedNodeRequired = errors.New("paused_node is required")
	ErrStateRequired      = errors.New("state is required")
	ErrStoreClosed        = errors.New("store is closed")
)

// Checkpoint is one paused run: the full workflow state snapshot plus what
// the caller needs to answer (the requesting node and its questions).
// State is kept opaque so the store has no dependency on the workflow types.
type Checkpoint struct {
	// ThreadID identifies the session whose run is paused.
	ThreadID string `json:"thread_id"`

	// PausedNode is the role that requested clarification; resume re-enters
	// the graph there, not at the start.
	PausedNode string `json:"paused_node"`

	// State is the serialized workflow state snapshot.
	State json.RawMessage `json:"state"`

	// Questions are the pending clarification questions, in ask order.
	Questions []protocol.Question `json:"questions,omitempty"`

	// Metadata contains additional checkpoint metadata.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when this thread first paused.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when this checkpoint was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the checkpoint is complete enough to resume from.
func (c *Checkpoint) Validate() error {
	if c.ThreadID == "" {
		return fmt.Errorf("%w: %v", ErrInvalidCheckpoint, ErrThreadIDRequired)
	}
	if !ValidThreadID(c.ThreadID) {
		return fmt.Errorf("%w: %v", ErrInvalidCheckpoint, ErrInvalidThreadID)
	}
	if c.PausedNode == "" {
		return fmt.Errorf("%w: %v", ErrInvalidCheckpoint, ErrPausedNodeRequired)
	}
	if len(c.State) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidCheckpoint, ErrStateRequired)
	}
	return nil
}

// Clone returns a deep copy so callers can never mutate stored state.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	clone := *c
	clone.State = append(json.RawMessage(nil), c.State...)
	clone.Questions = append([]protocol.Question(nil), c.Questions...)
	if c.Metadata != nil {
		clone.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// ValidThreadID restricts thread IDs to characters safe for file names and
// URL path segments.
func ValidThreadID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
