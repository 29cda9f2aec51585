package checkpoint

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps checkpoints in process memory. Suitable for tests and
// single-process runs; state does not survive a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*Checkpoint
	closed      bool
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checkpoints: make(map[string]*Checkpoint),
		now:         time.Now,
	}
}

// Save stores a copy of the checkpoint.
func (s *MemoryStore) Save(ctx context.Context, cp *Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	stored := cp.Clone()
	stored.UpdatedAt = s.now()
	if prev, ok := s.checkpoints[cp.ThreadID]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}
	s.checkpoints[cp.ThreadID] = stored

	cp.CreatedAt = stored.CreatedAt
	cp.UpdatedAt = stored.UpdatedAt
	return nil
}

// Load returns a copy of the thread's checkpoint.
func (s *MemoryStore) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	cp, ok := s.checkpoints[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	return cp.Clone(), nil
}

// Delete removes the thread's checkpoint.
func (s *MemoryStore) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	if _, ok := s.checkpoints[threadID]; !ok {
		return ErrNotFound
	}
	delete(s.checkpoints, threadID)
	return nil
}

// List returns copies of all checkpoints, most recently updated first.
func (s *MemoryStore) List(ctx context.Context) ([]*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	out := make([]*Checkpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		out = append(out, cp.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ThreadID < out[j].ThreadID
	})
	return out, nil
}

// Close marks the store closed. Further calls fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Store = (*MemoryStore)(nil)
