package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const checkpointExt = ".json"

// FileStore persists one JSON document per thread under a directory. Writes
// go through a temp file and rename so readers never observe a partial
// checkpoint, and state survives process restarts.
type FileStore struct {
	dir string

	mu     sync.Mutex
	closed bool
	now    func() time.Time
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("checkpoint directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(threadID string) string {
	return filepath.Join(s.dir, threadID+checkpointExt)
}

// Save writes the checkpoint atomically.
func (s *FileStore) Save(ctx context.Context, cp *Checkpoint) error {
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
	if prev, err := s.read(cp.ThreadID); err == nil {
		stored.CreatedAt = prev.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	// Write atomically
	path := s.path(cp.ThreadID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	cp.CreatedAt = stored.CreatedAt
	cp.UpdatedAt = stored.UpdatedAt
	return nil
}

// Load reads the thread's checkpoint from disk.
func (s *FileStore) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	if !ValidThreadID(threadID) {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.read(threadID)
}

func (s *FileStore) read(threadID string) (*Checkpoint, error) {
	data, err := os.ReadFile(s.path(threadID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: corrupt checkpoint for thread %s: %v", ErrInvalidCheckpoint, threadID, err)
	}
	return &cp, nil
}

// Delete removes the thread's checkpoint file.
func (s *FileStore) Delete(ctx context.Context, threadID string) error {
	if !ValidThreadID(threadID) {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	err := os.Remove(s.path(threadID))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// List reads every checkpoint in the directory, most recently updated first.
// A corrupt file fails the listing rather than being silently skipped.
func (s *FileStore) List(ctx context.Context) ([]*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint directory: %w", err)
	}

	out := make([]*Checkpoint, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, checkpointExt) {
			continue
		}
		cp, err := s.read(strings.TrimSuffix(name, checkpointExt))
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ThreadID < out[j].ThreadID
	})
	return out, nil
}

// Close marks the store closed. Files on disk are left as-is.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Store = (*FileStore)(nil)
