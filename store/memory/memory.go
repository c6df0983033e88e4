// Package memory provides a process-local checkpoint store.
//
// It is the default backend: checkpoints do not survive a restart. Durable
// backends (redis, sqlite, postgres) implement the same contract.
package memory

import (
	"context"
	"sync"

	"github.com/shopscout/agent/store"
)

// Store is an in-memory checkpoint store safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	checkpoints map[string]*store.Checkpoint
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		checkpoints: make(map[string]*store.Checkpoint),
	}
}

// Get returns a copy of the checkpoint for the session.
func (s *Store) Get(ctx context.Context, sessionID string) (*store.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cp.Clone(), nil
}

// Put stores a copy of the checkpoint, overwriting any previous one.
func (s *Store) Put(ctx context.Context, checkpoint *store.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoints[checkpoint.SessionID] = checkpoint.Clone()
	return nil
}

// Delete removes the session's checkpoint if present.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.checkpoints, sessionID)
	return nil
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checkpoints)
}
