// Package store defines checkpoint persistence for workflow sessions.
//
// A checkpoint is the latest saved state of one session plus the pointer to
// the node that runs next. The engine overwrites it after every node, so a
// session can be inspected or resumed at any later time.
package store

import (
	"context"
	"errors"
	"maps"
	"time"
)

// ErrNotFound is returned when no checkpoint exists for a session id.
var ErrNotFound = errors.New("checkpoint not found")

// Snapshot is one audit entry in a checkpoint's history.
type Snapshot struct {
	// Node is the node whose result produced this state.
	Node string `json:"node"`

	// State is the full session state after the node's update was merged.
	State map[string]any `json:"state"`

	// At is when the snapshot was taken.
	At time.Time `json:"at"`
}

// Checkpoint is the persisted snapshot of a session.
type Checkpoint struct {
	// SessionID identifies the session this checkpoint belongs to.
	SessionID string `json:"session_id"`

	// State is the latest merged session state.
	State map[string]any `json:"state"`

	// PendingNode is the node to execute next, or empty when the session
	// has reached a terminal marker.
	PendingNode string `json:"pending_node,omitempty"`

	// History is an optional ordered audit trail of past states.
	History []Snapshot `json:"history,omitempty"`

	// UpdatedAt is the time of the last persist.
	UpdatedAt time.Time `json:"updated_at"`

	// Version increments on every persist.
	Version int `json:"version"`
}

// Clone returns a copy safe to hand to callers. State is copied one level
// deep: values are shared, the key set is not.
func (c *Checkpoint) Clone() *Checkpoint {
	cp := *c
	cp.State = make(map[string]any, len(c.State))
	maps.Copy(cp.State, c.State)
	cp.History = make([]Snapshot, len(c.History))
	copy(cp.History, c.History)
	return &cp
}

// Store persists checkpoints keyed by session id.
//
// Implementations must make Get/Put for the same session id linearizable;
// operations on different sessions are independent. The engine additionally
// serializes whole runs per session, so a Store never sees interleaved
// writes for one session from a single engine.
type Store interface {
	// Get returns the checkpoint for a session, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (*Checkpoint, error)

	// Put stores a checkpoint, overwriting any previous one for the session.
	Put(ctx context.Context, checkpoint *Checkpoint) error

	// Delete removes a session's checkpoint. Deleting a missing session is
	// not an error.
	Delete(ctx context.Context, sessionID string) error
}
