// Package graph implements the stateful workflow engine.
//
// A StateGraph is a directed graph of nodes operating over a shared keyed
// session state. Nodes return partial updates that are merged into the state
// through a per-field reducer schema. Edges are static or conditional, and
// nodes can be flagged interrupt-before: execution pauses right before such a
// node until the caller supplies its required fields and resumes.
//
// Compiled graphs are immutable and shared across sessions; all per-session
// mutable data lives in the checkpoint store.
package graph

import (
	"context"
	"errors"
)

// END is the terminal marker. Edges pointing at END finish the session.
const END = "END"

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrUnknownRouteLabel is returned when a router returns a label that has
	// no statically declared target. This is a programming error in the
	// workflow definition, not a runtime input error.
	ErrUnknownRouteLabel = errors.New("router returned undeclared label")

	// ErrInterruptNeedsFields is returned at compile time when an
	// interrupt-before node declares no required fields. Without them the
	// engine could never decide when to resume past the node.
	ErrInterruptNeedsFields = errors.New("interrupt-before node declares no required fields")
)

// NodeFunc is one step in a workflow: it reads the current session state and
// returns a partial update to merge. Returning an error aborts the run
// without committing anything from this node; nodes that can fail for
// transient reasons are expected to catch internally and return a
// deterministic fallback update instead.
type NodeFunc func(ctx context.Context, state State) (State, error)

// RouterFunc picks the label of the next edge after a node, based on the
// freshly merged state. The label must be one of the statically declared
// cases for that node.
type RouterFunc func(ctx context.Context, state State) string

type node struct {
	name        string
	description string
	fn          NodeFunc
}

type conditionalEdge struct {
	router  RouterFunc
	targets map[string]string
}
