package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopscout/agent/log"
	"github.com/shopscout/agent/store"
)

// Runnable is a compiled workflow bound to a checkpoint store. It is
// immutable and safe for concurrent use across sessions; runs for the same
// session id are serialized internally.
type Runnable struct {
	graph        *StateGraph
	store        store.Store
	logger       log.Logger
	historyLimit int

	// locks holds one *sync.Mutex per active session id.
	locks sync.Map
}

// Result is the outcome of one Run call.
type Result struct {
	SessionID string

	// State is the full session state after the run stopped.
	State State

	// PendingNode names the interrupt node the session is suspended before,
	// or "" when the session reached a terminal marker.
	PendingNode string

	// Done is true when the session reached END.
	Done bool
}

func (r *Runnable) sessionLock(sessionID string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Run executes the workflow for a session until it reaches END or an
// interrupt point whose required fields are still missing.
//
// On the first call for a session id an empty checkpoint is created and
// execution starts at the entry node. On later calls execution resumes from
// the persisted pending node; nodes before the pending node are never
// re-run. Once a session has completed, a Run with a non-empty delta starts
// a new pass from the entry node over the accumulated state. The input delta
// is merged into the loaded state through the schema before any node
// executes.
//
// A node returning an error is fatal for this invocation: nothing from the
// failed node is merged or persisted, and the error propagates. The
// checkpoint remains at its pre-node state, so a later Run retries the same
// node.
func (r *Runnable) Run(ctx context.Context, sessionID string, delta State) (*Result, error) {
	mu := r.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	cp, err := r.store.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		cp = &store.Checkpoint{
			SessionID:   sessionID,
			State:       State{},
			PendingNode: r.graph.entryPoint,
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint for %s: %w", sessionID, err)
	}

	state := State(cp.State)
	if len(delta) > 0 {
		state, err = r.graph.schema.Apply(state, delta)
		if err != nil {
			return nil, err
		}
	}

	current := cp.PendingNode

	// A completed session re-enters at the entry node when new input
	// arrives; without input it just reports its terminal state.
	if cp.PendingNode == "" && cp.Version > 0 {
		if len(delta) == 0 {
			return &Result{SessionID: sessionID, State: state, Done: true}, nil
		}
		current = r.graph.entryPoint
	}

	for {
		if current == END {
			if err := r.persist(ctx, cp, state, "", ""); err != nil {
				return nil, err
			}
			r.logger.Debug("session %s completed", sessionID)
			return &Result{SessionID: sessionID, State: state, Done: true}, nil
		}

		if required, ok := r.graph.interrupts[current]; ok {
			if missing := missingFields(state, required); len(missing) > 0 {
				if err := r.persist(ctx, cp, state, current, ""); err != nil {
					return nil, err
				}
				r.logger.Info("session %s suspended before %s, waiting for %v", sessionID, current, missing)
				return &Result{SessionID: sessionID, State: state, PendingNode: current}, nil
			}
		}

		n, ok := r.graph.nodes[current]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		r.logger.Debug("session %s executing node %s", sessionID, current)
		update, err := n.fn(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("error in node %s: %w", current, err)
		}

		state, err = r.graph.schema.Apply(state, update)
		if err != nil {
			return nil, fmt.Errorf("merge after node %s: %w", current, err)
		}

		next, err := r.nextNode(ctx, current, state)
		if err != nil {
			return nil, err
		}

		pending := next
		if next == END {
			pending = ""
		}
		if err := r.persist(ctx, cp, state, pending, current); err != nil {
			return nil, err
		}
		if next == END {
			r.logger.Debug("session %s completed after %s", sessionID, current)
			return &Result{SessionID: sessionID, State: state, Done: true}, nil
		}
		current = next
	}
}

// State returns the current checkpoint view of a session.
func (r *Runnable) State(ctx context.Context, sessionID string) (*Result, error) {
	cp, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Result{
		SessionID:   sessionID,
		State:       State(cp.State),
		PendingNode: cp.PendingNode,
		Done:        cp.PendingNode == "" && cp.Version > 0,
	}, nil
}

// UpdateState merges a caller-supplied delta into a session's persisted
// state without executing any node. It is the out-of-band injection step a
// caller performs before resuming an interrupted session. Unknown sessions
// return store.ErrNotFound.
func (r *Runnable) UpdateState(ctx context.Context, sessionID string, delta State) (*store.Checkpoint, error) {
	mu := r.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	cp, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	state, err := r.graph.schema.Apply(State(cp.State), delta)
	if err != nil {
		return nil, err
	}

	if err := r.persist(ctx, cp, state, cp.PendingNode, ""); err != nil {
		return nil, err
	}
	return cp.Clone(), nil
}

func (r *Runnable) nextNode(ctx context.Context, current string, state State) (string, error) {
	if ce, ok := r.graph.conditionalEdges[current]; ok {
		label := ce.router(ctx, state)
		target, ok := ce.targets[label]
		if !ok {
			return "", fmt.Errorf("%w: node %s label %q", ErrUnknownRouteLabel, current, label)
		}
		return target, nil
	}
	if to, ok := r.graph.edges[current]; ok {
		return to, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, current)
}

// persist writes the checkpoint after a step. ranNode is non-empty when the
// write follows a node execution and history is enabled.
func (r *Runnable) persist(ctx context.Context, cp *store.Checkpoint, state State, pendingNode, ranNode string) error {
	cp.State = state
	cp.PendingNode = pendingNode
	cp.UpdatedAt = time.Now()
	cp.Version++

	if r.historyLimit > 0 && ranNode != "" {
		cp.History = append(cp.History, store.Snapshot{
			Node:  ranNode,
			State: state.Clone(),
			At:    cp.UpdatedAt,
		})
		if len(cp.History) > r.historyLimit {
			cp.History = cp.History[len(cp.History)-r.historyLimit:]
		}
	}

	if err := r.store.Put(ctx, cp); err != nil {
		return fmt.Errorf("failed to persist checkpoint for %s: %w", cp.SessionID, err)
	}
	return nil
}

func missingFields(state State, required []string) []string {
	var missing []string
	for _, f := range required {
		if !state.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}
