package graph

import (
	"fmt"

	"github.com/shopscout/agent/log"
	"github.com/shopscout/agent/store"
)

// StateGraph is the mutable builder for a workflow definition. Once compiled
// it must not be modified; the compiled Runnable is safe to share across
// sessions.
type StateGraph struct {
	nodes            map[string]node
	edges            map[string]string
	conditionalEdges map[string]conditionalEdge
	entryPoint       string

	// interrupts maps node name to the state fields that must be present
	// before the node may run.
	interrupts map[string][]string

	schema *Schema
}

// NewStateGraph creates an empty state graph with a fresh schema.
func NewStateGraph() *StateGraph {
	return &StateGraph{
		nodes:            make(map[string]node),
		edges:            make(map[string]string),
		conditionalEdges: make(map[string]conditionalEdge),
		interrupts:       make(map[string][]string),
		schema:           NewSchema(),
	}
}

// AddNode adds a node with the given name, description and function.
func (g *StateGraph) AddNode(name, description string, fn NodeFunc) {
	g.nodes[name] = node{name: name, description: description, fn: fn}
}

// AddEdge adds a static edge between the "from" and "to" nodes.
func (g *StateGraph) AddEdge(from, to string) {
	g.edges[from] = to
}

// AddConditionalEdges adds a router after "from". The router returns one
// label from the targets table; any other label fails the run with
// ErrUnknownRouteLabel.
func (g *StateGraph) AddConditionalEdges(from string, router RouterFunc, targets map[string]string) {
	g.conditionalEdges[from] = conditionalEdge{router: router, targets: targets}
}

// SetEntryPoint sets the entry node executed on a session's first run.
func (g *StateGraph) SetEntryPoint(name string) {
	g.entryPoint = name
}

// AddInterruptBefore flags a node as a human-in-the-loop suspension point.
// The engine pauses right before the node whenever any of the required
// fields is still absent from the session state, and resumes through it once
// a later run finds them all present.
func (g *StateGraph) AddInterruptBefore(nodeName string, requiredFields ...string) {
	g.interrupts[nodeName] = requiredFields
}

// Schema returns the graph's merge schema for reducer registration.
func (g *StateGraph) Schema() *Schema {
	return g.schema
}

// Compile validates the definition and binds it to a checkpoint store,
// returning an immutable Runnable. Definition errors surface here, not at
// run time.
func (g *StateGraph) Compile(checkpoints store.Store, opts ...CompileOption) (*Runnable, error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: entry point %s", ErrNodeNotFound, g.entryPoint)
	}

	for name := range g.nodes {
		if err := g.validateOutgoing(name); err != nil {
			return nil, err
		}
	}

	for from, to := range g.edges {
		if err := g.validateTarget(from, to); err != nil {
			return nil, err
		}
	}
	for from, ce := range g.conditionalEdges {
		for label, to := range ce.targets {
			if err := g.validateTarget(fmt.Sprintf("%s[%s]", from, label), to); err != nil {
				return nil, err
			}
		}
	}

	for nodeName, fields := range g.interrupts {
		if _, ok := g.nodes[nodeName]; !ok {
			return nil, fmt.Errorf("%w: interrupt-before %s", ErrNodeNotFound, nodeName)
		}
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrInterruptNeedsFields, nodeName)
		}
	}

	r := &Runnable{
		graph:  g,
		store:  checkpoints,
		logger: log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (g *StateGraph) validateOutgoing(name string) error {
	_, hasStatic := g.edges[name]
	_, hasConditional := g.conditionalEdges[name]
	if !hasStatic && !hasConditional {
		return fmt.Errorf("%w: %s", ErrNoOutgoingEdge, name)
	}
	return nil
}

func (g *StateGraph) validateTarget(from, to string) error {
	if to == END {
		return nil
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("%w: edge %s -> %s", ErrNodeNotFound, from, to)
	}
	return nil
}

// CompileOption customizes a Runnable at compile time.
type CompileOption func(*Runnable)

// WithLogger sets the engine logger.
func WithLogger(logger log.Logger) CompileOption {
	return func(r *Runnable) { r.logger = logger }
}

// WithHistoryLimit keeps the last n post-node states in the checkpoint as an
// audit trail. Zero (the default) disables history.
func WithHistoryLimit(n int) CompileOption {
	return func(r *Runnable) { r.historyLimit = n }
}
