package chatgraph

import (
	"context"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Reserved node names for the entry and exit of a graph.
const (
	Start = "__start__"
	End   = "__end__"
)

var (
	ErrDuplicateNode = errors.New("duplicate node")
	ErrReservedNode  = errors.New("reserved node name")
	ErrUnknownNode   = errors.New("unknown node")
	ErrBranching     = errors.New("node already has an outgoing edge")
	ErrNoEntry       = errors.New("no edge from start")
	ErrDeadEnd       = errors.New("node has no outgoing edge")
	ErrCycle         = errors.New("graph never reaches end")
	ErrUnreachable   = errors.New("node unreachable from start")
)

// NodeFunc receives the current state and returns its contribution. It must
// not retain the state after returning.
type NodeFunc func(ctx context.Context, state *State) (Update, error)

// StateGraph builds a linear graph of nodes. Each node has exactly one
// outgoing edge; there are no conditional edges.
type StateGraph struct {
	nodes   *orderedmap.OrderedMap[string, NodeFunc]
	edges   map[string]string
	reducer Reducer
}

// NewStateGraph creates an empty builder. A nil reducer means AddMessages.
func NewStateGraph(reducer Reducer) *StateGraph {
	if reducer == nil {
		reducer = AddMessages
	}

	return &StateGraph{
		nodes:   orderedmap.New[string, NodeFunc](),
		edges:   make(map[string]string),
		reducer: reducer,
	}
}

func (g *StateGraph) AddNode(name string, fn NodeFunc) error {
	if name == Start || name == End || name == "" {
		return fmt.Errorf("%w: %q", ErrReservedNode, name)
	}
	if fn == nil {
		return fmt.Errorf("node %q: nil function", name)
	}
	if _, exists := g.nodes.Get(name); exists {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, name)
	}

	g.nodes.Set(name, fn)

	return nil
}

func (g *StateGraph) AddEdge(from, to string) error {
	if from == End {
		return fmt.Errorf("%w: edge out of %s", ErrReservedNode, End)
	}
	if to == Start {
		return fmt.Errorf("%w: edge into %s", ErrReservedNode, Start)
	}
	if prev, exists := g.edges[from]; exists {
		return fmt.Errorf("%w: %q -> %q", ErrBranching, from, prev)
	}

	g.edges[from] = to

	return nil
}

type step struct {
	name string
	fn   NodeFunc
}

// Graph is a compiled StateGraph.
type Graph struct {
	steps   []step
	reducer Reducer
}

// Compile checks that the edges form a single path from Start to End that
// visits every node, and returns the executable graph.
func (g *StateGraph) Compile() (*Graph, error) {
	for from, to := range g.edges {
		if _, ok := g.nodes.Get(from); from != Start && !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, from)
		}
		if _, ok := g.nodes.Get(to); to != End && !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, to)
		}
	}

	current, ok := g.edges[Start]
	if !ok {
		return nil, ErrNoEntry
	}

	visited := make(map[string]bool, g.nodes.Len())
	steps := make([]step, 0, g.nodes.Len())

	for current != End {
		if visited[current] {
			return nil, fmt.Errorf("%w: cycle through %q", ErrCycle, current)
		}
		visited[current] = true

		fn, _ := g.nodes.Get(current)
		steps = append(steps, step{name: current, fn: fn})

		next, ok := g.edges[current]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrDeadEnd, current)
		}
		current = next
	}

	for pair := g.nodes.Oldest(); pair != nil; pair = pair.Next() {
		if !visited[pair.Key] {
			return nil, fmt.Errorf("%w: %q", ErrUnreachable, pair.Key)
		}
	}

	return &Graph{steps: steps, reducer: g.reducer}, nil
}

// Event reports the update a node produced, after it was merged.
type Event struct {
	Node   string
	Update Update
}

// Nodes returns the node names in execution order.
func (g *Graph) Nodes() []string {
	names := make([]string, len(g.steps))
	for i, s := range g.steps {
		names[i] = s.name
	}

	return names
}

// Stream merges input into state and runs every node in order, calling emit
// after each node's update has been merged. Updates merged before a failing
// node are kept.
func (g *Graph) Stream(ctx context.Context, state *State, input Update, emit func(Event)) error {
	if err := state.apply(input, g.reducer); err != nil {
		return fmt.Errorf("failed to merge input: %w", err)
	}

	for _, s := range g.steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		update, err := s.fn(ctx, state)
		if err != nil {
			return fmt.Errorf("node %s: %w", s.name, err)
		}

		if err := state.apply(update, g.reducer); err != nil {
			return fmt.Errorf("node %s: failed to merge update: %w", s.name, err)
		}

		if emit != nil {
			emit(Event{Node: s.name, Update: update})
		}
	}

	return nil
}

// Invoke is Stream without an observer.
func (g *Graph) Invoke(ctx context.Context, state *State, input Update) error {
	return g.Stream(ctx, state, input, nil)
}
