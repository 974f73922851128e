// Package dag provides the directed graph engine behind load ordering.
// Nodes and edges keep their insertion order so that every traversal,
// and therefore every ordering, is deterministic for a given input.
package dag

import (
	"errors"
	"fmt"
)

// ErrCycle is returned when the graph contains a dependency cycle.
var ErrCycle = errors.New("cycle detected")

// ErrNodeNotFound is returned when an operation references a non-existent node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrSelfEdge is returned when an edge would create a self-loop.
var ErrSelfEdge = errors.New("self-referencing edge")

// CycleError reports the back-edge that closed a cycle: From was being
// visited when its dependency To, still on the visit stack, was reached.
type CycleError struct {
	From string
	To   string
}

// Error implements error.
func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected: '%s' -> '%s'", e.From, e.To)
}

// Is makes a CycleError match ErrCycle.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// DAG is a directed graph whose edges point from a node to its
// dependencies: if A depends on B, there is an edge from A to B.
// Cycles are allowed while building and reported by TopologicalSort.
type DAG struct {
	order []string
	index map[string]int
	// adjacency holds each node's dependencies in edge insertion order.
	adjacency [][]int
	// reverse holds each node's dependents in edge insertion order.
	reverse [][]int
	edges   map[[2]int]bool
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		index: make(map[string]int),
		edges: make(map[[2]int]bool),
	}
}

// AddNode appends a node. Returns ErrDuplicateNode if a node with that
// ID already exists.
func (d *DAG) AddNode(id string) error {
	if _, exists := d.index[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	d.index[id] = len(d.order)
	d.order = append(d.order, id)
	d.adjacency = append(d.adjacency, nil)
	d.reverse = append(d.reverse, nil)
	return nil
}

// AddEdge adds a dependency edge: from depends on to. Both nodes must
// already exist. Adding an existing edge again is a no-op.
func (d *DAG) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	f, ok := d.index[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	t, ok := d.index[to]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	key := [2]int{f, t}
	if d.edges[key] {
		return nil
	}
	d.edges[key] = true
	d.adjacency[f] = append(d.adjacency[f], t)
	d.reverse[t] = append(d.reverse[t], f)
	return nil
}

// HasNode reports whether id is in the graph.
func (d *DAG) HasNode(id string) bool {
	_, ok := d.index[id]
	return ok
}

// Nodes returns all node IDs in insertion order.
func (d *DAG) Nodes() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Len returns the number of nodes in the DAG.
func (d *DAG) Len() int {
	return len(d.order)
}

// Dependencies returns the direct dependencies of id in edge insertion
// order, or nil if id does not exist.
func (d *DAG) Dependencies(id string) []string {
	i, ok := d.index[id]
	if !ok {
		return nil
	}
	return d.ids(d.adjacency[i])
}

// Dependents returns the nodes that depend directly on id, in edge
// insertion order, or nil if id does not exist.
func (d *DAG) Dependents(id string) []string {
	i, ok := d.index[id]
	if !ok {
		return nil
	}
	return d.ids(d.reverse[i])
}

type color uint8

const (
	white color = iota
	gray
	black
)

// TopologicalSort returns node IDs so that every node appears after all
// of its dependencies. Roots are taken in node insertion order and
// dependencies are visited in edge insertion order, so the result only
// depends on the order in which the graph was built. If a cycle is
// reachable it returns a *CycleError for the first back-edge found and
// no partial order.
func (d *DAG) TopologicalSort() ([]string, error) {
	colors := make([]color, len(d.order))
	sorted := make([]string, 0, len(d.order))

	// Iterative DFS; each frame is a node and the next edge to follow.
	type frame struct {
		node int
		next int
	}
	var stack []frame

	for root := range d.order {
		if colors[root] != white {
			continue
		}
		colors[root] = gray
		stack = append(stack[:0], frame{node: root})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := d.adjacency[top.node]
			if top.next == len(deps) {
				colors[top.node] = black
				sorted = append(sorted, d.order[top.node])
				stack = stack[:len(stack)-1]
				continue
			}
			dep := deps[top.next]
			top.next++
			switch colors[dep] {
			case gray:
				return nil, &CycleError{From: d.order[top.node], To: d.order[dep]}
			case white:
				colors[dep] = gray
				stack = append(stack, frame{node: dep})
			}
		}
	}
	return sorted, nil
}

// Ancestors returns all transitive dependencies of the given node
// (everything it transitively depends on) in depth-first discovery
// order. Returns nil if the node has no dependencies or does not exist.
func (d *DAG) Ancestors(id string) []string {
	return d.walk(id, d.adjacency)
}

// Descendants returns all transitive dependents of the given node
// (everything that transitively depends on it) in depth-first discovery
// order. Returns nil if the node has no dependents or does not exist.
func (d *DAG) Descendants(id string) []string {
	return d.walk(id, d.reverse)
}

// walk collects every node reachable from id through edges, excluding
// id itself unless a cycle leads back to it.
func (d *DAG) walk(id string, edges [][]int) []string {
	start, ok := d.index[id]
	if !ok {
		return nil
	}
	visited := make([]bool, len(d.order))
	var result []string
	var visit func(int)
	visit = func(n int) {
		for _, next := range edges[n] {
			if visited[next] {
				continue
			}
			visited[next] = true
			result = append(result, d.order[next])
			visit(next)
		}
	}
	visit(start)
	return result
}

func (d *DAG) ids(idx []int) []string {
	if len(idx) == 0 {
		return nil
	}
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = d.order[n]
	}
	return out
}
