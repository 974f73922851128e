package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/papapumpkin/extorder/internal/source"
)

// ErrUnresolved is matched by an UnresolvedError.
var ErrUnresolved = errors.New("unresolved dependencies")

// UnresolvedError is returned by Order when FailOnUnresolved is set and
// some dependency names have no owning unit.
type UnresolvedError struct {
	Missing []Unresolved
}

// Error lists the missing names per unit.
func (e *UnresolvedError) Error() string {
	var b strings.Builder
	b.WriteString(ErrUnresolved.Error())
	for _, m := range e.Missing {
		fmt.Fprintf(&b, "; %s: %s", m.Unit.Label(), strings.Join(m.Names, ", "))
	}
	return b.String()
}

// Unwrap makes an UnresolvedError match ErrUnresolved.
func (e *UnresolvedError) Unwrap() error { return ErrUnresolved }

// Order builds the graph for units and returns them in load order:
// every unit after all the units it depends on, independent units in
// input order. A cycle fails the whole operation with a *dag.CycleError
// naming the two units of the first back-edge; no partial order is
// returned. The graph is returned whenever it could be built, so callers
// can report diagnostics even when ordering fails.
func Order(units []*source.Unit, opts Options) ([]*source.Unit, *Graph, error) {
	g, err := Build(units, opts)
	if err != nil {
		return nil, nil, err
	}
	if opts.FailOnUnresolved && len(g.unresolved) > 0 {
		return nil, g, &UnresolvedError{Missing: g.unresolved}
	}
	labels, err := g.d.TopologicalSort()
	if err != nil {
		return nil, g, fmt.Errorf("ordering units: %w", err)
	}
	ordered := make([]*source.Unit, len(labels))
	for i, l := range labels {
		ordered[i] = g.byLabel[l]
	}
	return ordered, g, nil
}
