// Package resolve links prepared source units into a dependency graph
// and orders them so every unit follows the units it depends on.
package resolve

import (
	"fmt"
	"strings"

	"github.com/papapumpkin/extorder/internal/dag"
	"github.com/papapumpkin/extorder/internal/source"
)

// Options configures Build and Order.
type Options struct {
	// ExternalNamespaces are root namespaces whose classes are supplied
	// outside the unit set; unresolved names under them are ignored.
	// Default: ["Ext"]
	ExternalNamespaces []string
	// FailOnUnresolved makes Order fail when any name stays unresolved.
	FailOnUnresolved bool
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{ExternalNamespaces: []string{"Ext"}}
}

// Duplicate records a class declared by more than one unit. The first
// unit in input order keeps the class.
type Duplicate struct {
	ClassName string
	Kept      *source.Unit
	Ignored   *source.Unit
}

// Unresolved lists the dependency names of one unit that no unit in the
// set declares, in order of first appearance.
type Unresolved struct {
	Unit  *source.Unit
	Names []string
}

// Graph is the unit dependency graph for one unit population. It is
// read-only once built.
type Graph struct {
	units   []*source.Unit
	byLabel map[string]*source.Unit
	owners  map[string]*source.Unit
	d       *dag.DAG

	duplicates []Duplicate
	unresolved []Unresolved
}

// Build links units by matching each declaration's dependency names to
// the units that declare those classes. Every unit must be prepared and
// carry a unique label.
func Build(units []*source.Unit, opts Options) (*Graph, error) {
	g := &Graph{
		units:   units,
		byLabel: make(map[string]*source.Unit, len(units)),
		owners:  make(map[string]*source.Unit),
		d:       dag.New(),
	}

	for _, u := range units {
		if !u.Prepared() {
			return nil, fmt.Errorf("%w: %s", source.ErrNotPrepared, u.Label())
		}
		if err := g.d.AddNode(u.Label()); err != nil {
			return nil, fmt.Errorf("adding unit: %w", err)
		}
		g.byLabel[u.Label()] = u
		for _, name := range u.ClassNames() {
			if kept, ok := g.owners[name]; ok {
				if kept != u {
					g.duplicates = append(g.duplicates, Duplicate{ClassName: name, Kept: kept, Ignored: u})
				}
				continue
			}
			g.owners[name] = u
		}
	}

	for _, u := range units {
		var missing []string
		seen := make(map[string]bool)
		for _, decl := range u.Declarations() {
			for _, name := range decl.DependencyNames() {
				owner, ok := g.owners[name]
				if !ok {
					if !seen[name] && !isExternal(name, opts.ExternalNamespaces) {
						missing = append(missing, name)
					}
					seen[name] = true
					continue
				}
				if owner == u {
					continue
				}
				if err := g.d.AddEdge(u.Label(), owner.Label()); err != nil {
					return nil, fmt.Errorf("linking %s: %w", u.Label(), err)
				}
			}
		}
		if len(missing) > 0 {
			g.unresolved = append(g.unresolved, Unresolved{Unit: u, Names: missing})
		}
	}
	return g, nil
}

func isExternal(name string, namespaces []string) bool {
	root, _, _ := strings.Cut(name, ".")
	for _, ns := range namespaces {
		if root == ns {
			return true
		}
	}
	return false
}

// Units returns the units in input order.
func (g *Graph) Units() []*source.Unit { return g.units }

// Owner returns the unit that declares className.
func (g *Graph) Owner(className string) (*source.Unit, bool) {
	u, ok := g.owners[className]
	return u, ok
}

// Dependencies returns the units u depends on directly, in the order
// their class names first appear in u's declarations.
func (g *Graph) Dependencies(u *source.Unit) []*source.Unit {
	return g.lookup(g.d.Dependencies(u.Label()))
}

// Dependents returns the units that depend directly on u.
func (g *Graph) Dependents(u *source.Unit) []*source.Unit {
	return g.lookup(g.d.Dependents(u.Label()))
}

// Transitive returns every unit u depends on, directly or not.
func (g *Graph) Transitive(u *source.Unit) []*source.Unit {
	return g.lookup(g.d.Ancestors(u.Label()))
}

// Groups partitions the units into independent groups, each in load
// order. It fails like Order on a cycle.
func (g *Graph) Groups() ([][]*source.Unit, error) {
	groups, err := g.d.Groups()
	if err != nil {
		return nil, err
	}
	out := make([][]*source.Unit, len(groups))
	for i, grp := range groups {
		out[i] = g.lookup(grp.NodeIDs)
	}
	return out, nil
}

// Duplicates returns classes declared by more than one unit.
func (g *Graph) Duplicates() []Duplicate { return g.duplicates }

// Unresolved returns the units with dependency names no unit declares.
// Names under an external namespace are not reported.
func (g *Graph) Unresolved() []Unresolved { return g.unresolved }

func (g *Graph) lookup(labels []string) []*source.Unit {
	if len(labels) == 0 {
		return nil
	}
	out := make([]*source.Unit, len(labels))
	for i, l := range labels {
		out[i] = g.byLabel[l]
	}
	return out
}
