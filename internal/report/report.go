// Package report renders the dependency graph of a unit set as text,
// JSON or TOML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/extorder/internal/resolve"
	"github.com/papapumpkin/extorder/internal/source"
)

// Output formats accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatTOML = "toml"
)

// ErrUnknownFormat is returned by Write for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// Report describes every unit, its declarations and its links.
type Report struct {
	Strategy   string      `json:"strategy" toml:"strategy"`
	Order      []string    `json:"order,omitempty" toml:"order,omitempty"`
	Cycle      string      `json:"cycle,omitempty" toml:"cycle,omitempty"`
	Groups     [][]string  `json:"groups,omitempty" toml:"groups,omitempty"`
	Duplicates []Duplicate `json:"duplicates,omitempty" toml:"duplicates,omitempty"`
	Units      []Unit      `json:"units" toml:"units"`
}

// Unit is one unit's entry in a Report.
type Unit struct {
	Path string `json:"path" toml:"path"`
	// Classes are declared class names; applications appear as
	// "<name> (application)".
	Classes []string `json:"classes,omitempty" toml:"classes,omitempty"`
	// Requires are the unit's fully qualified dependency names.
	Requires []string `json:"requires,omitempty" toml:"requires,omitempty"`
	// DependsOn are the paths of the units it depends on directly.
	DependsOn  []string `json:"depends_on,omitempty" toml:"depends_on,omitempty"`
	// Transitive are the paths of every unit it depends on, directly or not.
	Transitive []string `json:"transitive,omitempty" toml:"transitive,omitempty"`
	// RequiredBy are the paths of the units that depend on it directly.
	RequiredBy []string `json:"required_by,omitempty" toml:"required_by,omitempty"`
	Unresolved []string `json:"unresolved,omitempty" toml:"unresolved,omitempty"`
	ParseError string   `json:"parse_error,omitempty" toml:"parse_error,omitempty"`
}

// Duplicate is a class declared by more than one unit.
type Duplicate struct {
	Class   string `json:"class" toml:"class"`
	Kept    string `json:"kept" toml:"kept"`
	Ignored string `json:"ignored" toml:"ignored"`
}

// Build assembles a report from a built graph. ordered is the load
// order, or nil when ordering failed with orderErr.
func Build(strategy string, g *resolve.Graph, ordered []*source.Unit, orderErr error) Report {
	r := Report{Strategy: strategy, Order: labels(ordered)}
	if orderErr != nil {
		r.Cycle = orderErr.Error()
	} else if groups, err := g.Groups(); err == nil && len(groups) > 1 {
		for _, grp := range groups {
			r.Groups = append(r.Groups, labels(grp))
		}
	}
	for _, d := range g.Duplicates() {
		r.Duplicates = append(r.Duplicates, Duplicate{
			Class:   d.ClassName,
			Kept:    d.Kept.Label(),
			Ignored: d.Ignored.Label(),
		})
	}

	missing := make(map[*source.Unit][]string)
	for _, un := range g.Unresolved() {
		missing[un.Unit] = un.Names
	}
	for _, u := range g.Units() {
		entry := Unit{
			Path:       u.Label(),
			DependsOn:  labels(g.Dependencies(u)),
			Transitive: labels(g.Transitive(u)),
			RequiredBy: labels(g.Dependents(u)),
			Unresolved: missing[u],
		}
		if err := u.ParseErr(); err != nil {
			entry.ParseError = err.Error()
		}
		for _, d := range u.Declarations() {
			switch {
			case d.IsApplication && d.AppName == "":
				entry.Classes = append(entry.Classes, "(unnamed application)")
			case d.IsApplication:
				entry.Classes = append(entry.Classes, d.AppName+" (application)")
			default:
				entry.Classes = append(entry.Classes, d.ClassName)
			}
			entry.Requires = append(entry.Requires, d.DependencyNames()...)
		}
		r.Units = append(r.Units, entry)
	}
	return r
}

// Only returns a copy of r keeping the unit entries whose path is in
// paths. Order, groups and duplicates are kept whole.
func (r Report) Only(paths ...string) Report {
	if len(paths) == 0 {
		return r
	}
	keep := make(map[string]bool, len(paths))
	for _, p := range paths {
		keep[p] = true
	}
	out := r
	out.Units = nil
	for _, u := range r.Units {
		if keep[u.Path] {
			out.Units = append(out.Units, u)
		}
	}
	return out
}

// Write encodes r to w in the given format.
func Write(w io.Writer, r Report, format string) error {
	switch format {
	case FormatText, "":
		return writeText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding json report: %w", err)
		}
		return nil
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(r); err != nil {
			return fmt.Errorf("encoding toml report: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func writeText(w io.Writer, r Report) error {
	var b strings.Builder
	for i, u := range r.Units {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(u.Path + "\n")
		field(&b, "declares", u.Classes)
		field(&b, "requires", u.Requires)
		field(&b, "depends on", u.DependsOn)
		if len(u.Transitive) > len(u.DependsOn) {
			field(&b, "transitive", u.Transitive)
		}
		field(&b, "required by", u.RequiredBy)
		field(&b, "unresolved", u.Unresolved)
		if u.ParseError != "" {
			field(&b, "parse error", []string{u.ParseError})
		}
	}
	if len(r.Duplicates) > 0 {
		b.WriteString("\nduplicate classes:\n")
		for _, d := range r.Duplicates {
			fmt.Fprintf(&b, "  %s: kept %s, ignored %s\n", d.Class, d.Kept, d.Ignored)
		}
	}
	if len(r.Groups) > 0 {
		fmt.Fprintf(&b, "\nindependent groups: %d\n", len(r.Groups))
		for i, g := range r.Groups {
			fmt.Fprintf(&b, "  %d: %s\n", i+1, strings.Join(g, ", "))
		}
	}
	if r.Cycle != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Cycle)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func field(b *strings.Builder, name string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "  %-12s %s\n", name+":", strings.Join(values, ", "))
}

func labels(units []*source.Unit) []string {
	if len(units) == 0 {
		return nil
	}
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Label()
	}
	return out
}
