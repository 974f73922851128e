// Package ui provides stderr-based status output for extorder. Ordered
// file lists and reports go to stdout; everything a person reads while a
// command runs goes through a Printer.
package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/papapumpkin/extorder/internal/ansi"
)

// Printer writes styled status lines to stderr.
type Printer struct {
	c ansi.Colorizer
}

// New returns a Printer that styles its output when stderr is a terminal.
func New() *Printer {
	return &Printer{c: ansi.ForFile(os.Stderr)}
}

// Info prints a dimmed informational line.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(os.Stderr, p.c.Paint(msg, ansi.Dim))
}

// Warn prints a warning line.
func (p *Printer) Warn(msg string) {
	fmt.Fprintln(os.Stderr, p.c.Paint("warning: ", ansi.Yellow, ansi.Bold)+msg)
}

// Error prints an error line.
func (p *Printer) Error(msg string) {
	fmt.Fprintln(os.Stderr, p.c.Paint("error: ", ansi.Red, ansi.Bold)+msg)
}

// Scanned reports how many files a scan selected.
func (p *Printer) Scanned(files int, strategy string) {
	fmt.Fprintln(os.Stderr, p.c.Paint(fmt.Sprintf("◆ %d file(s)", files), ansi.Cyan)+
		p.c.Paint(fmt.Sprintf(" (strategy: %s)", strategy), ansi.Dim))
}

// ParseDegraded reports a unit that could not be parsed and was ordered
// as if it declared nothing.
func (p *Printer) ParseDegraded(label string, err error) {
	fmt.Fprintln(os.Stderr, p.c.Paint("⚠ "+label, ansi.Yellow)+
		p.c.Paint(fmt.Sprintf(" unparseable, treated as dependency-free: %v", err), ansi.Dim))
}

// Unresolved reports dependency names of one unit that no unit declares.
func (p *Printer) Unresolved(label string, names []string) {
	fmt.Fprintln(os.Stderr, p.c.Paint("⚠ "+label, ansi.Yellow)+" unresolved: "+strings.Join(names, ", "))
}

// Duplicate reports a class declared by more than one unit.
func (p *Printer) Duplicate(className, kept, ignored string) {
	fmt.Fprintln(os.Stderr, p.c.Paint("⚠ "+className, ansi.Yellow)+" declared again in "+ignored+
		p.c.Paint(" (keeping "+kept+")", ansi.Dim))
}

// BundleWritten reports a written bundle.
func (p *Printer) BundleWritten(path string, elapsed time.Duration, bytes int) {
	fmt.Fprintf(os.Stderr, "%s in %dms (%d bytes)\n", p.c.Paint("✓ wrote "+path, ansi.Green, ansi.Bold), elapsed.Milliseconds(), bytes)
}

// Check prints one line of a validation report: a check name, whether it
// passed, and a summary. Details are printed indented below it.
func (p *Printer) Check(name string, ok bool, summary string, details ...string) {
	if ok {
		fmt.Fprintf(os.Stderr, "%s %s\n", p.c.Paint(fmt.Sprintf("✓ %-12s", name), ansi.Green), summary)
	} else {
		fmt.Fprintf(os.Stderr, "%s %s\n", p.c.Paint(fmt.Sprintf("✗ %-12s", name), ansi.Red, ansi.Bold), summary)
	}
	for _, d := range details {
		fmt.Fprintf(os.Stderr, "  %s%s\n", p.c.Paint("• ", ansi.Dim), d)
	}
}

// ValidateResult prints the final line of a validation report.
func (p *Printer) ValidateResult(units, problems int) {
	if problems == 0 {
		fmt.Fprintln(os.Stderr, p.c.Paint(fmt.Sprintf("✓ %d unit(s) valid", units), ansi.Green, ansi.Bold))
		return
	}
	fmt.Fprintf(os.Stderr, "%s across %d unit(s)\n", p.c.Paint(fmt.Sprintf("✗ %d problem(s)", problems), ansi.Red, ansi.Bold), units)
}

// WatchStarted announces watch mode.
func (p *Printer) WatchStarted(dirs []string) {
	fmt.Fprintln(os.Stderr, p.c.Paint("── watching "+strings.Join(dirs, ", ")+" ──", ansi.Bold, ansi.Magenta))
}

// Rebuilding announces a rebuild triggered by changed files.
func (p *Printer) Rebuilding(changed []string) {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, p.c.Paint("↻ rebuilding", ansi.Magenta)+
		p.c.Paint(fmt.Sprintf(" (%d change(s): %s)", len(changed), strings.Join(changed, ", ")), ansi.Dim))
}
