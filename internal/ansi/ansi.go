// Package ansi provides the SGR escape codes used for extorder's status
// output and decides whether a stream should receive them at all.
package ansi

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ANSI SGR (Select Graphic Rendition) codes.
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	Yellow  = "\033[33m"
	Green   = "\033[32m"
	Red     = "\033[31m"
	Cyan    = "\033[36m"
	Magenta = "\033[35m"
)

// Colorizer wraps text in SGR codes when enabled. The zero value is
// disabled and returns text unchanged.
type Colorizer struct {
	enabled bool
}

// New returns a Colorizer that styles text only when enabled is true.
func New(enabled bool) Colorizer {
	return Colorizer{enabled: enabled}
}

// ForFile returns a Colorizer enabled when f is a terminal and the NO_COLOR
// environment variable is unset.
func ForFile(f *os.File) Colorizer {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return Colorizer{}
	}
	fd := f.Fd()
	return Colorizer{enabled: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)}
}

// Enabled reports whether Paint emits escape codes.
func (c Colorizer) Enabled() bool { return c.enabled }

// Paint returns s preceded by codes and followed by Reset.
func (c Colorizer) Paint(s string, codes ...string) string {
	if !c.enabled || len(codes) == 0 || s == "" {
		return s
	}
	return strings.Join(codes, "") + s + Reset
}
