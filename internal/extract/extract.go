// Package extract finds framework class and application declarations in
// JavaScript source and derives their fully qualified dependency names.
//
// Two interchangeable strategies satisfy the Extractor contract: Pattern
// scans a token stream of the raw text, Syntax walks a tree-sitter parse
// tree. Both reduce matched calls to the same literal model, so for
// well-formed input they produce identical declarations.
package extract

import (
	"context"
	"errors"
	"fmt"
)

// ErrFileTooLarge is returned when content exceeds the configured maximum.
var ErrFileTooLarge = errors.New("file too large")

// ErrUnknownStrategy is returned by New for an unrecognized strategy name.
var ErrUnknownStrategy = errors.New("unknown extraction strategy")

// Strategy names accepted by New.
const (
	StrategyPattern = "pattern"
	StrategySyntax  = "syntax"
)

// Extractor reduces a unit's text to its ordered class declarations.
//
// On malformed input an Extractor returns a *ParseError, possibly together
// with the declarations it could still recognize. Callers decide whether to
// keep them; source.Unit discards them.
type Extractor interface {
	Extract(ctx context.Context, content []byte) ([]Declaration, error)
	Name() string
}

// ParseError describes a syntax problem at a 1-based line and column.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// Options configures which calls are recognized.
type Options struct {
	// ApplicationCalls are call targets that create an application.
	// Default: Ext.application
	ApplicationCalls []string
	// ClassCalls are call targets that define or override a class.
	// Default: Ext.define, Ext.override
	ClassCalls []string
	// MaxFileSize is the largest input in bytes; 0 disables the check.
	// Default: 10MB
	MaxFileSize int
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		ApplicationCalls: []string{"Ext.application"},
		ClassCalls:       []string{"Ext.define", "Ext.override"},
		MaxFileSize:      10 * 1024 * 1024,
	}
}

// Option is a functional option for configuring an extractor.
type Option func(*Options)

// WithApplicationCalls replaces the application call targets.
func WithApplicationCalls(targets ...string) Option {
	return func(o *Options) {
		o.ApplicationCalls = targets
	}
}

// WithClassCalls replaces the class call targets.
func WithClassCalls(targets ...string) Option {
	return func(o *Options) {
		o.ClassCalls = targets
	}
}

// WithMaxFileSize sets the maximum input size in bytes.
func WithMaxFileSize(size int) Option {
	return func(o *Options) {
		o.MaxFileSize = size
	}
}

// New returns the extractor registered under name.
func New(name string, opts ...Option) (Extractor, error) {
	switch name {
	case StrategyPattern:
		return NewPattern(opts...), nil
	case StrategySyntax:
		return NewSyntax(opts...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// matcher holds the target sets shared by both strategies.
type matcher struct {
	options Options
	apps    map[string]bool
	classes map[string]bool
}

func newMatcher(opts []Option) matcher {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	m := matcher{
		options: options,
		apps:    make(map[string]bool, len(options.ApplicationCalls)),
		classes: make(map[string]bool, len(options.ClassCalls)),
	}
	for _, t := range options.ApplicationCalls {
		m.apps[t] = true
	}
	for _, t := range options.ClassCalls {
		m.classes[t] = true
	}
	return m
}

func (m matcher) isTarget(path string) bool {
	return m.apps[path] || m.classes[path]
}

func (m matcher) checkSize(content []byte) error {
	if m.options.MaxFileSize > 0 && len(content) > m.options.MaxFileSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(content), m.options.MaxFileSize)
	}
	return nil
}
