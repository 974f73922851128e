// Package source wraps the text of one file (or any other content
// provider) as a unit that can be ordered. A unit is prepared once,
// which loads its content and extracts its declarations; after that it
// is read-only and safe to share.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/papapumpkin/extorder/internal/extract"
)

// ErrNotPrepared is returned by accessors used before Prepare.
var ErrNotPrepared = errors.New("unit not prepared")

// Provider returns a unit's text. It is called at most once.
type Provider func() (string, error)

// Unit is one source file or virtual entry taking part in ordering.
type Unit struct {
	label    string
	provider Provider

	once     sync.Once
	prepared bool
	err      error

	content  string
	decls    []extract.Declaration
	classes  []string
	parseErr error
}

// FromString returns a unit over fixed text.
func FromString(label, text string) *Unit {
	return FromFunc(label, func() (string, error) { return text, nil })
}

// FromFile returns a unit that reads path when prepared. The path is
// also the unit's label.
func FromFile(path string) *Unit {
	return FromFunc(path, func() (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
}

// FromFunc returns a unit whose text comes from provider, such as a
// host bundler's virtual file.
func FromFunc(label string, provider Provider) *Unit {
	return &Unit{label: label, provider: provider}
}

// Prepare loads the unit's content and extracts its declarations. Only
// the first call does any work; later calls return the first result.
//
// A provider failure is returned. A parse failure is not: it is kept as
// ParseErr and the unit ends up with zero declarations.
func (u *Unit) Prepare(ex extract.Extractor) error {
	return u.PrepareContext(context.Background(), ex)
}

// PrepareContext is Prepare with a context passed to the extractor.
func (u *Unit) PrepareContext(ctx context.Context, ex extract.Extractor) error {
	u.once.Do(func() {
		u.err = u.prepare(ctx, ex)
		u.prepared = true
	})
	return u.err
}

func (u *Unit) prepare(ctx context.Context, ex extract.Extractor) error {
	content, err := u.provider()
	if err != nil {
		return fmt.Errorf("reading %s: %w", u.label, err)
	}
	u.content = content

	decls, err := extractSafely(ctx, ex, content)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("extracting %s: %w", u.label, err)
		}
		u.parseErr = err
		return nil
	}
	u.decls = decls
	for _, d := range decls {
		if d.ClassName != "" {
			u.classes = append(u.classes, d.ClassName)
		}
	}
	return nil
}

// Label returns the unit's identifying label.
func (u *Unit) Label() string { return u.label }

// Prepared reports whether Prepare has completed without error.
func (u *Unit) Prepared() bool { return u.prepared && u.err == nil }

// Content returns the unit's text.
func (u *Unit) Content() string { return u.content }

// Declarations returns the declarations in source order.
func (u *Unit) Declarations() []extract.Declaration { return u.decls }

// ClassNames returns the names of the classes the unit declares, in
// source order. Applications contribute no class name.
func (u *Unit) ClassNames() []string { return u.classes }

// ParseErr returns the parse diagnostic, if extraction failed.
func (u *Unit) ParseErr() error { return u.parseErr }

// String returns the unit label.
func (u *Unit) String() string { return u.label }

// extractSafely turns an extractor panic into a parse failure of this unit.
func extractSafely(ctx context.Context, ex extract.Extractor, content string) (decls []extract.Declaration, err error) {
	defer func() {
		if r := recover(); r != nil {
			decls, err = nil, fmt.Errorf("%s extractor panicked: %v", ex.Name(), r)
		}
	}()
	return ex.Extract(ctx, []byte(content))
}
