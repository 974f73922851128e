// Package bundle concatenates ordered units into one output file.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/papapumpkin/extorder/internal/minify"
	"github.com/papapumpkin/extorder/internal/source"
)

// DefaultSeparator joins unit contents.
const DefaultSeparator = "\n"

// ErrNoOutput is returned when Options.Path is empty.
var ErrNoOutput = errors.New("no output path")

// Options configures Write.
type Options struct {
	// Path is the output file. Parent directories are created.
	Path string
	// Separator joins unit contents. Default: "\n"
	Separator string
	// Minifier, when set, minifies the joined text before writing.
	Minifier *minify.Minifier
}

// Result summarizes a written bundle.
type Result struct {
	Path    string
	Units   int
	Bytes   int
	Elapsed time.Duration
}

// Join concatenates the contents of units in order.
func Join(units []*source.Unit, sep string) string {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = u.Content()
	}
	return strings.Join(parts, sep)
}

// Write joins units, optionally minifies the result, and writes it to
// opts.Path. Elapsed covers joining, minifying and writing.
func Write(ctx context.Context, units []*source.Unit, opts Options) (Result, error) {
	start := time.Now()
	if opts.Path == "" {
		return Result{}, ErrNoOutput
	}
	sep := opts.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	text := Join(units, sep)
	if opts.Minifier != nil {
		minified, err := opts.Minifier.JS(text)
		if err != nil {
			return Result{}, err
		}
		text = minified
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(opts.Path, []byte(text), 0o644); err != nil {
		return Result{}, fmt.Errorf("writing bundle: %w", err)
	}
	return Result{
		Path:    opts.Path,
		Units:   len(units),
		Bytes:   len(text),
		Elapsed: time.Since(start),
	}, nil
}

// Summary formats r the way the CLI reports a written bundle.
func (r Result) Summary() string {
	return fmt.Sprintf("wrote %s in %dms (%d bytes)", r.Path, r.Elapsed.Milliseconds(), r.Bytes)
}
