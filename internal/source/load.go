package source

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/papapumpkin/extorder/internal/extract"
)

// Options configures Load.
type Options struct {
	// Concurrency bounds how many units are prepared at once.
	// Default: runtime.NumCPU()
	Concurrency int
	// Strict makes a parse diagnostic fail the load.
	Strict bool
	// Logger receives per-unit diagnostics. Default: discard.
	Logger logrus.FieldLogger
}

// ParseFailure is returned by Load in strict mode.
type ParseFailure struct {
	Label string
	Err   error
}

// Error implements error.
func (e *ParseFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Label, e.Err)
}

// Unwrap returns the parse error.
func (e *ParseFailure) Unwrap() error { return e.Err }

// Load prepares every unit concurrently and returns once all of them
// are prepared. The first provider error (or, in strict mode, parse
// failure) cancels the remaining work and is returned.
func Load(ctx context.Context, units []*Unit, ex extract.Extractor, opts Options) error {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := u.PrepareContext(gctx, ex); err != nil {
				return err
			}
			entry := log.WithFields(logrus.Fields{
				"unit":     u.Label(),
				"strategy": ex.Name(),
			})
			if perr := u.ParseErr(); perr != nil {
				if opts.Strict {
					return &ParseFailure{Label: u.Label(), Err: perr}
				}
				entry.WithError(perr).Warn("unparseable unit, treating as dependency-free")
				return nil
			}
			entry.WithField("classes", len(u.ClassNames())).Debug("unit prepared")
			return nil
		})
	}
	return g.Wait()
}
