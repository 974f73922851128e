package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/papapumpkin/extorder/internal/config"
	"github.com/papapumpkin/extorder/internal/dag"
	"github.com/papapumpkin/extorder/internal/extract"
	"github.com/papapumpkin/extorder/internal/resolve"
	"github.com/papapumpkin/extorder/internal/scan"
	"github.com/papapumpkin/extorder/internal/source"
	"github.com/papapumpkin/extorder/internal/telemetry"
	"github.com/papapumpkin/extorder/internal/ui"
)

// pipeline runs scan, load and order with one configuration. The
// extractor is kept across runs so watch rebuilds hit its cache.
type pipeline struct {
	cfg     config.Config
	log     *logrus.Logger
	printer *ui.Printer
	events  *telemetry.Emitter
	ex      extract.Extractor
}

// runResult is the outcome of one pipeline run. orderErr holds a cycle or
// unresolved-dependency failure; the graph is still available then.
type runResult struct {
	runID    string
	units    []*source.Unit
	ordered  []*source.Unit
	graph    *resolve.Graph
	orderErr error
}

func newPipeline() (*pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)
	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	ex, err := extract.New(cfg.Strategy, cfg.ExtractOptions()...)
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		if ex, err = extract.NewCache(ex, cfg.CacheSize); err != nil {
			return nil, err
		}
	}

	var events *telemetry.Emitter
	if cfg.Events != "" {
		if events, err = telemetry.NewEmitter(cfg.Events); err != nil {
			return nil, err
		}
	}

	return &pipeline{
		cfg:     cfg,
		log:     log,
		printer: ui.New(),
		events:  events,
		ex:      ex,
	}, nil
}

func (p *pipeline) close() {
	if err := p.events.Close(); err != nil {
		p.log.WithError(err).Warn("closing event log")
	}
}

func (p *pipeline) spec() scan.Spec {
	return scan.Spec{
		Include:          p.cfg.Include,
		IncludeRecursive: p.cfg.IncludeRecursive,
		Exclude:          p.cfg.Exclude,
		Pattern:          p.cfg.Pattern,
	}
}

func (p *pipeline) resolveOptions() resolve.Options {
	return resolve.Options{
		ExternalNamespaces: p.cfg.ExternalNamespaces,
		FailOnUnresolved:   p.cfg.Strict || p.cfg.FailOnUnresolved,
	}
}

// run scans, prepares and orders the configured sources. It fails only
// when no graph could be built; ordering failures land in orderErr.
func (p *pipeline) run(ctx context.Context) (*runResult, error) {
	res := &runResult{runID: uuid.NewString()}
	fail := func(err error) (*runResult, error) {
		p.record(res.runID, telemetry.KindRunFailed, "", map[string]any{"error": err.Error()})
		return nil, err
	}

	files, err := scan.Files(p.spec())
	if err != nil {
		var mde *scan.MissingDirError
		if errors.As(err, &mde) {
			for _, dir := range mde.Dirs {
				p.printer.Error(dir + " not exists")
			}
		}
		return fail(err)
	}
	p.record(res.runID, telemetry.KindRunStart, "", map[string]any{
		"files":    len(files),
		"strategy": p.ex.Name(),
	})
	p.log.WithFields(logrus.Fields{"run": res.runID, "files": len(files)}).Debug("scanned sources")
	switch {
	case len(files) == 0:
		p.printer.Warn(fmt.Sprintf("no files match %q", p.spec().Pattern))
	case p.cfg.Verbose:
		p.printer.Scanned(len(files), p.ex.Name())
	}

	res.units = make([]*source.Unit, len(files))
	for i, f := range files {
		res.units[i] = source.FromFile(f)
	}
	err = source.Load(ctx, res.units, p.ex, source.Options{
		Concurrency: p.cfg.Concurrency,
		Strict:      p.cfg.Strict,
		Logger:      p.log.WithField("run", res.runID),
	})
	if err != nil {
		return fail(fmt.Errorf("loading sources: %w", err))
	}

	res.ordered, res.graph, res.orderErr = resolve.Order(res.units, p.resolveOptions())
	if res.graph == nil {
		return fail(res.orderErr)
	}
	p.recordDiagnostics(res)

	if res.orderErr != nil {
		kind := telemetry.KindRunFailed
		if errors.Is(res.orderErr, dag.ErrCycle) {
			kind = telemetry.KindCycle
		}
		p.record(res.runID, kind, "", map[string]any{"error": res.orderErr.Error()})
		return res, nil
	}
	p.record(res.runID, telemetry.KindRunDone, "", map[string]any{"units": len(res.ordered)})
	return res, nil
}

func (p *pipeline) recordDiagnostics(res *runResult) {
	for _, u := range res.units {
		if perr := u.ParseErr(); perr != nil {
			p.record(res.runID, telemetry.KindParseDegraded, u.Label(), map[string]any{"error": perr.Error()})
		}
	}
	for _, d := range res.graph.Duplicates() {
		p.record(res.runID, telemetry.KindDuplicate, d.Ignored.Label(), map[string]any{
			"class": d.ClassName,
			"kept":  d.Kept.Label(),
		})
	}
	for _, un := range res.graph.Unresolved() {
		p.log.WithFields(logrus.Fields{"unit": un.Unit.Label(), "names": un.Names}).Debug("unresolved dependencies")
		p.record(res.runID, telemetry.KindUnresolved, un.Unit.Label(), map[string]any{"names": un.Names})
	}
}

// warn prints the diagnostics a person should see before using an order.
func (p *pipeline) warn(res *runResult) {
	for _, u := range res.units {
		if perr := u.ParseErr(); perr != nil {
			p.printer.ParseDegraded(u.Label(), perr)
		}
	}
	for _, d := range res.graph.Duplicates() {
		p.printer.Duplicate(d.ClassName, d.Kept.Label(), d.Ignored.Label())
	}
	if p.cfg.Verbose {
		for _, un := range res.graph.Unresolved() {
			p.printer.Unresolved(un.Unit.Label(), un.Names)
		}
	}
}

// order runs the pipeline and fails on any ordering error.
func (p *pipeline) order(ctx context.Context) (*runResult, error) {
	res, err := p.run(ctx)
	if err != nil {
		return nil, err
	}
	p.warn(res)
	if res.orderErr != nil {
		return nil, res.orderErr
	}
	return res, nil
}

func (p *pipeline) record(runID, kind, unit string, data any) {
	if err := p.events.Record(runID, kind, unit, data); err != nil {
		p.log.WithError(err).Warn("recording event")
	}
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(printer *ui.Printer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			printer.Info("\nshutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
