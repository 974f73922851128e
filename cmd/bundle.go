package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/extorder/internal/bundle"
	"github.com/papapumpkin/extorder/internal/minify"
	"github.com/papapumpkin/extorder/internal/telemetry"
	"github.com/papapumpkin/extorder/internal/watch"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Concatenate source files in load order into one file",
	Long: `Orders the configured sources, joins them and writes the result to --out,
optionally minified. With --watch the bundle is rebuilt whenever a source file
changes.`,
	Args: cobra.NoArgs,
	RunE: runBundle,
}

func init() {
	bundleCmd.Flags().StringP("out", "o", "", "output file")
	bundleCmd.Flags().Bool("minify", false, "minify the bundle")
	bundleCmd.Flags().Bool("keep-names", false, "keep variable names when minifying")
	bundleCmd.Flags().String("separator", bundle.DefaultSeparator, "text placed between files")
	bundleCmd.Flags().Bool("watch", false, "rebuild when sources change")
	_ = viper.BindPFlag("bundle.out", bundleCmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("bundle.minify", bundleCmd.Flags().Lookup("minify"))
	_ = viper.BindPFlag("bundle.separator", bundleCmd.Flags().Lookup("separator"))
	_ = viper.BindPFlag("bundle.keep_names", bundleCmd.Flags().Lookup("keep-names"))
	rootCmd.AddCommand(bundleCmd)
}

func runBundle(cmd *cobra.Command, _ []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.close()

	opts := bundle.Options{
		Path:      p.cfg.Bundle.Out,
		Separator: p.cfg.Bundle.Separator,
	}
	if opts.Path == "" {
		return bundle.ErrNoOutput
	}
	if p.cfg.Bundle.Minify {
		opts.Minifier = minify.New(p.cfg.Bundle.KeepNames)
	}

	watching, _ := cmd.Flags().GetBool("watch")
	if !watching {
		return buildBundle(cmd.Context(), p, opts)
	}

	ctx, cancel := setupSignalContext(p.printer)
	defer cancel()
	if err := buildBundle(ctx, p, opts); err != nil {
		p.printer.Error(err.Error())
	}
	return watchBundle(ctx, p, opts)
}

func buildBundle(ctx context.Context, p *pipeline, opts bundle.Options) error {
	res, err := p.order(ctx)
	if err != nil {
		return err
	}
	result, err := bundle.Write(ctx, res.ordered, opts)
	if err != nil {
		p.record(res.runID, telemetry.KindRunFailed, "", map[string]any{"error": err.Error()})
		return err
	}
	p.printer.BundleWritten(result.Path, result.Elapsed, result.Bytes)
	p.record(res.runID, telemetry.KindBundleWritten, "", map[string]any{
		"path":       result.Path,
		"units":      result.Units,
		"bytes":      result.Bytes,
		"elapsed_ms": result.Elapsed.Milliseconds(),
		"minified":   opts.Minifier != nil,
	})
	return nil
}

func watchBundle(ctx context.Context, p *pipeline, opts bundle.Options) error {
	w, err := watch.New(p.spec(), watch.Options{Logger: p.log})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()
	p.printer.WatchStarted(w.Dirs())

	out, _ := filepath.Abs(opts.Path)
	err = watch.Run(ctx, w, func(ctx context.Context, batch []watch.Change) error {
		changed := sourceChanges(batch, out)
		if len(changed) == 0 {
			return nil
		}
		files := watch.Files(changed)
		p.record("", telemetry.KindWatchChange, "", map[string]any{"files": files})
		p.printer.Rebuilding(files)
		if err := buildBundle(ctx, p, opts); err != nil {
			p.printer.Error(err.Error())
		}
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// sourceChanges drops the bundle's own output from a change batch.
func sourceChanges(batch []watch.Change, out string) []watch.Change {
	var kept []watch.Change
	for _, c := range batch {
		if abs, err := filepath.Abs(c.File); err == nil && abs == out {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
