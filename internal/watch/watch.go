// Package watch monitors source directories with fsnotify and reports
// debounced batches of changed files matching a scan spec.
package watch

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/papapumpkin/extorder/internal/scan"
)

// DefaultDebounce is how long a file must stay quiet before it is reported.
const DefaultDebounce = 100 * time.Millisecond

// ChangeKind describes the type of file change detected.
type ChangeKind int

const (
	ChangeModified ChangeKind = iota // source file edited
	ChangeRemoved                    // source file deleted or renamed away
	ChangeAdded                      // new source file appeared
)

// String returns the kind as a lowercase word.
func (k ChangeKind) String() string {
	switch k {
	case ChangeRemoved:
		return "removed"
	case ChangeAdded:
		return "added"
	default:
		return "modified"
	}
}

// Change is one changed source file.
type Change struct {
	Kind ChangeKind
	File string
}

// Options tunes a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   logrus.FieldLogger
}

// Watcher monitors the include directories of a scan spec. Include
// directories are watched flat; recursive includes are watched together
// with every subdirectory, including ones created later.
type Watcher struct {
	Changes <-chan []Change // Read-only external channel

	spec     scan.Spec
	roots    []string // absolute recursive roots
	debounce time.Duration
	log      logrus.FieldLogger

	changes chan []Change
	stop    chan struct{}
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// New creates a watcher for spec. Nothing is watched until Start.
func New(spec scan.Spec, opts Options) (*Watcher, error) {
	roots := make([]string, 0, len(spec.IncludeRecursive))
	for _, dir := range spec.IncludeRecursive {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		roots = append(roots, abs)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}

	ch := make(chan []Change, 4)
	return &Watcher{
		Changes:  ch,
		spec:     spec,
		roots:    roots,
		debounce: opts.Debounce,
		log:      opts.Logger,
		changes:  ch,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		watcher:  fw,
	}, nil
}

// Dirs returns every configured include directory.
func (w *Watcher) Dirs() []string {
	dirs := make([]string, 0, len(w.spec.Include)+len(w.spec.IncludeRecursive))
	dirs = append(dirs, w.spec.Include...)
	return append(dirs, w.spec.IncludeRecursive...)
}

// Start registers the include directories and begins watching.
func (w *Watcher) Start() error {
	for _, dir := range w.spec.Include {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			return err
		}
	}

	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel. Batches nobody has
// read are dropped.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.spec.Excludes(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]Change)
	var last time.Time
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.flush(pending)
				return
			}
			if w.handle(event, pending) {
				last = time.Now()
			}

		case <-ticker.C:
			if len(pending) > 0 && time.Since(last) >= w.debounce {
				w.flush(pending)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("watch error")
		}
	}
}

// handle folds one fsnotify event into pending and reports whether it
// concerned a source file.
func (w *Watcher) handle(event fsnotify.Event, pending map[string]Change) bool {
	if event.Has(fsnotify.Create) && w.underRoot(event.Name) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.WithError(err).WithField("dir", event.Name).Warn("watching new directory")
			}
			return false
		}
	}
	if !w.spec.Matches(event.Name) || w.spec.Excludes(event.Name) {
		return false
	}

	var kind ChangeKind
	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		kind = ChangeRemoved
	case event.Has(fsnotify.Create):
		kind = ChangeAdded
	case event.Has(fsnotify.Write):
		kind = ChangeModified
	default:
		return false
	}
	// A write right after a create is still an addition.
	if prev, ok := pending[event.Name]; ok && prev.Kind == ChangeAdded && kind == ChangeModified {
		kind = ChangeAdded
	}
	pending[event.Name] = Change{Kind: kind, File: event.Name}
	return true
}

func (w *Watcher) underRoot(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, root := range w.roots {
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) flush(pending map[string]Change) {
	if len(pending) == 0 {
		return
	}
	batch := make([]Change, 0, len(pending))
	for file, c := range pending {
		batch = append(batch, c)
		delete(pending, file)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].File < batch[j].File })
	select {
	case w.changes <- batch:
	case <-w.stop:
	}
}

// Run calls rebuild for every batch until ctx is canceled or the watcher
// stops. A rebuild error is logged and watching continues.
func Run(ctx context.Context, w *Watcher, rebuild func(context.Context, []Change) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-w.Changes:
			if !ok {
				return nil
			}
			for _, c := range batch {
				w.log.WithFields(logrus.Fields{"file": c.File, "kind": c.Kind.String()}).Debug("source changed")
			}
			if err := rebuild(ctx, batch); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				w.log.WithError(err).Error("rebuild failed")
			}
		}
	}
}

// Files returns the paths of a batch.
func Files(batch []Change) []string {
	out := make([]string, len(batch))
	for i, c := range batch {
		out[i] = c.File
	}
	return out
}
