package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/extorder/internal/config"
	"github.com/papapumpkin/extorder/internal/telemetry"
	"github.com/papapumpkin/extorder/internal/ui"
)

var eventsCmd = &cobra.Command{
	Use:   "events [file]",
	Short: "View the JSONL run event log",
	Long: `Reads and formats the JSONL event log written with --events.

Without an argument, reads the file named by the events setting. --run keeps
the events of one run (the short id printed by this command is enough) and
--kind keeps the given event kinds. With --follow (-f), new events are
printed as they are appended until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	eventsCmd.Flags().String("run", "", "only show events of this run (id or id prefix)")
	eventsCmd.Flags().StringSlice("kind", nil, "only show events of these kinds")
	rootCmd.AddCommand(eventsCmd)
}

// eventFilter selects events by run id prefix and kind.
type eventFilter struct {
	run   string
	kinds map[string]bool
}

func newEventFilter(run string, kinds []string) eventFilter {
	f := eventFilter{run: run}
	if len(kinds) > 0 {
		f.kinds = make(map[string]bool, len(kinds))
		for _, k := range kinds {
			f.kinds[k] = true
		}
	}
	return f
}

func (f eventFilter) keep(evt telemetry.Event) bool {
	if f.run != "" && !strings.HasPrefix(evt.RunID, f.run) {
		return false
	}
	return f.kinds == nil || f.kinds[evt.Kind]
}

func runEvents(cmd *cobra.Command, args []string) error {
	follow, _ := cmd.Flags().GetBool("follow")
	run, _ := cmd.Flags().GetString("run")
	kinds, _ := cmd.Flags().GetStringSlice("kind")
	filter := newEventFilter(run, kinds)

	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		path = cfg.Events
	}
	if path == "" {
		return errors.New("events: no file given and no events setting configured")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("events: open %s: %w", path, err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	r := bufio.NewReader(f)
	partial, err := drain(out, r, "", filter)
	if err != nil {
		return fmt.Errorf("events: read %s: %w", path, err)
	}
	if !follow {
		if line := strings.TrimSpace(partial); line != "" {
			printEvent(out, line, filter)
		}
		return nil
	}

	ctx, cancel := setupSignalContext(ui.New())
	defer cancel()
	return followEvents(ctx, out, path, r, partial, filter)
}

// drain prints every complete line r holds. A trailing line without a
// newline is still being written; it is returned so the next drain can
// complete it.
func drain(w io.Writer, r *bufio.Reader, partial string, f eventFilter) (string, error) {
	for {
		chunk, err := r.ReadString('\n')
		partial += chunk
		if errors.Is(err, io.EOF) {
			return partial, nil
		}
		if err != nil {
			return partial, err
		}
		if line := strings.TrimSpace(partial); line != "" {
			printEvent(w, line, f)
		}
		partial = ""
	}
}

// followEvents drains r on every write to path until ctx is canceled.
func followEvents(ctx context.Context, w io.Writer, path string, r *bufio.Reader, partial string, f eventFilter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("events: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("events: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			if partial, err = drain(w, r, partial, f); err != nil {
				return fmt.Errorf("events: read %s: %w", path, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("events: watch %s: %w", path, err)
		}
	}
}

// printEvent prints one JSONL line as
// "[time] kind run=<short id> unit=<label> <summary>".
func printEvent(w io.Writer, line string, f eventFilter) {
	dec := json.NewDecoder(bytes.NewReader([]byte(line)))
	dec.UseNumber()
	var evt telemetry.Event
	if err := dec.Decode(&evt); err != nil {
		fmt.Fprintf(w, "??? %s\n", line)
		return
	}
	if !f.keep(evt) {
		return
	}

	parts := []string{"[" + evt.Timestamp.Format(time.TimeOnly) + "]", evt.Kind}
	if evt.RunID != "" {
		parts = append(parts, "run="+shortRunID(evt.RunID))
	}
	if evt.Unit != "" {
		parts = append(parts, "unit="+evt.Unit)
	}
	switch data := evt.Data.(type) {
	case nil:
	case map[string]any:
		if s := summarize(evt.Kind, data); s != "" {
			parts = append(parts, s)
		}
	default:
		parts = append(parts, fmt.Sprint(data))
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}

// summarize renders the data of the kinds a pipeline run records. Data
// of other kinds, or missing expected keys, is printed as key=value pairs.
func summarize(kind string, data map[string]any) string {
	switch {
	case kind == telemetry.KindRunStart && has(data, "files", "strategy"):
		return fmt.Sprintf("%v file(s), strategy %v", data["files"], data["strategy"])
	case kind == telemetry.KindRunDone && has(data, "units"):
		return fmt.Sprintf("%v unit(s) ordered", data["units"])
	case (kind == telemetry.KindRunFailed || kind == telemetry.KindCycle || kind == telemetry.KindParseDegraded) && has(data, "error"):
		return fmt.Sprint(data["error"])
	case kind == telemetry.KindUnresolved && has(data, "names"):
		return "missing " + list(data["names"])
	case kind == telemetry.KindDuplicate && has(data, "class", "kept"):
		return fmt.Sprintf("%v already declared by %v", data["class"], data["kept"])
	case kind == telemetry.KindBundleWritten && has(data, "path", "bytes", "elapsed_ms"):
		return fmt.Sprintf("%v (%v bytes, %vms)", data["path"], data["bytes"], data["elapsed_ms"])
	case kind == telemetry.KindWatchChange && has(data, "files"):
		return list(data["files"])
	}
	return keyValues(data)
}

func has(data map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := data[k]; !ok {
			return false
		}
	}
	return true
}

func list(v any) string {
	items, ok := v.([]any)
	if !ok {
		return fmt.Sprint(v)
	}
	s := make([]string, len(items))
	for i, it := range items {
		s[i] = fmt.Sprint(it)
	}
	return strings.Join(s, ", ")
}

// shortRunID keeps the first block of a UUID.
func shortRunID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// keyValues formats a data map as key=value pairs sorted by key.
func keyValues(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, m[k])
	}
	return strings.Join(pairs, " ")
}
