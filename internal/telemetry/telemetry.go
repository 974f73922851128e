// Package telemetry provides a JSONL event stream for ordering runs. Each
// run's start, per-unit diagnostics, the resulting order and any written
// bundle are recorded as structured JSON events, so watch sessions and CI
// runs can be audited after the fact.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Event kinds identify the type of telemetry event.
const (
	KindRunStart      = "run_start"
	KindRunDone       = "run_done"
	KindRunFailed     = "run_failed"
	KindParseDegraded = "parse_degraded"
	KindUnresolved    = "unresolved"
	KindDuplicate     = "duplicate_class"
	KindCycle         = "cycle_detected"
	KindBundleWritten = "bundle_written"
	KindWatchChange   = "watch_change"
)

// Event represents a single telemetry record. Each event carries a timestamp,
// a kind tag, and optional context identifiers (run, unit) along with
// arbitrary structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	RunID     string    `json:"run,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewEmitter creates a new Emitter that writes JSONL events to the file at
// path. The file is created if it does not exist, or appended to if it does.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Emit writes a single event to the JSONL file. It is safe for concurrent use.
// Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Record emits an event of the given kind stamped with the current time.
// Calling Record on a nil Emitter is a no-op.
func (e *Emitter) Record(runID, kind, unit string, data any) error {
	if e == nil {
		return nil
	}
	return e.Emit(Event{
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		RunID:     runID,
		Unit:      unit,
		Data:      data,
	})
}

// Close flushes and closes the underlying file. Calling Close on a nil
// Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
