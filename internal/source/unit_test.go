package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/extorder/internal/extract"
)

func TestUnitPrepare(t *testing.T) {
	t.Parallel()

	t.Run("from string", func(t *testing.T) {
		t.Parallel()
		u := FromString("a.js", "Ext.define('App.A', {}); Ext.application({ name: 'App' }); Ext.define('App.B');")
		if u.Prepared() {
			t.Fatal("Prepared() = true before Prepare")
		}
		if err := u.Prepare(extract.NewPattern()); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		if !u.Prepared() {
			t.Error("Prepared() = false after Prepare")
		}
		if u.Label() != "a.js" || u.String() != "a.js" {
			t.Errorf("Label() = %q", u.Label())
		}
		if got := len(u.Declarations()); got != 3 {
			t.Errorf("len(Declarations()) = %d, want 3", got)
		}
		if diff := cmp.Diff([]string{"App.A", "App.B"}, u.ClassNames()); diff != "" {
			t.Errorf("ClassNames() mismatch (-want +got):\n%s", diff)
		}
		if u.ParseErr() != nil {
			t.Errorf("ParseErr() = %v, want nil", u.ParseErr())
		}
	})

	t.Run("from file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "view.js")
		if err := os.WriteFile(path, []byte("Ext.define('App.view.Main', {});"), 0o644); err != nil {
			t.Fatal(err)
		}
		u := FromFile(path)
		if err := u.Prepare(extract.NewPattern()); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		if u.Label() != path {
			t.Errorf("Label() = %q, want %q", u.Label(), path)
		}
		if diff := cmp.Diff([]string{"App.view.Main"}, u.ClassNames()); diff != "" {
			t.Errorf("ClassNames() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		u := FromFile(filepath.Join(t.TempDir(), "nope.js"))
		err := u.Prepare(extract.NewPattern())
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("got %v, want os.ErrNotExist", err)
		}
		if u.Prepared() {
			t.Error("Prepared() = true after provider failure")
		}
	})

	t.Run("parse failure degrades", func(t *testing.T) {
		t.Parallel()
		u := FromString("bad.js", "Ext.define('App.A', { requires: [ ")
		if err := u.Prepare(extract.NewPattern()); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		var pe *extract.ParseError
		if !errors.As(u.ParseErr(), &pe) {
			t.Errorf("ParseErr() = %v, want *extract.ParseError", u.ParseErr())
		}
		if len(u.Declarations()) != 0 || len(u.ClassNames()) != 0 {
			t.Errorf("got declarations %v, want none", u.Declarations())
		}
		if u.Content() == "" {
			t.Error("Content() is empty after parse failure")
		}
	})
}

type panickingExtractor struct{}

func (panickingExtractor) Name() string { return "panicking" }

func (panickingExtractor) Extract(context.Context, []byte) ([]extract.Declaration, error) {
	panic("index out of range")
}

func TestUnitPrepare_ExtractorPanic(t *testing.T) {
	t.Parallel()

	u := FromString("crash.js", "Ext.define('App.A', { extend:")
	if err := u.Prepare(panickingExtractor{}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if u.ParseErr() == nil {
		t.Fatal("ParseErr() = nil, want the recovered panic")
	}
	if len(u.Declarations()) != 0 {
		t.Errorf("got declarations %v, want none", u.Declarations())
	}
}

func TestUnitPrepare_TruncatedAfterKey(t *testing.T) {
	t.Parallel()

	for _, src := range []string{"Ext.define('App.A', { extend:", "Ext.application({ name:"} {
		u := FromString("cut.js", src)
		if err := u.Prepare(extract.NewPattern()); err != nil {
			t.Fatalf("Prepare(%q): %v", src, err)
		}
		var pe *extract.ParseError
		if !errors.As(u.ParseErr(), &pe) {
			t.Errorf("ParseErr() for %q = %v, want *extract.ParseError", src, u.ParseErr())
		}
	}
}

func TestUnitPrepareRunsOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	u := FromFunc("virtual.js", func() (string, error) {
		calls.Add(1)
		return "Ext.define('App.A');", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = u.Prepare(extract.NewPattern())
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("provider called %d times, want 1", got)
	}
	if u.Content() != "Ext.define('App.A');" {
		t.Errorf("Content() = %q", u.Content())
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("prepares all units", func(t *testing.T) {
		t.Parallel()
		units := []*Unit{
			FromString("a.js", "Ext.define('App.A');"),
			FromString("b.js", "Ext.define('App.B');"),
			FromString("c.js", "Ext.define('App.C', {"),
		}
		if err := Load(context.Background(), units, extract.NewPattern(), Options{Concurrency: 2}); err != nil {
			t.Fatalf("Load: %v", err)
		}
		for _, u := range units {
			if !u.Prepared() {
				t.Errorf("%s not prepared", u.Label())
			}
		}
		if units[2].ParseErr() == nil {
			t.Error("expected a parse diagnostic for c.js")
		}
	})

	t.Run("strict fails on parse error", func(t *testing.T) {
		t.Parallel()
		units := []*Unit{
			FromString("ok.js", "Ext.define('App.A');"),
			FromString("bad.js", "Ext.define('App.B'"),
		}
		err := Load(context.Background(), units, extract.NewPattern(), Options{Strict: true})
		var pf *ParseFailure
		if !errors.As(err, &pf) {
			t.Fatalf("got %v, want *ParseFailure", err)
		}
		if pf.Label != "bad.js" {
			t.Errorf("Label = %q, want bad.js", pf.Label)
		}
		var pe *extract.ParseError
		if !errors.As(err, &pe) {
			t.Errorf("ParseFailure does not unwrap to *extract.ParseError: %v", err)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		units := []*Unit{
			FromFunc("broken.js", func() (string, error) { return "", boom }),
		}
		if err := Load(context.Background(), units, extract.NewPattern(), Options{}); !errors.Is(err, boom) {
			t.Errorf("got %v, want boom", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		units := []*Unit{FromString("a.js", "Ext.define('App.A');")}
		if err := Load(ctx, units, extract.NewPattern(), Options{}); !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
	})
}
