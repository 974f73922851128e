package extract

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// strategies returns every extractor the contract suite runs against.
func strategies(opts ...Option) []Extractor {
	return []Extractor{NewPattern(opts...), NewSyntax(opts...)}
}

// forEachStrategy runs fn as a parallel subtest per strategy.
func forEachStrategy(t *testing.T, fn func(t *testing.T, ex Extractor), opts ...Option) {
	t.Helper()
	for _, ex := range strategies(opts...) {
		t.Run(ex.Name(), func(t *testing.T) {
			t.Parallel()
			fn(t, ex)
		})
	}
}

func mustExtract(t *testing.T, ex Extractor, src string) []Declaration {
	t.Helper()
	decls, err := ex.Extract(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("%s: Extract: %v", ex.Name(), err)
	}
	return decls
}

func single(t *testing.T, ex Extractor, src string) Declaration {
	t.Helper()
	decls := mustExtract(t, ex, src)
	if len(decls) != 1 {
		t.Fatalf("%s: got %d declarations, want 1: %+v", ex.Name(), len(decls), decls)
	}
	return decls[0]
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func TestContract_DependencyNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "extend",
			src:  `Ext.define('App.SubClass', { extend: 'App.Class' });`,
			want: []string{"App.Class"},
		},
		{
			name: "override",
			src:  `Ext.define('App.ClassOverride', { override: 'App.Class' });`,
			want: []string{"App.Class"},
		},
		{
			name: "mixins as list",
			src: `Ext.define('App.Class', {
    mixins: ['Ext.mixin.Observable', 'Ext.mixin.Responsive']
});`,
			want: []string{"Ext.mixin.Observable", "Ext.mixin.Responsive"},
		},
		{
			name: "mixins as record",
			src: `Ext.define('App.Class', {
    mixins: {
        observable: 'Ext.mixin.Observable',
        responsive: 'Ext.mixin.Responsive'
    }
});`,
			want: []string{"Ext.mixin.Observable", "Ext.mixin.Responsive"},
		},
		{
			name: "requires",
			src:  `Ext.define('App.Class', { requires: ['App.Class2', 'App.Class3'] });`,
			want: []string{"App.Class2", "App.Class3"},
		},
		{
			name: "store model full",
			src:  `Ext.define('App.store.MyStore', { model: 'App.model.MyModel' });`,
			want: []string{"App.model.MyModel"},
		},
		{
			name: "store model short stays verbatim",
			src:  `Ext.define('App.store.MyStore', { model: 'MyModel' });`,
			want: []string{"MyModel"},
		},
		{
			name: "application controllers",
			src: `Ext.application({
    name: 'App',
    controllers: ['App.controller.Controller1', 'Controller2']
});`,
			want: []string{"App.controller.Controller1", "App.controller.Controller2"},
		},
		{
			name: "controller models",
			src:  `Ext.define('App.controller.Controller', { models: ['App.model.Model1', 'Model2'] });`,
			want: []string{"App.model.Model1", "App.model.Model2"},
		},
		{
			name: "controller views",
			src: `Ext.define('MyApp.controller.MyController', {
    views: ['MyView1', 'sub.View2', 'MyApp.view.MyView3', 'OtherApp.view.View6']
});`,
			want: []string{"MyApp.view.MyView1", "MyApp.view.sub.View2", "MyApp.view.MyView3", "OtherApp.view.View6"},
		},
		{
			name: "controller stores single string",
			src:  `Ext.define('App.controller.Controller', { stores: 'Store2' });`,
			want: []string{"App.store.Store2"},
		},
		{
			name: "key order is fixed",
			src: `Ext.define('App.view.Grid', {
    views: ['Row'],
    requires: 'App.util.Format',
    extend: 'Ext.grid.Panel',
    mixins: ['App.mixin.Sortable']
});`,
			want: []string{"Ext.grid.Panel", "App.mixin.Sortable", "App.util.Format", "App.view.Row"},
		},
		{
			name: "duplicates kept",
			src:  `Ext.define('App.A', { extend: 'App.B', requires: ['App.B'] });`,
			want: []string{"App.B", "App.B"},
		},
		{
			name: "non-string values skipped",
			src: `Ext.define('App.A', {
    requires: ['App.B', someVar, 42, null, 'App.C'],
    extend: getBase(),
    views: ['V' + 'iew']
});`,
			want: []string{"App.B", "App.C"},
		},
		{
			name: "quoted keys",
			src:  `Ext.define("App.A", { "extend": "App.B", 'requires': ["App.C"] });`,
			want: []string{"App.B", "App.C"},
		},
		{
			name: "first duplicate key wins",
			src:  `Ext.define('App.A', { extend: 'App.B', extend: 'App.C' });`,
			want: []string{"App.B"},
		},
		{
			name: "methods and functions are ignored",
			src: `Ext.define('App.A', {
    extend: 'App.Base',
    init: function () {
        var cfg = { extend: 'App.Nope' };
        return cfg;
    },
    launch() { this.callParent(arguments); },
    handler: (a, b) => { return a / b; },
    pattern: /[}{'"]+/g,
    ...defaults,
    requires: ['App.Util']
});`,
			want: []string{"App.Base", "App.Util"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			forEachStrategy(t, func(t *testing.T, ex Extractor) {
				d := single(t, ex, tt.src)
				if diff := cmp.Diff(tt.want, d.DependencyNames()); diff != "" {
					t.Errorf("DependencyNames() mismatch (-want +got):\n%s", diff)
				}
			})
		})
	}
}

func TestContract_AutoCreateViewport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		src       string
		wantValue string
		wantDeps  []string
	}{
		{
			name:      "true",
			src:       `Ext.application({ name: 'App', autoCreateViewport: true })`,
			wantValue: "true",
			wantDeps:  []string{"App.view.Viewport"},
		},
		{
			name:      "false",
			src:       `Ext.application({ name: 'App', autoCreateViewport: false })`,
			wantValue: "false",
			wantDeps:  []string{},
		},
		{
			name:      "absent",
			src:       `Ext.application({ name: 'App' })`,
			wantValue: "",
			wantDeps:  []string{},
		},
		{
			name:      "explicit class",
			src:       `Ext.application({ name: 'App', autoCreateViewport: 'App.view.MyViewport' })`,
			wantValue: "App.view.MyViewport",
			wantDeps:  []string{"App.view.MyViewport"},
		},
		{
			name:      "string true",
			src:       `Ext.application({ name: 'App', autoCreateViewport: 'true' })`,
			wantValue: "true",
			wantDeps:  []string{"App.view.Viewport"},
		},
		{
			name:      "after module keys",
			src:       `Ext.application({ autoCreateViewport: true, name: 'App', views: ['Main'] })`,
			wantValue: "true",
			wantDeps:  []string{"App.view.Main", "App.view.Viewport"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			forEachStrategy(t, func(t *testing.T, ex Extractor) {
				d := single(t, ex, tt.src)
				if !d.IsApplication {
					t.Fatal("IsApplication = false, want true")
				}
				if d.AutoCreateViewport != tt.wantValue {
					t.Errorf("AutoCreateViewport = %q, want %q", d.AutoCreateViewport, tt.wantValue)
				}
				got := d.DependencyNames()
				if got == nil {
					got = []string{}
				}
				if diff := cmp.Diff(tt.wantDeps, got); diff != "" {
					t.Errorf("DependencyNames() mismatch (-want +got):\n%s", diff)
				}
			})
		})
	}
}

func TestContract_Identity(t *testing.T) {
	t.Parallel()

	t.Run("application", func(t *testing.T) {
		t.Parallel()
		forEachStrategy(t, func(t *testing.T, ex Extractor) {
			d := single(t, ex, "Ext.application({ name: 'App' })")
			if d.AppName != "App" || d.ClassName != "" || d.Label() != "App" {
				t.Errorf("got AppName=%q ClassName=%q Label=%q", d.AppName, d.ClassName, d.Label())
			}
		})
	})

	t.Run("class without config", func(t *testing.T) {
		t.Parallel()
		forEachStrategy(t, func(t *testing.T, ex Extractor) {
			d := single(t, ex, "Ext.define('App.Class1')")
			if d.ClassName != "App.Class1" || d.IsApplication {
				t.Errorf("got ClassName=%q IsApplication=%v", d.ClassName, d.IsApplication)
			}
			if len(d.DependencyNames()) != 0 {
				t.Errorf("DependencyNames() = %v, want none", d.DependencyNames())
			}
		})
	})

	t.Run("multiple classes keep source order", func(t *testing.T) {
		t.Parallel()
		forEachStrategy(t, func(t *testing.T, ex Extractor) {
			decls := mustExtract(t, ex, "Ext.define('App.Class1')\nExt.define('App.Class2')\n")
			var names []string
			for _, d := range decls {
				names = append(names, d.ClassName)
			}
			if diff := cmp.Diff([]string{"App.Class1", "App.Class2"}, names); diff != "" {
				t.Errorf("class names mismatch (-want +got):\n%s", diff)
			}
		})
	})

	t.Run("override call", func(t *testing.T) {
		t.Parallel()
		forEachStrategy(t, func(t *testing.T, ex Extractor) {
			d := single(t, ex, "Ext.override('App.Grid', { requires: ['App.Fix'] });")
			if d.ClassName != "App.Grid" || d.Target != "Ext.override" {
				t.Errorf("got ClassName=%q Target=%q", d.ClassName, d.Target)
			}
		})
	})

	t.Run("config as later argument", func(t *testing.T) {
		t.Parallel()
		forEachStrategy(t, func(t *testing.T, ex Extractor) {
			d := single(t, ex, "Ext.define('App.A', null, { extend: 'App.B' }, function () {});")
			if diff := cmp.Diff([]string{"App.B"}, d.DependencyNames()); diff != "" {
				t.Errorf("DependencyNames() mismatch (-want +got):\n%s", diff)
			}
		})
	})
}

func TestContract_Recognition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		src   string
		names []string
	}{
		{
			name:  "no declarations",
			src:   "var x = 1;\nfunction f() { return x / 2; }\n",
			names: nil,
		},
		{
			name:  "commented out",
			src:   "// Ext.define('App.Line')\n/* Ext.define('App.Block') */\nExt.define('App.Real');",
			names: []string{"App.Real"},
		},
		{
			name:  "inside strings",
			src:   "var s = \"Ext.define('App.InString')\"; var t = `Ext.define('App.InTemplate')`;",
			names: nil,
		},
		{
			name:  "nested in closure",
			src:   "(function () {\n  Ext.define('App.Inner', { extend: 'App.Base' });\n})();",
			names: []string{"App.Inner"},
		},
		{
			name:  "nested in another call",
			src:   "Ext.onReady(function () { Ext.define('App.A'); Ext.application({ name: 'App' }); });",
			names: []string{"App.A", "App"},
		},
		{
			name:  "define nested inside define config",
			src:   "Ext.define('App.Outer', { init: function () { Ext.define('App.Inner'); } });",
			names: []string{"App.Outer", "App.Inner"},
		},
		{
			name:  "qualified callee not matched",
			src:   "Foo.Ext.define('App.Nope'); Ext.definitely('App.Nope2');",
			names: nil,
		},
		{
			name:  "class name must be a string literal",
			src:   "Ext.define(name, { extend: 'App.B' }); Ext.define(`App.Tpl`);",
			names: nil,
		},
		{
			name:  "application needs a config record",
			src:   "Ext.application('App.Application');",
			names: nil,
		},
		{
			name:  "template with substitution",
			src:   "var x = `${ {a: '}'}.a }`;\nExt.define('App.After');",
			names: []string{"App.After"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			forEachStrategy(t, func(t *testing.T, ex Extractor) {
				var names []string
				for _, d := range mustExtract(t, ex, tt.src) {
					names = append(names, d.Label())
				}
				if diff := cmp.Diff(tt.names, names); diff != "" {
					t.Errorf("declarations mismatch (-want +got):\n%s", diff)
				}
			})
		})
	}
}

func TestContract_MixinsListAndRecordAgree(t *testing.T) {
	t.Parallel()

	list := `Ext.define('App.Panel', { mixins: ['App.mixin.A', 'App.mixin.B'] });`
	record := `Ext.define('App.Panel', { mixins: { b: 'App.mixin.B', a: 'App.mixin.A' } });`

	forEachStrategy(t, func(t *testing.T, ex Extractor) {
		a := sortedCopy(single(t, ex, list).DependencyNames())
		b := sortedCopy(single(t, ex, record).DependencyNames())
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("list and record mixins differ (-list +record):\n%s", diff)
		}
	})
}

func TestContract_StrategiesAgree(t *testing.T) {
	t.Parallel()

	src := `/**
 * Main application.
 */
Ext.application({
    name: 'Shop',
    requires: ['Shop.util.Config'],
    controllers: ['Cart', 'Shop.controller.Checkout'],
    stores: ['Products'],
    autoCreateViewport: true
});

Ext.define('Shop.controller.Cart', {
    extend: 'Ext.app.Controller',
    views: ['cart.List', 'cart.Item'],
    models: ['Product'],
    refs: [{ ref: 'list', selector: 'cartlist' }],
    onAdd: function (btn) {
        var re = /\d+/;
        return re.test(btn.text) ? btn.text / 2 : 0;
    }
});

Ext.define('Shop.view.Viewport', {
    extend: 'Ext.container.Viewport',
    mixins: { observable: 'Ext.util.Observable' },
    items: [{ xtype: 'cartlist' }]
});
`
	pattern, err := NewPattern().Extract(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	syntax, err := NewSyntax().Extract(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("syntax: %v", err)
	}
	if diff := cmp.Diff(pattern, syntax, cmp.AllowUnexported(Declaration{})); diff != "" {
		t.Errorf("strategies disagree (-pattern +syntax):\n%s", diff)
	}
	if len(pattern) != 3 {
		t.Errorf("got %d declarations, want 3", len(pattern))
	}
}

func TestContract_DivisionAfterIncrement(t *testing.T) {
	t.Parallel()

	src := `Ext.define('App.Counter', {
    requires: ['App.util.Math'],
    step: function (i, x, n) {
        i++ / 2;
        return x-- / n;
    }
});`
	want := []string{"App.util.Math"}
	forEachStrategy(t, func(t *testing.T, ex Extractor) {
		decls := mustExtract(t, ex, src)
		if len(decls) != 1 {
			t.Fatalf("got %d declarations, want 1", len(decls))
		}
		if diff := cmp.Diff(want, decls[0].DependencyNames()); diff != "" {
			t.Errorf("DependencyNames mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestContract_CustomCallTargets(t *testing.T) {
	t.Parallel()

	src := `Ext.define('App.Ignored');
Sencha.declare('App.Custom', { extend: 'App.Base' });
MyFramework.app.start({ name: 'App', views: ['Main'] });`

	forEachStrategy(t, func(t *testing.T, ex Extractor) {
		decls := mustExtract(t, ex, src)
		if len(decls) != 2 {
			t.Fatalf("got %d declarations, want 2: %+v", len(decls), decls)
		}
		if decls[0].ClassName != "App.Custom" {
			t.Errorf("decls[0].ClassName = %q, want App.Custom", decls[0].ClassName)
		}
		if diff := cmp.Diff([]string{"App.view.Main"}, decls[1].DependencyNames()); diff != "" {
			t.Errorf("application deps mismatch (-want +got):\n%s", diff)
		}
	}, WithClassCalls("Sencha.declare"), WithApplicationCalls("MyFramework.app.start"))
}

func TestContract_MalformedInput(t *testing.T) {
	t.Parallel()

	inputs := map[string]string{
		"unterminated call":   "Ext.define('App.A', { extend: 'App.B' ",
		"unterminated string": "Ext.define('App.A",
		"unterminated object": "Ext.define('App.A', { requires: ['App.B'] );",
		"ends after key":      "Ext.define('App.A', { extend:",
		"ends after app key":  "Ext.application({ name:",
		"ends inside array":   "Ext.define('App.A', { requires: [",
	}

	for name, src := range inputs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			forEachStrategy(t, func(t *testing.T, ex Extractor) {
				_, err := ex.Extract(context.Background(), []byte(src))
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("Extract error = %v, want *ParseError", err)
				}
				if pe.Line < 1 || pe.Column < 1 {
					t.Errorf("ParseError position = %d:%d, want 1-based", pe.Line, pe.Column)
				}
			})
		})
	}
}

func TestContract_FileTooLarge(t *testing.T) {
	t.Parallel()

	forEachStrategy(t, func(t *testing.T, ex Extractor) {
		_, err := ex.Extract(context.Background(), []byte("Ext.define('App.TooBig');"))
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("Extract error = %v, want ErrFileTooLarge", err)
		}
	}, WithMaxFileSize(8))
}

func TestContract_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, ex := range strategies() {
		if _, err := ex.Extract(ctx, []byte("Ext.define('App.A');")); !errors.Is(err, context.Canceled) {
			t.Errorf("%s: Extract error = %v, want context.Canceled", ex.Name(), err)
		}
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	for _, name := range []string{StrategyPattern, StrategySyntax} {
		ex, err := New(name)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if ex.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, ex.Name())
		}
	}

	if _, err := New("regex"); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("New(regex) error = %v, want ErrUnknownStrategy", err)
	}
}
