package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"
)

// TestNoMutableGlobalState flags package-level vars other than error
// sentinels and literal lookup tables. Anything else belongs in a struct
// passed to the code that needs it.
func TestNoMutableGlobalState(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		t.Run(pkg, func(t *testing.T) {
			t.Parallel()

			fset, files := parsePackage(t, pkg, parser.SkipObjectResolution)
			for _, f := range files {
				for _, decl := range f.Decls {
					gd, ok := decl.(*ast.GenDecl)
					if !ok || gd.Tok != token.VAR {
						continue
					}
					for _, spec := range gd.Specs {
						vs := spec.(*ast.ValueSpec)
						for i, name := range vs.Names {
							if name.Name == "_" {
								continue
							}
							var val ast.Expr
							if i < len(vs.Values) {
								val = vs.Values[i]
							}
							if !constantLike(val) {
								t.Errorf("%s: mutable global var %s; move it into a function or struct",
									fset.Position(name.Pos()), name.Name)
							}
						}
					}
				}
			}
		})
	}
}

// constantLike reports whether a package-level initializer is an error
// sentinel, a basic literal or a composite literal.
func constantLike(val ast.Expr) bool {
	switch v := val.(type) {
	case *ast.BasicLit, *ast.CompositeLit:
		return true
	case *ast.CallExpr:
		sel, ok := v.Fun.(*ast.SelectorExpr)
		if !ok {
			return false
		}
		pkg, ok := sel.X.(*ast.Ident)
		return ok && pkg.Name == "errors" && sel.Sel.Name == "New"
	}
	return false
}

func TestConstantLike(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		`errors.New("x")`:            true,
		`[]string{"a"}`:              true,
		`map[string]bool{"a": true}`: true,
		`42`:                         true,
		`time.Now()`:                 false,
		`make(map[string]int)`:       false,
		`newCache()`:                 false,
	}
	for src, want := range tests {
		expr, err := parser.ParseExpr(src)
		if err != nil {
			t.Fatalf("ParseExpr(%q): %v", src, err)
		}
		if got := constantLike(expr); got != want {
			t.Errorf("constantLike(%s) = %v, want %v", src, got, want)
		}
	}
}
