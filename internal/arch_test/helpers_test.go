package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
)

const (
	modulePath  = "github.com/papapumpkin/extorder"
	internalPfx = modulePath + "/internal/"
)

// repoRoot walks up from this file until it finds go.mod.
func repoRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	for dir := filepath.Dir(thisFile); ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		if dir == filepath.Dir(dir) {
			t.Fatal("could not find go.mod in any parent directory")
		}
	}
}

func internalDirPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(repoRoot(t), "internal")
}

// internalPackages lists the directories under internal/ holding Go code,
// arch_test excluded.
func internalPackages(t *testing.T) []string {
	t.Helper()

	dir := internalDirPath(t)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	var pkgs []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != "arch_test" && len(goFiles(t, filepath.Join(dir, e.Name()), false)) > 0 {
			pkgs = append(pkgs, e.Name())
		}
	}
	sort.Strings(pkgs)
	return pkgs
}

// goFiles returns the .go files in dir, test files only when withTests.
func goFiles(t *testing.T, dir string, withTests bool) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading directory %s: %v", dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") {
			continue
		}
		if !withTests && strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files
}

// parsePackage parses the non-test files of an internal package.
func parsePackage(t *testing.T, pkg string, mode parser.Mode) (*token.FileSet, []*ast.File) {
	t.Helper()

	fset := token.NewFileSet()
	var files []*ast.File
	for _, path := range goFiles(t, filepath.Join(internalDirPath(t), pkg), false) {
		f, err := parser.ParseFile(fset, path, nil, mode)
		if err != nil {
			t.Fatalf("parsing %s: %v", path, err)
		}
		files = append(files, f)
	}
	return fset, files
}

// importsOf returns the internal packages imported by pkg.
func importsOf(t *testing.T, pkg string) []string {
	t.Helper()

	_, files := parsePackage(t, pkg, parser.ImportsOnly)
	seen := make(map[string]bool)
	for _, f := range files {
		for _, imp := range f.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if rel, ok := strings.CutPrefix(path, internalPfx); ok {
				rel, _, _ = strings.Cut(rel, "/")
				seen[rel] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func TestInternalPackages(t *testing.T) {
	t.Parallel()

	pkgs := internalPackages(t)
	if len(pkgs) < 10 {
		t.Errorf("expected at least 10 internal packages, got %d: %v", len(pkgs), pkgs)
	}
	known := map[string]bool{"config": false, "dag": false, "extract": false, "resolve": false, "source": false}
	for _, p := range pkgs {
		if p == "arch_test" {
			t.Error("internalPackages should exclude arch_test")
		}
		if _, ok := known[p]; ok {
			known[p] = true
		}
	}
	for pkg, found := range known {
		if !found {
			t.Errorf("expected package %q in internalPackages result", pkg)
		}
	}
}

func TestImportsOf(t *testing.T) {
	t.Parallel()

	imports := importsOf(t, "resolve")
	want := map[string]bool{"dag": true, "source": true}
	for _, imp := range imports {
		delete(want, imp)
	}
	if len(want) > 0 {
		t.Errorf("internal/resolve imports %v, missing %v", imports, want)
	}
}
