// Package scan resolves include, recursive-include and exclude
// directories into the list of source files to order.
package scan

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern is the file name pattern used when Spec.Pattern is empty.
const DefaultPattern = "*.js"

// ErrNoInclude is returned when a Spec names no include directory.
var ErrNoInclude = errors.New("no include directories given")

// Spec describes which files to collect.
type Spec struct {
	// Include directories are searched without descending.
	Include []string
	// IncludeRecursive directories are searched with all subdirectories.
	IncludeRecursive []string
	// Exclude drops every file under any of these directories.
	Exclude []string
	// Pattern is matched against each file's base name.
	Pattern string
}

// MissingDirError lists include directories that do not exist.
type MissingDirError struct {
	Dirs []string
}

// Error implements error.
func (e *MissingDirError) Error() string {
	return fmt.Sprintf("include directories do not exist: %s", strings.Join(e.Dirs, ", "))
}

// Files returns the files selected by spec: include directories first,
// then recursive ones, each directory's files in lexical order with a
// directory's own files before its subdirectories'. A file reached
// through more than one include keeps its first position.
func Files(spec Spec) ([]string, error) {
	pattern := spec.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	if strings.ContainsRune(pattern, '/') || !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", doublestar.ErrBadPattern, pattern)
	}
	if len(spec.Include) == 0 && len(spec.IncludeRecursive) == 0 {
		return nil, ErrNoInclude
	}

	var missing []string
	for _, dir := range slices.Concat(spec.Include, spec.IncludeRecursive) {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			missing = append(missing, dir)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingDirError{Dirs: missing}
	}

	excluded, err := absAll(spec.Exclude)
	if err != nil {
		return nil, err
	}

	var files []string
	seen := make(map[string]bool)
	add := func(dir, glob string) error {
		matches, err := doublestar.Glob(os.DirFS(dir), glob, doublestar.WithFilesOnly())
		if err != nil {
			return fmt.Errorf("scanning %s: %w", dir, err)
		}
		slices.SortFunc(matches, byDirThenName)
		for _, m := range matches {
			p := filepath.Join(dir, filepath.FromSlash(m))
			abs, err := filepath.Abs(p)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", p, err)
			}
			if seen[abs] || under(abs, excluded) {
				continue
			}
			seen[abs] = true
			files = append(files, p)
		}
		return nil
	}

	for _, dir := range spec.Include {
		if err := add(dir, pattern); err != nil {
			return nil, err
		}
	}
	for _, dir := range spec.IncludeRecursive {
		if err := add(dir, "**/"+pattern); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func byDirThenName(a, b string) int {
	if c := cmp.Compare(path.Dir(a), path.Dir(b)); c != 0 {
		return c
	}
	return cmp.Compare(path.Base(a), path.Base(b))
}

func absAll(dirs []string) ([]string, error) {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("resolving exclude %s: %w", d, err)
		}
		out = append(out, abs)
	}
	return out, nil
}

// under reports whether file lies inside any of dirs.
func under(file string, dirs []string) bool {
	for _, d := range dirs {
		if strings.HasPrefix(file, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Matches reports whether the base name of file matches the scan pattern.
func (s Spec) Matches(file string) bool {
	pattern := s.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	ok, err := doublestar.Match(pattern, filepath.Base(file))
	return err == nil && ok
}

// Excludes reports whether file lies under one of the exclude directories.
func (s Spec) Excludes(file string) bool {
	abs, err := filepath.Abs(file)
	if err != nil {
		return false
	}
	dirs, err := absAll(s.Exclude)
	if err != nil {
		return false
	}
	return under(abs, dirs)
}
