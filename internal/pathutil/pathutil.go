// Package pathutil implements the path-resolution and globbing primitives
// the manifest driver needs: resolve, join, relative, and a deterministic
// (sorted) glob.
package pathutil

import (
	"path/filepath"
	"sort"
)

// Join joins two path components.
func Join(a, b string) string {
	if b == "" {
		return filepath.Clean(a)
	}
	return filepath.Join(a, b)
}

// Resolve resolves rel against base. An already-absolute rel is returned
// cleaned, unchanged by base.
func Resolve(base, rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Clean(filepath.Join(base, rel))
}

// Relative reports target's path relative to base.
func Relative(base, target string) (string, error) {
	return filepath.Rel(base, target)
}

// Glob matches pattern against the filesystem and returns matches sorted
// lexicographically, so that callers see deterministic key ordering.
func Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
