package archive

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are entries never exposed through the file tree.
var DefaultExcludes = []string{
	"node_modules",
	".git",
	".DS_Store",
}

// Skipper returns a predicate for tree scans that hides dotfiles, the
// default excludes, and anything matching the configured ignore globs
// (doublestar patterns, matched against the slash-relative path).
func Skipper(ignoreGlobs []string) func(name, rel string, isDir bool) bool {
	return func(name, rel string, _ bool) bool {
		if strings.HasPrefix(name, ".") {
			return true
		}
		for _, excl := range DefaultExcludes {
			if strings.EqualFold(name, excl) {
				return true
			}
		}
		return matchesAny(rel, ignoreGlobs)
	}
}

// matchesAny checks rel against the given glob patterns, both as a full
// relative path and as a bare filename.
func matchesAny(rel string, patterns []string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.PathMatch(pattern, normalized); err == nil && matched {
			return true
		}
		if matched, err := doublestar.PathMatch(pattern, filepath.Base(normalized)); err == nil && matched {
			return true
		}
	}
	return false
}
