package watcher

import (
	"strings"

	"github.com/dshills/buildrig/internal/fileset"
)

// Ignore matches workspace-relative paths against gitignore-style rules:
//   - *.log       matches a file or directory name anywhere
//   - /build/     matches the build directory at the root only
//   - src/**/*.tmp matches below src
//   - !keep.log   re-includes a path an earlier rule ignored
//
// The last matching rule wins. A path inside an ignored directory is
// ignored.
type Ignore struct {
	rules []ignoreRule
}

type ignoreRule struct {
	glob     string
	negate   bool
	dirOnly  bool
	anchored bool
}

// NewIgnore creates a matcher for patterns. Blank lines and comments are
// skipped.
func NewIgnore(patterns ...string) *Ignore {
	ig := &Ignore{}
	for _, p := range patterns {
		ig.Add(p)
	}
	return ig
}

// Add appends a rule.
func (ig *Ignore) Add(pattern string) {
	pattern = strings.TrimRight(pattern, " \t")
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return
	}

	var r ignoreRule
	if rest, ok := strings.CutPrefix(pattern, "!"); ok {
		r.negate = true
		pattern = rest
	}
	if rest, ok := strings.CutSuffix(pattern, "/"); ok {
		r.dirOnly = true
		pattern = rest
	}
	if rest, ok := strings.CutPrefix(pattern, "/"); ok {
		r.anchored = true
		pattern = rest
	}
	if strings.Contains(pattern, "/") {
		r.anchored = true
	}
	r.glob = pattern
	ig.rules = append(ig.rules, r)
}

// Match reports whether rel, a slash path, is ignored.
func (ig *Ignore) Match(rel string, isDir bool) bool {
	rel = fileset.Clean(rel)
	if rel == "" || rel == "." {
		return false
	}
	ignored := false
	for _, r := range ig.rules {
		if r.matches(rel, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

// matches checks rel and each of its parent directories.
func (r ignoreRule) matches(rel string, isDir bool) bool {
	parts := strings.Split(rel, "/")
	for i := range parts {
		dir := i < len(parts)-1 || isDir
		if r.dirOnly && !dir {
			continue
		}
		if r.anchored {
			if fileset.Match(r.glob, strings.Join(parts[:i+1], "/")) {
				return true
			}
			continue
		}
		if fileset.Match(r.glob, parts[i]) {
			return true
		}
	}
	return false
}
