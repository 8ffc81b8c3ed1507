package fileset

import (
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Match reports whether the slash-separated relative path name matches
// pattern. Patterns use doublestar syntax: "*", "?", "[...]" and "{a,b}"
// within a segment, and a "**" segment for zero or more directories. An
// invalid pattern matches nothing.
func Match(pattern, name string) bool {
	ok, err := doublestar.Match(Clean(pattern), Clean(name))
	return err == nil && ok
}

// Clean strips a leading "./" and normalizes separators.
func Clean(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimSuffix(p, "/")
}

// couldContain reports whether a file below dir could match pattern, so
// walking can skip directories no pattern reaches. Only the pattern
// segments before the first "**" constrain the directory.
func couldContain(pattern, dir string) bool {
	segs := strings.Split(Clean(pattern), "/")
	parts := strings.Split(Clean(dir), "/")
	n := len(parts)
	if i := slices.Index(segs, "**"); i >= 0 && i < n {
		n = i
	} else if len(segs) <= n {
		return false
	}
	if n == 0 {
		return true
	}
	return Match(path.Join(segs[:n]...), path.Join(parts[:n]...))
}

// mentions reports whether any pattern names segment literally.
func mentions(patterns []string, segment string) bool {
	for _, p := range patterns {
		for _, seg := range strings.Split(Clean(strings.TrimPrefix(p, "!")), "/") {
			if seg == segment {
				return true
			}
		}
	}
	return false
}

// MatchAny reports whether name is selected by patterns, where a pattern
// prefixed with "!" deselects. The last matching pattern decides.
func MatchAny(patterns []string, name string) bool {
	selected := false
	for _, p := range patterns {
		if exclude, ok := strings.CutPrefix(p, "!"); ok {
			if Match(exclude, name) {
				selected = false
			}
			continue
		}
		if Match(p, name) {
			selected = true
		}
	}
	return selected
}
