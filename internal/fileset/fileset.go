// Package fileset expands workspace glob patterns into file lists and reads
// and writes workspace files through afs.
//
// Patterns follow the usual build-tool conventions:
//   - src/**/*.js   - every .js file below src
//   - test/*.js     - .js files directly in test
//   - !src/vendor/* - drop earlier matches under src/vendor
//
// Results are workspace-relative slash paths. Directories are never
// returned. node_modules and dot-directories are skipped unless a pattern
// names them.
package fileset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
)

// ErrNoFiles is returned by ExpandRequired when nothing matched.
var ErrNoFiles = errors.New("no files matched")

// Expand returns the files below root matching patterns. Files are ordered
// by the first pattern that matched them, then lexically. A pattern
// prefixed with "!" removes earlier matches.
func Expand(ctx context.Context, root string, patterns []string) ([]string, error) {
	var includes []string
	for _, p := range patterns {
		if !strings.HasPrefix(p, "!") {
			includes = append(includes, p)
		}
	}
	if len(includes) == 0 {
		return nil, nil
	}

	all, err := walk(ctx, root, patterns, includes)
	if err != nil {
		return nil, err
	}

	var result []string
	seen := make(map[string]bool)
	for _, p := range patterns {
		if exclude, ok := strings.CutPrefix(p, "!"); ok {
			kept := result[:0]
			for _, f := range result {
				if Match(exclude, f) {
					delete(seen, f)
					continue
				}
				kept = append(kept, f)
			}
			result = kept
			continue
		}
		for _, f := range all {
			if !seen[f] && Match(p, f) {
				seen[f] = true
				result = append(result, f)
			}
		}
	}
	return result, nil
}

// ExpandRequired is Expand that fails with ErrNoFiles on an empty result.
func ExpandRequired(ctx context.Context, root string, patterns []string) ([]string, error) {
	files, err := Expand(ctx, root, patterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, strings.Join(patterns, ", "))
	}
	return files, nil
}

// walk lists every file below root that an include pattern could reach,
// sorted lexically.
func walk(ctx context.Context, root string, patterns, includes []string) ([]string, error) {
	var files []string
	var visit storage.OnVisit = func(ctx context.Context, baseURL string, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		rel := path.Join(parent, info.Name())
		if info.IsDir() {
			return enterDir(rel, info.Name(), patterns, includes), nil
		}
		files = append(files, rel)
		return true, nil
	}
	if err := afs.New().Walk(ctx, root, visit); err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func enterDir(rel, name string, patterns, includes []string) bool {
	if (name == "node_modules" || strings.HasPrefix(name, ".")) && !mentions(patterns, name) {
		return false
	}
	for _, p := range includes {
		if couldContain(p, rel) {
			return true
		}
	}
	return false
}
