package fileset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/viant/afs"
	afsfile "github.com/viant/afs/file"
)

// Store reads and writes files relative to a workspace root.
type Store struct {
	fs   afs.Service
	root string
}

// NewStore creates a store rooted at root.
func NewStore(root string) *Store {
	return &Store{fs: afs.New(), root: root}
}

// Root returns the workspace root.
func (s *Store) Root() string {
	return s.root
}

// Path returns the absolute path of a workspace-relative name.
func (s *Store) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.root, filepath.FromSlash(Clean(name)))
}

// Read returns the contents of name.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	rc, err := s.fs.OpenURL(ctx, s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// Write replaces the contents of name, creating parent directories.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	target := s.Path(name)
	dir := path.Dir(filepath.ToSlash(target))
	if ok, _ := s.fs.Exists(ctx, dir); !ok {
		if err := s.fs.Create(ctx, dir, afsfile.DefaultDirOsMode, true); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := s.fs.Upload(ctx, target, afsfile.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Exists reports whether name exists.
func (s *Store) Exists(ctx context.Context, name string) bool {
	ok, err := s.fs.Exists(ctx, s.Path(name))
	return err == nil && ok
}

// IsFile reports whether name exists and is not a directory.
func (s *Store) IsFile(ctx context.Context, name string) bool {
	obj, err := s.fs.Object(ctx, s.Path(name))
	return err == nil && !obj.IsDir()
}
