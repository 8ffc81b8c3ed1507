// Package watcher re-runs build tasks when workspace files change.
//
// An FSNotifyWatcher reports raw file system events below the workspace.
// Each watch target owns a Debouncer that coalesces a burst of matching
// events into one batch, and a Trigger that runs the target's tasks. A
// Trigger never runs twice at once; changes arriving during a run cause
// exactly one more run. Targets with a cron schedule are also fired on
// that schedule.
package watcher

import (
	"errors"
	"time"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
	ErrNoTargets     = errors.New("nothing to watch")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates a file or directory was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "created"
	case OpWrite:
		return "changed"
	case OpRemove:
		return "deleted"
	case OpRename:
		return "renamed"
	}
	if op.Has(OpRemove) || op.Has(OpRename) {
		return "deleted"
	}
	if op.Has(OpCreate) {
		return "added"
	}
	return "changed"
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event represents a file system change.
type Event struct {
	// Path is the workspace-relative slash path of the file.
	Path string

	// Op is the operation, or several merged by a Debouncer.
	Op Op

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Config holds watcher configuration options.
type Config struct {
	// BufferSize is the size of the event and error channels.
	// Default: 100
	BufferSize int

	// IgnorePatterns are gitignore-style patterns for paths to ignore.
	IgnorePatterns []string
}

// DefaultConfig returns a Config ignoring version control metadata and
// installed packages.
func DefaultConfig() Config {
	return Config{
		BufferSize:     100,
		IgnorePatterns: []string{".git/", "node_modules/"},
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) Option {
	return func(c *Config) {
		c.BufferSize = size
	}
}

// WithIgnorePatterns adds ignore patterns.
func WithIgnorePatterns(patterns ...string) Option {
	return func(c *Config) {
		c.IgnorePatterns = append(c.IgnorePatterns, patterns...)
	}
}
