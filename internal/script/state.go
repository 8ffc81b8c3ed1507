// Package script runs custom build tasks written in Lua.
//
// Scripts run in a restricted gopher-lua state: only the base, table,
// string and math libraries are opened, and the file loading functions are
// removed. The host exposes a single global module, build:
//
//	build.log(msg)              -- info line
//	build.verbose(msg)          -- shown with --verbose
//	build.ok(msg)               -- success line
//	build.warn(msg)             -- record a warning; the task fails
//	build.run(cmd, args...)     -- returns exit code, combined output
//	build.files(patterns...)    -- workspace files matching the globs
//	build.workspace()           -- absolute workspace path
//
// print is routed to build.log.
package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds a single script execution.
const DefaultTimeout = 10 * time.Minute

// Errors for script execution.
var (
	// ErrStateClosed is returned when running on a closed state.
	ErrStateClosed = errors.New("script state is closed")

	// ErrTimeout is returned when a script exceeds its timeout.
	ErrTimeout = errors.New("script timed out")
)

// Logger receives script output.
type Logger interface {
	Info(msg string, args ...any)
	Verbose(msg string, args ...any)
	OK(msg string, args ...any)
	Warn(msg string, args ...any)
}

// RunFunc runs an external command for build.run.
type RunFunc func(ctx context.Context, command string, args []string) (exitCode int, output string, err error)

// ExpandFunc expands glob patterns for build.files.
type ExpandFunc func(ctx context.Context, patterns []string) ([]string, error)

// Options configures a State.
type Options struct {
	// Workspace is returned by build.workspace.
	Workspace string
	// Logger receives log, verbose, ok and warn lines. Required.
	Logger Logger
	// Run backs build.run. Nil makes build.run raise an error.
	Run RunFunc
	// Expand backs build.files. Nil makes build.files raise an error.
	Expand ExpandFunc
	// Timeout bounds each execution. Zero means DefaultTimeout.
	Timeout time.Duration
}

// State is a sandboxed Lua interpreter with the build module installed.
//
// gopher-lua states are not goroutine-safe; State serializes calls.
type State struct {
	L *lua.LState

	mu       sync.Mutex
	opts     Options
	ctx      context.Context
	warnings []string
	closed   bool
}

// NewState creates a state with the build module installed.
func NewState(opts Options) *State {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	s := &State{L: L, opts: opts, ctx: context.Background()}
	s.installBuildModule()
	return s
}

// openSafeLibraries opens only the libraries that cannot reach the host.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// Exec runs source, naming the chunk name in error messages. Warnings
// recorded by a previous Exec are cleared first.
func (s *State) Exec(ctx context.Context, name, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	s.warnings = nil

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	s.ctx = ctx
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	fn, err := s.L.Load(strings.NewReader(source), name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	err = s.doWithRecovery(func() error {
		s.L.Push(fn)
		return s.L.PCall(0, lua.MultRet, nil)
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w after %s", name, ErrTimeout, s.opts.Timeout)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (s *State) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Warnings returns the messages passed to build.warn by the last Exec.
func (s *State) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.warnings...)
}

// Close releases the interpreter.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.L.Close()
	s.closed = true
}
