package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/fileset"
	"github.com/dshills/buildrig/internal/integration/task"
	"github.com/dshills/buildrig/internal/logging"
	"github.com/dshills/buildrig/internal/report"
	"github.com/dshills/buildrig/internal/substitute"
)

// Context carries what a task needs while it runs.
type Context struct {
	Config   *config.Config
	Logger   *logging.Logger
	Executor *task.Executor
	Store    *fileset.Store

	// Report collects results. Set by the runner; may be nil.
	Report *report.Run

	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

// NewContext creates a context for cfg. Tool output is forwarded to the
// logger at verbose level.
func NewContext(cfg *config.Config, logger *logging.Logger) *Context {
	executor := task.NewExecutor(task.DefaultExecutorConfig(cfg.Workspace))
	executor.AddListener(&toolOutput{log: logger})
	return &Context{
		Config:   cfg,
		Logger:   logger,
		Executor: executor,
		Store:    fileset.NewStore(cfg.Workspace),
		Now:      time.Now,
	}
}

func (c *Context) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Expand matches workspace files against patterns.
func (c *Context) Expand(ctx context.Context, patterns []string) ([]string, error) {
	return fileset.Expand(ctx, c.Config.Workspace, patterns)
}

// ExpandRequired is Expand failing with fileset.ErrNoFiles on no match.
func (c *Context) ExpandRequired(ctx context.Context, patterns []string) ([]string, error) {
	return fileset.ExpandRequired(ctx, c.Config.Workspace, patterns)
}

// workspacePath resolves p against the workspace unless it is absolute.
func (c *Context) workspacePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Config.Workspace, filepath.FromSlash(p))
}

func (c *Context) addSubstitutions(t substitute.Tally) {
	if c.Report != nil {
		c.Report.AddSubstitutions(t)
	}
}

// exec runs t to completion. The error covers cancellation and failures
// to start; a non-zero exit is left to the caller.
func (c *Context) exec(ctx context.Context, t *task.Task) (*task.Execution, error) {
	ex, err := c.Executor.ExecuteSync(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ex.State() == task.ExecutionStateFailed && ex.ExitCode() < 0 {
		return nil, fmt.Errorf("running %s: %w", t.Command, ex.Err())
	}
	return ex, nil
}

// runCommand backs build.run for scripts.
func (c *Context) runCommand(ctx context.Context, command string, args []string) (int, string, error) {
	ex, err := c.exec(ctx, &task.Task{Name: command, Command: command, Args: args})
	if err != nil {
		return 0, "", err
	}
	return ex.ExitCode(), ex.Text(), nil
}

// toolFailure describes a non-zero exit.
func toolFailure(ex *task.Execution) error {
	return fmt.Errorf("%w: %s exited with status %d", ErrToolFailed, ex.Task.Command, ex.ExitCode())
}

// toolOutput logs external tool activity.
type toolOutput struct {
	log *logging.Logger
}

func (o *toolOutput) OnExecutionStarted(ex *task.Execution) {
	o.log.Verbose("Running %s", ex.Task.CommandLine())
}

func (o *toolOutput) OnExecutionOutput(ex *task.Execution, line task.OutputLine) {
	// Captured stdout is data, such as formatted source.
	if ex.Task.Capture && line.Stream == task.OutputStreamStdout {
		return
	}
	o.log.Verbose("%s", line.Content)
}

func (o *toolOutput) OnExecutionProblem(*task.Execution, task.Problem) {}

func (o *toolOutput) OnExecutionCompleted(ex *task.Execution) {
	o.log.Verbose("%s finished: %s in %s", ex.Task.Name, ex.State(), ex.Duration().Round(time.Millisecond))
}
