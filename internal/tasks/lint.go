package tasks

import (
	"context"
	"fmt"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/integration/task"
)

type lintTask struct{}

// NewLint returns the linter task. Problems are read from the linter
// output with the configured problem matcher.
func NewLint() Task { return lintTask{} }

func (lintTask) Name() string { return config.TaskLint }

func (lintTask) Description() string {
	return "Lint sources with the configured linter"
}

func (lintTask) Targets(*config.Config) []string { return nil }

func (lintTask) Run(ctx context.Context, c *Context, _ string) error {
	cfg := c.Config.Lint
	files, err := c.Expand(ctx, cfg.Files)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		c.Logger.OK("0 file(s) lint free.")
		return nil
	}

	ex, err := c.exec(ctx, &task.Task{
		Name:           config.TaskLint,
		Command:        cfg.Command,
		Args:           append(append([]string(nil), cfg.Args...), files...),
		ProblemMatcher: cfg.Matcher,
	})
	if err != nil {
		return err
	}

	problems := ex.Problems()
	failures := 0
	affected := map[string]bool{}
	for _, p := range problems {
		c.Logger.Info("  %s", p)
		if p.Severity == task.ProblemSeverityError {
			failures++
			affected[p.File] = true
		}
	}

	if failures > 0 {
		return warnings(failures, fmt.Errorf("%w: %d error(s) in %d file(s)", ErrLintProblems, failures, len(affected)))
	}
	if !ex.Succeeded() && len(problems) == 0 {
		c.Logger.Warn("%s", ex.Text())
		return toolFailure(ex)
	}

	c.Logger.OK("%d file(s) lint free.", len(files))
	return nil
}
