package tasks

import (
	"context"
	"fmt"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/integration/task"
)

type specTask struct{}

// NewSpec returns the spec task. Each target runs one external suite and
// is judged by the summary line it prints.
func NewSpec() Task { return specTask{} }

func (specTask) Name() string { return config.TaskSpec }

func (specTask) Description() string {
	return "Run spec suites"
}

func (specTask) Targets(cfg *config.Config) []string {
	return cfg.TargetNames(config.TaskSpec)
}

func (specTask) Run(ctx context.Context, c *Context, target string) error {
	st, err := lookupTarget(c.Config.Spec, config.TaskSpec, target)
	if err != nil {
		return err
	}

	for _, in := range st.Inputs {
		if !c.Store.Exists(ctx, in) {
			return fmt.Errorf("%w: %s", ErrMissingInput, in)
		}
	}

	ex, err := c.exec(ctx, &task.Task{
		Name:    config.TaskSpec + ":" + target,
		Command: st.Command,
		Args:    st.Args,
		Cwd:     c.workspacePath(st.Cwd),
		Env:     st.Env,
	})
	if err != nil {
		return err
	}

	summary, ok := task.ParseSpecSummary(ex.Text())
	if !ok {
		if !ex.Succeeded() {
			return toolFailure(ex)
		}
		c.Logger.OK("All done!")
		return nil
	}

	c.Logger.Verbose("%d spec(s), %d assertion(s), %d failure(s), %d skipped",
		summary.Specs, summary.Assertions, summary.Failures, summary.Skipped)
	if summary.Failures > 0 {
		return warnings(summary.Failures, fmt.Errorf("%w: %d", ErrSpecsFailed, summary.Failures))
	}
	c.Logger.OK("All done!")
	return nil
}

// lookupTarget finds target in a named-target section.
func lookupTarget[T any](section map[string]*T, taskName, target string) (*T, error) {
	if target == "" {
		if len(section) == 0 {
			return nil, fmt.Errorf("%w for %s", ErrNoTargets, taskName)
		}
		return nil, fmt.Errorf("%w: %s needs a target", config.ErrUnknownTarget, taskName)
	}
	t, ok := section[target]
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: %s:%s", config.ErrUnknownTarget, taskName, target)
	}
	return t, nil
}
