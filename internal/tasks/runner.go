package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/report"
)

// Runner resolves names into task targets and runs them in order.
type Runner struct {
	Registry *Registry
	Context  *Context

	// Force keeps going after a failed task. The run then finishes
	// "with warnings" and Run returns no error.
	Force bool
}

// NewRunner creates a runner.
func NewRunner(registry *Registry, c *Context) *Runner {
	return &Runner{Registry: registry, Context: c}
}

// Run resolves names, which default to the default alias, and runs every
// resulting task target. The report is returned even when Run fails after
// starting.
func (r *Runner) Run(ctx context.Context, names ...string) (*report.Run, error) {
	if len(names) == 0 {
		names = []string{config.DefaultTarget}
	}
	cfg := r.Context.Config
	steps, err := cfg.Resolve(names...)
	if err != nil {
		return nil, err
	}
	for _, s := range steps {
		if _, ok := r.Registry.Get(s.Task); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTask, s.Task)
		}
	}

	log := r.Context.Logger
	run := report.NewRun(names, r.Context.now())
	r.Context.Report = run
	defer func() { r.Context.Report = nil }()

	warned := false
	for _, s := range steps {
		t, _ := r.Registry.Get(s.Task)
		targets := []string{s.Target}
		if s.Target == "" {
			if all := t.Targets(cfg); len(all) > 0 {
				targets = all
			}
		}

		for _, target := range targets {
			if err := ctx.Err(); err != nil {
				run.Finish(r.Context.now())
				return run, err
			}

			err := r.runTarget(ctx, run, t, target)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				run.Finish(r.Context.now())
				return run, ctx.Err()
			}

			var te *TaskError
			errors.As(err, &te)
			log.Warn("Warning: %v", te.Err)
			if !r.Force {
				log.Warn("Aborted due to warnings.")
				run.Finish(r.Context.now())
				return run, err
			}
			log.Warn("Used --force, continuing.")
			warned = true
		}
	}

	run.Finish(r.Context.now())
	if warned {
		log.Warn("Done, but with warnings.")
	} else {
		log.OK("Done.")
	}
	return run, nil
}

// runTarget runs one target and records its result. Any failure is
// returned as a *TaskError.
func (r *Runner) runTarget(ctx context.Context, run *report.Run, t Task, target string) error {
	log := r.Context.Logger
	if target == "" {
		log.Header("Running %q task", t.Name())
	} else {
		log.Header("Running \"%s:%s\" (%s) task", t.Name(), target, t.Name())
	}

	start := r.Context.now()
	err := runSafely(ctx, r.Context, t, target)
	res := report.TaskResult{
		Name:     t.Name(),
		Target:   target,
		Status:   report.StatusOK,
		Duration: r.Context.now().Sub(start),
	}
	if err != nil {
		var te *TaskError
		if !errors.As(err, &te) {
			te = &TaskError{Err: err}
		}
		te.Task, te.Target = t.Name(), target
		if te.Warnings < 1 {
			te.Warnings = 1
		}
		res.Warnings = te.Warnings
		res.Error = te.Err.Error()
		res.Status = report.StatusFailed
		if r.Force {
			res.Status = report.StatusWarning
		}
		err = te
	}
	run.Add(res)
	return err
}

func runSafely(ctx context.Context, c *Context, t Task, target string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, rec)
		}
	}()
	return t.Run(ctx, c, target)
}
