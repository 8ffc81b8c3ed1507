package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for problems that would otherwise
// surface halfway through a build. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.Beautify.Mode {
	case ModeVerifyOnly, ModeVerifyAndWrite:
	default:
		add("beautify.mode %q must be %s or %s", c.Beautify.Mode, ModeVerifyOnly, ModeVerifyAndWrite)
	}
	if _, err := c.Beautify.Rules(); err != nil {
		add("beautify.replacements: %v", err)
	}

	for _, name := range SortedKeys(c.Spec) {
		if t := c.Spec[name]; t == nil || t.Command == "" {
			add("spec.%s: command is required", name)
		}
	}

	for _, name := range SortedKeys(c.Bundle) {
		t := c.Bundle[name]
		if t == nil {
			add("bundle.%s: empty target", name)
			continue
		}
		if t.Outfile == "" {
			add("bundle.%s: outfile is required", name)
		}
		if len(t.Entries) == 0 && len(t.Requires) == 0 {
			add("bundle.%s: entries or requires are required", name)
		}
		if t.Alias != "" {
			if _, _, ok := t.AliasParts(); !ok {
				add("bundle.%s: alias %q must be path:GlobalName", name, t.Alias)
			}
		}
		switch t.Format {
		case "", "iife", "cjs", "esm":
		default:
			add("bundle.%s: unknown format %q", name, t.Format)
		}
	}

	for _, name := range SortedKeys(c.Minify) {
		t := c.Minify[name]
		if t == nil || t.Outfile == "" || len(t.Sources) == 0 {
			add("minify.%s: sources and outfile are required", name)
		}
	}

	for _, name := range SortedKeys(c.Scripts) {
		s := c.Scripts[name]
		if s == nil || (s.Source == "") == (s.File == "") {
			add("scripts.%s: exactly one of source or file is required", name)
			continue
		}
		if c.isBuiltin(name) {
			add("scripts.%s: shadows a built-in task", name)
		}
		if _, ok := c.Targets[name]; ok {
			add("scripts.%s: shadows a target alias", name)
		}
	}

	if _, ok := c.Targets[DefaultTarget]; !ok {
		add("targets.%s is required", DefaultTarget)
	}
	for _, name := range SortedKeys(c.Targets) {
		if c.isBuiltin(name) {
			add("targets.%s: shadows a built-in task", name)
			continue
		}
		if _, err := c.Resolve(name); err != nil {
			errs = append(errs, fmt.Errorf("%w: targets.%s: %w", ErrInvalidConfig, name, err))
		}
	}

	for _, name := range SortedKeys(c.Watch) {
		w := c.Watch[name]
		if w == nil || len(w.Files) == 0 || len(w.Tasks) == 0 {
			add("watch.%s: files and tasks are required", name)
			continue
		}
		if w.Debounce != "" {
			if d, err := time.ParseDuration(w.Debounce); err != nil || d < 0 {
				add("watch.%s: invalid debounce %q", name, w.Debounce)
			}
		}
		if w.Schedule != "" {
			if _, err := cron.ParseStandard(w.Schedule); err != nil {
				add("watch.%s: invalid schedule %q: %v", name, w.Schedule, err)
			}
		}
		if _, err := c.Resolve(w.Tasks...); err != nil {
			errs = append(errs, fmt.Errorf("%w: watch.%s: %w", ErrInvalidConfig, name, err))
		}
	}

	return errors.Join(errs...)
}

// Step is one resolved unit of work: a task and optionally one of its
// targets. An empty Target means every target of the task.
type Step struct {
	Task   string
	Target string
}

// String returns "task" or "task:target".
func (s Step) String() string {
	if s.Target == "" {
		return s.Task
	}
	return s.Task + ":" + s.Target
}

// Resolve expands aliases from Targets into an ordered list of steps.
// Aliases may reference other aliases; a cycle is an error.
func (c *Config) Resolve(names ...string) ([]Step, error) {
	var steps []Step
	for _, name := range names {
		var err error
		steps, err = c.resolve(name, steps, nil)
		if err != nil {
			return nil, err
		}
	}
	return steps, nil
}

func (c *Config) resolve(name string, steps []Step, stack []string) ([]Step, error) {
	if alias, ok := c.Targets[name]; ok {
		for _, seen := range stack {
			if seen == name {
				return nil, fmt.Errorf("%w: %s", ErrTargetCycle, strings.Join(append(stack, name), " -> "))
			}
		}
		stack = append(stack, name)
		for _, next := range alias {
			var err error
			steps, err = c.resolve(next, steps, stack)
			if err != nil {
				return nil, err
			}
		}
		return steps, nil
	}

	task, target, _ := strings.Cut(name, ":")
	if !c.isTask(task) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	if target != "" {
		known := c.TargetNames(task)
		found := false
		for _, k := range known {
			if k == target {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
		}
	}
	return append(steps, Step{Task: task, Target: target}), nil
}

func (c *Config) isBuiltin(name string) bool {
	switch name {
	case TaskBeautify, TaskLint, TaskSpec, TaskBundle, TaskMinify:
		return true
	}
	return false
}

func (c *Config) isTask(name string) bool {
	if c.isBuiltin(name) {
		return true
	}
	_, ok := c.Scripts[name]
	return ok
}
