// Package tasks holds the build tasks and the runner that sequences them.
//
// Tasks are enumerated explicitly: DefaultRegistry registers the built-in
// tasks and one task per configured script. A task may have named targets
// (spec, bundle, minify); running the task without a target runs every
// target in name order.
package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/buildrig/internal/config"
)

// Task is one unit of the build.
type Task interface {
	// Name is the name used in targets and on the command line.
	Name() string

	// Description is shown by the list command.
	Description() string

	// Targets returns the configured target names in execution order,
	// nil for tasks without targets.
	Targets(cfg *config.Config) []string

	// Run executes target, which is empty for tasks without targets.
	Run(ctx context.Context, c *Context, target string) error
}

// Registry holds the runnable tasks by name.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Task
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Register adds t. Registering a name twice is an error.
func (r *Registry) Register(t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.Name())
	}
	r.tasks[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// Get returns the task registered under name.
func (r *Registry) Get(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// DefaultRegistry registers the built-in tasks followed by the scripts of
// cfg in name order.
func DefaultRegistry(cfg *config.Config) (*Registry, error) {
	r := NewRegistry()
	builtins := []Task{
		NewBeautify(),
		NewLint(),
		NewSpec(),
		NewBundle(),
		NewMinify(),
	}
	for _, t := range builtins {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	for _, name := range config.SortedKeys(cfg.Scripts) {
		if err := r.Register(NewScript(name, cfg.Scripts[name])); err != nil {
			return nil, err
		}
	}
	return r, nil
}
