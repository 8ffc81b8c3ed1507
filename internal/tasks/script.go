package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/script"
)

type scriptTask struct {
	name string
	def  *config.ScriptTask
}

// NewScript returns a task running the Lua script def.
func NewScript(name string, def *config.ScriptTask) Task {
	return &scriptTask{name: name, def: def}
}

func (t *scriptTask) Name() string { return t.name }

func (t *scriptTask) Description() string {
	if t.def.Description != "" {
		return t.def.Description
	}
	if t.def.File != "" {
		return "Script " + t.def.File
	}
	return "Inline script"
}

func (t *scriptTask) Targets(*config.Config) []string { return nil }

func (t *scriptTask) Run(ctx context.Context, c *Context, _ string) error {
	source, chunk := t.def.Source, t.name
	if t.def.File != "" {
		data, err := c.Store.Read(ctx, t.def.File)
		if err != nil {
			return err
		}
		source, chunk = string(data), t.def.File
	}

	state := script.NewState(script.Options{
		Workspace: c.Config.Workspace,
		Logger:    c.Logger,
		Run:       c.runCommand,
		Expand:    c.Expand,
	})
	defer state.Close()

	if err := state.Exec(ctx, chunk, source); err != nil {
		return err
	}
	if w := state.Warnings(); len(w) > 0 {
		return warnings(len(w), fmt.Errorf("%w: %s", ErrScriptWarned, strings.Join(w, "; ")))
	}
	return nil
}
