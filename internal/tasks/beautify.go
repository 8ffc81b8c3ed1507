package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/integration/task"
	"github.com/dshills/buildrig/internal/substitute"
)

// FilePlaceholder in formatter arguments is replaced with the path of the
// file being formatted.
const FilePlaceholder = "{file}"

type beautifyTask struct{}

// NewBeautify returns the formatter verification task. Each file is piped
// through the formatter, then through the substitution rules, and compared
// with its content on disk.
func NewBeautify() Task { return beautifyTask{} }

func (beautifyTask) Name() string { return config.TaskBeautify }

func (beautifyTask) Description() string {
	return "Verify or rewrite source formatting"
}

func (beautifyTask) Targets(*config.Config) []string { return nil }

func (beautifyTask) Run(ctx context.Context, c *Context, _ string) error {
	cfg := c.Config.Beautify
	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	hook := substitute.NewSubstituter(rules, c.Logger)

	files, err := c.Expand(ctx, cfg.Files)
	if err != nil {
		return err
	}

	var changed []string
	for _, file := range files {
		original, err := c.Store.Read(ctx, file)
		if err != nil {
			return err
		}

		ex, err := c.exec(ctx, &task.Task{
			Name:    "beautify " + file,
			Command: cfg.Command,
			Args:    fileArgs(cfg.Args, file),
			Input:   original,
			Capture: true,
		})
		if err != nil {
			return err
		}
		if !ex.Succeeded() {
			return fmt.Errorf("%s: %w", file, toolFailure(ex))
		}

		formatted, tally := hook.Rewrite(file, string(ex.Stdout()))
		c.addSubstitutions(tally)
		if formatted == string(original) {
			continue
		}
		changed = append(changed, file)

		if cfg.Mode == config.ModeVerifyAndWrite {
			if err := c.Store.Write(ctx, file, []byte(formatted)); err != nil {
				return err
			}
		}
	}

	if cfg.Mode == config.ModeVerifyOnly {
		if len(changed) > 0 {
			c.Logger.Warn("The following files are not beautified:")
			for _, file := range changed {
				c.Logger.Warn("  %s", file)
			}
			return warnings(len(changed), fmt.Errorf("%w: %d file(s)", ErrNotBeautified, len(changed)))
		}
		c.Logger.OK("Verified %d file(s).", len(files))
		return nil
	}

	c.Logger.OK("Beautified %d file(s), changed %d file(s).", len(files), len(changed))
	return nil
}

func fileArgs(args []string, file string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.ReplaceAll(a, FilePlaceholder, file)
	}
	return out
}
