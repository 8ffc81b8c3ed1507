package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/buildrig/internal/watcher"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type runCommand struct {
	cli *cli
}

// Execute implements flags.Commander.
func (r *runCommand) Execute(args []string) error {
	ctx, stop := signalContext()
	defer stop()

	b, err := r.cli.setup()
	if err != nil {
		return err
	}
	return b.run(ctx, args)
}

type watchCommand struct {
	Ignore []string `long:"ignore" description:"Extra gitignore-style pattern to ignore (repeatable)"`

	cli *cli
}

// Execute implements flags.Commander.
func (w *watchCommand) Execute(args []string) error {
	ctx, stop := signalContext()
	defer stop()

	b, err := w.cli.setup()
	if err != nil {
		return err
	}
	targets, err := watcher.TargetsFromConfig(b.cfg, args...)
	if err != nil {
		return err
	}

	return watcher.Watch(ctx, watcher.Options{
		Root:    b.cfg.Workspace,
		Targets: targets,
		Logger:  b.log,
		Ignore:  w.Ignore,
		Run: func(ctx context.Context, names []string) error {
			return b.run(ctx, names)
		},
	})
}
