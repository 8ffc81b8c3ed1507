package main

import (
	"context"
	"sync"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/logging"
	"github.com/dshills/buildrig/internal/report"
	"github.com/dshills/buildrig/internal/tasks"
)

// build is the state shared by the run and watch commands.
type build struct {
	cfg      *config.Config
	log      *logging.Logger
	registry *tasks.Registry
	tasks    *tasks.Context
	force    bool

	// Runs share the task context, so they are serialized.
	mu sync.Mutex
}

func (c *cli) logger() *logging.Logger {
	level := logging.ParseLevel(c.opts.LogLevel)
	if c.opts.Verbose {
		level = logging.LevelDebug
	}
	cfg := logging.Config{Level: level, Output: c.stderr}
	if c.opts.NoColor {
		off := false
		cfg.Color = &off
	}
	return logging.New(cfg)
}

func (c *cli) setup() (*build, error) {
	log := c.logger()

	cfg, err := config.Load(config.Options{Workspace: c.opts.Workspace, Path: c.opts.Config})
	if err != nil {
		return nil, err
	}
	if c.opts.Report != "" {
		cfg.Report = c.opts.Report
	}
	if cfg.Source != "" {
		log.Verbose("Reading %s", cfg.Source)
	}

	registry, err := tasks.DefaultRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return &build{
		cfg:      cfg,
		log:      log,
		registry: registry,
		tasks:    tasks.NewContext(cfg, log),
		force:    c.opts.Force,
	}, nil
}

// run executes names and writes the report when one is configured.
func (b *build) run(ctx context.Context, names []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	runner := tasks.NewRunner(b.registry, b.tasks)
	runner.Force = b.force
	run, err := runner.Run(ctx, names...)

	if run != nil && b.cfg.Report != "" {
		// Written even after an interrupt.
		if werr := report.Write(context.Background(), b.tasks.Store, b.cfg.Report, run); werr != nil {
			b.log.Warn("%v", werr)
		} else {
			b.log.Verbose("Report written to %s", b.cfg.Report)
		}
	}
	return err
}
