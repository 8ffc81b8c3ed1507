package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/fileset"
	"github.com/dshills/buildrig/internal/logging"
)

// Target is a resolved watch target.
type Target struct {
	Name     string
	Files    []string
	Tasks    []string
	Debounce time.Duration
	Schedule string
}

// TargetsFromConfig returns the named watch targets, or all of them in
// name order when names is empty.
func TargetsFromConfig(cfg *config.Config, names ...string) ([]Target, error) {
	if len(names) == 0 {
		names = config.SortedKeys(cfg.Watch)
	}
	targets := make([]Target, 0, len(names))
	for _, name := range names {
		wt, ok := cfg.Watch[name]
		if !ok || wt == nil {
			return nil, fmt.Errorf("%w: watch:%s", config.ErrUnknownTarget, name)
		}
		t := Target{Name: name, Files: wt.Files, Tasks: wt.Tasks, Schedule: wt.Schedule}
		if wt.Debounce != "" {
			d, err := time.ParseDuration(wt.Debounce)
			if err != nil {
				return nil, fmt.Errorf("%w: watch:%s debounce: %v", config.ErrInvalidConfig, name, err)
			}
			t.Debounce = d
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// RunFunc runs the tasks of a target. A returned error is logged and
// watching continues.
type RunFunc func(ctx context.Context, tasks []string) error

// Options configures Watch.
type Options struct {
	// Root is the workspace directory.
	Root    string
	Targets []Target
	Run     RunFunc
	Logger  *logging.Logger
	// Ignore adds gitignore-style patterns to the defaults.
	Ignore []string
}

type watchedTarget struct {
	Target
	trigger   *Trigger
	debouncer *Debouncer
}

// Watch runs targets on file changes and schedules until ctx is done.
// It returns nil on cancellation.
func Watch(ctx context.Context, opts Options) error {
	if len(opts.Targets) == 0 {
		return ErrNoTargets
	}
	log := opts.Logger
	if log == nil {
		log = logging.Null()
	}

	w, err := NewFSNotifyWatcher(opts.Root, WithIgnorePatterns(opts.Ignore...))
	if err != nil {
		return err
	}
	defer w.Close()

	sched := cron.New()
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watched := make([]*watchedTarget, 0, len(opts.Targets))
	for _, t := range opts.Targets {
		wt := &watchedTarget{Target: t}
		wt.trigger = NewTrigger(func(ctx context.Context) {
			start := time.Now()
			if err := opts.Run(ctx, wt.Tasks); err != nil && ctx.Err() == nil {
				log.Warn("%v", err)
			}
			log.Info("Completed in %s - Waiting...", time.Since(start).Round(time.Millisecond))
		})
		wt.debouncer = NewDebouncer(t.Debounce, func(batch []Event) {
			for _, e := range batch {
				log.Info(">> File %q %s.", e.Path, e.Op)
			}
			wt.trigger.Fire()
		})
		if t.Schedule != "" {
			if _, err := sched.AddFunc(t.Schedule, func() {
				log.Verbose("Scheduled run of watch:%s", wt.Name)
				wt.trigger.Fire()
			}); err != nil {
				return fmt.Errorf("%w: watch:%s schedule: %v", config.ErrInvalidConfig, t.Name, err)
			}
		}
		watched = append(watched, wt)
	}

	for _, wt := range watched {
		wt := wt
		wg.Add(1)
		go func() {
			defer wg.Done()
			wt.trigger.Loop(ctx)
		}()
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()
	defer func() {
		for _, wt := range watched {
			wt.debouncer.Stop()
		}
	}()

	log.Info("Waiting...")
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			for _, wt := range watched {
				if fileset.MatchAny(wt.Files, ev.Path) {
					wt.debouncer.Add(ev)
				}
			}

		case err, ok := <-w.Errors():
			if ok {
				log.Warn("watch error: %v", err)
			}
		}
	}
}
