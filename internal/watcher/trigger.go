package watcher

import "context"

// Trigger serializes runs of a function. Fire requests a run; requests
// made while a run is in progress collapse into a single follow-up run.
type Trigger struct {
	run  func(context.Context)
	kick chan struct{}
}

// NewTrigger creates a trigger for run. Call Loop to process requests.
func NewTrigger(run func(context.Context)) *Trigger {
	return &Trigger{run: run, kick: make(chan struct{}, 1)}
}

// Fire requests a run without blocking.
func (t *Trigger) Fire() {
	select {
	case t.kick <- struct{}{}:
	default:
	}
}

// Loop runs requests until ctx is done.
func (t *Trigger) Loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.kick:
			if ctx.Err() != nil {
				return
			}
			t.run(ctx)
		}
	}
}
