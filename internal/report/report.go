// Package report records the outcome of a build run and renders it as
// JSON.
package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/dshills/buildrig/internal/fileset"
	"github.com/dshills/buildrig/internal/substitute"
)

// Status is the outcome of a task target or a whole run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)

// TaskResult is the outcome of one task target.
type TaskResult struct {
	Name     string
	Target   string
	Status   Status
	Duration time.Duration
	Warnings int
	Error    string
}

// Run collects results while a build executes. It is safe for concurrent
// use.
type Run struct {
	ID       string
	Started  time.Time
	Finished time.Time
	// Targets are the names requested on the command line.
	Targets []string

	mu            sync.Mutex
	tasks         []TaskResult
	substitutions substitute.Tally
}

// NewRun starts a run for targets.
func NewRun(targets []string, now time.Time) *Run {
	return &Run{
		ID:            uuid.NewString(),
		Started:       now,
		Targets:       append([]string(nil), targets...),
		substitutions: substitute.Tally{},
	}
}

// Add records a task result.
func (r *Run) Add(res TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, res)
}

// AddSubstitutions sums a per-file tally into the run totals.
func (r *Run) AddSubstitutions(t substitute.Tally) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.substitutions.Add(t)
}

// Finish stamps the end time.
func (r *Run) Finish(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished = now
}

// Tasks returns the recorded results in execution order.
func (r *Run) Tasks() []TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TaskResult(nil), r.tasks...)
}

// Substitutions returns a copy of the summed substitution tally.
func (r *Run) Substitutions() substitute.Tally {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := substitute.Tally{}
	out.Add(r.substitutions)
	return out
}

// Status is failed if any task failed, warning if any task warned and ok
// otherwise.
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

func (r *Run) statusLocked() Status {
	status := StatusOK
	for _, t := range r.tasks {
		switch t.Status {
		case StatusFailed:
			return StatusFailed
		case StatusWarning:
			status = StatusWarning
		}
	}
	return status
}

type field struct {
	path  string
	value any
}

func setAll(doc []byte, fields []field) ([]byte, error) {
	var err error
	for _, f := range fields {
		if doc, err = sjson.SetBytes(doc, f.path, f.value); err != nil {
			return nil, fmt.Errorf("rendering report: %w", err)
		}
	}
	return doc, nil
}

// JSON renders the run.
func (r *Run) JSON() ([]byte, error) {
	tasks := r.Tasks()
	subs := r.Substitutions()
	status := r.Status()

	r.mu.Lock()
	started, finished := r.Started, r.Finished
	r.mu.Unlock()

	doc, err := setAll([]byte(`{}`), []field{
		{"id", r.ID},
		{"status", string(status)},
		{"started", started.Format(time.RFC3339)},
		{"finished", finished.Format(time.RFC3339)},
		{"durationMs", finished.Sub(started).Milliseconds()},
		{"targets", r.Targets},
		{"substitutions", map[string]int(subs)},
	})
	if err != nil {
		return nil, err
	}
	if doc, err = sjson.SetRawBytes(doc, "tasks", []byte(`[]`)); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}

	for _, t := range tasks {
		entry := []field{
			{"name", t.Name},
			{"target", t.Target},
			{"status", string(t.Status)},
			{"durationMs", t.Duration.Milliseconds()},
			{"warnings", t.Warnings},
		}
		if t.Error != "" {
			entry = append(entry, field{"error", t.Error})
		}
		obj, err := setAll([]byte(`{}`), entry)
		if err != nil {
			return nil, err
		}
		if doc, err = sjson.SetRawBytes(doc, "tasks.-1", obj); err != nil {
			return nil, fmt.Errorf("rendering report: %w", err)
		}
	}
	return doc, nil
}

// Write renders run and stores it at name in store.
func Write(ctx context.Context, store *fileset.Store, name string, run *Run) error {
	data, err := run.JSON()
	if err != nil {
		return err
	}
	return store.Write(ctx, name, append(data, '\n'))
}
