package tasks

import (
	"errors"
	"fmt"
)

// Task errors.
var (
	// ErrUnknownTask indicates a step names a task that is not registered.
	ErrUnknownTask = errors.New("unknown task")

	// ErrDuplicateTask indicates a task name is registered twice.
	ErrDuplicateTask = errors.New("task already registered")

	// ErrTaskFailed matches every *TaskError.
	ErrTaskFailed = errors.New("task failed")

	// ErrTaskPanic indicates a task panicked.
	ErrTaskPanic = errors.New("task panicked")

	// ErrNoTargets indicates a multi-target task has nothing configured.
	ErrNoTargets = errors.New("no targets configured")

	// ErrMissingInput indicates a file a task depends on does not exist.
	ErrMissingInput = errors.New("missing input")

	// ErrToolFailed indicates an external tool exited non-zero without
	// explaining why.
	ErrToolFailed = errors.New("tool failed")

	// ErrNotBeautified indicates files differ from their formatted form.
	ErrNotBeautified = errors.New("files are not beautified")

	// ErrLintProblems indicates the linter reported errors.
	ErrLintProblems = errors.New("lint errors found")

	// ErrSpecsFailed indicates a spec suite reported failures.
	ErrSpecsFailed = errors.New("Tests failed!")

	// ErrBundleFailed indicates esbuild reported errors.
	ErrBundleFailed = errors.New("bundle failed")

	// ErrScriptWarned indicates a script called build.warn.
	ErrScriptWarned = errors.New("script reported warnings")
)

// TaskError is the failure of one task target.
type TaskError struct {
	Task   string
	Target string
	// Warnings is the number of problems behind the failure, at least 1
	// once the runner has recorded it.
	Warnings int
	Err      error
}

// Step returns "task" or "task:target".
func (e *TaskError) Step() string {
	if e.Target == "" {
		return e.Task
	}
	return e.Task + ":" + e.Target
}

func (e *TaskError) Error() string {
	if e.Task == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Step(), e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Is reports true for ErrTaskFailed.
func (e *TaskError) Is(target error) bool {
	return target == ErrTaskFailed
}

// warnings wraps err as a task failure carrying n problems.
func warnings(n int, err error) *TaskError {
	return &TaskError{Warnings: n, Err: err}
}
