package task

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// ExecutorConfig configures the task executor.
type ExecutorConfig struct {
	// Shell runs tasks with Shell set.
	Shell string

	// ShellArgs precede the command line passed to Shell.
	ShellArgs []string

	// Env are environment variables added to every task.
	Env map[string]string

	// WorkingDir is the default working directory.
	WorkingDir string

	// OutputBufferSize is the longest output line accepted.
	OutputBufferSize int

	// MaxConcurrent is the maximum number of concurrent executions.
	MaxConcurrent int
}

// DefaultExecutorConfig returns the defaults for workspace dir.
func DefaultExecutorConfig(dir string) ExecutorConfig {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return ExecutorConfig{
		Shell:            shell,
		ShellArgs:        []string{"-c"},
		WorkingDir:       dir,
		OutputBufferSize: 1024 * 1024,
		MaxConcurrent:    4,
	}
}

// ExecutionState represents the state of a task execution.
type ExecutionState string

const (
	// ExecutionStatePending indicates the task is waiting to run.
	ExecutionStatePending ExecutionState = "pending"
	// ExecutionStateRunning indicates the task is currently running.
	ExecutionStateRunning ExecutionState = "running"
	// ExecutionStateSucceeded indicates the task exited with status 0.
	ExecutionStateSucceeded ExecutionState = "succeeded"
	// ExecutionStateFailed indicates the task could not start or exited
	// non-zero.
	ExecutionStateFailed ExecutionState = "failed"
	// ExecutionStateCanceled indicates the task was canceled.
	ExecutionStateCanceled ExecutionState = "canceled"
)

// Execution is a running or completed task.
type Execution struct {
	// ID uniquely identifies this execution.
	ID string

	// Task is the task being executed.
	Task *Task

	mu        sync.RWMutex
	state     ExecutionState
	startTime time.Time
	endTime   time.Time
	exitCode  int
	err       error
	problems  []Problem
	stdout    bytes.Buffer

	cmd      *osexec.Cmd
	cancel   context.CancelFunc
	output   *OutputProcessor
	done     chan struct{}
	doneOnce sync.Once
}

// ExecutionListener receives execution events. Callbacks run on the
// executor's goroutines and must not block.
type ExecutionListener interface {
	OnExecutionStarted(exec *Execution)
	OnExecutionOutput(exec *Execution, line OutputLine)
	OnExecutionProblem(exec *Execution, problem Problem)
	OnExecutionCompleted(exec *Execution)
}

// Executor runs tasks as child processes.
type Executor struct {
	config   ExecutorConfig
	problems *ProblemMatcher

	executions   map[string]*Execution
	executionsMu sync.RWMutex

	sem chan struct{}

	listeners   []ExecutionListener
	listenersMu sync.RWMutex
}

// NewExecutor creates a new task executor.
func NewExecutor(config ExecutorConfig) *Executor {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}
	if config.Shell == "" {
		config.Shell = "/bin/sh"
		config.ShellArgs = []string{"-c"}
	}
	return &Executor{
		config:     config,
		problems:   NewProblemMatcher(),
		executions: make(map[string]*Execution),
		sem:        make(chan struct{}, config.MaxConcurrent),
	}
}

// Problems returns the problem matcher registry.
func (e *Executor) Problems() *ProblemMatcher {
	return e.problems
}

// AddListener adds an execution listener.
func (e *Executor) AddListener(listener ExecutionListener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, listener)
}

// Execute starts task in the background and returns its handle.
func (e *Executor) Execute(ctx context.Context, task *Task) (*Execution, error) {
	if task == nil || task.Command == "" {
		return nil, ErrEmptyCommand
	}
	if task.ProblemMatcher != "" && e.problems.GetMatcher(task.ProblemMatcher) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMatcher, task.ProblemMatcher)
	}

	execCtx, cancel := context.WithCancel(ctx)
	exec := &Execution{
		ID:       uuid.NewString(),
		Task:     task,
		state:    ExecutionStatePending,
		exitCode: -1,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	e.executionsMu.Lock()
	e.executions[exec.ID] = exec
	e.executionsMu.Unlock()

	go e.run(execCtx, exec)

	return exec, nil
}

// ExecuteSync runs task and waits for it to finish. The returned error
// covers only failures to start; check the execution state for the
// outcome.
func (e *Executor) ExecuteSync(ctx context.Context, task *Task) (*Execution, error) {
	exec, err := e.Execute(ctx, task)
	if err != nil {
		return nil, err
	}
	<-exec.Done()
	return exec, nil
}

// ListExecutions returns the executions that have not completed.
func (e *Executor) ListExecutions() []*Execution {
	e.executionsMu.RLock()
	defer e.executionsMu.RUnlock()

	result := make([]*Execution, 0, len(e.executions))
	for _, exec := range e.executions {
		result = append(result, exec)
	}
	return result
}

// CancelAll cancels every active execution.
func (e *Executor) CancelAll() {
	for _, exec := range e.ListExecutions() {
		exec.Cancel()
	}
}

func (e *Executor) run(ctx context.Context, exec *Execution) {
	defer exec.cancel()

	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-ctx.Done():
		e.finish(exec, ExecutionStateCanceled, -1, ctx.Err())
		return
	}

	cmd := e.buildCommand(ctx, exec.Task)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		e.finish(exec, ExecutionStateFailed, -1, fmt.Errorf("stdout pipe: %w", err))
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		e.finish(exec, ExecutionStateFailed, -1, fmt.Errorf("stderr pipe: %w", err))
		return
	}

	var out io.Reader = stdout
	if exec.Task.Capture {
		out = io.TeeReader(stdout, &lockedWriter{mu: &exec.mu, buf: &exec.stdout})
	}

	var matcher *CompiledMatcher
	if exec.Task.ProblemMatcher != "" {
		matcher = e.problems.GetMatcher(exec.Task.ProblemMatcher)
	}

	exec.mu.Lock()
	exec.cmd = cmd
	exec.output = NewOutputProcessor(e.config.OutputBufferSize)
	exec.startTime = time.Now()
	exec.state = ExecutionStateRunning
	exec.mu.Unlock()

	e.notifyStarted(exec)

	if err := cmd.Start(); err != nil {
		e.finish(exec, ExecutionStateFailed, -1, fmt.Errorf("start %s: %w", exec.Task.Command, err))
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.processOutput(exec, out, OutputStreamStdout, matcher)
	}()
	go func() {
		defer wg.Done()
		e.processOutput(exec, stderr, OutputStreamStderr, matcher)
	}()
	wg.Wait()

	err = cmd.Wait()

	switch {
	case ctx.Err() != nil:
		e.finish(exec, ExecutionStateCanceled, -1, ctx.Err())
	case err != nil:
		code := -1
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		e.finish(exec, ExecutionStateFailed, code, err)
	default:
		e.finish(exec, ExecutionStateSucceeded, 0, nil)
	}
}

func (e *Executor) buildCommand(ctx context.Context, task *Task) *osexec.Cmd {
	var cmd *osexec.Cmd
	if task.Shell {
		args := append(append([]string{}, e.config.ShellArgs...), task.CommandLine())
		cmd = osexec.CommandContext(ctx, e.config.Shell, args...)
	} else {
		cmd = osexec.CommandContext(ctx, task.Command, task.Args...)
	}

	cmd.Dir = task.Cwd
	if cmd.Dir == "" {
		cmd.Dir = e.config.WorkingDir
	}
	cmd.Env = e.buildEnvironment(task)
	if task.Input != nil {
		cmd.Stdin = bytes.NewReader(task.Input)
	}

	// Run in a process group so cancellation reaches tools that fork.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	return cmd
}

// buildEnvironment creates the environment for a task.
// Precedence (highest to lowest): task.Env > config.Env > os.Environ()
func (e *Executor) buildEnvironment(task *Task) []string {
	envMap := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			envMap[k] = v
		}
	}
	for k, v := range e.config.Env {
		envMap[k] = v
	}
	for k, v := range task.Env {
		envMap[k] = v
	}

	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+envMap[k])
	}
	return env
}

func (e *Executor) processOutput(exec *Execution, r io.Reader, stream OutputStream, matcher *CompiledMatcher) {
	// A scan error (line too long) leaves the captured prefix in place.
	err := exec.output.Process(r, stream, func(line OutputLine) {
		e.notifyOutput(exec, line)
		if matcher == nil {
			return
		}
		if problem, ok := matcher.Match(line.Content); ok {
			exec.mu.Lock()
			exec.problems = append(exec.problems, problem)
			exec.mu.Unlock()
			e.notifyProblem(exec, problem)
		}
	})
	if err != nil {
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}

func (e *Executor) finish(exec *Execution, state ExecutionState, code int, err error) {
	exec.mu.Lock()
	exec.state = state
	exec.exitCode = code
	exec.err = err
	exec.endTime = time.Now()
	exec.mu.Unlock()

	e.executionsMu.Lock()
	delete(e.executions, exec.ID)
	e.executionsMu.Unlock()

	e.notifyCompleted(exec)
	exec.doneOnce.Do(func() { close(exec.done) })
}

func (e *Executor) snapshotListeners() []ExecutionListener {
	e.listenersMu.RLock()
	defer e.listenersMu.RUnlock()
	listeners := make([]ExecutionListener, len(e.listeners))
	copy(listeners, e.listeners)
	return listeners
}

func (e *Executor) notifyStarted(exec *Execution) {
	for _, l := range e.snapshotListeners() {
		l.OnExecutionStarted(exec)
	}
}

func (e *Executor) notifyOutput(exec *Execution, line OutputLine) {
	for _, l := range e.snapshotListeners() {
		l.OnExecutionOutput(exec, line)
	}
}

func (e *Executor) notifyProblem(exec *Execution, problem Problem) {
	for _, l := range e.snapshotListeners() {
		l.OnExecutionProblem(exec, problem)
	}
}

func (e *Executor) notifyCompleted(exec *Execution) {
	for _, l := range e.snapshotListeners() {
		l.OnExecutionCompleted(exec)
	}
}

type lockedWriter struct {
	mu  *sync.RWMutex
	buf *bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

// Cancel stops the execution and kills its process group.
func (ex *Execution) Cancel() {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	if ex.cancel != nil {
		ex.cancel()
	}
}

// Done returns a channel that is closed when the execution completes.
func (ex *Execution) Done() <-chan struct{} {
	return ex.done
}

// State returns the current state.
func (ex *Execution) State() ExecutionState {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	return ex.state
}

// Succeeded reports whether the process exited with status 0.
func (ex *Execution) Succeeded() bool {
	return ex.State() == ExecutionStateSucceeded
}

// ExitCode returns the exit status, or -1 if the process did not exit
// normally.
func (ex *Execution) ExitCode() int {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	return ex.exitCode
}

// Err returns the start, exit or cancellation error.
func (ex *Execution) Err() error {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	return ex.err
}

// Problems returns the problems matched in the output.
func (ex *Execution) Problems() []Problem {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	result := make([]Problem, len(ex.problems))
	copy(result, ex.problems)
	return result
}

// Duration returns how long the process ran.
func (ex *Execution) Duration() time.Duration {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	if ex.startTime.IsZero() {
		return 0
	}
	end := ex.endTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(ex.startTime)
}

// Output returns all captured output lines in arrival order.
func (ex *Execution) Output() []OutputLine {
	ex.mu.RLock()
	output := ex.output
	ex.mu.RUnlock()
	if output == nil {
		return nil
	}
	return output.Lines()
}

// Text returns all captured output joined with newlines.
func (ex *Execution) Text() string {
	ex.mu.RLock()
	output := ex.output
	ex.mu.RUnlock()
	if output == nil {
		return ""
	}
	return output.Content()
}

// Stdout returns the raw stdout bytes of a task run with Capture.
func (ex *Execution) Stdout() []byte {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	return bytes.Clone(ex.stdout.Bytes())
}
