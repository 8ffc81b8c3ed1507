package task

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingListener records execution events.
type recordingListener struct {
	mu        sync.Mutex
	started   int
	outputs   []OutputLine
	problems  []Problem
	completed int
}

func (r *recordingListener) OnExecutionStarted(*Execution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingListener) OnExecutionOutput(_ *Execution, line OutputLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs = append(r.outputs, line)
}

func (r *recordingListener) OnExecutionProblem(_ *Execution, p Problem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.problems = append(r.problems, p)
}

func (r *recordingListener) OnExecutionCompleted(*Execution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	return NewExecutor(DefaultExecutorConfig(t.TempDir()))
}

func sh(script string) *Task {
	return &Task{Name: "sh", Command: "/bin/sh", Args: []string{"-c", script}}
}

func TestDefaultExecutorConfig(t *testing.T) {
	cfg := DefaultExecutorConfig("/work")

	assert.NotEmpty(t, cfg.Shell)
	assert.Equal(t, []string{"-c"}, cfg.ShellArgs)
	assert.Equal(t, "/work", cfg.WorkingDir)
	assert.Equal(t, 4, cfg.MaxConcurrent)
}

func TestNewExecutor_Defaults(t *testing.T) {
	e := NewExecutor(ExecutorConfig{})

	assert.Equal(t, 4, cap(e.sem))
	assert.Equal(t, "/bin/sh", e.config.Shell)
	assert.NotNil(t, e.Problems().GetMatcher("$jshint-unix"))
}

func TestExecutor_ExecuteSync(t *testing.T) {
	e := newTestExecutor(t)
	listener := &recordingListener{}
	e.AddListener(listener)

	exec, err := e.ExecuteSync(context.Background(), sh("echo hello; echo oops >&2"))
	require.NoError(t, err)

	assert.True(t, exec.Succeeded())
	assert.Equal(t, 0, exec.ExitCode())
	assert.NoError(t, exec.Err())
	assert.Len(t, exec.ID, 36)
	assert.Contains(t, exec.Text(), "hello")
	assert.Contains(t, exec.Text(), "oops")
	assert.Greater(t, exec.Duration(), time.Duration(0))
	assert.Empty(t, e.ListExecutions())

	listener.mu.Lock()
	defer listener.mu.Unlock()
	assert.Equal(t, 1, listener.started)
	assert.Equal(t, 1, listener.completed)
	assert.Len(t, listener.outputs, 2)
}

func TestExecutor_UniqueIDs(t *testing.T) {
	e := newTestExecutor(t)

	a, err := e.ExecuteSync(context.Background(), sh("true"))
	require.NoError(t, err)
	b, err := e.ExecuteSync(context.Background(), sh("true"))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestExecutor_ExitCode(t *testing.T) {
	e := newTestExecutor(t)

	exec, err := e.ExecuteSync(context.Background(), sh("exit 3"))
	require.NoError(t, err)

	assert.Equal(t, ExecutionStateFailed, exec.State())
	assert.Equal(t, 3, exec.ExitCode())
	assert.Error(t, exec.Err())
}

func TestExecutor_MissingCommand(t *testing.T) {
	e := newTestExecutor(t)

	exec, err := e.ExecuteSync(context.Background(), &Task{Command: "definitely-not-a-real-tool-xyz"})
	require.NoError(t, err)

	assert.Equal(t, ExecutionStateFailed, exec.State())
	assert.Equal(t, -1, exec.ExitCode())
	assert.Error(t, exec.Err())
}

func TestExecutor_EmptyCommand(t *testing.T) {
	_, err := newTestExecutor(t).Execute(context.Background(), &Task{})
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestExecutor_UnknownMatcher(t *testing.T) {
	task := sh("true")
	task.ProblemMatcher = "$nope"

	_, err := newTestExecutor(t).Execute(context.Background(), task)
	assert.ErrorIs(t, err, ErrUnknownMatcher)
}

func TestExecutor_InputAndCapture(t *testing.T) {
	e := newTestExecutor(t)
	task := &Task{
		Command: "cat",
		Input:   []byte("line one\nline two\n\n"),
		Capture: true,
	}

	exec, err := e.ExecuteSync(context.Background(), task)
	require.NoError(t, err)

	require.True(t, exec.Succeeded())
	assert.Equal(t, "line one\nline two\n\n", string(exec.Stdout()))
}

func TestExecutor_Env(t *testing.T) {
	cfg := DefaultExecutorConfig(t.TempDir())
	cfg.Env = map[string]string{"BASE": "base", "OVERRIDE": "config"}
	e := NewExecutor(cfg)
	task := sh(`echo "$BASE $OVERRIDE"`)
	task.Env = map[string]string{"OVERRIDE": "task"}

	exec, err := e.ExecuteSync(context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, "base task", exec.Text())
}

func TestExecutor_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o644))
	e := NewExecutor(DefaultExecutorConfig(dir))

	exec, err := e.ExecuteSync(context.Background(), sh("ls"))
	require.NoError(t, err)
	assert.Contains(t, exec.Text(), "marker.txt")

	other := t.TempDir()
	task := sh("pwd")
	task.Cwd = other
	exec, err = e.ExecuteSync(context.Background(), task)
	require.NoError(t, err)
	resolved, _ := filepath.EvalSymlinks(other)
	assert.Contains(t, []string{other, resolved}, exec.Text())
}

func TestExecutor_ShellTask(t *testing.T) {
	e := newTestExecutor(t)
	task := &Task{Command: "echo", Args: []string{"it's", "a b"}, Shell: true}

	exec, err := e.ExecuteSync(context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, "it's a b", exec.Text())
}

func TestExecutor_ProblemMatcher(t *testing.T) {
	e := newTestExecutor(t)
	listener := &recordingListener{}
	e.AddListener(listener)
	task := sh(`echo "src/app.js:3:7: Missing semicolon."; echo "not a problem"`)
	task.ProblemMatcher = "$jshint-unix"

	exec, err := e.ExecuteSync(context.Background(), task)
	require.NoError(t, err)

	problems := exec.Problems()
	require.Len(t, problems, 1)
	assert.Equal(t, Problem{
		File:     "src/app.js",
		Line:     3,
		Column:   7,
		Severity: ProblemSeverityError,
		Message:  "Missing semicolon.",
		Source:   "jshint",
	}, problems[0])

	listener.mu.Lock()
	defer listener.mu.Unlock()
	assert.Len(t, listener.problems, 1)
}

func TestExecutor_Cancel(t *testing.T) {
	e := newTestExecutor(t)

	exec, err := e.Execute(context.Background(), sh("sleep 10"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return exec.State() == ExecutionStateRunning }, 5*time.Second, 10*time.Millisecond)
	exec.Cancel()

	select {
	case <-exec.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("execution was not canceled")
	}
	assert.Equal(t, ExecutionStateCanceled, exec.State())
}

func TestExecutor_ContextCancellation(t *testing.T) {
	e := newTestExecutor(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	exec, err := e.ExecuteSync(ctx, sh("sleep 10"))
	require.NoError(t, err)

	assert.Equal(t, ExecutionStateCanceled, exec.State())
}

func TestExecutor_CancelAll(t *testing.T) {
	e := newTestExecutor(t)

	var runs []*Execution
	for i := 0; i < 2; i++ {
		exec, err := e.Execute(context.Background(), sh("sleep 10"))
		require.NoError(t, err)
		runs = append(runs, exec)
	}
	require.Eventually(t, func() bool {
		return runs[0].State() == ExecutionStateRunning && runs[1].State() == ExecutionStateRunning
	}, 5*time.Second, 10*time.Millisecond)

	e.CancelAll()

	for _, exec := range runs {
		<-exec.Done()
		assert.Equal(t, ExecutionStateCanceled, exec.State())
	}
}

func TestExecutor_ConcurrencyLimit(t *testing.T) {
	cfg := DefaultExecutorConfig(t.TempDir())
	cfg.MaxConcurrent = 1
	e := NewExecutor(cfg)

	first, err := e.Execute(context.Background(), sh("sleep 0.3"))
	require.NoError(t, err)
	second, err := e.Execute(context.Background(), sh("true"))
	require.NoError(t, err)

	<-second.Done()
	<-first.Done()
	assert.True(t, first.Succeeded())
	assert.True(t, second.Succeeded())
}

func TestTask_CommandLine(t *testing.T) {
	task := &Task{Command: "jshint", Args: []string{"--config", "a b.json", "it's"}}

	assert.Equal(t, `jshint --config 'a b.json' 'it'\''s'`, task.CommandLine())
}

func TestShellEscape(t *testing.T) {
	tests := map[string]string{
		"":            "''",
		"simple":      "simple",
		"--flag=1,2":  "--flag=1,2",
		"src/app.js":  "src/app.js",
		"$HOME":       "'$HOME'",
		"a;b":         "'a;b'",
		"with space":  "'with space'",
		"src/**/*.js": "'src/**/*.js'",
	}
	for in, want := range tests {
		assert.Equal(t, want, shellEscape(in), "shellEscape(%q)", in)
	}
	assert.False(t, strings.ContainsRune(shellEscape("x"), '\''))
}
