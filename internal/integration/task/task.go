package task

import (
	"errors"
	"strings"
)

// ErrEmptyCommand is returned when a task has no command.
var ErrEmptyCommand = errors.New("empty command")

// Task describes one external tool invocation.
type Task struct {
	// Name labels the task in logs and listener callbacks.
	Name string

	// Command is the program to run. Looked up in PATH unless it
	// contains a separator.
	Command string

	// Args are the command arguments.
	Args []string

	// Cwd is the working directory. Empty means the executor default.
	Cwd string

	// Env are extra environment variables.
	Env map[string]string

	// Input is written to the process stdin. Nil leaves stdin empty.
	Input []byte

	// Shell runs Command and Args through the configured shell.
	Shell bool

	// Capture keeps the raw stdout bytes, available from Execution.Stdout.
	// Use it when output must be preserved exactly, such as formatter
	// output.
	Capture bool

	// ProblemMatcher is the name of the problem matcher applied to every
	// output line.
	ProblemMatcher string
}

// CommandLine returns the command and arguments joined for display.
func (t *Task) CommandLine() string {
	parts := make([]string, 0, len(t.Args)+1)
	parts = append(parts, shellEscape(t.Command))
	for _, a := range t.Args {
		parts = append(parts, shellEscape(a))
	}
	return strings.Join(parts, " ")
}

// shellEscape quotes s for a POSIX shell when it contains anything other
// than a conservative set of safe characters.
func shellEscape(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(c rune) bool { return !isShellSafe(c) }) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isShellSafe(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '/' || c == '=' || c == ','
}
