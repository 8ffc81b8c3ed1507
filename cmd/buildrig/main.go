// Package main is the entry point for the buildrig build orchestrator.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/dshills/buildrig/internal/tasks"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalOptions are accepted by every command.
type GlobalOptions struct {
	Config    string `short:"c" long:"config" description:"Build file (default: buildrig.toml, buildrig.yaml or buildrig.yml in the workspace)"`
	Workspace string `short:"w" long:"workspace" description:"Project directory" default:"."`
	Verbose   bool   `short:"v" long:"verbose" description:"Show tool output and substitution details"`
	LogLevel  string `long:"log-level" description:"Log level" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
	Force     bool   `short:"f" long:"force" description:"Keep going after a task fails"`
	Report    string `long:"report" description:"Write a JSON build report to this workspace path"`
	NoColor   bool   `long:"no-color" description:"Disable colored output"`
}

type cli struct {
	opts   GlobalOptions
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr}
	parser := newParser(c)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		switch {
		case errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp:
			fmt.Fprintln(stdout, flagsErr.Message)
			return 0
		case errors.Is(err, tasks.ErrTaskFailed):
			// The runner has already reported the failure.
			return 1
		default:
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

func newParser(c *cli) *flags.Parser {
	parser := flags.NewNamedParser("buildrig", flags.HelpFlag|flags.PassDoubleDash)
	parser.ShortDescription = "Build orchestrator for browser applications"
	if _, err := parser.AddGroup("Global Options", "", &c.opts); err != nil {
		panic(err)
	}

	commands := []struct {
		name, short, long string
		data              any
	}{
		{"run", "Run tasks", "Run tasks, task:target steps and aliases in order. With no names the default alias runs.", &runCommand{cli: c}},
		{"watch", "Watch files and re-run tasks", "Watch the files of the named watch targets, or all of them, and run their tasks on change.", &watchCommand{cli: c}},
		{"list", "List tasks, aliases and watch targets", "List tasks, aliases and watch targets.", &listCommand{cli: c}},
		{"version", "Show version information", "Show version information.", &versionCommand{cli: c}},
	}
	for _, cmd := range commands {
		if _, err := parser.AddCommand(cmd.name, cmd.short, cmd.long, cmd.data); err != nil {
			panic(err)
		}
	}
	return parser
}

type versionCommand struct {
	cli *cli
}

// Execute implements flags.Commander.
func (v *versionCommand) Execute([]string) error {
	fmt.Fprintf(v.cli.stdout, "buildrig %s\n", version)
	fmt.Fprintf(v.cli.stdout, "Commit: %s\n", commit)
	fmt.Fprintf(v.cli.stdout, "Built: %s\n", date)
	return nil
}
