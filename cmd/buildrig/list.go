package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/tasks"
)

type listCommand struct {
	cli *cli
}

// Execute implements flags.Commander.
func (l *listCommand) Execute([]string) error {
	b, err := l.cli.setup()
	if err != nil {
		return err
	}
	writeList(l.cli.stdout, b.cfg, b.registry)
	return nil
}

type row struct {
	name, detail string
}

func writeList(w io.Writer, cfg *config.Config, registry *tasks.Registry) {
	var taskRows []row
	for _, name := range registry.Names() {
		t, _ := registry.Get(name)
		detail := t.Description()
		if targets := t.Targets(cfg); len(targets) > 0 {
			detail += " (" + strings.Join(targets, ", ") + ")"
		}
		taskRows = append(taskRows, row{name, detail})
	}

	var aliasRows []row
	for _, name := range config.SortedKeys(cfg.Targets) {
		aliasRows = append(aliasRows, row{name, strings.Join(cfg.Targets[name], ", ")})
	}

	var watchRows []row
	for _, name := range config.SortedKeys(cfg.Watch) {
		wt := cfg.Watch[name]
		detail := strings.Join(wt.Files, " ") + " -> " + strings.Join(wt.Tasks, ", ")
		if wt.Schedule != "" {
			detail += " [" + wt.Schedule + "]"
		}
		watchRows = append(watchRows, row{name, detail})
	}

	width := 0
	for _, rows := range [][]row{taskRows, aliasRows, watchRows} {
		for _, r := range rows {
			width = max(width, uniseg.StringWidth(r.name))
		}
	}

	section(w, "Tasks", taskRows, width)
	section(w, "Aliases", aliasRows, width)
	section(w, "Watch targets", watchRows, width)
}

func section(w io.Writer, title string, rows []row, width int) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, r := range rows {
		pad := strings.Repeat(" ", width-uniseg.StringWidth(r.name))
		fmt.Fprintf(w, "  %s%s  %s\n", r.name, pad, r.detail)
	}
	fmt.Fprintln(w)
}
