// Package task runs external build tools as managed child processes.
//
// Formatters, linters and spec runners are not reimplemented; they are
// invoked through an Executor:
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                         Executor                                │
//	│  - Runs tools in their own process group                        │
//	│  - Feeds Task.Input on stdin, captures stdout when asked        │
//	│  - Streams output lines to listeners                            │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                     Problem Matchers                            │
//	│  - Turn linter lines into Problems                              │
//	│  - $jshint-unix, $jshint-default, $eslint-compact, $tsc, ...    │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Example
//
//	exec := task.NewExecutor(task.DefaultExecutorConfig(workspace))
//	run, err := exec.ExecuteSync(ctx, &task.Task{
//		Name:           "lint",
//		Command:        "jshint",
//		Args:           []string{"--reporter=unix", "src/app.js"},
//		ProblemMatcher: "$jshint-unix",
//	})
//	if err != nil {
//		return err
//	}
//	for _, p := range run.Problems() {
//		fmt.Println(p)
//	}
//
// Spec runner output is summarized with ParseSpecSummary.
package task
