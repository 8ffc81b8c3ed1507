package tasks

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/substitute"
)

func setupBeautify(t *testing.T, mode string) (*Context, func() string) {
	t.Helper()
	c, buf := newTestContext(t)
	c.Config.Beautify.Mode = mode
	c.Config.Beautify.Command = writeTool(t, c, "beautifier", "cat")
	c.Config.Beautify.Args = nil
	c.Config.Beautify.Files = []string{"src/**/*.js"}
	writeFile(t, c, "src/a.js", "var a = !! b;\n")
	writeFile(t, c, "src/lib/b.js", "var b = !!c;\n")
	return c, buf.String
}

func TestBeautify_VerifyOnly(t *testing.T) {
	c, logs := setupBeautify(t, config.ModeVerifyOnly)

	err := NewBeautify().Run(context.Background(), c, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotBeautified)

	var te *TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Warnings)

	assert.Equal(t, "var a = !! b;\n", readFile(t, c, "src/a.js"))
	out := logs()
	assert.Contains(t, out, "The following files are not beautified:")
	assert.Contains(t, out, "  src/a.js")
	assert.NotContains(t, out, "  src/lib/b.js")
}

func TestBeautify_VerifyOnlyClean(t *testing.T) {
	c, logs := setupBeautify(t, config.ModeVerifyOnly)
	writeFile(t, c, "src/a.js", "var a = !!b;\n")

	require.NoError(t, NewBeautify().Run(context.Background(), c, ""))
	assert.Contains(t, logs(), "Verified 2 file(s).")
	assert.Equal(t, substitute.Tally{"!!": 0}, c.Report.Substitutions())
}

func TestBeautify_VerifyAndWrite(t *testing.T) {
	c, logs := setupBeautify(t, config.ModeVerifyAndWrite)

	require.NoError(t, NewBeautify().Run(context.Background(), c, ""))

	assert.Equal(t, "var a = !!b;\n", readFile(t, c, "src/a.js"))
	assert.Equal(t, "var b = !!c;\n", readFile(t, c, "src/lib/b.js"))
	assert.Equal(t, substitute.Tally{"!!": 1}, c.Report.Substitutions())

	out := logs()
	assert.Contains(t, out, `Replacing !!\s with !!, 1 time(s) on file src/a.js`)
	assert.NotContains(t, out, "on file src/lib/b.js")
	assert.Contains(t, out, "Beautified 2 file(s), changed 1 file(s).")
}

func TestBeautify_FormatterOutput(t *testing.T) {
	c, _ := setupBeautify(t, config.ModeVerifyAndWrite)
	seen := filepath.Join(c.Config.Workspace, "seen.txt")
	// Collapse double spaces and record the file argument.
	c.Config.Beautify.Command = writeTool(t, c, "beautifier", `echo "$1" >> "$2"; sed 's/  */ /g'`)
	c.Config.Beautify.Args = []string{FilePlaceholder, seen}
	writeFile(t, c, "src/a.js", "var  a =  !!  b;\n")

	require.NoError(t, NewBeautify().Run(context.Background(), c, ""))

	assert.Equal(t, "var a = !!b;\n", readFile(t, c, "src/a.js"))
	assert.Equal(t, "src/a.js\nsrc/lib/b.js\n", readFile(t, c, "seen.txt"))
}

func TestBeautify_FormatterFails(t *testing.T) {
	c, _ := setupBeautify(t, config.ModeVerifyAndWrite)
	c.Config.Beautify.Command = writeTool(t, c, "beautifier", "echo 'parse error' >&2; exit 3")

	err := NewBeautify().Run(context.Background(), c, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolFailed)
	assert.Contains(t, err.Error(), "src/a.js")
	assert.Contains(t, err.Error(), "status 3")
}

func setupLint(t *testing.T, body string) (*Context, func() string) {
	t.Helper()
	c, buf := newTestContext(t)
	c.Config.Lint.Command = writeTool(t, c, "linter", body)
	c.Config.Lint.Args = nil
	c.Config.Lint.Files = []string{"src/**/*.js"}
	writeFile(t, c, "src/a.js", "var a = 1\n")
	writeFile(t, c, "src/b.js", "var b = 2;\n")
	return c, buf.String
}

func TestLint_Clean(t *testing.T) {
	c, logs := setupLint(t, `echo "checked $#"`)

	require.NoError(t, NewLint().Run(context.Background(), c, ""))

	out := logs()
	assert.Contains(t, out, "checked 2")
	assert.Contains(t, out, "2 file(s) lint free.")
}

func TestLint_Problems(t *testing.T) {
	c, logs := setupLint(t, `echo "src/a.js:1:10: Missing semicolon."; echo "src/a.js:3:1: Unused a."; exit 2`)

	err := NewLint().Run(context.Background(), c, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLintProblems)
	assert.Contains(t, err.Error(), "2 error(s) in 1 file(s)")

	var te *TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 2, te.Warnings)
	assert.Contains(t, logs(), "src/a.js:1:10 Missing semicolon.")
}

func TestLint_ToolFailsWithoutProblems(t *testing.T) {
	c, logs := setupLint(t, `echo "cannot read config" >&2; exit 1`)

	err := NewLint().Run(context.Background(), c, "")
	assert.ErrorIs(t, err, ErrToolFailed)
	assert.Contains(t, logs(), "cannot read config")
}

func TestLint_NoFiles(t *testing.T) {
	c, logs := setupLint(t, "exit 1")
	c.Config.Lint.Files = []string{"lib/**/*.js"}

	require.NoError(t, NewLint().Run(context.Background(), c, ""))
	assert.Contains(t, logs(), "0 file(s) lint free.")
}

func TestLint_MissingCommand(t *testing.T) {
	c, _ := setupLint(t, "exit 0")
	c.Config.Lint.Command = filepath.Join(c.Config.Workspace, "no-such-linter")

	err := NewLint().Run(context.Background(), c, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-linter")
}

func setupSpec(t *testing.T, body string) (*Context, func() string) {
	t.Helper()
	c, buf := newTestContext(t)
	c.Config.Spec = map[string]*config.SpecTarget{
		"node": {Command: writeTool(t, c, "jasmine", body)},
	}
	return c, buf.String
}

func TestSpec_Passing(t *testing.T) {
	c, logs := setupSpec(t, `echo "Finished in 0.1 seconds"; echo "12 specs, 0 failures"`)

	require.NoError(t, NewSpec().Run(context.Background(), c, "node"))
	assert.Contains(t, logs(), "All done!")
}

func TestSpec_Failures(t *testing.T) {
	c, _ := setupSpec(t, `echo "3 tests, 5 assertions, 2 failures, 0 skipped"; exit 1`)

	err := NewSpec().Run(context.Background(), c, "node")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpecsFailed)
	assert.Equal(t, "Tests failed!: 2", err.Error())

	var te *TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 2, te.Warnings)
}

func TestSpec_FailureWarning(t *testing.T) {
	c, logs := setupSpec(t, `echo "4 specs, 2 failures"; exit 1`)
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewSpec()))

	_, err := NewRunner(reg, c).Run(context.Background(), "spec:node")
	require.ErrorIs(t, err, ErrSpecsFailed)

	out := logs()
	assert.Contains(t, out, "Warning: Tests failed!: 2")
	assert.Contains(t, out, "Aborted due to warnings.")
}

func TestSpec_NoSummaryUsesExitStatus(t *testing.T) {
	c, _ := setupSpec(t, `echo "crashed"; exit 4`)
	assert.ErrorIs(t, NewSpec().Run(context.Background(), c, "node"), ErrToolFailed)

	c, logs := setupSpec(t, `echo "nothing to report"`)
	require.NoError(t, NewSpec().Run(context.Background(), c, "node"))
	assert.Contains(t, logs(), "All done!")
}

func TestSpec_CwdAndEnv(t *testing.T) {
	c, logs := setupSpec(t, `pwd; echo "suite=$SUITE"; echo "1 spec, 0 failures"`)
	writeFile(t, c, "specs/.keep", "")
	c.Config.Spec["node"].Cwd = "specs"
	c.Config.Spec["node"].Env = map[string]string{"SUITE": "common"}

	require.NoError(t, NewSpec().Run(context.Background(), c, "node"))

	out := logs()
	assert.Contains(t, out, "/specs")
	assert.Contains(t, out, "suite=common")
}

func TestSpec_MissingInput(t *testing.T) {
	c, _ := setupSpec(t, `echo "1 spec, 0 failures"`)
	c.Config.Spec["node"].Inputs = []string{"dist/app_bundle.js"}

	err := NewSpec().Run(context.Background(), c, "node")
	assert.ErrorIs(t, err, ErrMissingInput)

	writeFile(t, c, "dist/app_bundle.js", "")
	assert.NoError(t, NewSpec().Run(context.Background(), c, "node"))
}

func TestSpec_Targets(t *testing.T) {
	c, _ := setupSpec(t, "exit 0")

	assert.ErrorIs(t, NewSpec().Run(context.Background(), c, "browser"), config.ErrUnknownTarget)
	assert.ErrorIs(t, NewSpec().Run(context.Background(), c, ""), config.ErrUnknownTarget)

	c.Config.Spec = nil
	assert.ErrorIs(t, NewSpec().Run(context.Background(), c, ""), ErrNoTargets)
}
