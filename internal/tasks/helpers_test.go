package tasks

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/logging"
	"github.com/dshills/buildrig/internal/report"
)

var testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// newTestContext returns a context over an empty workspace using the
// default configuration, logging at debug level into the returned buffer.
func newTestContext(t *testing.T) (*Context, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Workspace = t.TempDir()

	var buf bytes.Buffer
	log := logging.New(logging.Config{Output: &buf, Level: logging.LevelDebug})
	c := NewContext(cfg, log)
	c.Now = func() time.Time { return testNow }
	c.Report = report.NewRun(nil, testNow)
	return c, &buf
}

// writeFile writes content to the workspace-relative name.
func writeFile(t *testing.T, c *Context, name, content string) {
	t.Helper()
	p := filepath.Join(c.Config.Workspace, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func readFile(t *testing.T, c *Context, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(c.Config.Workspace, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

// writeTool writes an executable shell script standing in for an external
// tool and returns its path.
func writeTool(t *testing.T, c *Context, name, body string) string {
	t.Helper()
	p := filepath.Join(c.Config.Workspace, ".bin", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return p
}
