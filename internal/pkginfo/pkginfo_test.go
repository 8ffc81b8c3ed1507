package pkginfo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/buildrig/internal/fileset"
)

const legacyPackage = `{
  "name": "sample-app",
  "version": "1.4.0",
  "homepage": "https://example.com/sample",
  "author": {"name": "Sample Team", "email": "team@example.com"},
  "licenses": [{"type": "MIT", "url": "https://example.com/license"}]
}`

// Same text as the default banner in the config package.
const banner = `/*! {{.Pkg.Name}} - v{{.Pkg.Version}} - {{.Today}}
{{if .Pkg.Homepage}}* {{.Pkg.Homepage}}
{{end}}* Copyright (c) {{.Year}} {{.Pkg.Author}}; Licensed {{.Licenses}} */
`

func TestParse_LegacyFields(t *testing.T) {
	info, err := Parse([]byte(legacyPackage))
	require.NoError(t, err)

	assert.Equal(t, "sample-app", info.Name)
	assert.Equal(t, "1.4.0", info.Version)
	assert.Equal(t, "https://example.com/sample", info.Homepage)
	assert.Equal(t, "Sample Team", info.Author)
	assert.Equal(t, []string{"MIT"}, info.Licenses)
}

func TestParse_ModernFields(t *testing.T) {
	info, err := Parse([]byte(`{"name":"x","version":"0.1.0","author":"Jo Doe","license":"ISC"}`))
	require.NoError(t, err)

	assert.Equal(t, "Jo Doe", info.Author)
	assert.Equal(t, []string{"ISC"}, info.Licenses)
	assert.Empty(t, info.Homepage)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`{"name":`))
	assert.ErrorIs(t, err, ErrInvalidPackage)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", "package.json"), []byte(legacyPackage), 0o644))
	store := fileset.NewStore(dir)

	info, err := Load(context.Background(), store, "app/package.json")
	require.NoError(t, err)
	assert.Equal(t, "sample-app", info.Name)

	_, err = Load(context.Background(), store, "missing.json")
	assert.Error(t, err)
}

func TestBanner(t *testing.T) {
	info, err := Parse([]byte(legacyPackage))
	require.NoError(t, err)
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	got, err := Banner(banner, info, now)
	require.NoError(t, err)

	want := "/*! sample-app - v1.4.0 - 2024-03-09\n" +
		"* https://example.com/sample\n" +
		"* Copyright (c) 2024 Sample Team; Licensed MIT */\n"
	assert.Equal(t, want, got)
}

func TestBanner_NoHomepage(t *testing.T) {
	info := &Info{Name: "x", Version: "1", Author: "A", Licenses: []string{"MIT", "GPL"}}

	got, err := Banner(banner, info, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "/*! x - v1 - 2020-01-02\n* Copyright (c) 2020 A; Licensed MIT, GPL */\n", got)
}

func TestBanner_BadTemplate(t *testing.T) {
	_, err := Banner("{{.Nope", &Info{}, time.Now())
	assert.Error(t, err)
}
