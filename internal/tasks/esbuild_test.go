package tasks

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/fileset"
)

func setupBundle(t *testing.T, target *config.BundleTarget) (*Context, func() string) {
	t.Helper()
	c, buf := newTestContext(t)
	c.Config.Bundle = map[string]*config.BundleTarget{"main": target}
	writeFile(t, c, "src/greet.js", `module.exports = function greet() { return "hello from greet"; };`+"\n")
	writeFile(t, c, "src/App.js", `var greet = require("./greet");`+"\n"+`module.exports = { greet: greet };`+"\n")
	return c, buf.String
}

func TestBundle_SingleEntryWithAlias(t *testing.T) {
	c, logs := setupBundle(t, &config.BundleTarget{
		Entries: []string{"./src/App.js"},
		Outfile: "dist/app_bundle_main.js",
		Alias:   "./src/App.js:SampleApp",
	})

	require.NoError(t, NewBundle().Run(context.Background(), c, "main"))

	out := readFile(t, c, "dist/app_bundle_main.js")
	assert.Contains(t, out, "hello from greet")
	assert.Contains(t, out, "SampleApp")
	assert.Contains(t, logs(), "Bundle dist/app_bundle_main.js created.")
}

func TestBundle_Requires(t *testing.T) {
	c, _ := setupBundle(t, &config.BundleTarget{
		Requires: []string{"./src/**/*.js"},
		Outfile:  "dist/app_bundle.js",
	})

	require.NoError(t, NewBundle().Run(context.Background(), c, "main"))

	out := readFile(t, c, "dist/app_bundle.js")
	assert.Contains(t, out, ModuleRegistry)
	assert.Contains(t, out, `"src/App.js"`)
	assert.Contains(t, out, `"src/greet.js"`)
	assert.Equal(t, 1, strings.Count(out, "hello from greet"))
}

func TestBundle_Exclude(t *testing.T) {
	c, _ := setupBundle(t, &config.BundleTarget{
		Entries: []string{"src/vendor.js"},
		Outfile: "dist/vendor.js",
		Exclude: []string{"jquery"},
		Format:  "cjs",
	})
	writeFile(t, c, "src/vendor.js", `var $ = require("jquery");`+"\n"+`module.exports = $;`+"\n")

	require.NoError(t, NewBundle().Run(context.Background(), c, "main"))
	assert.Contains(t, readFile(t, c, "dist/vendor.js"), `require("jquery")`)
}

func TestBundle_ResolveError(t *testing.T) {
	c, logs := setupBundle(t, &config.BundleTarget{
		Entries: []string{"src/broken.js"},
		Outfile: "dist/broken.js",
	})
	writeFile(t, c, "src/broken.js", `require("./missing");`+"\n")

	err := NewBundle().Run(context.Background(), c, "main")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBundleFailed)
	assert.Contains(t, logs(), "Could not resolve")
}

func TestBundle_NoEntries(t *testing.T) {
	c, _ := setupBundle(t, &config.BundleTarget{
		Entries: []string{"lib/*.js"},
		Outfile: "dist/none.js",
	})

	assert.ErrorIs(t, NewBundle().Run(context.Background(), c, "main"), fileset.ErrNoFiles)
}

func TestEntrySource(t *testing.T) {
	assert.Equal(t, "require(\"./test/a_spec.js\");\n", entrySource([]string{"test/a_spec.js"}, nil))

	src := entrySource([]string{"test/a_spec.js"}, []string{"./src/a.js"})
	assert.Contains(t, src, "globalThis."+ModuleRegistry+" = globalThis."+ModuleRegistry+" || {}")
	assert.Contains(t, src, `expose("src/a.js", function () { return require("./src/a.js"); });`)
	assert.True(t, strings.HasSuffix(src, "require(\"./test/a_spec.js\");\n"))
}

func TestSplitExternal(t *testing.T) {
	modules, paths := splitExternal([]string{"jquery", "./src/*", "/abs/lib/*", "lodash/*"})
	assert.Equal(t, []string{"jquery", "lodash/*"}, modules)
	assert.Equal(t, []string{"./src/*", "/abs/lib/*"}, paths)
}

func TestSharedModule(t *testing.T) {
	patterns := []string{"./src/*", "!src/vendor"}
	assert.True(t, sharedModule(patterns, "src/common/greet.js"))
	assert.True(t, sharedModule(patterns, "src/App.js"))
	assert.False(t, sharedModule(patterns, "test/spec/a_spec.js"))
	assert.False(t, sharedModule([]string{"./src/*.js"}, "src/common/greet.js"))
}

// setupSharedBundles configures an application bundle publishing src and
// a spec bundle reading src back through the module registry.
func setupSharedBundles(t *testing.T) *Context {
	t.Helper()
	c, _ := newTestContext(t)
	c.Config.Bundle = map[string]*config.BundleTarget{
		"src": {
			Requires: []string{"./src/**/*.js"},
			Outfile:  "dist/app_bundle.js",
		},
		"test": {
			Entries:  []string{"test/spec/**/*.js"},
			Outfile:  "dist/test_bundle.js",
			External: []string{"./src/*"},
		},
	}
	writeFile(t, c, "src/common/greet.js", `module.exports = function greet(name) { return "hello " + name; };`+"\n")
	writeFile(t, c, "src/browser/App.js", `var greet = require("../common/greet");`+"\n"+
		`module.exports = { run: function () { return greet("app"); } };`+"\n")
	writeFile(t, c, "test/spec/greet_spec.js", `var greet = require("../../src/common/greet.js");`+"\n"+
		`var App = require("../../src/browser/App");`+"\n"+
		`globalThis.result = [greet("spec"), App.run()];`+"\n")

	for _, target := range []string{"src", "test"} {
		require.NoError(t, NewBundle().Run(context.Background(), c, target))
	}
	return c
}

func TestBundle_ExternalUsesModuleRegistry(t *testing.T) {
	c := setupSharedBundles(t)

	out := readFile(t, c, "dist/test_bundle.js")
	assert.Contains(t, out, ModuleRegistry)
	assert.Contains(t, out, `"src/common/greet.js"`)
	assert.Contains(t, out, `"src/browser/App.js"`)
	assert.NotContains(t, out, "hello ")
	assert.NotContains(t, out, "__require")
}

// evalBundles runs files in order in one fresh node vm context that has no
// require function, like a page loading script tags, and prints the JSON of
// globalThis.result.
func evalBundles(t *testing.T, c *Context, files ...string) (string, error) {
	t.Helper()
	node, err := exec.LookPath("node")
	if err != nil {
		t.Skip("node is not installed")
	}
	const harness = `
const fs = require("fs");
const vm = require("vm");
const sandbox = vm.createContext({});
for (const file of process.argv.slice(1)) {
  vm.runInContext(fs.readFileSync(file, "utf8"), sandbox, { filename: file });
}
console.log(JSON.stringify(sandbox.result));
`
	args := []string{"-e", harness}
	for _, f := range files {
		args = append(args, c.Store.Path(f))
	}
	out, err := exec.Command(node, args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func TestBundle_SharedModulesEvaluate(t *testing.T) {
	c := setupSharedBundles(t)

	out, err := evalBundles(t, c, "dist/app_bundle.js", "dist/test_bundle.js")
	require.NoError(t, err, out)
	assert.Equal(t, `["hello spec","hello app"]`, out)

	out, err = evalBundles(t, c, "dist/test_bundle.js")
	require.Error(t, err)
	assert.Contains(t, out, "module src/common/greet.js is not loaded")
}

func TestBundleFormat(t *testing.T) {
	assert.Equal(t, bundleFormat(""), bundleFormat("iife"))
	assert.NotEqual(t, bundleFormat("cjs"), bundleFormat("esm"))
}

const samplePackage = `{
  "name": "sample-app",
  "version": "1.2.3",
  "author": {"name": "Sample Author"},
  "licenses": [{"type": "MIT"}]
}`

func setupMinify(t *testing.T, banner bool) (*Context, func() string) {
	t.Helper()
	c, buf := newTestContext(t)
	c.Config.Minify = map[string]*config.MinifyTarget{
		"all": {Sources: []string{"dist/a.js", "dist/b.js"}, Outfile: "dist/app_min.js", Banner: banner},
	}
	writeFile(t, c, "package.json", samplePackage)
	writeFile(t, c, "dist/a.js", "function add(first, second) {\n  return first + second;\n}\nwindow.add = add;\n")
	writeFile(t, c, "dist/b.js", "window.answer = add(40, 2);")
	return c, buf.String
}

func TestMinify_Banner(t *testing.T) {
	c, logs := setupMinify(t, true)

	require.NoError(t, NewMinify().Run(context.Background(), c, "all"))

	out := readFile(t, c, "dist/app_min.js")
	banner := "/*! sample-app - v1.2.3 - 2024-05-01\n* Copyright (c) 2024 Sample Author; Licensed MIT */\n"
	assert.True(t, strings.HasPrefix(out, banner), out)

	code := strings.TrimPrefix(out, banner)
	assert.NotContains(t, code, "  return")
	assert.Contains(t, code, "window.answer")
	assert.Less(t, len(code), len("function add(first, second) {\n  return first + second;\n}\nwindow.add = add;\nwindow.answer = add(40, 2);\n"))
	assert.Contains(t, logs(), "File dist/app_min.js created:")
}

func TestMinify_NoBanner(t *testing.T) {
	c, _ := setupMinify(t, false)

	require.NoError(t, NewMinify().Run(context.Background(), c, "all"))
	assert.False(t, strings.HasPrefix(readFile(t, c, "dist/app_min.js"), "/*!"))
}

func TestMinify_PackageFromWorkspaceStore(t *testing.T) {
	c, _ := setupMinify(t, true)
	c.Config.Package = "meta/package.json"

	err := NewMinify().Run(context.Background(), c, "all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meta/package.json")

	writeFile(t, c, "meta/package.json", strings.Replace(samplePackage, "sample-app", "meta-app", 1))
	require.NoError(t, NewMinify().Run(context.Background(), c, "all"))
	assert.True(t, strings.HasPrefix(readFile(t, c, "dist/app_min.js"), "/*! meta-app - v1.2.3 - 2024-05-01\n"))
}

func TestMinify_MissingSource(t *testing.T) {
	c, _ := setupMinify(t, false)
	c.Config.Minify["all"].Sources = []string{"dist/nope.js"}

	err := NewMinify().Run(context.Background(), c, "all")
	assert.ErrorIs(t, err, ErrMissingInput)
	assert.ErrorIs(t, err, fileset.ErrNoFiles)
}

func TestMinify_SyntaxError(t *testing.T) {
	c, _ := setupMinify(t, false)
	writeFile(t, c, "dist/b.js", "window.answer = (;")

	err := NewMinify().Run(context.Background(), c, "all")
	assert.ErrorIs(t, err, ErrTaskFailed)
}
