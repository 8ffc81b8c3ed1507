package tasks

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/fileset"
	"github.com/dshills/buildrig/internal/logging"
)

// ModuleRegistry is the global object through which bundles share
// modules. A bundle with requires defines one property per required file,
// keyed by its workspace-relative path; bundles declaring those files
// external read them back from it at runtime.
const ModuleRegistry = "__buildrigModules"

const externalNamespace = "buildrig-external"

type bundleTask struct{}

// NewBundle returns the bundler task, built on esbuild.
func NewBundle() Task { return bundleTask{} }

func (bundleTask) Name() string { return config.TaskBundle }

func (bundleTask) Description() string {
	return "Bundle modules for the browser"
}

func (bundleTask) Targets(cfg *config.Config) []string {
	return cfg.TargetNames(config.TaskBundle)
}

func (bundleTask) Run(ctx context.Context, c *Context, target string) error {
	bt, err := lookupTarget(c.Config.Bundle, config.TaskBundle, target)
	if err != nil {
		return err
	}

	var entries, requires []string
	if len(bt.Entries) > 0 {
		if entries, err = c.ExpandRequired(ctx, bt.Entries); err != nil {
			return err
		}
	}
	if len(bt.Requires) > 0 {
		if requires, err = c.ExpandRequired(ctx, bt.Requires); err != nil {
			return err
		}
	}

	external, shared := splitExternal(bt.External)
	opts := api.BuildOptions{
		AbsWorkingDir: c.Config.Workspace,
		Outfile:       c.Store.Path(bt.Outfile),
		Bundle:        true,
		Write:         true,
		Format:        bundleFormat(bt.Format),
		Platform:      api.PlatformBrowser,
		External:      append(append([]string(nil), bt.Exclude...), external...),
		LogLevel:      api.LogLevelSilent,
	}
	if len(shared) > 0 {
		opts.Plugins = []api.Plugin{registryPlugin(ctx, c, shared)}
	}
	if bt.Sourcemap {
		opts.Sourcemap = api.SourceMapLinked
	}
	if _, name, ok := bt.AliasParts(); ok {
		opts.GlobalName = name
	}

	if len(entries) == 1 && len(requires) == 0 {
		opts.EntryPoints = []string{modulePath(entries[0])}
	} else {
		opts.Stdin = &api.StdinOptions{
			Contents:   entrySource(entries, requires),
			ResolveDir: c.Config.Workspace,
			Sourcefile: target + ".entry.js",
			Loader:     api.LoaderJS,
		}
	}

	result := api.Build(opts)
	logMessages(c.Logger, result.Warnings, api.WarningMessage)
	if len(result.Errors) > 0 {
		logMessages(c.Logger, result.Errors, api.ErrorMessage)
		return warnings(len(result.Errors), fmt.Errorf("%w: %d error(s)", ErrBundleFailed, len(result.Errors)))
	}

	c.Logger.OK("Bundle %s created.", bt.Outfile)
	return nil
}

func bundleFormat(name string) api.Format {
	switch name {
	case "cjs":
		return api.FormatCommonJS
	case "esm":
		return api.FormatESModule
	default:
		return api.FormatIIFE
	}
}

// modulePath turns a workspace-relative file into a relative import.
func modulePath(file string) string {
	return "./" + file
}

// entrySource synthesizes an entry module. Requires are published to
// ModuleRegistry as lazy getters, then entries are evaluated in order.
func entrySource(entries, requires []string) string {
	var b strings.Builder
	if len(requires) > 0 {
		fmt.Fprintf(&b, "var modules = globalThis.%s = globalThis.%s || {};\n", ModuleRegistry, ModuleRegistry)
		b.WriteString("function expose(name, load) {\n")
		b.WriteString("  Object.defineProperty(modules, name, { configurable: true, enumerable: true, get: load });\n")
		b.WriteString("}\n")
	}
	for _, r := range requires {
		fmt.Fprintf(&b, "expose(%s, function () { return require(%s); });\n",
			strconv.Quote(fileset.Clean(r)), strconv.Quote(modulePath(r)))
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "require(%s);\n", strconv.Quote(modulePath(e)))
	}
	return b.String()
}

// splitExternal separates bare module names, which esbuild leaves as
// require calls, from workspace path patterns served by ModuleRegistry.
func splitExternal(patterns []string) (modules, paths []string) {
	for _, p := range patterns {
		if strings.HasPrefix(p, ".") || strings.HasPrefix(p, "/") {
			paths = append(paths, p)
		} else {
			modules = append(modules, p)
		}
	}
	return modules, paths
}

// registryPlugin resolves relative imports of files matching patterns to
// stubs reading ModuleRegistry instead of bundling the files.
func registryPlugin(ctx context.Context, c *Context, patterns []string) api.Plugin {
	roots := []string{c.Config.Workspace}
	if real, err := filepath.EvalSymlinks(c.Config.Workspace); err == nil && real != c.Config.Workspace {
		roots = append(roots, real)
	}
	return api.Plugin{
		Name: "module-registry",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `^\.\.?/`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if args.Kind == api.ResolveEntryPoint {
						return api.OnResolveResult{}, nil
					}
					name, ok := workspaceModule(ctx, c.Store, roots, filepath.Join(args.ResolveDir, filepath.FromSlash(args.Path)))
					if !ok || !sharedModule(patterns, name) {
						return api.OnResolveResult{}, nil
					}
					return api.OnResolveResult{Path: name, Namespace: externalNamespace}, nil
				})
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: externalNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := registryStub(args.Path)
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}

// workspaceModule returns the workspace-relative file an absolute import
// path refers to, trying the .js extension and index.js like the bundler
// does.
func workspaceModule(ctx context.Context, store *fileset.Store, roots []string, abs string) (string, bool) {
	for _, root := range roots {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if rel == ".." || strings.HasPrefix(rel, "../") {
			continue
		}
		for _, candidate := range []string{rel, rel + ".js", path.Join(rel, "index.js")} {
			if store.IsFile(ctx, candidate) {
				return candidate, true
			}
		}
		return rel, true
	}
	return "", false
}

// sharedModule reports whether name, or a directory holding it, matches
// patterns, so "./src/*" covers everything below src.
func sharedModule(patterns []string, name string) bool {
	for p := name; p != "." && p != "/" && p != ""; p = path.Dir(p) {
		if fileset.MatchAny(patterns, p) {
			return true
		}
	}
	return false
}

func registryStub(name string) string {
	key := strconv.Quote(name)
	return fmt.Sprintf(`var modules = globalThis.%s || {};
if (!(%s in modules)) {
  throw new Error("module " + %s + " is not loaded, include the bundle that requires it first");
}
module.exports = modules[%s];
`, ModuleRegistry, key, key, key)
}

func logMessages(log *logging.Logger, msgs []api.Message, kind api.MessageKind) {
	if len(msgs) == 0 {
		return
	}
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: kind})
	for _, m := range formatted {
		m = strings.TrimRight(m, "\n")
		if kind == api.ErrorMessage {
			log.Error("%s", m)
		} else {
			log.Warn("%s", m)
		}
	}
}
