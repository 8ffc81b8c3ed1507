// Package config defines the typed build configuration.
//
// Configuration is layered with higher layers overriding lower ones:
//
//	┌─────────────────────────────┐
//	│  4. Command Line Flags      │  ← applied by the caller
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← BUILDRIG_*
//	├─────────────────────────────┤
//	│  2. Build File              │  ← buildrig.toml / buildrig.yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │
//	└─────────────────────────────┘
//
// Sections holding named targets (spec, bundle, minify, watch, scripts,
// targets) are replaced wholesale by the build file; the remaining sections
// are merged key by key.
package config

import (
	"sort"
	"strings"

	"github.com/dshills/buildrig/internal/substitute"
)

// Beautify modes.
const (
	ModeVerifyOnly     = "VERIFY_ONLY"
	ModeVerifyAndWrite = "VERIFY_AND_WRITE"
)

// Built-in task names.
const (
	TaskBeautify = "beautify"
	TaskLint     = "lint"
	TaskSpec     = "spec"
	TaskBundle   = "bundle"
	TaskMinify   = "minify"
)

// DefaultTarget is the alias run when no task is named.
const DefaultTarget = "default"

// Config is the complete build configuration.
type Config struct {
	// Package is the package.json path used for banner metadata.
	Package string `json:"package"`
	// Banner is the text/template rendered in front of minified output.
	Banner string `json:"banner"`
	// Report is an optional path for the JSON build report.
	Report string `json:"report,omitempty"`

	Beautify BeautifyConfig `json:"beautify"`
	Lint     LintConfig     `json:"lint"`

	Spec    map[string]*SpecTarget   `json:"spec"`
	Bundle  map[string]*BundleTarget `json:"bundle"`
	Minify  map[string]*MinifyTarget `json:"minify"`
	Watch   map[string]*WatchTarget  `json:"watch"`
	Scripts map[string]*ScriptTask   `json:"scripts"`

	// Targets maps an alias to the ordered list of tasks it runs.
	Targets map[string][]string `json:"targets"`

	// Workspace is the absolute project root. Set by Load.
	Workspace string `json:"-"`
	// Source is the build file that was loaded, empty for defaults.
	Source string `json:"-"`
}

// BeautifyConfig configures the formatter verification task.
type BeautifyConfig struct {
	Mode         string        `json:"mode"`
	Command      string        `json:"command"`
	Args         []string      `json:"args"`
	Files        []string      `json:"files"`
	Replacements []Replacement `json:"replacements"`
}

// Replacement is a post-format substitution rule as written in the build
// file.
type Replacement struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

// Rules compiles the configured replacements in order.
func (b BeautifyConfig) Rules() ([]substitute.Rule, error) {
	rules := make([]substitute.Rule, 0, len(b.Replacements))
	for _, r := range b.Replacements {
		rule, err := substitute.NewRule(r.Pattern, r.Replacement)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LintConfig configures the linter task.
type LintConfig struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Files   []string `json:"files"`
	// Matcher names the problem matcher applied to the linter output.
	Matcher string `json:"matcher"`
}

// SpecTarget runs one external spec suite.
type SpecTarget struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Cwd     string            `json:"cwd,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	// Inputs are files that must exist before the suite runs, usually
	// bundles produced earlier in the build.
	Inputs []string `json:"inputs,omitempty"`
}

// BundleTarget produces one JavaScript bundle.
type BundleTarget struct {
	// Entries are globs of entry modules.
	Entries []string `json:"entries"`
	// Requires are globs of modules pulled into the bundle without being
	// entries of their own. They are published to a global module registry
	// for bundles that declare them external.
	Requires []string `json:"requires,omitempty"`
	Outfile  string   `json:"outfile"`
	// Alias exposes the bundle as a global: "path:GlobalName".
	Alias string `json:"alias,omitempty"`
	// Exclude lists modules left out of the bundle.
	Exclude []string `json:"exclude,omitempty"`
	// External lists modules resolved at runtime. Workspace paths such as
	// "./src/*" are read from the module registry filled by a bundle with
	// requires; bare names stay require calls.
	External  []string `json:"external,omitempty"`
	Format    string   `json:"format,omitempty"`
	Sourcemap bool     `json:"sourcemap,omitempty"`
}

// AliasParts splits Alias into its module path and global name.
func (b *BundleTarget) AliasParts() (path, name string, ok bool) {
	if b.Alias == "" {
		return "", "", false
	}
	i := strings.LastIndex(b.Alias, ":")
	if i <= 0 || i == len(b.Alias)-1 {
		return "", "", false
	}
	return b.Alias[:i], b.Alias[i+1:], true
}

// MinifyTarget minifies the concatenation of Sources into Outfile.
type MinifyTarget struct {
	Sources []string `json:"sources"`
	Outfile string   `json:"outfile"`
	Banner  bool     `json:"banner"`
}

// WatchTarget re-runs Tasks when Files change or on Schedule.
type WatchTarget struct {
	Files []string `json:"files"`
	Tasks []string `json:"tasks"`
	// Debounce is a Go duration string coalescing bursts of changes.
	Debounce string `json:"debounce,omitempty"`
	// Schedule is an optional standard cron expression.
	Schedule string `json:"schedule,omitempty"`
}

// ScriptTask is a custom task implemented in Lua.
type ScriptTask struct {
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
	File        string `json:"file,omitempty"`
}

// TaskNames returns every runnable task name, built-ins first.
func (c *Config) TaskNames() []string {
	names := []string{TaskBeautify, TaskLint, TaskSpec, TaskBundle, TaskMinify}
	return append(names, SortedKeys(c.Scripts)...)
}

// TargetNames returns the configured target names of a built-in task in
// execution order. Single-target tasks report nil.
func (c *Config) TargetNames(task string) []string {
	switch task {
	case TaskSpec:
		return SortedKeys(c.Spec)
	case TaskBundle:
		return SortedKeys(c.Bundle)
	case TaskMinify:
		return SortedKeys(c.Minify)
	default:
		return nil
	}
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
