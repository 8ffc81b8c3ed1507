package config

// DefaultBanner reproduces the classic minified-file header.
const DefaultBanner = `/*! {{.Pkg.Name}} - v{{.Pkg.Version}} - {{.Today}}
{{if .Pkg.Homepage}}* {{.Pkg.Homepage}}
{{end}}* Copyright (c) {{.Year}} {{.Pkg.Author}}; Licensed {{.Licenses}} */
`

// Modules that the page loads from <script> tags and bundles must not
// contain.
var vendorModules = []string{"jquery", "underscore"}

// Default returns the configuration used when no build file exists.
func Default() *Config {
	return &Config{
		Package: "package.json",
		Banner:  DefaultBanner,
		Beautify: BeautifyConfig{
			Mode:    ModeVerifyAndWrite,
			Command: "js-beautify",
			Args:    []string{"--config", "grunt-deps/beautify-config.json"},
			Files:   []string{"src/**/*.js", "test/**/*.js"},
			Replacements: []Replacement{
				{Pattern: `!!\s`, Replacement: "!!"},
			},
		},
		Lint: LintConfig{
			Command: "jshint",
			Args:    []string{"--config", "grunt-deps/.jshintrc", "--reporter=unix"},
			Files:   []string{"src/**/*.js", "test/**/*.js"},
			Matcher: "$jshint-unix",
		},
		Spec: map[string]*SpecTarget{
			"node": {
				Command: "jasmine-node",
				Args:    []string{"--verbose", "test/spec/common/", "test/spec/node"},
			},
			"browser": {
				Command: "jasmine-browser-runner",
				Args:    []string{"runCI", "--config=grunt-deps/jasmine-browser.json"},
				Inputs:  []string{"dist/app_bundle.js", "dist/test_bundle.js"},
			},
		},
		Bundle: map[string]*BundleTarget{
			"main": {
				Entries: []string{"./src/browser/App.js"},
				Outfile: "dist/app_bundle_main.js",
				Alias:   "./src/browser/App.js:SampleApp",
				Exclude: vendorModules,
			},
			"src": {
				Requires: []string{"./src/common/**/*.js", "./src/browser/**/*.js"},
				Outfile:  "dist/app_bundle.js",
				Exclude:  vendorModules,
			},
			"test": {
				Entries:  []string{"test/spec/common/**/*.js", "test/spec/browser/**/*.js"},
				Outfile:  "dist/test_bundle.js",
				External: []string{"./src/*"},
				Exclude:  vendorModules,
			},
		},
		Minify: map[string]*MinifyTarget{
			"all": {
				Sources: []string{"dist/app_bundle.js"},
				Outfile: "dist/app_bundle_min.js",
				Banner:  true,
			},
			"main": {
				Sources: []string{"dist/app_bundle_main.js"},
				Outfile: "dist/app_bundle_main_min.js",
				Banner:  true,
			},
		},
		Watch: map[string]*WatchTarget{
			"all": {
				Files: []string{"src/**/*.*", "test/**/*.*"},
				Tasks: []string{DefaultTarget},
			},
		},
		Scripts: map[string]*ScriptTask{},
		Targets: map[string][]string{
			DefaultTarget: {
				TaskBeautify,
				TaskLint,
				TaskSpec + ":node",
				TaskBundle,
				TaskSpec + ":browser",
				TaskMinify,
			},
		},
	}
}
