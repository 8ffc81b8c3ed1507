package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/buildrig/internal/config/loader"
)

// FileNames are the build files searched for in the workspace, in order.
var FileNames = []string{"buildrig.toml", "buildrig.yaml", "buildrig.yml"}

// replacedSections are taken from the build file as a whole instead of being
// merged over the defaults, so a build file can drop default targets.
var replacedSections = map[string]bool{
	"spec":    true,
	"bundle":  true,
	"minify":  true,
	"watch":   true,
	"scripts": true,
	"targets": true,
}

// Options controls Load.
type Options struct {
	// Workspace is the project root. Defaults to the current directory.
	Workspace string
	// Path is an explicit build file. Relative paths are resolved against
	// Workspace. Empty means search FileNames.
	Path string
	// FS overrides the file system used to read build files.
	FS loader.FileSystem
	// Env overrides the environment layer. Nil reads BUILDRIG_* variables.
	Env loader.Loader
}

// Load builds the layered configuration and validates it.
func Load(opts Options) (*Config, error) {
	workspace, err := resolveWorkspace(opts.Workspace)
	if err != nil {
		return nil, err
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = loader.DefaultFS()
	}

	path, err := findBuildFile(fsys, workspace, opts.Path)
	if err != nil {
		return nil, err
	}

	layers, err := toMap(Default())
	if err != nil {
		return nil, err
	}

	if path != "" {
		l, err := loader.ForPath(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		fileLayer, err := l.Load()
		if err != nil {
			return nil, err
		}
		layers = overlayFile(layers, fileLayer)
	}

	env := opts.Env
	if env == nil {
		env = loader.NewEnvLoaderWithSchema(loader.EnvPrefix, Config{})
	}
	envLayer, err := env.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrInvalidConfig, err)
	}
	layers = loader.DeepMerge(layers, envLayer)

	cfg, err := fromMap(layers)
	if err != nil {
		return nil, err
	}
	cfg.Workspace = workspace
	cfg.Source = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveWorkspace(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving workspace: %w", err)
	}
	return abs, nil
}

func findBuildFile(fsys loader.FileSystem, workspace, explicit string) (string, error) {
	if explicit != "" {
		if !filepath.IsAbs(explicit) {
			explicit = filepath.Join(workspace, explicit)
		}
		if _, err := fsys.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%w: %s", ErrFileNotFound, explicit)
			}
			return "", err
		}
		return explicit, nil
	}

	for _, name := range FileNames {
		candidate := filepath.Join(workspace, name)
		if _, err := fsys.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

func overlayFile(base, file map[string]any) map[string]any {
	for key, val := range file {
		if replacedSections[key] {
			base[key] = val
			continue
		}
		base = loader.DeepMerge(base, map[string]any{key: val})
	}
	return base
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding defaults: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encoding defaults: %w", err)
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &cfg, nil
}
