package tasks

import (
	"bytes"
	"context"
	"fmt"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/dshills/buildrig/internal/config"
	"github.com/dshills/buildrig/internal/pkginfo"
)

type minifyTask struct{}

// NewMinify returns the minifier task, built on esbuild's transform API.
func NewMinify() Task { return minifyTask{} }

func (minifyTask) Name() string { return config.TaskMinify }

func (minifyTask) Description() string {
	return "Minify bundles and prepend the banner"
}

func (minifyTask) Targets(cfg *config.Config) []string {
	return cfg.TargetNames(config.TaskMinify)
}

func (minifyTask) Run(ctx context.Context, c *Context, target string) error {
	mt, err := lookupTarget(c.Config.Minify, config.TaskMinify, target)
	if err != nil {
		return err
	}

	sources, err := c.ExpandRequired(ctx, mt.Sources)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMissingInput, err)
	}

	var src bytes.Buffer
	for _, s := range sources {
		data, err := c.Store.Read(ctx, s)
		if err != nil {
			return err
		}
		src.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			src.WriteByte('\n')
		}
	}

	result := api.Transform(src.String(), api.TransformOptions{
		Loader:            api.LoaderJS,
		Sourcefile:        mt.Outfile,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LogLevel:          api.LogLevelSilent,
	})
	logMessages(c.Logger, result.Warnings, api.WarningMessage)
	if len(result.Errors) > 0 {
		logMessages(c.Logger, result.Errors, api.ErrorMessage)
		return warnings(len(result.Errors), fmt.Errorf("minifying %s: %d error(s)", mt.Outfile, len(result.Errors)))
	}

	out := result.Code
	if mt.Banner {
		info, err := pkginfo.Load(ctx, c.Store, c.Config.Package)
		if err != nil {
			return err
		}
		banner, err := pkginfo.Banner(c.Config.Banner, info, c.now())
		if err != nil {
			return err
		}
		out = append([]byte(banner), out...)
	}

	if err := c.Store.Write(ctx, mt.Outfile, out); err != nil {
		return err
	}
	c.Logger.OK("File %s created: %d B -> %d B", mt.Outfile, src.Len(), len(out))
	return nil
}
