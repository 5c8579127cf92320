package stages

import (
	"context"
	stdErrors "errors"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/emailbuilder/internal/emails/models"
	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/emailbuilder/internal/inliner"
)

// StageInline inlines the compiled stylesheet into every view. It only does work
// in production builds.
func StageInline(ctx context.Context, bs *models.BuildState) error {
	if !bs.Env.Production {
		return nil
	}
	bs.RecordStep(models.StageInline)
	cfg := bs.Config

	cssPath := cfg.CompiledCSSPath()
	css, err := afero.ReadFile(bs.FS, cssPath)
	if err != nil {
		category := errors.CategoryFileSystem
		if stdErrors.Is(err, fs.ErrNotExist) {
			category = errors.CategoryNotFound
		}
		return errors.WrapError(err, category, "read compiled stylesheet").WithContext("path", cssPath).Build()
	}
	in, err := inliner.New(string(css), bs.Toolchain.InlinerOptions...)
	if err != nil {
		return errors.InlineError("extract media queries").WithCause(err).WithContext("path", cssPath).Build()
	}

	views, err := matchFiles(bs.FS, cfg.Views, TemplateGlob)
	if err != nil {
		return errors.FileSystemError("list views").WithCause(err).WithContext("path", cfg.Views).Build()
	}

	var errs []error
	written := 0
	for _, rel := range views {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.Join(cfg.Views, rel)
		data, err := afero.ReadFile(bs.FS, name)
		if err != nil {
			errs = append(errs, errors.FileSystemError("read view").WithCause(err).WithContext("path", name).Build())
			continue
		}
		out, err := in.Process(string(data))
		if err != nil {
			errs = append(errs, errors.InlineError("inline view").WithCause(err).WithContext("path", name).Build())
			continue
		}
		if err := afero.WriteFile(bs.FS, name, []byte(out), 0o644); err != nil {
			errs = append(errs, errors.FileSystemError("write view").WithCause(err).WithContext("path", name).Build())
			continue
		}
		written++
	}
	bs.AddFiles(models.StageInline, written)
	return stdErrors.Join(errs...)
}
