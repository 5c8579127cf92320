package stages

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/emailbuilder/internal/emails/models"
	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/emailbuilder/internal/inky"
	"git.home.luguber.info/inful/emailbuilder/internal/logfields"
)

// StageTemplates renders every Inky layout under source into the views directory,
// preserving the relative tree shape.
func StageTemplates(ctx context.Context, bs *models.BuildState) error {
	bs.RecordStep(models.StageTemplates)
	cfg := bs.Config

	bs.AddSource(path.Join(cfg.Source, TemplateGlob))
	bs.AddOutput(cfg.Views)

	files, err := matchFiles(bs.FS, cfg.Source, TemplateGlob)
	if err != nil {
		return errors.FileSystemError("list templates").WithCause(err).
			WithContext("path", cfg.Source).
			Build()
	}
	engine := bs.Toolchain.Templates
	if engine == nil {
		engine = inky.New()
	}

	var errs []error
	written := 0
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := renderTemplate(bs.FS, engine, filepath.Join(cfg.Source, rel), filepath.Join(cfg.Views, rel)); err != nil {
			errs = append(errs, err)
			continue
		}
		written++
	}
	bs.AddFiles(models.StageTemplates, written)
	slog.Debug("Rendered templates", logfields.Files(written), logfields.Output(cfg.Views))
	return stdErrors.Join(errs...)
}

func renderTemplate(fsys afero.Fs, engine *inky.Inky, src, dst string) error {
	data, err := afero.ReadFile(fsys, src)
	if err != nil {
		return errors.FileSystemError("read template").WithCause(err).WithContext("path", src).Build()
	}
	out, err := engine.Transform(string(data))
	if err != nil {
		return errors.TemplateError("transform template").WithCause(err).WithContext("path", src).Build()
	}
	if err := writeFile(fsys, dst, []byte(inky.Unescape(out))); err != nil {
		return errors.FileSystemError("write view").WithCause(err).WithContext("path", dst).Build()
	}
	return nil
}
