package stages

import (
	"context"
	stdErrors "errors"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/emailbuilder/internal/emails/models"
	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/emailbuilder/internal/logfields"
	"git.home.luguber.info/inful/emailbuilder/internal/styles"
)

// StageStyles compiles the Sass entry. Production builds purge rules unused by the
// rendered views; development builds also write the public stylesheet.
func StageStyles(ctx context.Context, bs *models.BuildState) error {
	bs.RecordStep(models.StageStyles)
	cfg := bs.Config

	bs.AddSource(cfg.Sass)
	bs.AddOutput(cfg.CompiledCSSPath())
	if !bs.Env.Production {
		bs.AddOutput(cfg.PublicCSSPath())
	}

	src, err := afero.ReadFile(bs.FS, cfg.Sass)
	if err != nil {
		if stdErrors.Is(err, fs.ErrNotExist) {
			slog.Debug("Sass entry not found; nothing to compile", logfields.Path(cfg.Sass))
			return nil
		}
		return errors.FileSystemError("read sass entry").WithCause(err).WithContext("path", cfg.Sass).Build()
	}

	compiler := bs.Toolchain.Compiler
	if compiler == nil {
		compiler = styles.NewSassCompiler(bs.Env.SassBinary)
	}
	out, err := compiler.Compile(ctx, styles.CompileRequest{
		Entry:      cfg.Sass,
		Source:     src,
		LoadPaths:  cfg.SassIncludePaths,
		SourceMaps: bs.Env.Sourcemaps,
	})
	if err != nil {
		return errors.StyleError("compile sass").WithCause(err).WithContext("path", cfg.Sass).Build()
	}

	if bs.Env.Production {
		out, err = purgeUnused(bs, out)
		if err != nil {
			return err
		}
	}

	targets := []string{cfg.CompiledCSSPath()}
	if !bs.Env.Production {
		targets = append(targets, cfg.PublicCSSPath())
	}
	for _, target := range targets {
		if err := writeFile(bs.FS, target, out); err != nil {
			return errors.FileSystemError("write stylesheet").WithCause(err).WithContext("path", target).Build()
		}
	}
	bs.AddFiles(models.StageStyles, len(targets))
	return nil
}

func purgeUnused(bs *models.BuildState, css []byte) ([]byte, error) {
	views, err := matchFiles(bs.FS, bs.Config.Views, TemplateGlob)
	if err != nil {
		return nil, errors.FileSystemError("list views").WithCause(err).WithContext("path", bs.Config.Views).Build()
	}
	sources := make([]string, 0, len(views))
	for _, rel := range views {
		data, err := afero.ReadFile(bs.FS, filepath.Join(bs.Config.Views, rel))
		if err != nil {
			return nil, errors.FileSystemError("read view").WithCause(err).WithContext("path", rel).Build()
		}
		sources = append(sources, string(data))
	}
	purged, err := styles.Purge(string(css), styles.ParseDocuments(sources), bs.Config.PurgeSafelist)
	if err != nil {
		return nil, errors.StyleError("purge unused rules").WithCause(err).Build()
	}
	slog.Debug("Purged unused rules", logfields.Files(len(sources)), logfields.Path(path.Join(bs.Config.Views, TemplateGlob)))
	return []byte(purged), nil
}
