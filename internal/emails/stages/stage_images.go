package stages

import (
	"context"
	stdErrors "errors"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/emailbuilder/internal/emails/models"
	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/emailbuilder/internal/images"
)

// StageImages writes compressed copies of the source images to images_dist.
func StageImages(ctx context.Context, bs *models.BuildState) error {
	bs.RecordStep(models.StageImages)
	cfg := bs.Config

	bs.AddSource(path.Join(cfg.Images, ImageGlob))
	bs.AddOutput(cfg.ImagesDist)

	files, err := matchFiles(bs.FS, cfg.Images, ImageGlob)
	if err != nil {
		return errors.FileSystemError("list images").WithCause(err).WithContext("path", cfg.Images).Build()
	}
	compressor := bs.Toolchain.Images
	if compressor == nil {
		compressor = images.New()
	}

	var errs []error
	written := 0
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		src := filepath.Join(cfg.Images, rel)
		data, err := afero.ReadFile(bs.FS, src)
		if err != nil {
			errs = append(errs, errors.FileSystemError("read image").WithCause(err).WithContext("path", src).Build())
			continue
		}
		out, err := compressor.Compress(rel, data)
		if err != nil {
			errs = append(errs, errors.ImageError("compress image").WithCause(err).WithContext("path", src).Build())
			continue
		}
		dst := filepath.Join(cfg.ImagesDist, rel)
		if err := writeFile(bs.FS, dst, out); err != nil {
			errs = append(errs, errors.FileSystemError("write image").WithCause(err).WithContext("path", dst).Build())
			continue
		}
		written++
	}
	bs.AddFiles(models.StageImages, written)
	return stdErrors.Join(errs...)
}
