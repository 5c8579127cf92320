package stages

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/emailbuilder/internal/emails/models"
	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/emailbuilder/internal/logfields"
)

// StageClean deletes the previous build output before anything is rebuilt.
func StageClean(_ context.Context, bs *models.BuildState) error {
	bs.RecordStep(models.StageClean)
	cfg := bs.Config

	for _, target := range []string{cfg.Compiled, cfg.Views, cfg.PublicCSSPath(), cfg.ImagesDist} {
		if err := bs.FS.RemoveAll(target); err != nil {
			return errors.FileSystemError("remove build output").WithCause(err).
				WithContext("path", target).
				Build()
		}
		slog.Debug("Removed build output", logfields.Path(target))
	}
	return nil
}
