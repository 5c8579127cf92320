// Package stages implements the email build stages and the sequential stage runner.
package stages

import "git.home.luguber.info/inful/emailbuilder/internal/emails/models"

// Default returns the full build pipeline: clean, templates, styles, images, inline.
func Default() []models.StageDef {
	return models.NewPipeline().
		Add(models.StageClean, StageClean).
		Add(models.StageTemplates, StageTemplates).
		Add(models.StageStyles, StageStyles).
		Add(models.StageImages, StageImages).
		Add(models.StageInline, StageInline).
		Build()
}
