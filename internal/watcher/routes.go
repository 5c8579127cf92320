// Package watcher reruns subsets of the email build when source files change.
package watcher

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/emailbuilder/internal/config"
	"git.home.luguber.info/inful/emailbuilder/internal/emails/models"
)

// Route binds a watched directory to the stages rerun when a matching file changes.
type Route struct {
	Name     string
	Trigger  string
	Root     string
	Patterns []string
	Stages   []models.StageName
}

// Routes returns the three watch routes for cfg. Style changes rerun templates and
// inline too because the production purge depends on the rendered views.
func Routes(cfg *config.Config) []Route {
	return []Route{
		{
			Name:     "templates",
			Trigger:  models.TriggerWatchTemplates,
			Root:     cfg.Source,
			Patterns: []string{"**/*.blade.php"},
			Stages:   []models.StageName{models.StageTemplates},
		},
		{
			Name:     "styles",
			Trigger:  models.TriggerWatchStyles,
			Root:     cfg.SassDir(),
			Patterns: []string{"**/*.scss", "**/*.sass"},
			Stages:   []models.StageName{models.StageTemplates, models.StageStyles, models.StageInline},
		},
		{
			Name:     "images",
			Trigger:  models.TriggerWatchImages,
			Root:     cfg.Images,
			Patterns: []string{"**/*"},
			Stages:   []models.StageName{models.StageImages},
		},
	}
}

// Matches reports whether path lies under the route root and matches one of its patterns.
func (r Route) Matches(path string) bool {
	rel, err := filepath.Rel(filepath.Clean(r.Root), filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range r.Patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// shouldIgnoreEvent skips hidden files, editor temp files and OS metadata files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	// Ignore hidden files
	if strings.HasPrefix(base, ".") {
		return true
	}

	// Ignore editor temp/swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	return base == "Thumbs.db"
}

// ignored reports whether path matches one of the configured ignore globs,
// either as a whole or by its base name.
func ignored(globs []string, path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, base); ok {
			return true
		}
	}
	return false
}
