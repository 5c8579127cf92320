package stages

import (
	stdErrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Glob patterns relative to the configured directories.
const (
	TemplateGlob = "**/*.blade.php"
	ImageGlob    = "**/*"
)

// matchFiles returns the files under root whose slash-separated relative path
// matches pattern, sorted. A missing root matches nothing.
func matchFiles(fsys afero.Fs, root, pattern string) ([]string, error) {
	if _, err := fsys.Stat(root); err != nil {
		if stdErrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	err := afero.Walk(fsys, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return err
		}
		if ok {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// writeFile writes data to name, creating parent directories.
func writeFile(fsys afero.Fs, name string, data []byte) error {
	if err := fsys.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fsys, name, data, 0o644)
}
