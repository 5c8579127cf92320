package publish

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// WebPath maps an output directory below public/ to the URL path it is served from.
func WebPath(dir string) string {
	p := strings.Trim(filepath.ToSlash(filepath.Clean(dir)), "/")
	p = strings.TrimPrefix(p, "public/")
	return "/" + p
}

// RewriteViews replaces references to webPath in every view below viewsDir with
// prefix. Only references opening a quoted value or url( are rewritten. It returns
// the number of files changed.
func RewriteViews(fsys afero.Fs, viewsDir, webPath, prefix string) (int, error) {
	re := regexp.MustCompile(`(["'(])` + regexp.QuoteMeta(strings.TrimSuffix(webPath, "/")) + `/`)
	replacement := "${1}" + strings.TrimSuffix(prefix, "/") + "/"

	changed := 0
	err := afero.Walk(fsys, viewsDir, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if ok, _ := doublestar.Match("*.blade.php", info.Name()); !ok {
			return nil
		}
		data, err := afero.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		out := re.ReplaceAll(data, []byte(replacement))
		if string(out) == string(data) {
			return nil
		}
		if err := afero.WriteFile(fsys, name, out, info.Mode().Perm()); err != nil {
			return err
		}
		changed++
		return nil
	})
	return changed, err
}
