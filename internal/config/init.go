package config

import (
	stdErrors "errors"
	"io/fs"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
)

const exampleConfig = `# emailbuilder configuration.
# Every key is optional; omitted keys keep their defaults.
# Array values are appended to the defaults, not replaced.

sass: resources/assets/sass/emails/email.scss
source: resources/emails
views: resources/views/emails
images: resources/emails/images
images_dist: public/images/emails
public_css: public/css
compiled: resources/emails/dist

# Extra Sass load paths.
sass_include_paths: []

# Selectors kept by the production unused-rule purge.
purge_safelist: []

# Globs ignored by the watcher.
watch_ignore: []

# continue | abort
on_error: continue

notify:
  terminal: true
  nats:
    url: ""
    subject: emailbuilder.builds

history:
  path: ""

mail:
  from: ""
  reply_to: ""
  dev_dir: storage/emails

publish:
  bucket: ""
  region: us-east-1
  endpoint: ""
  prefix: emails
  base_url: ""
`

// Init writes an example configuration file to file.
func Init(fsys afero.Fs, file string, force bool) error {
	if _, err := fsys.Stat(file); err == nil && !force {
		return errors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("file", file).
			Build()
	} else if err != nil && !stdErrors.Is(err, fs.ErrNotExist) {
		return errors.FileSystemError("stat configuration file").WithCause(err).Build()
	}
	if err := afero.WriteFile(fsys, file, []byte(exampleConfig), 0o644); err != nil {
		return errors.FileSystemError("write configuration file").WithCause(err).
			WithContext("file", file).
			Build()
	}
	return nil
}
