// Package config resolves the effective emailbuilder configuration.
//
// Three layers are deep-merged in order: the built-in defaults, the optional
// user file (emailbuilder.yaml) and per-invocation options. Scalars from later
// layers win; arrays are concatenated. The Sass base filename is derived after
// merging and the result is treated as read-only for the duration of a run.
package config

import (
	"path"
	"strings"
)

// UserConfigFile is the optional override file looked up in the working directory.
const UserConfigFile = "emailbuilder.yaml"

// ErrorPolicy decides what the stage runner does after a stage fails.
type ErrorPolicy string

const (
	// OnErrorContinue logs the failure, calls the error callback and runs the next stage.
	OnErrorContinue ErrorPolicy = "continue"
	// OnErrorAbort stops the run after the first failed stage.
	OnErrorAbort ErrorPolicy = "abort"
)

// Config is the effective build configuration.
type Config struct {
	Sass       string `yaml:"sass"`
	Source     string `yaml:"source"`
	Views      string `yaml:"views"`
	Images     string `yaml:"images"`
	ImagesDist string `yaml:"images_dist"`
	PublicCSS  string `yaml:"public_css"`
	Compiled   string `yaml:"compiled"`

	SassIncludePaths []string `yaml:"sass_include_paths"`
	PurgeSafelist    []string `yaml:"purge_safelist"`
	WatchIgnore      []string `yaml:"watch_ignore"`

	OnError ErrorPolicy `yaml:"on_error"`

	Notify  NotifyConfig  `yaml:"notify"`
	History HistoryConfig `yaml:"history"`
	Mail    MailConfig    `yaml:"mail"`
	Publish PublishConfig `yaml:"publish"`

	// SassFilename is the Sass entry filename without extension, derived after merging.
	SassFilename string `yaml:"-"`
}

// NotifyConfig selects the completion notification sinks.
type NotifyConfig struct {
	Terminal bool       `yaml:"terminal"`
	NATS     NATSConfig `yaml:"nats"`
}

// NATSConfig publishes build events to a NATS subject when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// HistoryConfig enables the SQLite run history when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// MailConfig configures test sends of built views.
type MailConfig struct {
	From    string `yaml:"from"`
	ReplyTo string `yaml:"reply_to"`
	DevDir  string `yaml:"dev_dir"`
}

// PublishConfig configures image uploads to S3-compatible storage.
type PublishConfig struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Prefix   string `yaml:"prefix"`
	BaseURL  string `yaml:"base_url"`
}

// Defaults returns the built-in configuration layer.
func Defaults() Config {
	return Config{
		Sass:       "resources/assets/sass/emails/email.scss",
		Source:     "resources/emails",
		Views:      "resources/views/emails",
		Images:     "resources/emails/images",
		ImagesDist: "public/images/emails",
		PublicCSS:  "public/css",
		Compiled:   "resources/emails/dist",

		SassIncludePaths: []string{"node_modules/foundation-emails/scss"},
		PurgeSafelist:    []string{},
		WatchIgnore:      []string{},

		OnError: OnErrorContinue,
		Notify: NotifyConfig{
			Terminal: true,
			NATS:     NATSConfig{Subject: "emailbuilder.builds"},
		},
		Mail:    MailConfig{DevDir: "storage/emails"},
		Publish: PublishConfig{Region: "us-east-1", Prefix: "emails"},
	}
}

// SassBaseName returns the filename of sassPath without directory and extension.
func SassBaseName(sassPath string) string {
	base := path.Base(strings.ReplaceAll(sassPath, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// CompiledCSSDir is the internal directory the compiled stylesheet is written to.
func (c *Config) CompiledCSSDir() string { return path.Join(c.Compiled, "css") }

// CompiledCSSPath is the compiled stylesheet consumed by the inline stage.
func (c *Config) CompiledCSSPath() string {
	return path.Join(c.CompiledCSSDir(), c.SassFilename+".css")
}

// PublicCSSPath is the stylesheet written for development builds.
func (c *Config) PublicCSSPath() string {
	return path.Join(c.PublicCSS, c.SassFilename+".css")
}

// SassDir is the directory watched for style changes.
func (c *Config) SassDir() string { return path.Dir(c.Sass) }
