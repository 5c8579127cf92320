package config

import (
	stdErrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/emailbuilder/internal/foundation"
	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
)

// ErrInvalidPath is returned by Validate for unusable path settings.
var ErrInvalidPath = stdErrors.New("invalid path")

// Resolve builds the effective configuration from the defaults, the user file
// at userFile and opts. Only the default UserConfigFile may be missing.
func Resolve(fsys afero.Fs, userFile string, opts Options) (*Config, error) {
	defaults, err := toMap(Defaults())
	if err != nil {
		return nil, errors.InternalError("encode default configuration").WithCause(err).Build()
	}

	var user map[string]any
	if userFile != "" {
		user, err = LoadUserFile(fsys, userFile)
		switch {
		case err == nil:
		case stdErrors.Is(err, fs.ErrNotExist) && filepath.Clean(userFile) == UserConfigFile:
			slog.Debug("No configuration file, using defaults", "file", userFile)
		default:
			return nil, err
		}
	}

	cfg, err := decode(MergeLayers(defaults, user, opts))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "decode configuration").
			Fatal().
			UserAction().
			WithContext("file", userFile).
			Build()
	}
	cfg.SassFilename = SassBaseName(cfg.Sass)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUserFile reads the YAML override layer. A missing file yields a
// CategoryNotFound error wrapping fs.ErrNotExist.
func LoadUserFile(fsys afero.Fs, file string) (map[string]any, error) {
	data, err := afero.ReadFile(fsys, file)
	if err != nil {
		if stdErrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewError(errors.CategoryNotFound, "configuration file not found").
				WithCause(err).
				UserAction().
				WithContext("file", file).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "read configuration file").
			WithContext("file", file).
			Build()
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	var layer map[string]any
	if err := yaml.Unmarshal([]byte(expanded), &layer); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "parse configuration file").
			Fatal().
			UserAction().
			WithContext("file", file).
			Build()
	}
	return layer, nil
}

// toMap converts a Config into the generic layer representation used by MergeLayers.
func toMap(cfg Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decode(layer map[string]any) (*Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		Result:           &cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(layer); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var errorPolicies = foundation.NewNormalizer(map[string]ErrorPolicy{
	string(OnErrorContinue): OnErrorContinue,
	string(OnErrorAbort):    OnErrorAbort,
}, OnErrorContinue)

// Validate checks the path invariants the build stages rely on.
func (c *Config) Validate() error {
	paths := []struct {
		key   string
		value string
		clean bool // deleted by the clean stage
	}{
		{"sass", c.Sass, false},
		{"source", c.Source, false},
		{"views", c.Views, true},
		{"images", c.Images, false},
		{"images_dist", c.ImagesDist, true},
		{"public_css", c.PublicCSS, false},
		{"compiled", c.Compiled, true},
	}
	for _, p := range paths {
		if err := validatePath(p.value, p.clean); err != nil {
			return errors.WrapError(err, errors.CategoryValidation, "invalid path setting").
				UserAction().
				WithContext("key", p.key).
				WithContext("value", p.value).
				Build()
		}
	}
	if path.Ext(c.Sass) == "" {
		return errors.ValidationError("sass entry must be a file with an extension").
			WithContext("value", c.Sass).
			Build()
	}
	policy, err := errorPolicies.NormalizeWithError(string(c.OnError))
	if err != nil {
		return errors.ValidationError(fmt.Sprintf("on_error must be %q or %q", OnErrorContinue, OnErrorAbort)).
			WithContext("value", string(c.OnError)).
			Build()
	}
	c.OnError = policy
	return nil
}

func validatePath(p string, removable bool) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if strings.ContainsRune(p, 0) {
		return fmt.Errorf("%w: contains NUL byte", ErrInvalidPath)
	}
	if removable {
		switch path.Clean(strings.ReplaceAll(p, "\\", "/")) {
		case ".", "/", "..":
			return fmt.Errorf("%w: %q would remove the project root", ErrInvalidPath, p)
		}
	}
	return nil
}
