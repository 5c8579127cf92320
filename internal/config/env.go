package config

import (
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
)

// Env holds the environment-driven build toggles.
type Env struct {
	Production bool   `env:"EMAILBUILDER_PRODUCTION"`
	Sourcemaps bool   `env:"EMAILBUILDER_SOURCEMAPS" envDefault:"true"`
	SassBinary string `env:"EMAILBUILDER_SASS_BINARY" envDefault:"sass"`
	LogLevel   string `env:"EMAILBUILDER_LOG_LEVEL"`
}

// MailSecrets carries the Postmark tokens used by the send command.
type MailSecrets struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
}

var dotenvOnce sync.Once

// loadDotenv loads .env once per process; a missing file is fine.
func loadDotenv() {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// LoadEnv parses the build toggles from the process environment.
func LoadEnv() (Env, error) {
	loadDotenv()
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, errors.WrapError(err, errors.CategoryConfig, "parse environment").Build()
	}
	return e, nil
}

// LoadMailSecrets parses the Postmark tokens from the process environment.
func LoadMailSecrets() (MailSecrets, error) {
	loadDotenv()
	var s MailSecrets
	if err := env.Parse(&s); err != nil {
		return MailSecrets{}, errors.WrapError(err, errors.CategoryConfig, "parse mail secrets").Build()
	}
	return s, nil
}
