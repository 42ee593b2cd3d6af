package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

type Config interface {
	EnvConfig
	OIDCConfig
	StorageConfig
	EntitlementConfig
	WebConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	OIDC
	Storage
	Entitlement
	Web
}

// New loads a .env file from the working directory when one exists and then
// reads the process environment.
func New() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, apperrors.Wrapf(err, "[config.FromEnv] parse environment")
	}
	if err := c.Storage.validate(); err != nil {
		return nil, apperrors.Wrapf(err, "[config.FromEnv] storage")
	}
	return c, nil
}
