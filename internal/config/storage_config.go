package config

import (
	"encoding/base64"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

const minMasterKeyLength = 32

type StorageConfig interface {
	GetStorageDSN() string
	GetCredentialKey() string
	GetMasterKey() []byte
	GetWebDataDir() string
}

type Storage struct {
	DSN           string `env:"STORAGE_DSN" envDefault:"./data/keychain.db"`
	CredentialKey string `env:"CREDENTIAL_KEY" envDefault:"credential-bundle"`
	MasterKey     string `env:"STORAGE_MASTER_KEY"` // base64
	WebDataDir    string `env:"WEB_DATA_DIR" envDefault:"./data/web"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetStorageDSN() string {
	return s.DSN
}

func (s Storage) GetCredentialKey() string {
	return s.CredentialKey
}

// GetMasterKey returns the decoded master secret. validate has already
// rejected values that do not decode.
func (s Storage) GetMasterKey() []byte {
	key, _ := base64.StdEncoding.DecodeString(s.MasterKey)
	return key
}

func (s Storage) GetWebDataDir() string {
	return s.WebDataDir
}

func (s Storage) validate() error {
	if s.MasterKey == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "STORAGE_MASTER_KEY is required")
	}
	key, err := base64.StdEncoding.DecodeString(s.MasterKey)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "STORAGE_MASTER_KEY is not base64: %v", err)
	}
	if len(key) < minMasterKeyLength {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "STORAGE_MASTER_KEY must be at least %d bytes", minMasterKeyLength)
	}
	return nil
}
