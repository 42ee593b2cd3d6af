package credentials

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by SecureStorage.Read for absent keys.
	ErrNotFound = apperrors.ErrNotFound
	// ErrStore marks persistence failures of the credential store.
	ErrStore = errors.New("credential store failure")
	// ErrCorruptRecord marks a persisted record that was read but cannot be
	// unsealed or decoded. Retrying will not help.
	ErrCorruptRecord = errors.New("corrupt credential record")
)

// StoreError is returned by every failing Store operation. It matches
// ErrStore, and ErrCorruptRecord when Corrupt is set; Err is the cause.
type StoreError struct {
	Op      string
	Corrupt bool
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("[Store.%s] %s: %v", e.Op, ErrStore, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore || (e.Corrupt && target == ErrCorruptRecord)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// SecureStorage is the application-private, encrypted-at-rest key value
// store (keychain or equivalent). Values are opaque to it.
type SecureStorage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// WebDataStore is the embedded web content's cookie, cache and website data
// store. Only the credential store's teardown path touches it.
type WebDataStore interface {
	RemoveAllCookies(ctx context.Context) error
	SetCacheQuota(ctx context.Context, bytes int64) error
	RemoveAllRecords(ctx context.Context) error
}
