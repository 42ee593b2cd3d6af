package credentials

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultKey is the secure storage key of the persisted bundle.
const DefaultKey = "credential-bundle"

// ChangeHook observes every successful Set. A nil bundle means logged out.
type ChangeHook func(bundle *Bundle)

// Store is the only reader and writer of the persisted credential bundle.
type Store struct {
	storage SecureStorage
	sealer  *Sealer
	web     WebDataStore
	key     string
	logger  zerolog.Logger

	writeMu sync.Mutex   // one Set at a time, held across the write and its hooks
	mu      sync.RWMutex // guards storage access so readers never see a write in progress

	hooksMu sync.RWMutex
	hooks   []ChangeHook
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithKey overrides the secure storage key.
func WithKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithWebData sets the web data store wiped on deletion.
func WithWebData(web WebDataStore) StoreOption {
	return func(s *Store) {
		s.web = web
	}
}

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(storage SecureStorage, sealer *Sealer, options ...StoreOption) (*Store, error) {
	if storage == nil {
		return nil, errors.New("[NewStore] secure storage is required")
	}
	if sealer == nil {
		return nil, errors.New("[NewStore] sealer is required")
	}

	s := &Store{
		storage: storage,
		sealer:  sealer,
		key:     DefaultKey,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// OnChange registers a hook that runs synchronously inside every successful Set.
func (s *Store) OnChange(hook ChangeHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Get returns the persisted bundle, or nil when logged out. A record that
// cannot be unsealed or decoded is reported as ErrCorruptRecord.
func (s *Store) Get(ctx context.Context) (*Bundle, error) {
	s.mu.RLock()
	sealed, err := s.storage.Read(ctx, s.key)
	s.mu.RUnlock()

	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("Get", errors.Wrap(err, "read"))
	}

	plaintext, err := s.sealer.Open(sealed, []byte(s.key))
	if err != nil {
		return nil, &StoreError{Op: "Get", Corrupt: true, Err: err}
	}

	var b Bundle
	if err := json.Unmarshal(plaintext, &b); err != nil {
		return nil, &StoreError{Op: "Get", Corrupt: true, Err: errors.Wrap(err, "decode bundle")}
	}
	return &b, nil
}

// Set replaces the persisted bundle. A nil bundle deletes the record and
// wipes all web data. Change hooks have run by the time Set returns.
func (s *Store) Set(ctx context.Context, bundle *Bundle) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if bundle == nil {
		if err := s.delete(ctx); err != nil {
			return err
		}
		s.notify(nil)
		return nil
	}

	plaintext, err := json.Marshal(bundle)
	if err != nil {
		return storeError("Set", errors.Wrap(err, "encode bundle"))
	}
	sealed, err := s.sealer.Seal(plaintext, []byte(s.key))
	if err != nil {
		return storeError("Set", err)
	}

	s.mu.Lock()
	err = s.storage.Write(ctx, s.key, sealed)
	s.mu.Unlock()
	if err != nil {
		return storeError("Set", errors.Wrap(err, "write"))
	}

	copied := *bundle
	s.notify(&copied)
	return nil
}

func (s *Store) delete(ctx context.Context) error {
	s.mu.Lock()
	err := s.storage.Delete(ctx, s.key)
	s.mu.Unlock()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return storeError("Set", errors.Wrap(err, "delete"))
	}

	s.wipeWebData(ctx)
	return nil
}

// wipeWebData is a total wipe. Failures are logged because the record itself
// is already gone.
func (s *Store) wipeWebData(ctx context.Context) {
	if s.web == nil {
		return
	}
	if err := s.web.RemoveAllCookies(ctx); err != nil {
		s.logger.Err(err).Msg("failed to remove web cookies")
	}
	if err := s.web.SetCacheQuota(ctx, 0); err != nil {
		s.logger.Err(err).Msg("failed to zero web cache quota")
	}
	if err := s.web.RemoveAllRecords(ctx); err != nil {
		s.logger.Err(err).Msg("failed to remove website data records")
	}
}

func (s *Store) notify(bundle *Bundle) {
	s.hooksMu.RLock()
	hooks := append([]ChangeHook{}, s.hooks...)
	s.hooksMu.RUnlock()

	for _, hook := range hooks {
		if bundle == nil {
			hook(nil)
			continue
		}
		copied := *bundle
		hook(&copied)
	}
}
