package repofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/credentials"
)

var _ credentials.SecureStorage = (*FakeSecureStorage)(nil)

// FakeSecureStorage keeps records in memory. ReadErr, WriteErr and
// DeleteErr, when set, are returned instead of performing the operation.
type FakeSecureStorage struct {
	lock      sync.RWMutex
	records   map[string][]byte
	ReadErr   error
	WriteErr  error
	DeleteErr error
}

func NewFakeSecureStorage() *FakeSecureStorage {
	return &FakeSecureStorage{
		records: make(map[string][]byte),
	}
}

func (s *FakeSecureStorage) Read(_ context.Context, key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	value, ok := s.records[key]
	if !ok {
		return nil, credentials.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *FakeSecureStorage) Write(_ context.Context, key string, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.records[key] = append([]byte(nil), value...)
	return nil
}

func (s *FakeSecureStorage) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	if _, ok := s.records[key]; !ok {
		return credentials.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

// Raw returns the stored bytes for key, exactly as persisted.
func (s *FakeSecureStorage) Raw(key string) ([]byte, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	value, ok := s.records[key]
	return value, ok
}

// Corrupt flips a byte of the stored record.
func (s *FakeSecureStorage) Corrupt(key string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if value, ok := s.records[key]; ok && len(value) > 0 {
		value[len(value)-1] ^= 0xff
	}
}
