package injection_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jrsteele09/go-auth-session/injection"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// recordingSurface keeps facts in a map and logs every mutation.
type recordingSurface struct {
	id  string
	url string

	lock      sync.Mutex
	facts     map[injection.FactKey]string
	ops       []string
	failOnSet error
}

func newRecordingSurface(id, url string) *recordingSurface {
	return &recordingSurface{id: id, url: url, facts: make(map[injection.FactKey]string)}
}

func (s *recordingSurface) ID() string { return s.id }

func (s *recordingSurface) URL() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.url
}

func (s *recordingSurface) navigate(url string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.url = url
}

func (s *recordingSurface) SetFact(_ context.Context, key injection.FactKey, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.failOnSet != nil {
		return s.failOnSet
	}
	if _, exists := s.facts[key]; exists {
		return errors.Errorf("%s set while a previous value is still present", key)
	}
	s.facts[key] = value
	s.ops = append(s.ops, "set "+string(key)+"="+value)
	return nil
}

func (s *recordingSurface) RemoveFact(_ context.Context, key injection.FactKey) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.facts, key)
	s.ops = append(s.ops, "remove "+string(key))
	return nil
}

func (s *recordingSurface) Ops() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.ops...)
}

func (s *recordingSurface) Facts() map[injection.FactKey]string {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make(map[injection.FactKey]string, len(s.facts))
	for k, v := range s.facts {
		out[k] = v
	}
	return out
}

func setupBridge(t *testing.T) *injection.Bridge {
	t.Helper()
	b, err := injection.NewBridge("example.com", injection.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return b
}

var signedIn = injection.Facts{AccessToken: "access-1", RefreshToken: "refresh-1", HasPremium: true}

func TestNewBridge_RequiresDomain(t *testing.T) {
	_, err := injection.NewBridge("  ")
	require.ErrorIs(t, err, injection.ErrInvalidDomain)
}

func TestBridge_Allowed(t *testing.T) {
	b := setupBridge(t)

	tests := map[string]bool{
		"https://example.com/account":        true,
		"https://www.example.com/":           true,
		"https://EXAMPLE.com":                true,
		"https://a.b.example.com:8443/x":     true,
		"http://example.com/":                false,
		"https://notexample.com/":            false,
		"https://example.com.evil.net/":      false,
		"https://evil.net/?r=example.com":    false,
		"about:blank":                        false,
		"":                                   false,
		"https://user@evil.net#example.com":  false,
		"javascript:alert(document.cookie)":  false,
		"https://example.com./trailing-dot":  true,
		"wss://example.com/socket":           false,
		"https://sub.example.com/deep/path?": true,
	}
	for rawURL, expected := range tests {
		require.Equal(t, expected, b.Allowed(rawURL), rawURL)
	}
}

func TestBridge_SyncInjectsFacts(t *testing.T) {
	b := setupBridge(t)
	s := newRecordingSurface("tab-1", "https://example.com/")

	require.NoError(t, b.Sync(context.Background(), s, signedIn))

	expected := map[injection.FactKey]string{
		injection.FactAccessToken:  "access-1",
		injection.FactRefreshToken: "refresh-1",
		injection.FactHasPremium:   "true",
	}
	require.Equal(t, expected, s.Facts())
	require.Equal(t, expected, b.Injected(s))
}

func TestBridge_SyncIsIdempotent(t *testing.T) {
	b := setupBridge(t)
	s := newRecordingSurface("tab-1", "https://example.com/")

	require.NoError(t, b.Sync(context.Background(), s, signedIn))
	ops := s.Ops()
	require.Len(t, ops, 3)

	require.NoError(t, b.Sync(context.Background(), s, signedIn))
	require.Equal(t, ops, s.Ops())
}

func TestBridge_ChangedFactRemovesStaleValueFirst(t *testing.T) {
	b := setupBridge(t)
	s := newRecordingSurface("tab-1", "https://example.com/")
	require.NoError(t, b.Sync(context.Background(), s, signedIn))

	refreshed := signedIn
	refreshed.AccessToken = "access-2"
	require.NoError(t, b.Sync(context.Background(), s, refreshed))

	require.Equal(t, []string{
		"remove accessToken",
		"set accessToken=access-2",
	}, s.Ops()[3:])
	require.Equal(t, "access-2", s.Facts()[injection.FactAccessToken])
	require.Equal(t, "refresh-1", s.Facts()[injection.FactRefreshToken])
}

func TestBridge_EmptyTokensAreRemoved(t *testing.T) {
	b := setupBridge(t)
	s := newRecordingSurface("tab-1", "https://example.com/")
	require.NoError(t, b.Sync(context.Background(), s, signedIn))

	require.NoError(t, b.Sync(context.Background(), s, injection.Facts{}))

	require.Equal(t, map[injection.FactKey]string{injection.FactHasPremium: "false"}, s.Facts())
}

func TestBridge_NavigatingAwayWithdrawsEverything(t *testing.T) {
	b := setupBridge(t)
	s := newRecordingSurface("tab-1", "https://example.com/")
	require.NoError(t, b.Sync(context.Background(), s, signedIn))

	s.navigate("https://other.org/")
	require.NoError(t, b.Sync(context.Background(), s, signedIn))

	require.Empty(t, s.Facts())
	require.Empty(t, b.Injected(s))

	// Nothing is injected while the surface stays off domain.
	before := len(s.Ops())
	require.NoError(t, b.Sync(context.Background(), s, signedIn))
	require.Len(t, s.Ops(), before)
}

func TestBridge_NeverInjectsOffDomain(t *testing.T) {
	b := setupBridge(t)
	s := newRecordingSurface("tab-1", "http://example.com/")

	require.NoError(t, b.Sync(context.Background(), s, signedIn))

	require.Empty(t, s.Ops())
}

func TestBridge_Withdraw(t *testing.T) {
	b := setupBridge(t)
	s := newRecordingSurface("tab-1", "https://example.com/")
	require.NoError(t, b.Sync(context.Background(), s, signedIn))

	require.NoError(t, b.Withdraw(context.Background(), s))
	require.Empty(t, s.Facts())

	// A second withdraw has nothing to remove.
	before := len(s.Ops())
	require.NoError(t, b.Withdraw(context.Background(), s))
	require.Len(t, s.Ops(), before)
}

func TestBridge_ForgetDropsRecord(t *testing.T) {
	b := setupBridge(t)
	s := newRecordingSurface("tab-1", "https://example.com/")
	require.NoError(t, b.Sync(context.Background(), s, signedIn))

	b.Forget(s)
	require.Empty(t, b.Injected(s))

	fresh := newRecordingSurface("tab-1", "https://example.com/")
	require.NoError(t, b.Sync(context.Background(), fresh, signedIn))
	require.Len(t, fresh.Ops(), 3)
}

func TestBridge_SurfaceFailureIsRetried(t *testing.T) {
	b := setupBridge(t)
	s := newRecordingSurface("tab-1", "https://example.com/")
	s.failOnSet = errors.New("page unloading")

	require.Error(t, b.Sync(context.Background(), s, signedIn))
	require.Empty(t, b.Injected(s))

	s.lock.Lock()
	s.failOnSet = nil
	s.lock.Unlock()
	require.NoError(t, b.Sync(context.Background(), s, signedIn))
	require.Len(t, s.Facts(), 3)
}

func TestBridge_SurfacesAreIndependent(t *testing.T) {
	b := setupBridge(t)
	first := newRecordingSurface("tab-1", "https://example.com/")
	second := newRecordingSurface("tab-2", "https://example.com/")

	require.NoError(t, b.Sync(context.Background(), first, signedIn))
	require.NoError(t, b.Sync(context.Background(), second, signedIn))

	require.Len(t, first.Ops(), 3)
	require.Len(t, second.Ops(), 3)
}
