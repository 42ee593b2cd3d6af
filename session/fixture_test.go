package session_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/auth/authfake"
	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/credentials/repofake"
	"github.com/jrsteele09/go-auth-session/entitlement"
	"github.com/jrsteele09/go-auth-session/entitlement/ledgerfake"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock fires timers synchronously from Advance and Fire.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) session.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Set moves the clock without firing anything.
func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock and runs every timer that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.when.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// FireEarly runs an armed timer before its time.
func (c *fakeClock) FireEarly(t *fakeTimer) {
	c.mu.Lock()
	t.fired = true
	c.mu.Unlock()
	t.fn()
}

// armed lists the timers that are neither stopped nor fired.
func (c *fakeClock) armed() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

type noticeCounter struct {
	mu    sync.Mutex
	count int
}

func (n *noticeCounter) ShowLoggedOutNotice() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
}

func (n *noticeCounter) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

// eventRecorder collects delivered events.
type eventRecorder struct {
	mu     sync.Mutex
	events []session.Event
	ch     chan session.Event
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{ch: make(chan session.Event, 64)}
}

func (r *eventRecorder) handle(e session.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	r.ch <- e
}

// next waits for the next delivered event.
func (r *eventRecorder) next(t *testing.T) session.Event {
	t.Helper()
	select {
	case e := <-r.ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session event")
		return session.Event{}
	}
}

func (r *eventRecorder) kinds() []session.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []session.EventKind
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type fixture struct {
	clock     *fakeClock
	storage   *repofake.FakeSecureStorage
	web       *repofake.FakeWebData
	store     *credentials.Store
	orch      *authfake.FakeOrchestrator
	ledger    *ledgerfake.FakeLedger
	notices   *noticeCounter
	events    *eventRecorder
	authority *session.Authority
}

func setupFixture(t *testing.T, opts ...session.Option) *fixture {
	t.Helper()

	sealer, err := credentials.NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	f := &fixture{
		clock:   newFakeClock(testNow),
		storage: repofake.NewFakeSecureStorage(),
		web:     repofake.NewFakeWebData(),
		orch:    authfake.NewFakeOrchestrator(),
		ledger:  ledgerfake.NewFakeLedger(entitlement.PurchaseState{}),
		notices: &noticeCounter{},
		events:  newEventRecorder(),
	}
	f.store, err = credentials.NewStore(f.storage, sealer,
		credentials.WithWebData(f.web),
		credentials.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	opts = append([]session.Option{
		session.WithClock(f.clock),
		session.WithLogger(zerolog.Nop()),
		session.WithLogoutNotifier(f.notices),
		session.WithLogoutTimeout(50 * time.Millisecond),
	}, opts...)
	f.authority, err = session.New(f.store, f.orch, entitlement.NewResolver(f.ledger, entitlement.WithLogger(zerolog.Nop())), opts...)
	require.NoError(t, err)
	f.authority.Subscribe(f.events.handle)
	t.Cleanup(f.authority.Close)
	return f
}

// persist writes a bundle as a previous run of the app would have.
func (f *fixture) persist(t *testing.T, b credentials.Bundle) {
	t.Helper()
	require.NoError(t, f.store.Set(context.Background(), &b))
}

// start restores the persisted session and consumes the restore event, if any.
func (f *fixture) start(t *testing.T) {
	t.Helper()
	persisted, err := f.store.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.authority.Start(context.Background()))
	if persisted != nil {
		require.Equal(t, session.EventLoggedIn, f.events.next(t).Kind)
	}
}

func (f *fixture) requireLoggedOut(t *testing.T) {
	t.Helper()
	state := f.authority.State()
	require.Equal(t, session.PhaseLoggedOut, state.Phase)
	require.Nil(t, state.Bundle)
	stored, err := f.store.Get(context.Background())
	require.NoError(t, err)
	require.Nil(t, stored)
	require.Empty(t, f.clock.armed())
}

// requireTimerAt checks that exactly one expiration timer is armed, at exp.
func (f *fixture) requireTimerAt(t *testing.T, exp time.Time) {
	t.Helper()
	armed := f.clock.armed()
	require.Len(t, armed, 1)
	require.True(t, armed[0].when.Equal(exp), "timer at %s, want %s", armed[0].when, exp)
}

var bundleSeq int

// newBundle returns a bundle whose access token expires at exp. An optional
// subscription type is put into the token's claims.
func newBundle(t *testing.T, exp time.Time, subscriptionType ...string) credentials.Bundle {
	t.Helper()
	bundleSeq++

	payload := map[string]any{"exp": exp.Unix(), "email_verified": true}
	if len(subscriptionType) > 0 {
		payload["subscription"] = map[string]any{"source": "other", "type": subscriptionType[0]}
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	return credentials.Bundle{
		IDToken:      fmt.Sprintf("id-%d", bundleSeq),
		AccessToken:  base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256"}`)) + "." + base64.RawURLEncoding.EncodeToString(body) + ".sig",
		RefreshToken: fmt.Sprintf("refresh-%d", bundleSeq),
	}
}
