// Package session owns the signed in state: the persisted credential bundle,
// its expiration timer and the events that tell the rest of the app about
// changes.
//
// An Authority allows one mutation at a time. Reads (State, UserType,
// DecodedClaims) never wait for a mutation in flight; they see the bundle
// last written to the credential store.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-auth-session/auth"
	"github.com/jrsteele09/go-auth-session/claims"
	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/entitlement"
	"github.com/jrsteele09/go-auth-session/oauthmodel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultLogoutTimeout = 5 * time.Second

// ErrClosed is returned by operations on a closed Authority.
var ErrClosed = errors.New("session authority closed")

// CredentialStore persists the bundle. Set runs the change hooks before it
// returns. Once handed to New, the store must only be written through the
// Authority: the read snapshot follows every Set, but the active session and
// its timer only follow the Authority's own writes.
type CredentialStore interface {
	Get(ctx context.Context) (*credentials.Bundle, error)
	Set(ctx context.Context, bundle *credentials.Bundle) error
	OnChange(hook credentials.ChangeHook)
}

// Orchestrator runs the network side of each flow.
type Orchestrator interface {
	Register(ctx context.Context, registration oauthmodel.Registration) (credentials.Bundle, error)
	LoginInteractive(ctx context.Context, presenter auth.Presenter) (credentials.Bundle, error)
	LoginWithPlatformIdentity(ctx context.Context, presenter auth.Presenter) (credentials.Bundle, error)
	ExchangeMagicLink(ctx context.Context, token string) (credentials.Bundle, error)
	Refresh(ctx context.Context, refreshToken string) (credentials.Bundle, error)
	Logout(ctx context.Context, bundle credentials.Bundle) error
}

type EntitlementResolver interface {
	Resolve(ctx context.Context, c *claims.Claims) entitlement.UserType
}

// LogoutNotifier shows the "you've been logged out, please log back in"
// notice. It is called after the mutation that forced the logout has
// finished.
type LogoutNotifier interface {
	ShowLoggedOutNotice()
}

// activeSession is the data of the Active phase. The expiration timer lives
// here so that it cannot outlive or drift from the bundle it was armed for.
type activeSession struct {
	bundle   credentials.Bundle
	claims   claims.Claims
	deadline time.Time
	timer    Timer
	gen      uint64
}

// Snapshot is a point in time view of the session.
type Snapshot struct {
	Phase    Phase
	Bundle   *credentials.Bundle
	Deadline time.Time
}

type Authority struct {
	store         CredentialStore
	orchestrator  Orchestrator
	resolver      EntitlementResolver
	clock         Clock
	logger        zerolog.Logger
	notifier      LogoutNotifier
	logoutTimeout time.Duration

	// mutation is a context aware mutex: holding its single slot means
	// owning the session for one operation.
	mutation      chan struct{}
	pendingNotice bool

	mu     sync.RWMutex
	phase  Phase
	active *activeSession
	gen    uint64

	snapshot atomic.Pointer[credentials.Bundle]
	events   *bus

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// Option defines a function type to modify the Authority instance.
type Option func(*Authority)

func WithClock(clock Clock) Option {
	return func(a *Authority) {
		if clock != nil {
			a.clock = clock
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(a *Authority) {
		a.logger = logger
	}
}

func WithLogoutNotifier(notifier LogoutNotifier) Option {
	return func(a *Authority) {
		a.notifier = notifier
	}
}

// WithLogoutTimeout bounds the server side revocation during Logout.
func WithLogoutTimeout(timeout time.Duration) Option {
	return func(a *Authority) {
		if timeout > 0 {
			a.logoutTimeout = timeout
		}
	}
}

// New builds an Authority in the logged out phase. Call Start to restore a
// persisted session and Close when done.
func New(store CredentialStore, orchestrator Orchestrator, resolver EntitlementResolver, options ...Option) (*Authority, error) {
	if store == nil {
		return nil, errors.New("[session.New] credential store is required")
	}
	if orchestrator == nil {
		return nil, errors.New("[session.New] orchestrator is required")
	}
	if resolver == nil {
		resolver = entitlement.NewResolver(nil)
	}

	a := &Authority{
		store:         store,
		orchestrator:  orchestrator,
		resolver:      resolver,
		clock:         systemClock{},
		logger:        log.Logger,
		logoutTimeout: defaultLogoutTimeout,
		mutation:      make(chan struct{}, 1),
		phase:         PhaseLoggedOut,
	}
	for _, opt := range options {
		opt(a)
	}
	a.events = newBus(a.logger)
	a.ctx, a.cancel = context.WithCancel(context.Background())

	store.OnChange(func(b *credentials.Bundle) {
		a.snapshot.Store(b)
	})
	return a, nil
}

// Subscribe registers handler for all future events. The returned function
// unsubscribes; events still queued for the handler are dropped.
func (a *Authority) Subscribe(handler EventHandler) (unsubscribe func()) {
	return a.events.subscribe(handler)
}

// Start restores the persisted session. An expired bundle is refreshed
// straight away. A record that cannot be unsealed, or whose access token does
// not decode, is discarded; read failures are returned.
func (a *Authority) Start(ctx context.Context) error {
	return a.mutate(ctx, func(ctx context.Context) error {
		stored, err := a.store.Get(ctx)
		if errors.Is(err, credentials.ErrCorruptRecord) {
			a.logger.Warn().Err(err).Msg("persisted session cannot be read, discarding it")
			return a.discardPersisted(ctx)
		}
		if err != nil {
			return errors.Wrap(err, "[Authority.Start]")
		}
		a.snapshot.Store(stored)
		if stored == nil {
			return nil
		}

		c, err := claims.Decode(stored.AccessToken)
		if err != nil {
			a.logger.Warn().Err(err).Msg("persisted access token does not decode, discarding session")
			return a.discardPersisted(ctx)
		}

		if err := a.setPhase(PhaseAuthenticating); err != nil {
			return err
		}
		if err := a.install(*stored, c); err != nil {
			return err
		}
		a.publish(EventLoggedIn, stored, false)
		a.logger.Info().Time("expires_at", c.ExpiresAt).Msg("session restored")

		if c.Expired(a.clock.Now()) {
			if err := a.refreshLocked(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("refresh of restored session failed")
			}
		}
		return nil
	})
}

// discardPersisted deletes a persisted session that can never be restored.
// No event is published because no session was ever active.
func (a *Authority) discardPersisted(ctx context.Context) error {
	if err := a.store.Set(context.WithoutCancel(ctx), nil); err != nil {
		return errors.Wrap(err, "[Authority.Start] discard session")
	}
	return nil
}

// Close cancels the expiration timer and stops event delivery after the
// events already queued. The persisted session is left in place.
func (a *Authority) Close() {
	if a.closed.Swap(true) {
		return
	}
	a.cancel()

	a.mu.Lock()
	if a.active != nil {
		a.active.timer.Stop()
	}
	a.gen++
	a.mu.Unlock()

	a.events.close()
}

// State returns the current phase, bundle and expiration deadline.
func (a *Authority) State() Snapshot {
	a.mu.RLock()
	s := Snapshot{Phase: a.phase}
	if a.active != nil {
		s.Deadline = a.active.deadline
	}
	a.mu.RUnlock()

	if b := a.snapshot.Load(); b != nil {
		copied := *b
		s.Bundle = &copied
	}
	return s
}

// DecodedClaims decodes the current access token. It is nil when logged out
// or when the token does not decode.
func (a *Authority) DecodedClaims() *claims.Claims {
	b := a.snapshot.Load()
	if b == nil {
		return nil
	}
	c, err := claims.Decode(b.AccessToken)
	if err != nil {
		a.logger.Debug().Err(err).Msg("current access token does not decode")
		return nil
	}
	return &c
}

// UserType resolves the entitlement from the current claims and, when
// logged out, the purchase ledger. It always returns a value.
func (a *Authority) UserType(ctx context.Context) entitlement.UserType {
	return a.resolver.Resolve(ctx, a.DecodedClaims())
}

// mutate runs fn as the single in-flight mutation. Waiting for the slot
// gives up when ctx ends.
func (a *Authority) mutate(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.closed.Load() {
		return ErrClosed
	}
	select {
	case a.mutation <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	err := fn(ctx)
	notice := a.pendingNotice
	a.pendingNotice = false
	<-a.mutation

	if notice && a.notifier != nil {
		a.notifier.ShowLoggedOutNotice()
	}
	return err
}

func (a *Authority) setPhase(to Phase) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !canTransition(a.phase, to) {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", a.phase, to)
	}
	a.phase = to
	return nil
}

func (a *Authority) currentSession() (Phase, *activeSession) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.phase, a.active
}

// install makes bundle the active session. The previous timer is stopped and
// the new one armed under the same lock, so there is never more or less than
// one timer while Active. A mutation that finishes after Close gets ErrClosed
// and arms nothing.
func (a *Authority) install(bundle credentials.Bundle, c claims.Claims) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed.Load() {
		return ErrClosed
	}
	if a.active != nil {
		a.active.timer.Stop()
	}
	a.gen++
	s := &activeSession{
		bundle:   bundle,
		claims:   c,
		deadline: c.ExpiresAt,
		gen:      a.gen,
	}
	s.timer = a.arm(s)
	a.active = s
	a.phase = PhaseActive
	return nil
}

// arm schedules the expiration callback for s. Caller holds mu.
func (a *Authority) arm(s *activeSession) Timer {
	gen := s.gen
	delay := s.deadline.Sub(a.clock.Now())
	if delay < 0 {
		delay = 0
	}
	return a.clock.AfterFunc(delay, func() {
		a.onExpiry(gen)
	})
}

// clearSession cancels the timer and moves to LoggedOut.
func (a *Authority) clearSession() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active != nil {
		a.active.timer.Stop()
	}
	a.active = nil
	a.gen++
	a.phase = PhaseLoggedOut
}

func (a *Authority) publish(kind EventKind, bundle *credentials.Bundle, showNotice bool) {
	e := Event{Kind: kind, ShowNotice: showNotice}
	if bundle != nil {
		copied := *bundle
		e.Bundle = &copied
	}
	e = a.events.publish(e)
	a.logger.Debug().Str("event", string(kind)).Uint64("seq", e.Seq).Msg("session event published")
}

// onExpiry runs on the timer's goroutine. Callbacks of a replaced session
// are ignored.
func (a *Authority) onExpiry(gen uint64) {
	err := a.mutate(a.ctx, func(ctx context.Context) error {
		a.mu.Lock()
		s := a.active
		if s == nil || s.gen != gen || a.phase != PhaseActive || a.closed.Load() {
			a.mu.Unlock()
			return nil
		}
		if a.clock.Now().Before(s.deadline) {
			s.timer = a.arm(s)
			a.mu.Unlock()
			return nil
		}
		a.mu.Unlock()

		return a.refreshLocked(ctx)
	})
	if err != nil && !errors.Is(err, ErrClosed) && !errors.Is(err, context.Canceled) {
		a.logger.Warn().Err(err).Msg("refresh on expiry failed")
	}
}
