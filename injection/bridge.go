// Package injection mirrors the session's credentials into embedded first
// party web content.
//
// A Bridge keeps, per surface, the facts it last injected and only touches
// the surface when a value actually changes. Surfaces that are not on the app
// domain over https never hold any fact.
package injection

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrInvalidDomain is returned by NewBridge for an empty app domain.
var ErrInvalidDomain = errors.New("invalid app domain")

// FactKey names one injected fact.
type FactKey string

const (
	FactAccessToken  FactKey = "accessToken"
	FactRefreshToken FactKey = "refreshToken"
	FactHasPremium   FactKey = "hasPremium"
)

// factOrder is the order facts are applied in.
var factOrder = []FactKey{FactAccessToken, FactRefreshToken, FactHasPremium}

// Facts is what a surface should currently know. An empty token means the
// fact is absent.
type Facts struct {
	AccessToken  string
	RefreshToken string
	HasPremium   bool
}

func (f Facts) values() map[FactKey]string {
	values := map[FactKey]string{FactHasPremium: strconv.FormatBool(f.HasPremium)}
	if f.AccessToken != "" {
		values[FactAccessToken] = f.AccessToken
	}
	if f.RefreshToken != "" {
		values[FactRefreshToken] = f.RefreshToken
	}
	return values
}

// Surface is a piece of content that can hold facts, typically a web view.
type Surface interface {
	ID() string
	URL() string
	SetFact(ctx context.Context, key FactKey, value string) error
	RemoveFact(ctx context.Context, key FactKey) error
}

type Bridge struct {
	domain string
	logger zerolog.Logger

	mu       sync.Mutex
	injected map[string]map[FactKey]string
}

// BridgeOption defines a function type to modify the Bridge instance.
type BridgeOption func(*Bridge)

func WithLogger(logger zerolog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// NewBridge returns a bridge that injects into https surfaces on appDomain or
// any of its subdomains.
func NewBridge(appDomain string, options ...BridgeOption) (*Bridge, error) {
	domain := strings.ToLower(strings.Trim(strings.TrimSpace(appDomain), "."))
	if domain == "" {
		return nil, errors.Wrap(ErrInvalidDomain, "[injection.NewBridge]")
	}

	b := &Bridge{
		domain:   domain,
		logger:   log.Logger,
		injected: make(map[string]map[FactKey]string),
	}
	for _, opt := range options {
		opt(b)
	}
	return b, nil
}

// Allowed reports whether a surface showing rawURL may hold facts.
func (b *Bridge) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	return host == b.domain || strings.HasSuffix(host, "."+b.domain)
}

// Sync brings the surface in line with facts. A fact whose value is unchanged
// is left alone; a changed fact is removed before the new value is set. A
// surface off the app domain has all its facts withdrawn instead.
func (b *Bridge) Sync(ctx context.Context, surface Surface, facts Facts) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.Allowed(surface.URL()) {
		return b.withdrawLocked(ctx, surface)
	}

	current := b.injected[surface.ID()]
	if current == nil {
		current = make(map[FactKey]string)
		b.injected[surface.ID()] = current
	}

	desired := facts.values()
	for _, key := range factOrder {
		want, wanted := desired[key]
		have, had := current[key]
		if wanted && had && want == have {
			continue
		}
		if had {
			if err := surface.RemoveFact(ctx, key); err != nil {
				return errors.Wrapf(err, "[Bridge.Sync] remove %s", key)
			}
			delete(current, key)
		}
		if wanted {
			if err := surface.SetFact(ctx, key, want); err != nil {
				return errors.Wrapf(err, "[Bridge.Sync] set %s", key)
			}
			current[key] = want
		}
	}
	return nil
}

// Withdraw removes every fact the surface holds.
func (b *Bridge) Withdraw(ctx context.Context, surface Surface) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.withdrawLocked(ctx, surface)
}

func (b *Bridge) withdrawLocked(ctx context.Context, surface Surface) error {
	current := b.injected[surface.ID()]
	if len(current) == 0 {
		return nil
	}
	b.logger.Debug().Str("surface", surface.ID()).Msg("withdrawing injected credentials")

	for _, key := range factOrder {
		if _, had := current[key]; !had {
			continue
		}
		if err := surface.RemoveFact(ctx, key); err != nil {
			return errors.Wrapf(err, "[Bridge.Withdraw] remove %s", key)
		}
		delete(current, key)
	}
	return nil
}

// Forget drops the record of a surface that no longer exists.
func (b *Bridge) Forget(surface Surface) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.injected, surface.ID())
}

// Injected returns a copy of what the bridge believes the surface holds.
func (b *Bridge) Injected(surface Surface) map[FactKey]string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[FactKey]string, len(b.injected[surface.ID()]))
	for k, v := range b.injected[surface.ID()] {
		out[k] = v
	}
	return out
}
