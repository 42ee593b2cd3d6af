// Package entitlement turns access token claims and the on-device purchase
// ledger into a single UserType.
//
// Once a session exists the server claim is the source of truth. The local
// ledger is only consulted when nobody is signed in.
package entitlement

import (
	"context"

	"github.com/jrsteele09/go-auth-session/claims"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PurchaseState is the platform store's view of the locally owned subscriptions.
type PurchaseState struct {
	MonthlyActive bool
	YearlyActive  bool
}

// PurchaseLedger queries the platform purchase ledger. It may do I/O.
type PurchaseLedger interface {
	PurchaseState(ctx context.Context) (PurchaseState, error)
}

// Decide maps claims and purchases onto a UserType. A nil claims value means
// unauthenticated.
func Decide(c *claims.Claims, purchases PurchaseState) UserType {
	if c != nil {
		if c.Subscription == nil {
			return AuthorizedWithoutPremium
		}
		switch c.Subscription.Type {
		case claims.SubscriptionTypePremiumOriginalPlatform:
			return PremiumOriginalPlatform
		case claims.SubscriptionTypePremiumNotPlatform:
			return PremiumNotPlatform
		case claims.SubscriptionTypePremiumBecausePlatformAccountHasSubscription:
			return PremiumBecausePlatformAccountHasSubscription
		default:
			return AuthorizedWithoutPremium
		}
	}

	if purchases.MonthlyActive || purchases.YearlyActive {
		return UnauthorizedWithPremium
	}
	return UnauthorizedWithoutPremium
}

type Resolver struct {
	ledger PurchaseLedger
	logger zerolog.Logger
}

// ResolverOption defines a function type to modify the Resolver instance.
type ResolverOption func(*Resolver)

func WithLogger(logger zerolog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver builds a resolver. A nil ledger behaves as one with nothing active.
func NewResolver(ledger PurchaseLedger, options ...ResolverOption) *Resolver {
	r := &Resolver{
		ledger: ledger,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Resolve always returns a UserType. Ledger failures count as nothing active.
func (r *Resolver) Resolve(ctx context.Context, c *claims.Claims) UserType {
	if c != nil {
		return Decide(c, PurchaseState{})
	}
	return Decide(nil, r.purchases(ctx))
}

func (r *Resolver) purchases(ctx context.Context) PurchaseState {
	if r.ledger == nil {
		return PurchaseState{}
	}
	state, err := r.ledger.PurchaseState(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("purchase ledger unavailable, assuming no active purchases")
		return PurchaseState{}
	}
	return state
}
