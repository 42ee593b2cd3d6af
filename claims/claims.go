// Package claims decodes the entitlement-relevant fields of an access token.
//
// Decoding does not verify the signature. The values are only used to drive
// local state (expiration timer, entitlement) and are recomputed from the
// current access token whenever they are needed.
package claims

import (
	"time"
)

// SubscriptionSource says where the subscription backing the account was bought.
type SubscriptionSource int

const (
	SubscriptionSourceOther SubscriptionSource = iota
	SubscriptionSourcePlatformNative
)

// SubscriptionType is the server's entitlement verdict for the account.
type SubscriptionType int

const (
	SubscriptionTypeUnknown SubscriptionType = iota
	SubscriptionTypeTrialExpired
	SubscriptionTypePremiumOriginalPlatform
	SubscriptionTypePremiumNotPlatform
	SubscriptionTypePremiumBecausePlatformAccountHasSubscription
)

const (
	sourcePlatformNative = "platform_native"

	typeTrialExpired                  = "trial_expired"
	typePremiumOriginalPlatform       = "premium_original_platform"
	typePremiumNotPlatform            = "premium_not_platform"
	typePremiumBecausePlatformAccount = "premium_because_platform_account_has_subscription"
)

func parseSource(s string) SubscriptionSource {
	if s == sourcePlatformNative {
		return SubscriptionSourcePlatformNative
	}
	return SubscriptionSourceOther
}

func parseType(s string) SubscriptionType {
	switch s {
	case typeTrialExpired:
		return SubscriptionTypeTrialExpired
	case typePremiumOriginalPlatform:
		return SubscriptionTypePremiumOriginalPlatform
	case typePremiumNotPlatform:
		return SubscriptionTypePremiumNotPlatform
	case typePremiumBecausePlatformAccount:
		return SubscriptionTypePremiumBecausePlatformAccountHasSubscription
	}
	return SubscriptionTypeUnknown
}

func (t SubscriptionType) String() string {
	switch t {
	case SubscriptionTypeTrialExpired:
		return typeTrialExpired
	case SubscriptionTypePremiumOriginalPlatform:
		return typePremiumOriginalPlatform
	case SubscriptionTypePremiumNotPlatform:
		return typePremiumNotPlatform
	case SubscriptionTypePremiumBecausePlatformAccountHasSubscription:
		return typePremiumBecausePlatformAccount
	}
	return "unknown"
}

type Subscription struct {
	Source SubscriptionSource
	Type   SubscriptionType
}

// Claims holds the decoded access token fields. Subscription is nil when the
// account has no subscription record at all.
type Claims struct {
	ExpiresAt     time.Time
	EmailVerified bool
	Subscription  *Subscription
}

// Expired reports whether the token's exp instant is at or before now.
func (c Claims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
