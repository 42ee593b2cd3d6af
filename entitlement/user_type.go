package entitlement

// UserType is the resolved commercial access level of the current user.
type UserType string

const (
	AuthorizedWithoutPremium                     UserType = "authorized_without_premium"
	PremiumOriginalPlatform                      UserType = "premium_original_platform"
	PremiumNotPlatform                           UserType = "premium_not_platform"
	PremiumBecausePlatformAccountHasSubscription UserType = "premium_because_platform_account_has_subscription"
	UnauthorizedWithoutPremium                   UserType = "unauthorized_without_premium"
	UnauthorizedWithPremium                      UserType = "unauthorized_with_premium"
)

func (u UserType) String() string {
	return string(u)
}

// HasPremium reports whether premium features are unlocked.
func (u UserType) HasPremium() bool {
	switch u {
	case PremiumOriginalPlatform, PremiumNotPlatform, PremiumBecausePlatformAccountHasSubscription, UnauthorizedWithPremium:
		return true
	}
	return false
}

// IsAuthorized reports whether the user type was derived from a signed in session.
func (u UserType) IsAuthorized() bool {
	switch u {
	case AuthorizedWithoutPremium, PremiumOriginalPlatform, PremiumNotPlatform, PremiumBecausePlatformAccountHasSubscription:
		return true
	}
	return false
}
