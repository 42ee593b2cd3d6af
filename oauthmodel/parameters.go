package oauthmodel

import (
	"net/url"
	"strings"
)

// AuthorizationParameters holds the client side of an authorization code
// request. They are turned into query parameters on the provider's
// authorization endpoint and are kept until the callback arrives.
type AuthorizationParameters struct {
	// ClientID identifies this application to the provider.
	// Required: Yes
	ClientID string

	// RedirectURI is where the provider sends the authorization response.
	// Required: Yes
	// Example: "com.example.browser://oauth/callback"
	// Security: Must exactly match a URI registered for the client
	RedirectURI string

	// ResponseType is always "code".
	ResponseType ResponseType

	// Scopes requested. "openid" is always included.
	Scopes []string

	// State is an opaque value echoed back on the callback.
	// Security: Compared on callback to reject forged responses (CSRF)
	State string

	// Nonce binds the ID token to this request.
	// Security: The ID token's nonce claim must match when the token is verified
	Nonce string

	// CodeVerifier is the PKCE secret. It never leaves the device until the
	// code exchange.
	CodeVerifier string

	// CodeChallengeMethod is always S256.
	CodeChallengeMethod CodeMethodType

	// IdpHintParam and IdpHint, when both set, ask the provider to federate
	// straight to a specific identity provider (for example kc_idp_hint=apple).
	IdpHintParam string
	IdpHint      string
}

// Validate checks the parameters that must be present before presenting the
// authorization page.
func (p *AuthorizationParameters) Validate() error {
	if strings.TrimSpace(p.RedirectURI) == "" {
		return ErrInvalidRedirectUri
	}
	if p.ClientID == "" || p.State == "" || p.CodeVerifier == "" {
		return ErrInvalidRequest
	}
	if p.ResponseType != "" && p.ResponseType != CodeResponseType {
		return ErrInvalidRequest
	}
	return nil
}

// ParseCallback extracts the authorization code from the redirect the
// provider sent back. A callback carrying error= is returned as *OAuth2Error.
func (p *AuthorizationParameters) ParseCallback(callbackURL string) (string, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", ErrInvalidCallback
	}

	// Providers may answer in the fragment (response_mode=fragment).
	values := u.Query()
	if len(values) == 0 && u.Fragment != "" {
		if values, err = url.ParseQuery(u.Fragment); err != nil {
			return "", ErrInvalidCallback
		}
	}

	if code := values.Get("error"); code != "" {
		return "", &OAuth2Error{Code: code, Description: values.Get("error_description")}
	}
	if values.Get("state") != p.State {
		return "", ErrStateMismatch
	}
	code := values.Get("code")
	if code == "" {
		return "", ErrMissingCode
	}
	return code, nil
}
