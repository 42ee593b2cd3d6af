package oauthmodel

import "github.com/pkg/errors"

// TokenResponse is the body returned by the account registration and magic
// link endpoints. All three tokens are required; a partial response is a
// failure.
type TokenResponse struct {
	// IDToken is the OpenID Connect ID token of the signed in account.
	IDToken string `json:"idToken"`

	// AccessToken is the bearer token. Its payload carries exp and the
	// subscription claims used for entitlement.
	AccessToken string `json:"accessToken"`

	// RefreshToken is exchanged at the token endpoint for a new token set.
	RefreshToken string `json:"refreshToken"`
}

// Validate reports the first missing token.
func (t TokenResponse) Validate() error {
	switch {
	case t.IDToken == "":
		return errors.Wrap(ErrMissingToken, "idToken")
	case t.AccessToken == "":
		return errors.Wrap(ErrMissingToken, "accessToken")
	case t.RefreshToken == "":
		return errors.Wrap(ErrMissingToken, "refreshToken")
	}
	return nil
}
