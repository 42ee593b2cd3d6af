package credentials

import "github.com/pkg/errors"

// ErrIncompleteBundle is returned for bundles missing one of the three tokens.
var ErrIncompleteBundle = errors.New("incomplete credential bundle")

// Bundle is the credential set of one authenticated session. It is only ever
// replaced as a whole.
type Bundle struct {
	IDToken      string `json:"idToken"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// MagicLinkToken is set only for bundles obtained through a magic link.
	MagicLinkToken string `json:"magicLinkToken,omitempty"`
}

// Validate checks that the identity, access and refresh tokens are all present.
func (b Bundle) Validate() error {
	switch {
	case b.IDToken == "":
		return errors.Wrap(ErrIncompleteBundle, "idToken missing")
	case b.AccessToken == "":
		return errors.Wrap(ErrIncompleteBundle, "accessToken missing")
	case b.RefreshToken == "":
		return errors.Wrap(ErrIncompleteBundle, "refreshToken missing")
	}
	return nil
}
