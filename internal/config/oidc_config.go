package config

import "time"

type OIDCConfig interface {
	GetIssuer() string
	GetClientID() string
	GetRedirectURL() string
	GetScopes() []string
	GetIdentityProviderHint() (param string, value string)
	GetRegistrationURL() string
	GetMagicLinkURL() string
	GetVerifyIDToken() bool
	GetHTTPTimeout() time.Duration
	GetLogoutTimeout() time.Duration
}

type OIDC struct {
	Issuer          string        `env:"OIDC_ISSUER" envDefault:"http://localhost:8080"`
	ClientID        string        `env:"OIDC_CLIENT_ID" envDefault:"browser-app"`
	RedirectURL     string        `env:"OIDC_REDIRECT_URL" envDefault:"com.example.browser://oauth/callback"`
	Scopes          []string      `env:"OIDC_SCOPES" envSeparator:"," envDefault:"openid"`
	IdpHintParam    string        `env:"OIDC_IDP_HINT_PARAM" envDefault:"kc_idp_hint"`
	IdpHintValue    string        `env:"OIDC_IDP_HINT_VALUE" envDefault:"apple"`
	RegistrationURL string        `env:"REGISTRATION_URL"`
	MagicLinkURL    string        `env:"MAGIC_LINK_URL"`
	VerifyIDToken   bool          `env:"OIDC_VERIFY_ID_TOKEN" envDefault:"true"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
	LogoutTimeout   time.Duration `env:"LOGOUT_TIMEOUT" envDefault:"5s"`
}

var _ OIDCConfig = OIDC{}

func (o OIDC) GetIssuer() string {
	return o.Issuer
}

func (o OIDC) GetClientID() string {
	return o.ClientID
}

func (o OIDC) GetRedirectURL() string {
	return o.RedirectURL
}

func (o OIDC) GetScopes() []string {
	return o.Scopes
}

// GetIdentityProviderHint returns the authorization request parameter that
// federates the consent page to the platform identity provider.
func (o OIDC) GetIdentityProviderHint() (string, string) {
	return o.IdpHintParam, o.IdpHintValue
}

func (o OIDC) GetRegistrationURL() string {
	return o.RegistrationURL
}

func (o OIDC) GetMagicLinkURL() string {
	return o.MagicLinkURL
}

func (o OIDC) GetVerifyIDToken() bool {
	return o.VerifyIDToken
}

func (o OIDC) GetHTTPTimeout() time.Duration {
	return o.HTTPTimeout
}

func (o OIDC) GetLogoutTimeout() time.Duration {
	return o.LogoutTimeout
}
