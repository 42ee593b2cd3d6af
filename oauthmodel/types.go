package oauthmodel

// ResponseType represents the OAuth 2.0 response type requested from the
// authorization endpoint.
type ResponseType string

const (
	// CodeResponseType requests an authorization code that is then exchanged
	// at the token endpoint.
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256 sends code_challenge = BASE64URL(SHA256(code_verifier)).
	// It is the only method this client uses.
	CodeMethodTypeS256 CodeMethodType = "S256"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: code, client_id, redirect_uri, code_verifier
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for a new token set.
	// Token request includes: refresh_token, client_id
	// Returns: new access_token, id_token and a rotated refresh_token
	RefreshTokenGrant GrantType = "refresh_token"
)

// TokenTypeHint tells the revocation endpoint (RFC 7009) which kind of token
// it is being handed.
type TokenTypeHint string

const (
	RefreshTokenHint TokenTypeHint = "refresh_token"
	AccessTokenHint  TokenTypeHint = "access_token"
)
