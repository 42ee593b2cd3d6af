// Package auth drives the OpenID Connect flows that produce a credential
// bundle: interactive and platform-identity login, registration, magic link
// exchange, refresh and revocation.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/claims"
	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/internal/config"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/oauthmodel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const maxResponseBody = 1 << 20

// discovery is the provider metadata needed by every flow. It is fetched once.
type discovery struct {
	provider      *oidc.Provider
	oauth         *oauth2.Config
	verifier      *oidc.IDTokenVerifier
	revocationURL string
}

type Orchestrator struct {
	config     config.OIDCConfig
	httpClient *http.Client
	logger     zerolog.Logger
	newID      func() string

	baseTransport http.RoundTripper
	breaker       BreakerConfig

	discoveryMu sync.Mutex
	discovery   *discovery
}

// OrchestratorOption defines a function type to modify the Orchestrator instance.
type OrchestratorOption func(*Orchestrator)

// WithTransport sets the round tripper underneath the circuit breaker.
func WithTransport(rt http.RoundTripper) OrchestratorOption {
	return func(o *Orchestrator) {
		o.baseTransport = rt
	}
}

func WithBreakerConfig(cfg BreakerConfig) OrchestratorOption {
	return func(o *Orchestrator) {
		o.breaker = cfg
	}
}

func WithLogger(logger zerolog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithIDGenerator overrides the source of state and nonce values.
func WithIDGenerator(newID func() string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.newID = newID
	}
}

func NewOrchestrator(cfg config.OIDCConfig, options ...OrchestratorOption) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.Wrap(apperrors.ErrInvalidConfig, "[NewOrchestrator] oidc config is required")
	}
	if cfg.GetIssuer() == "" || cfg.GetClientID() == "" || cfg.GetRedirectURL() == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidConfig, "[NewOrchestrator] issuer, client id and redirect url are required")
	}

	o := &Orchestrator{
		config:  cfg,
		logger:  log.Logger,
		newID:   uuid.NewString,
		breaker: DefaultBreakerConfig("identity-provider"),
	}
	for _, opt := range options {
		opt(o)
	}

	o.httpClient = &http.Client{
		Timeout:   cfg.GetHTTPTimeout(),
		Transport: newBreakerTransport(o.baseTransport, o.breaker, o.logger),
	}
	return o, nil
}

// clientContext routes go-oidc and x/oauth2 through the breaker-guarded client.
func (o *Orchestrator) clientContext(ctx context.Context) context.Context {
	return oidc.ClientContext(ctx, o.httpClient)
}

func (o *Orchestrator) discover(ctx context.Context) (*discovery, error) {
	o.discoveryMu.Lock()
	defer o.discoveryMu.Unlock()

	if o.discovery != nil {
		return o.discovery, nil
	}

	provider, err := oidc.NewProvider(o.clientContext(ctx), o.config.GetIssuer())
	if err != nil {
		return nil, newError(ErrDiscoveryFailed, "discover", err)
	}

	var extra struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		o.logger.Warn().Err(err).Msg("unable to read provider metadata, token revocation disabled")
	}

	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams // public client, no secret

	o.discovery = &discovery{
		provider: provider,
		oauth: &oauth2.Config{
			ClientID:    o.config.GetClientID(),
			Endpoint:    endpoint,
			RedirectURL: o.config.GetRedirectURL(),
			Scopes:      o.scopes(),
		},
		verifier:      provider.Verifier(&oidc.Config{ClientID: o.config.GetClientID()}),
		revocationURL: extra.RevocationEndpoint,
	}
	o.logger.Debug().Str("issuer", o.config.GetIssuer()).Msg("oidc provider discovered")
	return o.discovery, nil
}

func (o *Orchestrator) scopes() []string {
	scopes := []string{oidc.ScopeOpenID}
	for _, s := range o.config.GetScopes() {
		s = strings.TrimSpace(s)
		if s != "" && s != oidc.ScopeOpenID {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

// LoginInteractive presents the provider's login page and exchanges the
// returned authorization code for a bundle.
func (o *Orchestrator) LoginInteractive(ctx context.Context, presenter Presenter) (credentials.Bundle, error) {
	return o.authorize(ctx, "LoginInteractive", presenter, false)
}

// LoginWithPlatformIdentity is LoginInteractive with the identity provider
// hint added, so the provider federates to the platform's identity system.
func (o *Orchestrator) LoginWithPlatformIdentity(ctx context.Context, presenter Presenter) (credentials.Bundle, error) {
	return o.authorize(ctx, "LoginWithPlatformIdentity", presenter, true)
}

func (o *Orchestrator) authorize(ctx context.Context, op string, presenter Presenter, platformIdentity bool) (credentials.Bundle, error) {
	d, err := o.discover(ctx)
	if err != nil {
		return credentials.Bundle{}, err
	}

	params := oauthmodel.AuthorizationParameters{
		ClientID:            d.oauth.ClientID,
		RedirectURI:         d.oauth.RedirectURL,
		ResponseType:        oauthmodel.CodeResponseType,
		Scopes:              d.oauth.Scopes,
		State:               o.newID(),
		Nonce:               o.newID(),
		CodeVerifier:        oauth2.GenerateVerifier(),
		CodeChallengeMethod: oauthmodel.CodeMethodTypeS256,
	}
	if platformIdentity {
		params.IdpHintParam, params.IdpHint = o.config.GetIdentityProviderHint()
	}
	if err := params.Validate(); err != nil {
		return credentials.Bundle{}, newError(ErrGrantRejected, op, err)
	}

	opts := []oauth2.AuthCodeOption{
		oidc.Nonce(params.Nonce),
		oauth2.S256ChallengeOption(params.CodeVerifier),
	}
	if params.IdpHintParam != "" && params.IdpHint != "" {
		opts = append(opts, oauth2.SetAuthURLParam(params.IdpHintParam, params.IdpHint))
	}

	callbackURL, err := presenter.Present(ctx, d.oauth.AuthCodeURL(params.State, opts...))
	if err != nil {
		return credentials.Bundle{}, newError(ErrPresentationCancelled, op, err)
	}

	code, err := params.ParseCallback(callbackURL)
	if err != nil {
		var oauthErr *oauthmodel.OAuth2Error
		if errors.As(err, &oauthErr) {
			return credentials.Bundle{}, newError(ErrGrantRejected, op, err)
		}
		return credentials.Bundle{}, newError(ErrMalformedResponse, op, err)
	}

	tok, err := d.oauth.Exchange(o.clientContext(ctx), code, oauth2.VerifierOption(params.CodeVerifier))
	if err != nil {
		return credentials.Bundle{}, newError(ErrGrantRejected, op, err)
	}
	return o.bundleFromToken(ctx, op, d, tok, params.Nonce)
}

// Refresh runs the refresh token grant. The response must carry a new id,
// access and refresh token. Only a missing refresh token is
// ErrNoActiveRefreshToken; every server rejection, invalid_grant included, is
// ErrGrantRejected with the *oauth2.RetrieveError in the chain.
func (o *Orchestrator) Refresh(ctx context.Context, refreshToken string) (credentials.Bundle, error) {
	if refreshToken == "" {
		return credentials.Bundle{}, newError(ErrNoActiveRefreshToken, "Refresh", nil)
	}

	d, err := o.discover(ctx)
	if err != nil {
		return credentials.Bundle{}, err
	}

	tok, err := d.oauth.TokenSource(o.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return credentials.Bundle{}, newError(ErrGrantRejected, "Refresh", err)
	}
	return o.bundleFromToken(ctx, "Refresh", d, tok, "")
}

// bundleFromToken reads the tokens from the raw response. x/oauth2 keeps the
// previous refresh token when a refresh response omits it, so the raw field
// is checked rather than tok.RefreshToken.
func (o *Orchestrator) bundleFromToken(ctx context.Context, op string, d *discovery, tok *oauth2.Token, nonce string) (credentials.Bundle, error) {
	idToken, _ := tok.Extra("id_token").(string)
	refreshToken, _ := tok.Extra("refresh_token").(string)

	resp := oauthmodel.TokenResponse{
		IDToken:      idToken,
		AccessToken:  tok.AccessToken,
		RefreshToken: refreshToken,
	}
	if err := o.checkTokens(ctx, d, resp, nonce); err != nil {
		return credentials.Bundle{}, newError(ErrMalformedResponse, op, err)
	}
	return credentials.Bundle{
		IDToken:      resp.IDToken,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

func (o *Orchestrator) checkTokens(ctx context.Context, d *discovery, resp oauthmodel.TokenResponse, nonce string) error {
	if err := resp.Validate(); err != nil {
		return err
	}
	if _, err := claims.Decode(resp.AccessToken); err != nil {
		return errors.Wrap(err, "access token")
	}
	if !o.config.GetVerifyIDToken() {
		return nil
	}

	idToken, err := d.verifier.Verify(o.clientContext(ctx), resp.IDToken)
	if err != nil {
		return errors.Wrap(err, "id token")
	}
	if nonce != "" && idToken.Nonce != nonce {
		return errors.New("id token nonce mismatch")
	}
	return nil
}

// Register creates an account and signs it in.
func (o *Orchestrator) Register(ctx context.Context, registration oauthmodel.Registration) (credentials.Bundle, error) {
	if err := registration.Validate(); err != nil {
		return credentials.Bundle{}, newError(ErrGrantRejected, "Register", err)
	}
	endpoint := o.config.GetRegistrationURL()
	if endpoint == "" {
		return credentials.Bundle{}, newError(ErrGrantRejected, "Register", errors.Wrap(apperrors.ErrUnsupported, "no registration endpoint configured"))
	}
	return o.postForTokens(ctx, "Register", endpoint, registration)
}

// ExchangeMagicLink trades the one-time token of an emailed sign in link for
// a bundle. The returned bundle remembers the link token.
func (o *Orchestrator) ExchangeMagicLink(ctx context.Context, token string) (credentials.Bundle, error) {
	if token == "" {
		return credentials.Bundle{}, newError(ErrGrantRejected, "ExchangeMagicLink", oauthmodel.ErrInvalidRequest)
	}
	endpoint := o.config.GetMagicLinkURL()
	if endpoint == "" {
		return credentials.Bundle{}, newError(ErrGrantRejected, "ExchangeMagicLink", errors.Wrap(apperrors.ErrUnsupported, "no magic link endpoint configured"))
	}

	bundle, err := o.postForTokens(ctx, "ExchangeMagicLink", endpoint, oauthmodel.MagicLinkRequest{Token: token})
	if err != nil {
		return credentials.Bundle{}, err
	}
	bundle.MagicLinkToken = token
	return bundle, nil
}

func (o *Orchestrator) postForTokens(ctx context.Context, op, endpoint string, body any) (credentials.Bundle, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return credentials.Bundle{}, newError(ErrGrantRejected, op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return credentials.Bundle{}, newError(ErrGrantRejected, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	data, err := o.do(req)
	if err != nil {
		return credentials.Bundle{}, newError(ErrGrantRejected, op, err)
	}

	var resp oauthmodel.TokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return credentials.Bundle{}, newError(ErrMalformedResponse, op, err)
	}

	var d *discovery
	if o.config.GetVerifyIDToken() {
		if d, err = o.discover(ctx); err != nil {
			return credentials.Bundle{}, err
		}
	}
	if err := o.checkTokens(ctx, d, resp, ""); err != nil {
		return credentials.Bundle{}, newError(ErrMalformedResponse, op, err)
	}
	return credentials.Bundle{
		IDToken:      resp.IDToken,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// Logout revokes the bundle's refresh token at the provider's revocation
// endpoint (RFC 7009). Without such an endpoint there is nothing to do.
func (o *Orchestrator) Logout(ctx context.Context, bundle credentials.Bundle) error {
	if bundle.RefreshToken == "" {
		return nil
	}

	d, err := o.discover(ctx)
	if err != nil {
		return err
	}
	if d.revocationURL == "" {
		o.logger.Debug().Msg("provider has no revocation endpoint, skipping token revocation")
		return nil
	}

	form := url.Values{
		"token":           {bundle.RefreshToken},
		"token_type_hint": {string(oauthmodel.RefreshTokenHint)},
		"client_id":       {o.config.GetClientID()},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.revocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return newError(ErrGrantRejected, "Logout", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if _, err := o.do(req); err != nil {
		return newError(ErrGrantRejected, "Logout", err)
	}
	return nil
}

// do sends req and returns the body of a 2xx response. Other responses are
// returned as *oauthmodel.OAuth2Error.
func (o *Orchestrator) do(req *http.Request) ([]byte, error) {
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	oauthErr := &oauthmodel.OAuth2Error{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(data, oauthErr); err != nil || oauthErr.Code == "" {
		oauthErr.Code = oauthmodel.ErrorCodeServerError
		oauthErr.Description = http.StatusText(resp.StatusCode)
	}
	return nil, oauthErr
}
