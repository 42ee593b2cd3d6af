package oauthmodel_test

import (
	"errors"
	"testing"

	"github.com/jrsteele09/go-auth-session/oauthmodel"
	"github.com/stretchr/testify/require"
)

func testParameters() *oauthmodel.AuthorizationParameters {
	return &oauthmodel.AuthorizationParameters{
		ClientID:            "browser-app",
		RedirectURI:         "com.example.browser://oauth/callback",
		ResponseType:        oauthmodel.CodeResponseType,
		Scopes:              []string{"openid"},
		State:               "state-1",
		Nonce:               "nonce-1",
		CodeVerifier:        "verifier",
		CodeChallengeMethod: oauthmodel.CodeMethodTypeS256,
	}
}

func TestAuthorizationParameters_Validate(t *testing.T) {
	require.NoError(t, testParameters().Validate())

	p := testParameters()
	p.RedirectURI = " "
	require.ErrorIs(t, p.Validate(), oauthmodel.ErrInvalidRedirectUri)

	p = testParameters()
	p.State = ""
	require.ErrorIs(t, p.Validate(), oauthmodel.ErrInvalidRequest)

	p = testParameters()
	p.ResponseType = "token"
	require.ErrorIs(t, p.Validate(), oauthmodel.ErrInvalidRequest)
}

func TestAuthorizationParameters_ParseCallback(t *testing.T) {
	p := testParameters()

	t.Run("query", func(t *testing.T) {
		code, err := p.ParseCallback("com.example.browser://oauth/callback?code=abc&state=state-1")
		require.NoError(t, err)
		require.Equal(t, "abc", code)
	})

	t.Run("fragment", func(t *testing.T) {
		code, err := p.ParseCallback("com.example.browser://oauth/callback#code=abc&state=state-1")
		require.NoError(t, err)
		require.Equal(t, "abc", code)
	})

	t.Run("state mismatch", func(t *testing.T) {
		_, err := p.ParseCallback("com.example.browser://oauth/callback?code=abc&state=other")
		require.ErrorIs(t, err, oauthmodel.ErrStateMismatch)
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := p.ParseCallback("com.example.browser://oauth/callback?state=state-1")
		require.ErrorIs(t, err, oauthmodel.ErrMissingCode)
	})

	t.Run("provider error", func(t *testing.T) {
		_, err := p.ParseCallback("com.example.browser://oauth/callback?error=access_denied&error_description=user+declined&state=state-1")
		var oauthErr *oauthmodel.OAuth2Error
		require.True(t, errors.As(err, &oauthErr))
		require.Equal(t, oauthmodel.ErrorCodeAccessDenied, oauthErr.Code)
		require.Equal(t, "user declined", oauthErr.Description)
		require.Equal(t, "access_denied: user declined", oauthErr.Error())
	})

	t.Run("unparsable", func(t *testing.T) {
		_, err := p.ParseCallback("://bad url")
		require.ErrorIs(t, err, oauthmodel.ErrInvalidCallback)
	})
}
