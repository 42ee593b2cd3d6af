package oauthmodel_test

import (
	"testing"

	"github.com/jrsteele09/go-auth-session/oauthmodel"
	"github.com/stretchr/testify/require"
)

func TestRegistration_Validate(t *testing.T) {
	valid := oauthmodel.Registration{FirstName: "Jo", LastName: "Doe", Email: "jo.doe@example.com", Password: "s3cret!"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(r *oauthmodel.Registration)
	}{
		{"no first name", func(r *oauthmodel.Registration) { r.FirstName = "" }},
		{"blank last name", func(r *oauthmodel.Registration) { r.LastName = "  " }},
		{"no password", func(r *oauthmodel.Registration) { r.Password = "" }},
		{"bad email", func(r *oauthmodel.Registration) { r.Email = "not-an-email" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			require.ErrorIs(t, r.Validate(), oauthmodel.ErrInvalidRegistration)
		})
	}
}

func TestTokenResponse_Validate(t *testing.T) {
	require.NoError(t, oauthmodel.TokenResponse{IDToken: "i", AccessToken: "a", RefreshToken: "r"}.Validate())
	require.ErrorIs(t, oauthmodel.TokenResponse{AccessToken: "a", RefreshToken: "r"}.Validate(), oauthmodel.ErrMissingToken)
	require.ErrorIs(t, oauthmodel.TokenResponse{IDToken: "i", RefreshToken: "r"}.Validate(), oauthmodel.ErrMissingToken)
	require.ErrorIs(t, oauthmodel.TokenResponse{IDToken: "i", AccessToken: "a"}.Validate(), oauthmodel.ErrMissingToken)
}
