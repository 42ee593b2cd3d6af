package oauthmodel

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCode        = errors.New("callback carries no authorization code")
	ErrStateMismatch      = errors.New("callback state does not match request")
	ErrInvalidCallback    = errors.New("invalid callback url")
	ErrMissingToken       = errors.New("token response is missing a token")
	ErrInvalidRedirectUri = errors.New("invalid or no redirect uri")
	ErrInvalidRequest     = errors.New("invalid authorization request")
)

// OAuth2 error codes per RFC 6749.
const (
	ErrorCodeInvalidGrant  = "invalid_grant"
	ErrorCodeAccessDenied  = "access_denied"
	ErrorCodeServerError   = "server_error"
	ErrorCodeInvalidClient = "invalid_client"
)

// OAuth2Error is an RFC 6749 error, either returned on the authorization
// callback (error, error_description query parameters) or as the JSON body
// of a failed endpoint call.
type OAuth2Error struct {
	// StatusCode is the HTTP status of the failed call. Zero for callback errors.
	StatusCode int `json:"-"`

	// Code is the OAuth2 error code (e.g., "invalid_request", "access_denied")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description,omitempty"`
}

func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}
