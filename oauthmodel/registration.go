package oauthmodel

import (
	"net/mail"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidRegistration is returned for registrations missing a field or
// carrying an unparsable email address.
var ErrInvalidRegistration = errors.New("invalid registration")

// Registration is the body posted to the account registration endpoint.
type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (r Registration) Validate() error {
	switch {
	case strings.TrimSpace(r.FirstName) == "":
		return errors.Wrap(ErrInvalidRegistration, "first name missing")
	case strings.TrimSpace(r.LastName) == "":
		return errors.Wrap(ErrInvalidRegistration, "last name missing")
	case r.Password == "":
		return errors.Wrap(ErrInvalidRegistration, "password missing")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.Wrap(ErrInvalidRegistration, "email: "+err.Error())
	}
	return nil
}

// MagicLinkRequest exchanges the one-time token carried by an emailed deep
// link for a token set.
type MagicLinkRequest struct {
	Token string `json:"token"`
}
