package authfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/auth"
	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/oauthmodel"
	"github.com/pkg/errors"
)

// Operation names used by Calls.
const (
	OpRegister                  = "Register"
	OpLoginInteractive          = "LoginInteractive"
	OpLoginWithPlatformIdentity = "LoginWithPlatformIdentity"
	OpExchangeMagicLink         = "ExchangeMagicLink"
	OpRefresh                   = "Refresh"
	OpLogout                    = "Logout"
)

// FakeAuthURL is handed to presenters by the login operations.
const FakeAuthURL = "https://idp.example.com/auth?response_type=code"

type result struct {
	bundle credentials.Bundle
	err    error
}

// FakeOrchestrator returns scripted results and records every call. Login
// operations go through the presenter first, like the real orchestrator.
// Unscripted operations fail with auth.ErrGrantRejected, except Logout which
// succeeds.
type FakeOrchestrator struct {
	lock    sync.Mutex
	results map[string]result
	calls   map[string]int

	refreshTokens []string
	logouts       []credentials.Bundle

	// RefreshFunc, when set, replaces the scripted refresh result.
	RefreshFunc func(ctx context.Context, refreshToken string) (credentials.Bundle, error)
	// LogoutFunc, when set, replaces the scripted logout result.
	LogoutFunc func(ctx context.Context, bundle credentials.Bundle) error
}

func NewFakeOrchestrator() *FakeOrchestrator {
	return &FakeOrchestrator{
		results: map[string]result{OpLogout: {}},
		calls:   make(map[string]int),
	}
}

// Script sets the result of op. Logout only uses err.
func (f *FakeOrchestrator) Script(op string, bundle credentials.Bundle, err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.results[op] = result{bundle: bundle, err: err}
}

func (f *FakeOrchestrator) Calls(op string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[op]
}

// RefreshTokens lists the refresh tokens passed to Refresh, in order.
func (f *FakeOrchestrator) RefreshTokens() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.refreshTokens...)
}

// Logouts lists the bundles passed to Logout, in order.
func (f *FakeOrchestrator) Logouts() []credentials.Bundle {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]credentials.Bundle(nil), f.logouts...)
}

func (f *FakeOrchestrator) record(op string) result {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls[op]++
	r, ok := f.results[op]
	if !ok {
		return result{err: errors.Wrap(auth.ErrGrantRejected, "no scripted result for "+op)}
	}
	return r
}

func (f *FakeOrchestrator) Register(_ context.Context, _ oauthmodel.Registration) (credentials.Bundle, error) {
	r := f.record(OpRegister)
	return r.bundle, r.err
}

func (f *FakeOrchestrator) LoginInteractive(ctx context.Context, presenter auth.Presenter) (credentials.Bundle, error) {
	return f.login(ctx, OpLoginInteractive, presenter)
}

func (f *FakeOrchestrator) LoginWithPlatformIdentity(ctx context.Context, presenter auth.Presenter) (credentials.Bundle, error) {
	return f.login(ctx, OpLoginWithPlatformIdentity, presenter)
}

func (f *FakeOrchestrator) login(ctx context.Context, op string, presenter auth.Presenter) (credentials.Bundle, error) {
	r := f.record(op)
	if presenter != nil {
		if _, err := presenter.Present(ctx, FakeAuthURL); err != nil {
			return credentials.Bundle{}, errors.Wrap(auth.ErrPresentationCancelled, err.Error())
		}
	}
	return r.bundle, r.err
}

func (f *FakeOrchestrator) ExchangeMagicLink(_ context.Context, token string) (credentials.Bundle, error) {
	r := f.record(OpExchangeMagicLink)
	if r.err != nil {
		return credentials.Bundle{}, r.err
	}
	r.bundle.MagicLinkToken = token
	return r.bundle, nil
}

func (f *FakeOrchestrator) Refresh(ctx context.Context, refreshToken string) (credentials.Bundle, error) {
	r := f.record(OpRefresh)
	f.lock.Lock()
	f.refreshTokens = append(f.refreshTokens, refreshToken)
	fn := f.RefreshFunc
	f.lock.Unlock()

	if fn != nil {
		return fn(ctx, refreshToken)
	}
	return r.bundle, r.err
}

func (f *FakeOrchestrator) Logout(ctx context.Context, bundle credentials.Bundle) error {
	r := f.record(OpLogout)
	f.lock.Lock()
	f.logouts = append(f.logouts, bundle)
	fn := f.LogoutFunc
	f.lock.Unlock()

	if fn != nil {
		return fn(ctx, bundle)
	}
	return r.err
}
