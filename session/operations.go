package session

import (
	"context"

	"github.com/jrsteele09/go-auth-session/auth"
	"github.com/jrsteele09/go-auth-session/claims"
	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/oauthmodel"
	"github.com/pkg/errors"
)

// Register creates an account and signs it in.
func (a *Authority) Register(ctx context.Context, registration oauthmodel.Registration) error {
	return a.authenticate(ctx, "Register", func(ctx context.Context) (credentials.Bundle, error) {
		return a.orchestrator.Register(ctx, registration)
	})
}

// AutoLogin signs in with the token of a magic link.
func (a *Authority) AutoLogin(ctx context.Context, magicLinkToken string) error {
	return a.authenticate(ctx, "AutoLogin", func(ctx context.Context) (credentials.Bundle, error) {
		return a.orchestrator.ExchangeMagicLink(ctx, magicLinkToken)
	})
}

// Login runs the interactive login. A cancelled presentation leaves the
// session as it was.
func (a *Authority) Login(ctx context.Context, presenter auth.Presenter) error {
	return a.authenticate(ctx, "Login", func(ctx context.Context) (credentials.Bundle, error) {
		return a.orchestrator.LoginInteractive(ctx, presenter)
	})
}

func (a *Authority) LoginWithPlatformIdentity(ctx context.Context, presenter auth.Presenter) error {
	return a.authenticate(ctx, "LoginWithPlatformIdentity", func(ctx context.Context) (credentials.Bundle, error) {
		return a.orchestrator.LoginWithPlatformIdentity(ctx, presenter)
	})
}

// WebLogin adopts a bundle obtained by first-party web content.
func (a *Authority) WebLogin(ctx context.Context, bundle credentials.Bundle) error {
	return a.authenticate(ctx, "WebLogin", func(context.Context) (credentials.Bundle, error) {
		return bundle, nil
	})
}

// authenticate is the shared path of every sign in. Any failure puts the
// phase back to where it was; the previous session, if any, is untouched.
func (a *Authority) authenticate(ctx context.Context, op string, obtain func(ctx context.Context) (credentials.Bundle, error)) error {
	return a.mutate(ctx, func(ctx context.Context) error {
		prior, _ := a.currentSession()
		if err := a.setPhase(PhaseAuthenticating); err != nil {
			return err
		}

		bundle, c, err := a.obtainBundle(ctx, obtain)
		if err == nil {
			err = a.store.Set(ctx, &bundle)
		}
		if err != nil {
			a.restorePhase(prior)
			a.logger.Info().Err(err).Str("op", op).Msg("sign in failed")
			return errors.Wrapf(err, "[Authority.%s]", op)
		}

		if err := a.install(bundle, c); err != nil {
			return err
		}
		a.publish(EventLoggedIn, &bundle, false)
		a.logger.Info().Str("op", op).Time("expires_at", c.ExpiresAt).Msg("signed in")
		return nil
	})
}

func (a *Authority) obtainBundle(ctx context.Context, obtain func(ctx context.Context) (credentials.Bundle, error)) (credentials.Bundle, claims.Claims, error) {
	bundle, err := obtain(ctx)
	if err != nil {
		return credentials.Bundle{}, claims.Claims{}, err
	}
	if err := bundle.Validate(); err != nil {
		return credentials.Bundle{}, claims.Claims{}, errors.Wrap(auth.ErrMalformedResponse, err.Error())
	}
	c, err := claims.Decode(bundle.AccessToken)
	if err != nil {
		return credentials.Bundle{}, claims.Claims{}, errors.Wrap(auth.ErrMalformedResponse, err.Error())
	}
	return bundle, c, nil
}

func (a *Authority) restorePhase(prior Phase) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.phase = prior
}

// Refresh exchanges the refresh token for a new bundle. It is only valid
// while Active.
func (a *Authority) Refresh(ctx context.Context) error {
	return a.mutate(ctx, a.refreshLocked)
}

// Foreground is called when the app returns to the foreground. An expired
// session is refreshed; anything else is left alone.
func (a *Authority) Foreground(ctx context.Context) error {
	return a.mutate(ctx, func(ctx context.Context) error {
		phase, s := a.currentSession()
		if phase != PhaseActive || !s.claims.Expired(a.clock.Now()) {
			return nil
		}
		return a.refreshLocked(ctx)
	})
}

// WebAccountUpdated refreshes so that changed account claims (for example a
// new subscription) are picked up. It does nothing when logged out.
func (a *Authority) WebAccountUpdated(ctx context.Context) error {
	return a.mutate(ctx, func(ctx context.Context) error {
		if phase, _ := a.currentSession(); phase != PhaseActive {
			return nil
		}
		return a.refreshLocked(ctx)
	})
}

// refreshLocked applies the refresh failure rule: a missing refresh token,
// or any failure once the current access token has expired, forces a logout
// with the notice. Other failures leave the session active and are returned.
func (a *Authority) refreshLocked(ctx context.Context) error {
	if err := a.setPhase(PhaseRefreshing); err != nil {
		return err
	}
	_, s := a.currentSession()

	bundle, c, err := a.obtainBundle(ctx, func(ctx context.Context) (credentials.Bundle, error) {
		return a.orchestrator.Refresh(ctx, s.bundle.RefreshToken)
	})
	if err == nil {
		if bundle.MagicLinkToken == "" {
			bundle.MagicLinkToken = s.bundle.MagicLinkToken
		}
		if err := a.store.Set(ctx, &bundle); err != nil {
			_ = a.setPhase(PhaseActive)
			return errors.Wrap(err, "[Authority.Refresh]")
		}
		if err := a.install(bundle, c); err != nil {
			return err
		}
		a.publish(EventRefreshed, &bundle, false)
		a.logger.Debug().Time("expires_at", c.ExpiresAt).Msg("session refreshed")
		return nil
	}

	if errors.Is(err, auth.ErrNoActiveRefreshToken) || s.claims.Expired(a.clock.Now()) {
		a.logger.Warn().Err(err).Msg("refresh failed for an unusable session, forcing logout")
		a.forceLogoutLocked(ctx, true)
		return errors.Wrap(err, "[Authority.Refresh]")
	}

	_ = a.setPhase(PhaseActive)
	a.logger.Info().Err(err).Msg("refresh failed, keeping session until it expires")
	return errors.Wrap(err, "[Authority.Refresh]")
}

// Logout revokes the session server side, best effort and bounded by the
// logout timeout, then always tears it down locally. Cancelling ctx does not
// stop a logout.
func (a *Authority) Logout(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	return a.mutate(ctx, func(ctx context.Context) error {
		phase, s := a.currentSession()
		if phase != PhaseActive {
			return nil
		}

		revokeCtx, cancel := context.WithTimeout(ctx, a.logoutTimeout)
		if err := a.orchestrator.Logout(revokeCtx, s.bundle); err != nil {
			a.logger.Warn().Err(err).Msg("server side logout failed, continuing with local teardown")
		}
		cancel()

		err := a.teardown(ctx)
		a.publish(EventLoggedOut, nil, false)
		a.logger.Info().Msg("logged out")
		return err
	})
}

// ForceLogout tears the session down without contacting the server.
func (a *Authority) ForceLogout(ctx context.Context, showNotice bool) error {
	return a.mutate(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if phase, _ := a.currentSession(); phase != PhaseActive {
			return nil
		}
		return a.forceLogoutLocked(ctx, showNotice)
	})
}

// WebLogout handles a logout reported by web content. No notice is shown.
func (a *Authority) WebLogout(ctx context.Context) error {
	return a.ForceLogout(ctx, false)
}

// WebAccountDeactivated handles an account deactivated from web content. No
// notice is shown.
func (a *Authority) WebAccountDeactivated(ctx context.Context) error {
	return a.ForceLogout(ctx, false)
}

func (a *Authority) forceLogoutLocked(ctx context.Context, showNotice bool) error {
	if err := a.setPhase(PhaseForceLoggingOut); err != nil {
		return err
	}
	err := a.teardown(ctx)
	a.publish(EventForceLoggedOut, nil, showNotice)
	a.logger.Info().Bool("notice", showNotice).Msg("forced logout")
	if showNotice {
		a.pendingNotice = true
	}
	return err
}

// teardown deletes the persisted bundle (which wipes web data), cancels the
// timer and moves to LoggedOut. The session ends in memory even when the
// store fails.
func (a *Authority) teardown(ctx context.Context) error {
	err := a.store.Set(context.WithoutCancel(ctx), nil)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to delete persisted session")
		a.snapshot.Store(nil)
	}
	a.clearSession()
	if err != nil {
		return errors.Wrap(err, "[Authority.teardown]")
	}
	return nil
}
