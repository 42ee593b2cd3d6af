package auth

import "context"

// Presenter shows the provider's authorization page (an in-app browser sheet
// or equivalent) and returns the redirect URL the provider sent back. Any
// error, including the user closing the page, cancels the login.
type Presenter interface {
	Present(ctx context.Context, authURL string) (callbackURL string, err error)
}

// PresenterFunc adapts an ordinary function to a Presenter.
type PresenterFunc func(ctx context.Context, authURL string) (string, error)

func (f PresenterFunc) Present(ctx context.Context, authURL string) (string, error) {
	return f(ctx, authURL)
}
