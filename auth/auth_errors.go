package auth

import (
	"github.com/pkg/errors"
)

// Failure kinds of the orchestrator. Callers branch on them with errors.Is:
// ErrNoActiveRefreshToken (no refresh token to present) needs a force logout,
// ErrGrantRejected can be retried later and ErrPresentationCancelled is a
// no-op.
var (
	ErrDiscoveryFailed       = errors.New("oidc discovery failed")
	ErrNoActiveRefreshToken  = errors.New("no active refresh token")
	ErrGrantRejected         = errors.New("grant rejected")
	ErrMalformedResponse     = errors.New("malformed response")
	ErrPresentationCancelled = errors.New("presentation cancelled")
)

// Error carries one of the failure kinds above together with the operation
// and the underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "[Orchestrator." + e.Op + "] " + e.Kind.Error()
	}
	return "[Orchestrator." + e.Op + "] " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}
