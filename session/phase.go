package session

import "github.com/pkg/errors"

// Phase is the lifecycle state of the session.
type Phase string

const (
	PhaseLoggedOut       Phase = "logged_out"
	PhaseAuthenticating  Phase = "authenticating"
	PhaseActive          Phase = "active"
	PhaseRefreshing      Phase = "refreshing"
	PhaseForceLoggingOut Phase = "force_logging_out"
)

// ErrInvalidTransition is returned when an operation is not valid in the
// current phase, for example a refresh while logged out.
var ErrInvalidTransition = errors.New("invalid session state transition")

// transitions lists the allowed moves. Authenticating and Refreshing fall
// back to the phase they came from when the flow fails.
var transitions = map[Phase]map[Phase]struct{}{
	PhaseLoggedOut: {
		PhaseAuthenticating: {},
	},
	PhaseAuthenticating: {
		PhaseActive:    {},
		PhaseLoggedOut: {},
	},
	PhaseActive: {
		PhaseAuthenticating:  {},
		PhaseRefreshing:      {},
		PhaseForceLoggingOut: {},
		PhaseLoggedOut:       {},
	},
	PhaseRefreshing: {
		PhaseActive:          {},
		PhaseForceLoggingOut: {},
	},
	PhaseForceLoggingOut: {
		PhaseLoggedOut: {},
	},
}

func canTransition(from, to Phase) bool {
	_, ok := transitions[from][to]
	return ok
}
