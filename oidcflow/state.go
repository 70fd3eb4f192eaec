package oidcflow

import (
	"github.com/mediamonks/oidcflow/credentials"
)

// Phase names the variant of State currently held. State is implemented
// as a single struct carrying every variant's payload rather than an
// interface hierarchy, per spec.md §9 ("implement as a sum type, not an
// object hierarchy") — callers switch on Phase and read only the fields
// that variant defines.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAuthorizing
	PhaseFetchingToken
	PhaseFailed
	PhaseCancelled
	PhaseAuthorized
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAuthorizing:
		return "authorizing"
	case PhaseFetchingToken:
		return "fetchingToken"
	case PhaseFailed:
		return "failed"
	case PhaseCancelled:
		return "cancelled"
	case PhaseAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// State is the public, observable state of a Client, per spec.md §3.
// Only the fields belonging to the current Phase are meaningful.
type State struct {
	Phase Phase

	// PhaseAuthorizing
	AuthorizationURL string
	RedirectURL      string

	// PhaseFailed
	Err error

	// PhaseAuthorized
	Credentials credentials.Credentials
	Refreshing  bool
}

func idleState() State { return State{Phase: PhaseIdle} }

func authorizingState(authURL, redirectURL string) State {
	return State{Phase: PhaseAuthorizing, AuthorizationURL: authURL, RedirectURL: redirectURL}
}

func fetchingTokenState() State { return State{Phase: PhaseFetchingToken} }

func failedState(err error) State { return State{Phase: PhaseFailed, Err: err} }

func cancelledState() State { return State{Phase: PhaseCancelled} }

func authorizedState(creds credentials.Credentials, refreshing bool) State {
	return State{Phase: PhaseAuthorized, Credentials: creds, Refreshing: refreshing}
}

// IsFailed reports whether the state is Failed. Tests inspect only
// this, not Err's structured shape, per spec.md §8.
func (s State) IsFailed() bool { return s.Phase == PhaseFailed }

// flowState is the internal, flow-scoped bookkeeping that exists from
// Start until the flow fails or is cancelled. It is kept through
// authorized so that End and the refresh scheduler still know the
// config and client identifier.
type flowState struct {
	config       Config
	mode         Mode
	scope        credentials.ScopeSet
	responseType credentials.ResponseTypeSet
	stateString  string
	nonceString  string
	display      string
	prompt       []string
}
