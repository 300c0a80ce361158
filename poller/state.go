package poller

import "strings"

// PageState classifies the current page location.
type PageState int

const (
	Unknown PageState = iota
	LoggedIn
	LoggedOut
)

func (s PageState) String() string {
	switch s {
	case LoggedIn:
		return "logged-in"
	case LoggedOut:
		return "logged-out"
	default:
		return "unknown"
	}
}

// Markers are the path fragments identifying the two determinate states.
type Markers struct {
	Account string // e.g. "/account"
	Login   string // e.g. "/login"
}

// Classify maps a page path to a PageState. The account marker wins when
// both match.
func Classify(path string, m Markers) PageState {
	switch {
	case m.Account != "" && strings.Contains(path, m.Account):
		return LoggedIn
	case m.Login != "" && strings.Contains(path, m.Login):
		return LoggedOut
	default:
		return Unknown
	}
}

// State is the poller's lifecycle state.
type State int

const (
	Polling State = iota
	ResolvedLoggedIn
	ResolvedLoggedOut
	TimedOut
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case ResolvedLoggedIn:
		return "resolved-logged-in"
	case ResolvedLoggedOut:
		return "resolved-logged-out"
	case TimedOut:
		return "timed-out"
	default:
		return "invalid"
	}
}

// Terminal reports whether no further polling happens in s.
func (s State) Terminal() bool {
	return s != Polling
}
