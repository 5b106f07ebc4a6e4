package client

// Decision tells the UI layer what a gated view should do for the current
// session state.
type Decision int

const (
	// ShowLoading blocks protected content behind a neutral indicator while
	// the session is being established.
	ShowLoading Decision = iota
	// RedirectLogin sends the user to the login screen. The redirect should
	// replace history so the back button cannot loop into the guard.
	RedirectLogin
	// Render displays the protected content.
	Render
)

// Decide maps a session state to the guard decision for protected views.
func Decide(state State) Decision {
	switch state {
	case StateAuthenticated:
		return Render
	case StateUnauthenticated:
		return RedirectLogin
	default:
		return ShowLoading
	}
}

// Gate is a convenience for Decide over the session's current state.
func (s *Session) Gate() Decision {
	return Decide(s.Snapshot().State)
}
