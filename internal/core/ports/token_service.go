package ports

// TokenService issues and verifies signed session tokens.
type TokenService interface {
	// Issue returns a signed token asserting the given user identifier.
	Issue(userID string) (string, error)
	// Verify returns the user identifier carried by a valid token, or
	// domain.ErrTokenInvalid / domain.ErrTokenExpired.
	Verify(token string) (string, error)
}
