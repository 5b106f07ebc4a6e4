package domain

import "errors"

var (
	// ErrInvalidInput covers missing or malformed registration/login fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUserExists is returned when the email unique index rejects a create.
	ErrUserExists = errors.New("user already exists")

	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is deliberately shared by the unknown-email and
	// wrong-password paths so a login failure never reveals which one it was.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrAccountDisabled suspends all authority of a user whose active flag
	// is false, without revoking their tokens cryptographically.
	ErrAccountDisabled = errors.New("account disabled")

	ErrForbidden = errors.New("insufficient permissions")

	ErrNotImplemented = errors.New("not implemented")

	ErrTooManyAttempts = errors.New("too many login attempts")
)
