package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// No credential was presented at all
	ErrUnauthenticated = errors.New("unauthenticated")

	// Credential presented but cryptographically or referentially invalid
	ErrInvalidToken = errors.New("invalid token")

	// Credential well-formed but superseded by rotation or logout
	ErrExpiredSession = errors.New("session expired")

	// No refresh token stored for the user
	ErrNoActiveSession = errors.New("no active session")

	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")

	// Directory or session store unavailable or timed out. Retryable by caller.
	ErrInfrastructure = errors.New("infrastructure error")
)
