package render

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/vidtube/internal/apperrors"
)

// Render service error matching app error
// Invalid and superseded tokens look the same to the client
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInfrastructure):
		ServiceError(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, apperrors.ErrValidation):
		ServiceError(w, "Request validation failed", http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrUnauthenticated):
		ServiceError(w, "Authentication required", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrInvalidToken), errors.Is(err, apperrors.ErrExpiredSession):
		ServiceError(w, "Reauthentication required", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		ServiceError(w, "User with this username or email already exists", http.StatusConflict)
	case errors.Is(err, apperrors.ErrForbidden):
		ServiceError(w, "Forbidden", http.StatusForbidden)
	default:
		ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
