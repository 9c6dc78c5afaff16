package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkiryanov/vidtube/internal/models"
)

// User directory
type UserRepo interface {
	// Create user
	// If user with the same username or email exists has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params models.CreateUserParams) (models.User, error)

	// Get user by its id, or by username or email (login)
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByLogin(ctx context.Context, login string) (models.User, error)

	// Replace password hash. Must not touch session state
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error
}

// Session store: single active refresh token per user
type SessionRepo interface {
	// Overwrite stored refresh token unconditionally
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token models.IssuedToken) error

	// Return stored refresh token
	// If there is no active session must return apperrors.ErrNoActiveSession
	GetRefreshToken(ctx context.Context, userID uuid.UUID) (string, error)

	// Replace stored token with next only if stored value equals presented one.
	// Must be a single atomic operation
	// If stored value differs (or absent) must return apperrors.ErrExpiredSession
	RotateRefreshToken(ctx context.Context, userID uuid.UUID, presented string, next models.IssuedToken) error

	// Forget stored refresh token (logout)
	ClearRefreshToken(ctx context.Context, userID uuid.UUID) error
}
