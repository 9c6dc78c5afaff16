package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/models"
)

// Session store on top of users table: refresh token lives on the user row
type SessionRepo struct {
	DB DBTX
}

const setRefreshToken = `-- name: SetRefreshToken
UPDATE users
SET refresh_token = $2, refresh_token_expires_at = $3
WHERE id = $1
`

func (r *SessionRepo) SetRefreshToken(ctx context.Context, userID uuid.UUID, token models.IssuedToken) error {
	tag, err := r.DB.Exec(ctx, setRefreshToken, userID, token.Value, token.ExpiresAt)
	switch {
	case err != nil:
		return dbError(err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}

const getRefreshToken = `-- name: GetRefreshToken
SELECT refresh_token
FROM users
WHERE id = $1
`

func (r *SessionRepo) GetRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	rows, _ := r.DB.Query(ctx, getRefreshToken, userID)
	token, err := pgx.CollectOneRow(rows, pgx.RowTo[*string])

	switch {
	case err == nil && token != nil:
		return *token, nil
	case err == nil:
		return "", apperrors.ErrNoActiveSession
	case errors.Is(err, pgx.ErrNoRows):
		return "", apperrors.ErrUserNotFound
	default:
		return "", dbError(err)
	}
}

const rotateRefreshToken = `-- name: RotateRefreshToken
UPDATE users
SET refresh_token = $3, refresh_token_expires_at = $4
WHERE id = $1 AND refresh_token = $2
`

// Compare-and-set in one statement: concurrent rotations with the same
// presented token are serialized by the row lock, only the first one matches
func (r *SessionRepo) RotateRefreshToken(ctx context.Context, userID uuid.UUID, presented string, next models.IssuedToken) error {
	tag, err := r.DB.Exec(ctx, rotateRefreshToken, userID, presented, next.Value, next.ExpiresAt)
	switch {
	case err != nil:
		return dbError(err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrExpiredSession
	default:
		return nil
	}
}

const clearRefreshToken = `-- name: ClearRefreshToken
UPDATE users
SET refresh_token = NULL, refresh_token_expires_at = NULL
WHERE id = $1
`

func (r *SessionRepo) ClearRefreshToken(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, clearRefreshToken, userID)
	switch {
	case err != nil:
		return dbError(err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}

const clearExpiredRefreshTokens = `-- name: ClearExpiredRefreshTokens
UPDATE users
SET refresh_token = NULL, refresh_token_expires_at = NULL
WHERE refresh_token_expires_at < $1
`

// Forget refresh tokens expired before the given time. Returns number of ended sessions
func (r *SessionRepo) ClearExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, clearExpiredRefreshTokens, before)
	if err != nil {
		return 0, dbError(err)
	}
	return tag.RowsAffected(), nil
}
