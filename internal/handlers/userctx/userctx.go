package userctx

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/models"
)

type ctxKey string

const userKey ctxKey = "user"

// Create a new context with the user
func New(ctx context.Context, u models.UserInfo) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// Extract the user from the context
func FromContext(ctx context.Context) (models.UserInfo, bool) {
	u, ok := ctx.Value(userKey).(models.UserInfo)
	return u, ok
}

// Check that the user in context owns the resource
//
// Returns:
//   - apperrors.ErrUnauthenticated if there is no user in context
//   - apperrors.ErrForbidden if user is not the owner
func RequireOwner(ctx context.Context, ownerID uuid.UUID) error {
	u, ok := FromContext(ctx)
	if !ok {
		return apperrors.ErrUnauthenticated
	}

	if u.ID != ownerID {
		return fmt.Errorf("%w: user %s is not the owner", apperrors.ErrForbidden, u.ID)
	}

	return nil
}
