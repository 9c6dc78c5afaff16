// Package redis stores active refresh tokens in Redis: one key per user,
// expiring together with the refresh token it holds
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/models"
)

const (
	DefaultPrefix = "vidtube"

	// Keys are always stored with expiry, even if token is (almost) expired
	minTTL = time.Second
)

// Replace stored token only if it equals the presented one
// KEYS[1] - session key; ARGV[1] - presented token; ARGV[2] - next token; ARGV[3] - ttl in ms
const rotateScript = `
local current = redis.call("GET", KEYS[1])
if current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

var rotateLua = redis.NewScript(rotateScript)

type SessionRepo struct {
	client redis.UniversalClient
	prefix string
}

func NewSessionRepo(client redis.UniversalClient, prefix string) *SessionRepo {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &SessionRepo{client: client, prefix: prefix}
}

func (r *SessionRepo) key(userID uuid.UUID) string {
	return r.prefix + ":refresh:" + userID.String()
}

func (r *SessionRepo) SetRefreshToken(ctx context.Context, userID uuid.UUID, token models.IssuedToken) error {
	err := r.client.Set(ctx, r.key(userID), token.Value, ttl(token.ExpiresAt)).Err()
	if err != nil {
		return redisError(err)
	}
	return nil
}

func (r *SessionRepo) GetRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := r.client.Get(ctx, r.key(userID)).Result()

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, redis.Nil):
		return "", apperrors.ErrNoActiveSession
	default:
		return "", redisError(err)
	}
}

func (r *SessionRepo) RotateRefreshToken(ctx context.Context, userID uuid.UUID, presented string, next models.IssuedToken) error {
	swapped, err := rotateLua.Run(
		ctx,
		r.client,
		[]string{r.key(userID)},
		presented, next.Value, ttl(next.ExpiresAt).Milliseconds(),
	).Int()

	switch {
	case err != nil:
		return redisError(err)
	case swapped == 0:
		return apperrors.ErrExpiredSession
	default:
		return nil
	}
}

func (r *SessionRepo) ClearRefreshToken(ctx context.Context, userID uuid.UUID) error {
	err := r.client.Del(ctx, r.key(userID)).Err()
	if err != nil {
		return redisError(err)
	}
	return nil
}

func ttl(expiresAt time.Time) time.Duration {
	return max(time.Until(expiresAt), minTTL)
}

func redisError(err error) error {
	return fmt.Errorf("redis error: %w: %w", apperrors.ErrInfrastructure, err)
}
