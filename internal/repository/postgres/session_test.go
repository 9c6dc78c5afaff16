package postgres

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/models"
	"github.com/nkiryanov/vidtube/internal/testutil"
)

func Test_SessionRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	token := func(value string) models.IssuedToken {
		return models.IssuedToken{Value: value, ExpiresAt: time.Now().Add(24 * time.Hour)}
	}

	// Create user in transaction and run test with session repo bound to the same transaction
	withUser := func(t *testing.T, fn func(r *SessionRepo, user models.User)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			user, err := users.CreateUser(t.Context(), newUserParams("sessionuser"))
			require.NoError(t, err)

			fn(&SessionRepo{DB: tx}, user)
		})
	}

	t.Run("no active session", func(t *testing.T) {
		withUser(t, func(r *SessionRepo, user models.User) {
			_, err := r.GetRefreshToken(t.Context(), user.ID)

			require.ErrorIs(t, err, apperrors.ErrNoActiveSession)
		})
	})

	t.Run("set and get", func(t *testing.T) {
		withUser(t, func(r *SessionRepo, user models.User) {
			err := r.SetRefreshToken(t.Context(), user.ID, token("first"))
			require.NoError(t, err)

			got, err := r.GetRefreshToken(t.Context(), user.ID)

			require.NoError(t, err)
			require.Equal(t, "first", got)
		})
	})

	t.Run("set overwrites previous token", func(t *testing.T) {
		withUser(t, func(r *SessionRepo, user models.User) {
			require.NoError(t, r.SetRefreshToken(t.Context(), user.ID, token("first")))
			require.NoError(t, r.SetRefreshToken(t.Context(), user.ID, token("second")))

			got, err := r.GetRefreshToken(t.Context(), user.ID)

			require.NoError(t, err)
			require.Equal(t, "second", got)
		})
	})

	t.Run("set for unknown user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := SessionRepo{DB: tx}

			err := r.SetRefreshToken(t.Context(), uuid.New(), token("first"))

			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("get for unknown user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := SessionRepo{DB: tx}

			_, err := r.GetRefreshToken(t.Context(), uuid.New())

			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("rotate ok", func(t *testing.T) {
		withUser(t, func(r *SessionRepo, user models.User) {
			require.NoError(t, r.SetRefreshToken(t.Context(), user.ID, token("first")))

			err := r.RotateRefreshToken(t.Context(), user.ID, "first", token("second"))
			require.NoError(t, err)

			got, err := r.GetRefreshToken(t.Context(), user.ID)
			require.NoError(t, err)
			require.Equal(t, "second", got)
		})
	})

	t.Run("rotate with superseded token", func(t *testing.T) {
		withUser(t, func(r *SessionRepo, user models.User) {
			require.NoError(t, r.SetRefreshToken(t.Context(), user.ID, token("first")))
			require.NoError(t, r.RotateRefreshToken(t.Context(), user.ID, "first", token("second")))

			err := r.RotateRefreshToken(t.Context(), user.ID, "first", token("third"))
			require.ErrorIs(t, err, apperrors.ErrExpiredSession)

			got, err := r.GetRefreshToken(t.Context(), user.ID)
			require.NoError(t, err)
			require.Equal(t, "second", got, "failed rotation must not change stored token")
		})
	})

	t.Run("rotate without session", func(t *testing.T) {
		withUser(t, func(r *SessionRepo, user models.User) {
			err := r.RotateRefreshToken(t.Context(), user.ID, "first", token("second"))

			require.ErrorIs(t, err, apperrors.ErrExpiredSession)
		})
	})

	t.Run("clear", func(t *testing.T) {
		withUser(t, func(r *SessionRepo, user models.User) {
			require.NoError(t, r.SetRefreshToken(t.Context(), user.ID, token("first")))

			err := r.ClearRefreshToken(t.Context(), user.ID)
			require.NoError(t, err)

			_, err = r.GetRefreshToken(t.Context(), user.ID)
			require.ErrorIs(t, err, apperrors.ErrNoActiveSession)

			err = r.RotateRefreshToken(t.Context(), user.ID, "first", token("second"))
			require.ErrorIs(t, err, apperrors.ErrExpiredSession, "cleared token must not be usable")
		})
	})

	t.Run("clear keeps password hash", func(t *testing.T) {
		withUser(t, func(r *SessionRepo, user models.User) {
			require.NoError(t, r.SetRefreshToken(t.Context(), user.ID, token("first")))
			require.NoError(t, r.ClearRefreshToken(t.Context(), user.ID))

			got, err := (&UserRepo{DB: r.DB}).GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			require.Equal(t, user.PasswordHash, got.PasswordHash)
			require.Nil(t, got.RefreshToken)
		})
	})

	t.Run("clear expired", func(t *testing.T) {
		withUser(t, func(r *SessionRepo, user models.User) {
			expired := models.IssuedToken{Value: "expired", ExpiresAt: time.Now().Add(-time.Minute)}
			require.NoError(t, r.SetRefreshToken(t.Context(), user.ID, expired))
			other, err := (&UserRepo{DB: r.DB}).CreateUser(t.Context(), newUserParams("activeuser"))
			require.NoError(t, err)
			require.NoError(t, r.SetRefreshToken(t.Context(), other.ID, token("active")))

			n, err := r.ClearExpiredRefreshTokens(t.Context(), time.Now())

			require.NoError(t, err)
			require.EqualValues(t, 1, n, "only expired session has to be cleared")
			_, err = r.GetRefreshToken(t.Context(), user.ID)
			require.ErrorIs(t, err, apperrors.ErrNoActiveSession)
			got, err := r.GetRefreshToken(t.Context(), other.ID)
			require.NoError(t, err)
			require.Equal(t, "active", got)
		})
	})

	// Runs on the pool (not in a transaction): every goroutine needs its own connection
	t.Run("concurrent rotations have single winner", func(t *testing.T) {
		users := UserRepo{DB: pg.Pool}
		r := SessionRepo{DB: pg.Pool}
		user, err := users.CreateUser(t.Context(), newUserParams("concurrent-"+uuid.NewString()[:8]))
		require.NoError(t, err)
		require.NoError(t, r.SetRefreshToken(t.Context(), user.ID, token("first")))

		const n = 10
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- r.RotateRefreshToken(t.Context(), user.ID, "first", token(uuid.NewString()))
			}()
		}
		wg.Wait()
		close(errs)

		success, expired := 0, 0
		for err := range errs {
			switch {
			case err == nil:
				success++
			case errors.Is(err, apperrors.ErrExpiredSession):
				expired++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}

		assert.Equal(t, 1, success, "only one rotation must succeed")
		assert.Equal(t, n-1, expired)
	})
}
