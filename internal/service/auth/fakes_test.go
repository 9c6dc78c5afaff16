package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/models"
)

// In-memory user directory
type fakeUsers struct {
	mu     sync.Mutex
	hasher PasswordHasher
	users  map[uuid.UUID]models.User

	// Block every call until ctx is done
	hang bool
}

func newFakeUsers(hasher PasswordHasher) *fakeUsers {
	return &fakeUsers{hasher: hasher, users: make(map[uuid.UUID]models.User)}
}

func (f *fakeUsers) wait(ctx context.Context) error {
	if !f.hang {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeUsers) CreateUser(ctx context.Context, params models.RegisterParams) (models.User, error) {
	if err := f.wait(ctx); err != nil {
		return models.User{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == params.Username || u.Email == params.Email {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	hash, err := f.hasher.Hash(params.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           uuid.New(),
		CreatedAt:    time.Now(),
		Username:     params.Username,
		Email:        params.Email,
		FullName:     params.FullName,
		PasswordHash: hash,
	}
	f.users[user.ID] = user

	return user, nil
}

func (f *fakeUsers) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	if err := f.wait(ctx); err != nil {
		return models.User{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	if err := f.wait(ctx); err != nil {
		return models.User{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == login || u.Email == login {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrUserNotFound
}

func (f *fakeUsers) VerifyPassword(ctx context.Context, userID uuid.UUID, password string) (bool, error) {
	u, err := f.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return Verify(f.hasher, u.PasswordHash, password), nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, userID uuid.UUID, password string) error {
	u, err := f.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := f.hasher.Hash(password)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	u.PasswordHash = hash
	f.users[userID] = u

	return nil
}

func (f *fakeUsers) delete(userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, userID)
}

// In-memory session store
type fakeSessions struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]string

	// Returned from ClearRefreshToken if set
	clearErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[uuid.UUID]string)}
}

func (f *fakeSessions) SetRefreshToken(_ context.Context, userID uuid.UUID, token models.IssuedToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[userID] = token.Value
	return nil
}

func (f *fakeSessions) GetRefreshToken(_ context.Context, userID uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tokens[userID]
	if !ok {
		return "", apperrors.ErrNoActiveSession
	}
	return t, nil
}

func (f *fakeSessions) RotateRefreshToken(_ context.Context, userID uuid.UUID, presented string, next models.IssuedToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t, ok := f.tokens[userID]; !ok || t != presented {
		return apperrors.ErrExpiredSession
	}
	f.tokens[userID] = next.Value
	return nil
}

func (f *fakeSessions) ClearRefreshToken(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	delete(f.tokens, userID)
	return nil
}
