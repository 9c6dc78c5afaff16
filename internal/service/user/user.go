package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/models"
	"github.com/nkiryanov/vidtube/internal/repository"
	"github.com/nkiryanov/vidtube/internal/service/auth"
)

// User directory service
// Owns password hashing: hashes never leave this service except as stored values
type UserService struct {
	hasher   auth.PasswordHasher
	userRepo repository.UserRepo
}

func NewService(hasher auth.PasswordHasher, userRepo repository.UserRepo) *UserService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &UserService{
		hasher:   hasher,
		userRepo: userRepo,
	}
}

// Create user with hashed password. Username and email are stored lower-cased
func (s *UserService) CreateUser(ctx context.Context, params models.RegisterParams) (models.User, error) {
	var user models.User

	create := models.CreateUserParams{
		Username: strings.ToLower(strings.TrimSpace(params.Username)),
		Email:    strings.ToLower(strings.TrimSpace(params.Email)),
		FullName: strings.TrimSpace(params.FullName),
	}

	switch {
	case create.Username == "" || create.Email == "" || create.FullName == "":
		return user, fmt.Errorf("%w: username, email and full name must not be blank", apperrors.ErrValidation)
	case strings.Contains(create.Username, "@"):
		// Login with '@' is always looked up as email
		return user, fmt.Errorf("%w: username must not contain '@'", apperrors.ErrValidation)
	case params.Password == "":
		return user, fmt.Errorf("%w: password must not be empty", apperrors.ErrValidation)
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}
	create.PasswordHash = hash

	user, err = s.userRepo.CreateUser(ctx, create)
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

// Get user by username or email
func (s *UserService) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	return s.userRepo.GetUserByLogin(ctx, strings.TrimSpace(login))
}

// Check password of existing user
// Returns false for wrong password; error only if user could not be loaded
func (s *UserService) VerifyPassword(ctx context.Context, userID uuid.UUID, password string) (bool, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}

	return auth.Verify(s.hasher, user.PasswordHash, password), nil
}

// Hash and store new password. Session state is not touched
func (s *UserService) UpdatePassword(ctx context.Context, userID uuid.UUID, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password must not be empty", apperrors.ErrValidation)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("can't use this as password, Err: %w", err)
	}

	err = s.userRepo.UpdatePasswordHash(ctx, userID, hash)
	if err != nil {
		return fmt.Errorf("can't update password. Err: %w", err)
	}

	return nil
}
