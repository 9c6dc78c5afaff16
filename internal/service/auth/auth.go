package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/metrics"
	"github.com/nkiryanov/vidtube/internal/models"
	"github.com/nkiryanov/vidtube/internal/repository"
)

const defaultStoreTimeout = 3 * time.Second

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

// User directory
type userService interface {
	CreateUser(ctx context.Context, params models.RegisterParams) (models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByLogin(ctx context.Context, login string) (models.User, error)
	VerifyPassword(ctx context.Context, userID uuid.UUID, password string) (bool, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, password string) error
}

// Issues and parses signed tokens. Nothing is persisted
type tokenManager interface {
	IssuePair(user models.User) (models.TokenPair, error)
	ParseAccess(access string) (uuid.UUID, error)
	ParseRefresh(refresh string) (uuid.UUID, error)
}

type Config struct {
	// Hasher to compare passwords on login
	// DefaultHasher if not set
	Hasher PasswordHasher

	// Deadline for every user directory or session store call
	StoreTimeout time.Duration

	// Cookies to carry tokens
	AccessCookieName  string
	RefreshCookieName string

	// Drop Secure attribute from cookies. Only for local plain http development
	InsecureCookies bool

	// Optional
	Metrics *metrics.Metrics
}

// Auth service
type AuthService struct {
	hasher       PasswordHasher
	storeTimeout time.Duration

	accessCookieName  string
	refreshCookieName string
	secureCookies     bool

	tokens   tokenManager
	users    userService
	sessions repository.SessionRepo
	metrics  *metrics.Metrics
}

func NewService(cfg Config, tokens tokenManager, users userService, sessions repository.SessionRepo) (*AuthService, error) {
	if tokens == nil || users == nil || sessions == nil {
		return nil, errors.New("token manager, user service and session repo must not be nil")
	}

	setDefault := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefault(&cfg.AccessCookieName, defaultAccessCookieName)
	setDefault(&cfg.RefreshCookieName, defaultRefreshCookieName)

	if cfg.Hasher == nil {
		cfg.Hasher = DefaultHasher
	}
	if cfg.StoreTimeout == 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}

	return &AuthService{
		hasher:            cfg.Hasher,
		storeTimeout:      cfg.StoreTimeout,
		accessCookieName:  cfg.AccessCookieName,
		refreshCookieName: cfg.RefreshCookieName,
		secureCookies:     !cfg.InsecureCookies,
		tokens:            tokens,
		users:             users,
		sessions:          sessions,
		metrics:           cfg.Metrics,
	}, nil
}

// Register new user. No session is started: user has to login
// Has to return apperrors.ErrUserAlreadyExists if username or email taken
func (s *AuthService) Register(ctx context.Context, params models.RegisterParams) (models.UserInfo, error) {
	var user models.User

	err := s.withStore(ctx, func(ctx context.Context) (err error) {
		user, err = s.users.CreateUser(ctx, params)
		return err
	})
	s.metrics.Observe(metrics.OpRegister, err)
	if err != nil {
		return models.UserInfo{}, err
	}

	return user.Info(), nil
}

// Login user by username or email and start new session
// Previous session of the user (if any) is replaced
func (s *AuthService) Login(ctx context.Context, login string, password string) (models.UserInfo, models.TokenPair, error) {
	user, pair, err := s.login(ctx, login, password)
	s.metrics.Observe(metrics.OpLogin, err)
	return user.Info(), pair, err
}

func (s *AuthService) login(ctx context.Context, login string, password string) (models.User, models.TokenPair, error) {
	var user models.User
	var pair models.TokenPair

	err := s.withStore(ctx, func(ctx context.Context) (err error) {
		user, err = s.users.GetUserByLogin(ctx, login)
		return err
	})
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		// Spend the same time as for existing user
		Verify(s.hasher, dummyHash, password)
		return models.User{}, pair, apperrors.ErrInvalidCredentials
	case err != nil:
		return models.User{}, pair, err
	}

	if !Verify(s.hasher, user.PasswordHash, password) {
		return models.User{}, pair, apperrors.ErrInvalidCredentials
	}

	pair, err = s.tokens.IssuePair(user)
	if err != nil {
		return models.User{}, pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	err = s.withStore(ctx, func(ctx context.Context) error {
		return s.sessions.SetRefreshToken(ctx, user.ID, pair.Refresh)
	})
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	return user, pair, nil
}

// End user session. Calling it without active session is ok
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	err := s.withStore(ctx, func(ctx context.Context) error {
		return s.sessions.ClearRefreshToken(ctx, userID)
	})
	s.metrics.Observe(metrics.OpLogout, err)
	return err
}

// Exchange refresh token for a new pair. Every refresh token may be exchanged once
//
// Returns:
//   - apperrors.ErrUnauthenticated if token is empty
//   - apperrors.ErrInvalidToken if token is not valid or its user is gone
//   - apperrors.ErrExpiredSession if token was already rotated, never stored or user logged out
func (s *AuthService) RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error) {
	pair, err := s.refreshPair(ctx, refresh)
	s.metrics.Observe(metrics.OpRefresh, err)
	return pair, err
}

func (s *AuthService) refreshPair(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	if refresh == "" {
		return pair, apperrors.ErrUnauthenticated
	}

	userID, err := s.tokens.ParseRefresh(refresh)
	if err != nil {
		return pair, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return pair, err
	}

	var stored string
	err = s.withStore(ctx, func(ctx context.Context) (err error) {
		stored, err = s.sessions.GetRefreshToken(ctx, user.ID)
		return err
	})
	switch {
	case errors.Is(err, apperrors.ErrNoActiveSession):
		return pair, fmt.Errorf("%w: %w", apperrors.ErrExpiredSession, err)
	case err != nil:
		return pair, err
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(refresh)) != 1 {
		return pair, fmt.Errorf("%w: refresh token superseded", apperrors.ErrExpiredSession)
	}

	pair, err = s.tokens.IssuePair(user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	// Another request may rotate the same token right now. Only one wins
	err = s.withStore(ctx, func(ctx context.Context) error {
		return s.sessions.RotateRefreshToken(ctx, user.ID, refresh, pair.Refresh)
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

// Resolve access token to the user it was issued to
//
// Returns:
//   - apperrors.ErrUnauthenticated if token is empty
//   - apperrors.ErrInvalidToken if token is not valid or its user is gone
func (s *AuthService) Authenticate(ctx context.Context, access string) (models.UserInfo, error) {
	user, err := s.authenticate(ctx, access)
	s.metrics.Observe(metrics.OpAuthenticate, err)
	return user.Info(), err
}

func (s *AuthService) authenticate(ctx context.Context, access string) (models.User, error) {
	if access == "" {
		return models.User{}, apperrors.ErrUnauthenticated
	}

	userID, err := s.tokens.ParseAccess(access)
	if err != nil {
		return models.User{}, err
	}

	return s.getUser(ctx, userID)
}

// End current session and set new password, so user has to login again
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error {
	err := s.changePassword(ctx, userID, oldPassword, newPassword)
	s.metrics.Observe(metrics.OpChangePassword, err)
	return err
}

func (s *AuthService) changePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password must not be empty", apperrors.ErrValidation)
	}

	var ok bool
	err := s.withStore(ctx, func(ctx context.Context) (err error) {
		ok, err = s.users.VerifyPassword(ctx, userID, oldPassword)
		return err
	})
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
	case err != nil:
		return err
	case !ok:
		return apperrors.ErrInvalidCredentials
	}

	// End session first: if it fails the old password is still in place
	err = s.withStore(ctx, func(ctx context.Context) error {
		return s.sessions.ClearRefreshToken(ctx, userID)
	})
	if err != nil {
		return err
	}

	return s.withStore(ctx, func(ctx context.Context) error {
		return s.users.UpdatePassword(ctx, userID, newPassword)
	})
}

// Token subject that is not in the directory anymore makes token invalid
func (s *AuthService) getUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	var user models.User

	err := s.withStore(ctx, func(ctx context.Context) (err error) {
		user, err = s.users.GetUserByID(ctx, userID)
		return err
	})
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return user, fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
	}

	return user, err
}

// Call store under deadline. Deadline exceeded is an infrastructure failure
func (s *AuthService) withStore(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := fn(ctx)
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, apperrors.ErrInfrastructure) {
		return fmt.Errorf("%w: %w", apperrors.ErrInfrastructure, err)
	}

	return err
}
