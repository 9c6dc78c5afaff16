package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/vidtube/internal/handlers/middleware"
	"github.com/nkiryanov/vidtube/internal/logger"
	"github.com/nkiryanov/vidtube/internal/metrics"
	"github.com/nkiryanov/vidtube/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// Router with user auth api mounted at /api/v1/users
// metricsHandler is mounted at /metrics if not nil
func NewRouter(
	authService authService,
	m *metrics.Metrics,
	metricsHandler http.Handler,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService, logger)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	apiuser := http.NewServeMux()

	apiuser.Handle("POST /register", handleRegister(authService, logger))
	apiuser.Handle("POST /login", handleLogin(authService, logger))
	apiuser.Handle("POST /refresh-token", handleTokenRefresh(authService, logger))

	apiuser.Handle("POST /logout", withAuth(handleLogout(authService, logger)))
	apiuser.Handle("POST /change-password", withAuth(handleChangePassword(authService, logger)))
	apiuser.Handle("GET /current-user", withAuth(handleCurrentUser()))

	root := http.NewServeMux()
	root.Handle("/api/v1/users/", http.StripPrefix("/api/v1/users", apiuser))
	if metricsHandler != nil {
		root.Handle("GET /metrics", metricsHandler)
	}

	return chain(root,
		middleware.AccessMiddleware(logger, m),
	)
}

type authService interface {
	// Register user
	// Has to return apperrors.ErrUserAlreadyExists if username or email taken
	Register(ctx context.Context, params models.RegisterParams) (models.UserInfo, error)

	// Login user with username or email and password
	// Has to return apperrors.ErrInvalidCredentials if user not found or password is wrong
	Login(ctx context.Context, login string, password string) (models.UserInfo, models.TokenPair, error)

	// End user session
	Logout(ctx context.Context, userID uuid.UUID) error

	// Refresh tokens using refresh token
	// If token superseded: has to return apperrors.ErrExpiredSession
	// If token not valid: has to return apperrors.ErrInvalidToken
	RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error)

	// Has to return apperrors.ErrInvalidCredentials if old password is wrong
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error

	// Set auth tokens (access, refresh) to response
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)

	// Expire auth tokens on client
	ClearTokens(w http.ResponseWriter)

	// Get refresh token from request
	GetRefreshString(r *http.Request) (string, error)

	// Get request and return user if it authenticated or error
	AuthenticateRequest(ctx context.Context, r *http.Request) (models.UserInfo, error)
}
