package handlers

import (
	"cmp"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/vidtube/internal/handlers/render"
	"github.com/nkiryanov/vidtube/internal/handlers/userctx"
	"github.com/nkiryanov/vidtube/internal/logger"
	"github.com/nkiryanov/vidtube/internal/models"
)

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(u models.UserInfo) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
	}
}

type tokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func handleRegister(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		FullName string `json:"fullName" validate:"required,max=100"`
		Email    string `json:"email" validate:"required,email,max=254"`
		Username string `json:"username" validate:"required,max=50,excludes=@"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		User userResponse `json:"user"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, err := authService.Register(r.Context(), models.RegisterParams{
			Username: data.Username,
			Email:    data.Email,
			FullName: data.FullName,
			Password: data.Password,
		})
		if err != nil {
			logger.Info("user not registered", "username", data.Username, "error", err)
			render.Error(w, err)
			return
		}

		render.JSONWithStatus(w, response{User: newUserResponse(user)}, http.StatusCreated)
	})
}

func handleLogin(authService authService, logger logger.Logger) http.Handler {
	// Identifier is username or email. Username and email fields are accepted as well
	type request struct {
		Identifier string `json:"identifier" validate:"required_without_all=Username Email"`
		Username   string `json:"username"`
		Email      string `json:"email"`
		Password   string `json:"password" validate:"required"`
	}
	type response struct {
		User userResponse `json:"user"`
		tokensResponse
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		login := cmp.Or(data.Identifier, data.Username, data.Email)

		user, pair, err := authService.Login(r.Context(), login, data.Password)
		if err != nil {
			logger.Info("login failed", "login", login, "error", err)
			render.Error(w, err)
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSON(w, response{
			User:           newUserResponse(user),
			tokensResponse: tokensResponse{AccessToken: pair.Access.Value, RefreshToken: pair.Refresh.Value},
		})
	})
}

func handleLogout(authService authService, logger logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())

		err := authService.Logout(r.Context(), user.ID)
		if err != nil {
			logger.Error("logout failed", "userID", user.ID, "error", err)
			render.Error(w, err)
			return
		}

		authService.ClearTokens(w)
		render.JSON(w, response{Message: "User logged out"})
	})
}

func handleTokenRefresh(authService authService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := authService.GetRefreshString(r)
		if err != nil {
			render.Error(w, err)
			return
		}

		pair, err := authService.RefreshPair(r.Context(), refresh)
		if err != nil {
			// Client gets the same answer for invalid and superseded tokens; keep the difference in logs
			logger.Info("token refresh failed", "error", err)
			render.Error(w, err)
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSON(w, tokensResponse{AccessToken: pair.Access.Value, RefreshToken: pair.Refresh.Value})
	})
}
