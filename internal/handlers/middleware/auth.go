package middleware

import (
	"context"
	"net/http"

	"github.com/nkiryanov/vidtube/internal/handlers/render"
	"github.com/nkiryanov/vidtube/internal/handlers/userctx"
	"github.com/nkiryanov/vidtube/internal/models"
)

type authService interface {
	AuthenticateRequest(ctx context.Context, r *http.Request) (models.UserInfo, error)
}

// Let request through only if it carries valid access token
// Verified user is attached to the request context
func AuthMiddleware(as authService, l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.AuthenticateRequest(r.Context(), r)
			if err != nil {
				l.Info("request not authenticated", "uri", r.RequestURI, "reason", err)
				render.Error(w, err)
				return
			}

			recordUser(r.Context(), user.ID)
			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
