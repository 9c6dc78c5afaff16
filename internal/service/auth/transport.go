package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/models"
)

const (
	defaultAccessCookieName  = "accessToken"
	defaultRefreshCookieName = "refreshToken"

	authorizationHeader = "Authorization"
	bearerScheme        = "Bearer"

	maxRefreshBodySize = 4 << 10
)

// Set both tokens as cookies
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, s.cookie(s.accessCookieName, pair.Access))
	http.SetCookie(w, s.cookie(s.refreshCookieName, pair.Refresh))
}

// Expire both token cookies
func (s *AuthService) ClearTokens(w http.ResponseWriter) {
	for _, name := range []string{s.accessCookieName, s.refreshCookieName} {
		c := s.cookie(name, models.IssuedToken{})
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

// Get access token: cookie takes precedence over Authorization header
// Has to return apperrors.ErrUnauthenticated if there is no token
func (s *AuthService) GetAccessString(r *http.Request) (string, error) {
	if c, err := r.Cookie(s.accessCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	scheme, token, found := strings.Cut(r.Header.Get(authorizationHeader), " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, bearerScheme) || token == "" {
		return "", apperrors.ErrUnauthenticated
	}

	return token, nil
}

// Get refresh token: cookie first, then json body field
// Has to return apperrors.ErrUnauthenticated if there is no token
func (s *AuthService) GetRefreshString(r *http.Request) (string, error) {
	if c, err := r.Cookie(s.refreshCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	if r.Body == nil {
		return "", apperrors.ErrUnauthenticated
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxRefreshBodySize)).Decode(&body)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", apperrors.ErrUnauthenticated
	}
	if body.RefreshToken == "" {
		return "", apperrors.ErrUnauthenticated
	}

	return body.RefreshToken, nil
}

// Get request and return user if it authenticated or error
func (s *AuthService) AuthenticateRequest(ctx context.Context, r *http.Request) (models.UserInfo, error) {
	// Empty token is reported by Authenticate as apperrors.ErrUnauthenticated
	access, _ := s.GetAccessString(r)
	return s.Authenticate(ctx, access)
}

func (s *AuthService) cookie(name string, token models.IssuedToken) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}
