package handler

import (
	"context"
	"net/http"

	"roomchat/internal/app/user"
	"roomchat/internal/pkg/auth/jwt"
	"roomchat/internal/pkg/resp"
)

type contextKey string

const identityKey contextKey = "identity"

// RequireAuth resolves the bearer token through the auth gate and stores the
// identity in the request context. Requests without a valid token get 401.
func RequireAuth(deps *AppDeps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := deps.Core.Gate.Authenticate(r.Context(), jwt.BearerToken(r))
			if err != nil {
				resp.RespondError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser returns the identity set by RequireAuth, or nil.
func CurrentUser(r *http.Request) *user.User {
	u, _ := r.Context().Value(identityKey).(*user.User)
	return u
}
