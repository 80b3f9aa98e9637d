// Package api implements the noted REST API using chi.
package api

import (
	"net/http"
	"strings"

	"github.com/starford/noted/internal/identity"
)

// AuthMiddleware resolves the bearer token to a user id and stores it on the
// request context. Requests the provider cannot resolve get 401.
// With identity.Anonymous every request resolves, token or not.
func AuthMiddleware(provider identity.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if provider == nil {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			userID, ok := provider.Resolve(bearerToken(r))
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
