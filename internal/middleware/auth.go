package middleware

import (
	"net/http"
	"strings"

	"github.com/ayush/recipe-catalog/backend/internal/auth"
	"github.com/ayush/recipe-catalog/backend/internal/httpx"
	"github.com/ayush/recipe-catalog/backend/internal/models"
)

// RequireAuth validates the Authorization bearer token and injects the
// verified claims into the request context.
func RequireAuth(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				httpx.WriteMessage(w, http.StatusUnauthorized, "Access denied. No token provided.")
				return
			}

			claims, err := tokens.Verify(tokenStr)
			if err != nil {
				httpx.WriteMessage(w, http.StatusUnauthorized, "Invalid token.")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin rejects any identity whose role is not admin. The role is
// re-read from the server-verified claims, never from the client's own view.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFrom(r.Context())
		if !ok || claims.Role != models.RoleAdmin {
			httpx.WriteMessage(w, http.StatusForbidden, "Access denied. Admins only.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
