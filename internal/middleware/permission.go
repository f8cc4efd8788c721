package middleware

import (
	"net/http"

	"forecast-ingest/edi/internal/auth"
)

// RequirePermission rejects callers whose claims do not allow action
func RequirePermission(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := auth.GetUserClaims(r.Context())
			if claims == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !claims.HasPermission(action) {
				http.Error(w, "Forbidden. Role "+claims.Role()+" cannot "+action, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
