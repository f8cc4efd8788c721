package middleware

import (
	"net/http"
	"strings"

	"forecast-ingest/edi/internal/auth"
	reqctx "forecast-ingest/edi/internal/context"
	"forecast-ingest/edi/internal/logging"
)

// AuthMiddleware requires a valid Bearer token signed with signingKey
func AuthMiddleware(signingKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")

			raw, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				http.Error(w, "Unauthorized. Missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := auth.ParseToken(signingKey, strings.TrimSpace(raw))
			if err != nil {
				logging.Debug("Rejected ops API token", "error", err.Error(), "path", r.URL.Path)
				http.Error(w, "Unauthorized. Invalid token", http.StatusUnauthorized)
				return
			}

			if info := reqctx.GetRequestInfo(r.Context()); info != nil {
				info.Subject = claims.UserID()
			}

			ctx := auth.SetUserClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
