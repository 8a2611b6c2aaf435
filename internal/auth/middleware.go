package auth

import (
	"context"
	"net/http"

	"github.com/Jackson16868/mcshop-bot/internal/logger"
)

type contextKey string

const adminSubjectKey contextKey = "admin_subject"

// AdminMiddleware only lets requests with a valid admin bearer token through.
// With an empty secret every request is refused.
func AdminMiddleware(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "admin API disabled", http.StatusServiceUnavailable)
				return
			}

			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := ParseAdminToken(secret, rawToken)
			if err != nil {
				log.Warn("HTTP", "Rejected admin token: "+err.Error())
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), adminSubjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminSubject returns the subject of the authenticated admin, if any.
func GetAdminSubject(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(adminSubjectKey).(string)
	return sub, ok
}
