// edulearn/middlewares/auth.go
package middlewares

import (
	"context"
	"net/http"
	"strings"

	"edulearn/edulearn/config"
	"edulearn/edulearn/services/auth"
)

type contextKey string

const UserKey contextKey = "user"

func AuthMiddleware(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			parts := strings.Split(header, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			user, err := auth.ParseToken(cfg.JWTSecret, parts[1])
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFrom returns the user the middleware stored on ctx.
func UserFrom(ctx context.Context) (auth.User, bool) {
	u, ok := ctx.Value(UserKey).(auth.User)
	return u, ok && u.ID != ""
}
