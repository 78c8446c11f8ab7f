package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const CallerKey contextKey = "caller"

const (
	CallerAnonymous = "anonymous"
	CallerToken     = "token"
)

func GetCallerFromContext(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(CallerKey).(string)
	return caller, ok
}

// BearerToken guards a route group with a static API key. An empty key
// leaves the routes open and tags callers as anonymous.
func BearerToken(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := CallerAnonymous
			if key != "" {
				got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
				if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				caller = CallerToken
			}
			ctx := context.WithValue(r.Context(), CallerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
