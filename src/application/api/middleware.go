package api

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"mediagrab-be-server/src/application/auth"

	"golang.org/x/time/rate"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the authenticated user for a request. Handlers behind
// the auth middleware can rely on it being present.
func UserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// AuthMiddleware resolves the bearer token (or the token cookie, for
// browser-initiated downloads) into a user ID.
func AuthMiddleware(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Missing credentials")
				return
			}

			userID, err := verifier.VerifyToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}

	return ""
}

// RateLimitMiddleware applies a token-bucket limit per authenticated
// user. It must sit inside the auth middleware.
func RateLimitMiddleware(perSecond float64, burst int) func(http.Handler) http.Handler {
	limiters := map[string]*rate.Limiter{}
	var mu sync.Mutex

	limiterFor := func(userID string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		limiter, ok := limiters[userID]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
			limiters[userID] = limiter
		}
		return limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiterFor(UserID(r)).Allow() {
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
