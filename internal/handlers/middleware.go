package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"wortschatz/internal/content"
	"wortschatz/internal/models"
	"wortschatz/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const UserIDContextKey ContextKey = "user_id"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens  *security.TokenIssuer
	isAdmin func(userID int64) bool
	limiter *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(tokens *security.TokenIssuer, isAdmin func(int64) bool, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		tokens:  tokens,
		isAdmin: isAdmin,
		limiter: limiter,
	}
}

// RequireAuth is middleware that requires a valid bearer token
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := security.BearerToken(r)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Authorization header required", "", nil)
			return
		}

		userID, err := m.tokens.Parse(token)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, security.ErrTokenExpired) {
				msg = "Token has expired"
			}
			respondWithError(w, http.StatusUnauthorized, msg, "rejected token", err)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must run after RequireAuth.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok || !m.isAdmin(userID) {
			respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit limits requests per client IP.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(security.GetClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LevelScope scopes content queries of the request to the ?level= query
// parameter when present.
func LevelScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("level")
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		lvl, err := models.ParseLevel(key)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Unknown level "+key, "", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(content.WithLevel(r.Context(), lvl)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// GetUserIDFromContext retrieves the authenticated user id from the request context
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(int64)
	return userID, ok
}
