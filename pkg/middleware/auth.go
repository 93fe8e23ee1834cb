package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// StatsAuthMiddleware guards the analytics endpoints with a static bearer
// token. The click API has no user system; the dashboard and internal
// tooling hold the one token from configuration.
type StatsAuthMiddleware struct {
	token []byte
}

// NewStatsAuthMiddleware creates middleware validating the given token.
// An empty token rejects every request, matching the server which only
// registers the stats routes when a token is configured.
func NewStatsAuthMiddleware(token string) *StatsAuthMiddleware {
	return &StatsAuthMiddleware{token: []byte(token)}
}

// Handler wraps an HTTP handler with bearer token authentication
func (m *StatsAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.token) == 0 {
			m.unauthorizedResponse(w, "stats endpoints disabled")
			return
		}

		// Extract token from Authorization header
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.unauthorizedResponse(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.unauthorizedResponse(w, "invalid authorization header format")
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), m.token) != 1 {
			m.unauthorizedResponse(w, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *StatsAuthMiddleware) unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
