package middleware

import (
	"net"
	"net/http"
	"strings"

	apperrors "github.com/darkodi/shortlink/internal/errors"
	"github.com/darkodi/shortlink/internal/logger"
)

// Limiter decides whether a client key is over its budget
type Limiter interface {
	IsLimited(key string) bool
}

// RateLimit rejects requests from clients the limiter reports as limited
func RateLimit(limiter Limiter, log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			if limiter.IsLimited(ip) {
				log.Warn("rate limit exceeded",
					"request_id", GetRequestID(r.Context()),
					"ip", ip,
					"path", r.URL.Path,
				)

				apperrors.RateLimitExceeded().WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP from the request: X-Real-IP first, then
// the first X-Forwarded-For hop, then the connection's remote address.
func ClientIP(r *http.Request) string {
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	// Take the first IP in the list
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	// Fall back to RemoteAddr without the port
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
