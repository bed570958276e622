package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/darkodi/shortlink/internal/auth"
	apperrors "github.com/darkodi/shortlink/internal/errors"
)

// SessionCookie carries the admin session token
const SessionCookie = "admin_token"

const claimsKey contextKey = "claims"

// TokenParser validates session tokens
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// AdminAuth lets through requests carrying a valid admin session, taken
// from the session cookie or an Authorization bearer header.
func AdminAuth(tokens TokenParser) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := tokens.Parse(SessionToken(r))
			if err != nil {
				apperrors.Unauthorized("Authentication required").WriteJSON(w)
				return
			}
			if !claims.IsAdmin {
				apperrors.Forbidden("Admin access required").WriteJSON(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionToken returns the raw session token of a request, or ""
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// ClaimsFrom returns the session claims stored by AdminAuth
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}
