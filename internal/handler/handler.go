package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/darkodi/shortlink/internal/auth"
	apperrors "github.com/darkodi/shortlink/internal/errors"
	"github.com/darkodi/shortlink/internal/logger"
	"github.com/darkodi/shortlink/internal/middleware"
	"github.com/darkodi/shortlink/internal/service"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// Config holds transport-level settings
type Config struct {
	FallbackURL   string                      // redirect target for unknown or inactive codes
	SecureCookies bool                        // set Secure on the session cookie
	LoginLimiter  middleware.Limiter          // optional throttle on admin login
	HealthCheck   func(context.Context) error // optional readiness probe
}

// Handler serves the public and admin HTTP API
type Handler struct {
	shortener *service.ShortenerService
	reports   *service.ReportService
	auth      *auth.Service
	log       *logger.Logger
	cfg       Config
}

// New creates a handler. A nil logger discards output.
func New(shortener *service.ShortenerService, reports *service.ReportService, authSvc *auth.Service, log *logger.Logger, cfg Config) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.FallbackURL == "" {
		cfg.FallbackURL = "/"
	}
	return &Handler{
		shortener: shortener,
		reports:   reports,
		auth:      authSvc,
		log:       log.Component("http"),
		cfg:       cfg,
	}
}

// ============ ROUTER SETUP ============

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("POST /shorten", h.HandleShorten)
	mux.HandleFunc("GET /preview/{code}", h.HandlePreview)
	mux.HandleFunc("GET /qr/{code}", h.HandleQR)

	// Session
	var login http.Handler = http.HandlerFunc(h.HandleLogin)
	if h.cfg.LoginLimiter != nil {
		login = middleware.RateLimit(h.cfg.LoginLimiter, h.log)(login)
	}
	mux.Handle("POST /admin/login", login)
	mux.HandleFunc("POST /admin/logout", h.HandleLogout)
	mux.HandleFunc("GET /admin/session", h.HandleSession)

	// Admin
	admin := middleware.AdminAuth(h.auth)
	mux.Handle("GET /admin/urls", admin(http.HandlerFunc(h.HandleListURLs)))
	mux.Handle("POST /admin/urls/{id}/toggle", admin(http.HandlerFunc(h.HandleToggleURL)))
	mux.Handle("POST /admin/urls/{id}/delete", admin(http.HandlerFunc(h.HandleDeleteURL)))
	mux.Handle("GET /admin/users", admin(http.HandlerFunc(h.HandleListUsers)))
	mux.Handle("GET /admin/dashboard/stats", admin(http.HandlerFunc(h.HandleStats)))
	mux.Handle("GET /admin/dashboard/recent", admin(http.HandlerFunc(h.HandleRecent)))
	mux.Handle("GET /admin/dashboard/chart/{chart}", admin(http.HandlerFunc(h.HandleChart)))

	// Catch-all for redirects
	mux.HandleFunc("GET /{code}", h.HandleRedirect)

	return mux
}

// ============ HELPERS ============

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeRequest fills dst from a JSON body, or sets fields from form
// values when the request is not JSON.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any, fields map[string]*string) *apperrors.AppError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return apperrors.InvalidJSON(err.Error())
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return apperrors.BadRequest("Could not parse form body")
	}
	for name, field := range fields {
		*field = r.PostFormValue(name)
	}
	return nil
}

// writeServiceError maps service errors to the AppError envelope
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, code string) {
	switch {
	case errors.Is(err, service.ErrRateLimited):
		apperrors.RateLimitExceeded().WriteJSON(w)
	case errors.Is(err, service.ErrMaliciousURL):
		apperrors.MaliciousURL(err.Error()).WriteJSON(w)
	case errors.Is(err, service.ErrInvalidURL):
		apperrors.InvalidURL(err.Error()).WriteJSON(w)
	case errors.Is(err, service.ErrInvalidCode):
		apperrors.InvalidCode(err.Error()).WriteJSON(w)
	case errors.Is(err, service.ErrDuplicateCode):
		apperrors.DuplicateCode(code).WriteJSON(w)
	case errors.Is(err, service.ErrNotFound):
		apperrors.URLNotFound(code).WriteJSON(w)
	default:
		h.log.Error("request failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		apperrors.Internal("").WriteJSON(w)
	}
}
