package handler

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/skip2/go-qrcode"

	apperrors "github.com/darkodi/shortlink/internal/errors"
	"github.com/darkodi/shortlink/internal/middleware"
	"github.com/darkodi/shortlink/internal/model"
	"github.com/darkodi/shortlink/internal/service"
)

// qrSize is the edge length in pixels of generated QR codes
const qrSize = 256

// ============ HANDLERS ============

// HandleIndex describes the API
// GET /
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "shortlink",
		"endpoints": map[string]string{
			"shorten":  "POST /shorten",
			"redirect": "GET /{code}",
			"preview":  "GET /preview/{code}",
			"qr":       "GET /qr/{code}",
			"health":   "GET /health",
		},
	})
}

// HandleShorten creates a new short URL
// POST /shorten
func (h *Handler) HandleShorten(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRequest
	if appErr := decodeRequest(w, r, &req, map[string]*string{
		"url":         &req.URL,
		"custom_code": &req.CustomCode,
	}); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	resp, err := h.shortener.Create(r.Context(), req, middleware.ClientIP(r))
	if err != nil {
		if isUnexpected(err) {
			h.log.Error("create failed", "request_id", middleware.GetRequestID(r.Context()), "error", err)
			apperrors.PersistenceError().WriteJSON(w)
			return
		}
		h.writeServiceError(w, r, err, req.CustomCode)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleRedirect redirects to the original URL
// GET /{code}
func (h *Handler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	target, err := h.shortener.Resolve(r.Context(), code, model.Visitor{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	})
	if err != nil {
		if !errors.Is(err, service.ErrNotFound) {
			h.log.Error("resolve failed", "request_id", middleware.GetRequestID(r.Context()), "code", code, "error", err)
		}
		http.Redirect(w, r, h.cfg.FallbackURL, http.StatusFound)
		return
	}

	// every visit must reach us to be counted
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusFound)
}

// HandlePreview shows where a code points without following it
// GET /preview/{code}
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	m, err := h.shortener.Preview(r.Context(), code)
	if err != nil {
		h.writeServiceError(w, r, err, code)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"short_code":   m.ShortCode,
		"original_url": m.OriginalURL,
		"is_active":    m.IsActive,
	})
}

// HandleQR returns a PNG QR code of the short URL, base64 encoded
// GET /qr/{code}
func (h *Handler) HandleQR(w http.ResponseWriter, r *http.Request) {
	shortURL := h.shortener.ShortURL(r.PathValue("code"))

	png, err := qrcode.Encode(shortURL, qrcode.Medium, qrSize)
	if err != nil {
		h.log.Error("qr encode failed", "url", shortURL, "error", err)
		apperrors.Internal("").WriteJSON(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"short_url": shortURL,
		"qr_code":   base64.StdEncoding.EncodeToString(png),
	})
}

// HandleHealth returns service health status
// GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.cfg.HealthCheck != nil {
		if err := h.cfg.HealthCheck(r.Context()); err != nil {
			h.log.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// isUnexpected reports errors outside the client-facing taxonomy
func isUnexpected(err error) bool {
	for _, known := range []error{
		service.ErrRateLimited, service.ErrInvalidURL, service.ErrMaliciousURL,
		service.ErrInvalidCode, service.ErrDuplicateCode, service.ErrNotFound,
	} {
		if errors.Is(err, known) {
			return false
		}
	}
	return true
}
