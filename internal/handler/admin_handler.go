package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/darkodi/shortlink/internal/auth"
	apperrors "github.com/darkodi/shortlink/internal/errors"
	"github.com/darkodi/shortlink/internal/middleware"
	"github.com/darkodi/shortlink/internal/model"
	"github.com/darkodi/shortlink/internal/service"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ============ SESSION ============

// HandleLogin authenticates a user and sets the session cookie
// POST /admin/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if appErr := decodeRequest(w, r, &req, map[string]*string{
		"username": &req.Username,
		"password": &req.Password,
	}); appErr != nil {
		appErr.WriteJSON(w)
		return
	}
	if req.Username == "" {
		apperrors.MissingField("username").WriteJSON(w)
		return
	}
	if req.Password == "" {
		apperrors.MissingField("password").WriteJSON(w)
		return
	}

	session, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.log.Warn("failed login", "username", req.Username, "ip", middleware.ClientIP(r))
		apperrors.Unauthorized("Invalid username or password").WriteJSON(w)
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Expires:  session.ExpiresAt,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	h.log.Info("login", "username", session.User.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"username": session.User.Username,
		"is_admin": session.User.IsAdmin,
		"token":    session.Token,
	})
}

// HandleLogout clears the session cookie
// POST /admin/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleSession reports whether the caller holds a valid session
// GET /admin/session
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	claims, err := h.auth.Parse(middleware.SessionToken(r))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user_id":       claims.UserID,
		"username":      claims.Username,
		"is_admin":      claims.IsAdmin,
	})
}

// ============ URL MANAGEMENT ============

// HandleListURLs returns every mapping
// GET /admin/urls
func (h *Handler) HandleListURLs(w http.ResponseWriter, r *http.Request) {
	urls, err := h.shortener.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, urls)
}

// HandleToggleURL flips a mapping between active and inactive
// POST /admin/urls/{id}/toggle
func (h *Handler) HandleToggleURL(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	active, err := h.shortener.Toggle(r.Context(), id)
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "is_active": active})
}

// HandleDeleteURL removes a mapping and its clicks
// POST /admin/urls/{id}/delete
func (h *Handler) HandleDeleteURL(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.shortener.Delete(r.Context(), id); err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleListUsers returns every account
// GET /admin/users
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.Users(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ============ DASHBOARD ============

// HandleStats returns headline totals
// GET /admin/dashboard/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleRecent returns the latest clicks
// GET /admin/dashboard/recent
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	recent, err := h.reports.Recent(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, recent)
}

// HandleChart returns one dashboard chart as labels and clicks
// GET /admin/dashboard/chart/{chart}
func (h *Handler) HandleChart(w http.ResponseWriter, r *http.Request) {
	var (
		chart *model.Chart
		err   error
	)

	switch name := r.PathValue("chart"); name {
	case "clicks-over-time":
		chart, err = h.reports.ClicksOverTime(r.Context())
	case "geographic-distribution":
		chart, err = h.reports.Geographic(r.Context())
	case "top-urls":
		chart, err = h.reports.TopURLs(r.Context())
	case "device-types":
		chart, err = h.reports.DeviceTypes(r.Context())
	default:
		apperrors.NotFound("Chart " + name).WriteJSON(w)
		return
	}

	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

// ============ HELPERS ============

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		apperrors.BadRequest("URL id must be a positive integer").WriteJSON(w)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrNotFound) {
		apperrors.NotFound("URL").WriteJSON(w)
		return
	}
	h.writeServiceError(w, r, err, "")
}
