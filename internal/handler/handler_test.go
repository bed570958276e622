package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/shortlink/internal/analytics"
	"github.com/darkodi/shortlink/internal/auth"
	"github.com/darkodi/shortlink/internal/cache"
	"github.com/darkodi/shortlink/internal/encoder"
	"github.com/darkodi/shortlink/internal/middleware"
	"github.com/darkodi/shortlink/internal/model"
	"github.com/darkodi/shortlink/internal/ratelimit"
	"github.com/darkodi/shortlink/internal/repository"
	"github.com/darkodi/shortlink/internal/service"
	"github.com/darkodi/shortlink/internal/validator"
)

const baseURL = "http://sho.rt"

type testServer struct {
	handler http.Handler
	store   *repository.Store
}

func newTestServer(t *testing.T, cfg Config, opts ...service.Option) *testServer {
	t.Helper()

	store, err := repository.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = auth.EnsureAdmin(context.Background(), store, "admin", "admin123", "")
	require.NoError(t, err)

	c := cache.NewMemory(cache.DefaultTTL, 0)
	recorder := analytics.NewRecorder(store, analytics.Config{Workers: 0}, nil)
	t.Cleanup(func() { recorder.Close() })

	opts = append([]service.Option{service.WithRecorder(recorder)}, opts...)
	shortener := service.NewShortenerService(store, c, validator.NewURLValidator(), encoder.NewGenerator(6), baseURL, opts...)
	reports := service.NewReportService(store)
	authSvc := auth.NewService(store, "test-secret", time.Hour)

	h := New(shortener, reports, authSvc, nil, cfg)
	return &testServer{handler: middleware.Chain(h.SetupRoutes(), middleware.RequestID), store: store}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) get(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return s.do(t, req)
}

func (s *testServer) postJSON(t *testing.T, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return s.do(t, req)
}

func (s *testServer) shorten(t *testing.T, rawURL, custom string) model.CreateResponse {
	t.Helper()
	rec := s.postJSON(t, "/shorten", model.CreateRequest{URL: rawURL, CustomCode: custom})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp model.CreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (s *testServer) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := s.postJSON(t, "/admin/login", map[string]string{"username": "admin", "password": "admin123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Code
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := srv.get(t, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "POST /shorten")

	rec = srv.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestHealth_Unhealthy(t *testing.T) {
	srv := newTestServer(t, Config{HealthCheck: func(context.Context) error { return errors.New("db down") }})

	rec := srv.get(t, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestShorten_JSON(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := srv.postJSON(t, "/shorten", model.CreateRequest{URL: "https://example.com/some/long/path"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decode[model.CreateResponse](t, rec)
	assert.Len(t, resp.ShortCode, 6)
	assert.Equal(t, baseURL+"/"+resp.ShortCode, resp.ShortURL)
	assert.Equal(t, "https://example.com/some/long/path", resp.OriginalURL)
}

func TestShorten_Form(t *testing.T) {
	srv := newTestServer(t, Config{})

	form := url.Values{"url": {"example.com/form"}, "custom_code": {"from-form"}}
	req := httptest.NewRequest(http.MethodPost, "/shorten", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := srv.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[model.CreateResponse](t, rec)
	assert.Equal(t, "from-form", resp.ShortCode)
	assert.Equal(t, "https://example.com/form", resp.OriginalURL)
}

func TestShorten_Errors(t *testing.T) {
	srv := newTestServer(t, Config{})
	srv.shorten(t, "https://example.com", "taken")

	tests := []struct {
		name       string
		body       model.CreateRequest
		wantStatus int
		wantCode   string
	}{
		{"empty", model.CreateRequest{}, http.StatusBadRequest, "INVALID_URL"},
		{"invalid", model.CreateRequest{URL: "not a url"}, http.StatusBadRequest, "INVALID_URL"},
		{"malicious", model.CreateRequest{URL: "https://phishing-example.org"}, http.StatusBadRequest, "MALICIOUS_URL"},
		{"bad custom code", model.CreateRequest{URL: "https://example.com", CustomCode: "a b"}, http.StatusBadRequest, "INVALID_CODE"},
		{"duplicate", model.CreateRequest{URL: "https://example.org", CustomCode: "taken"}, http.StatusConflict, "DUPLICATE_CODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.postJSON(t, "/shorten", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}

	t.Run("bad json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/shorten", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		rec := srv.do(t, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_JSON", errorCode(t, rec))
	})
}

func TestShorten_RateLimited(t *testing.T) {
	limiter := ratelimit.NewSlidingWindow(ratelimit.Config{MaxRequests: 3, Window: time.Minute})
	srv := newTestServer(t, Config{}, service.WithLimiter(limiter))

	for i := 0; i < 3; i++ {
		srv.shorten(t, "https://example.com", "")
	}
	rec := srv.postJSON(t, "/shorten", model.CreateRequest{URL: "https://example.com"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, rec))
}

func TestRedirect(t *testing.T) {
	srv := newTestServer(t, Config{})
	resp := srv.shorten(t, "https://example.com/target", "")

	req := httptest.NewRequest(http.MethodGet, "/"+resp.ShortCode, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone)")
	req.Header.Set("X-Real-IP", "203.0.113.8")
	rec := srv.do(t, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/target", rec.Header().Get("Location"))

	m, err := srv.store.FindByCode(context.Background(), resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Clicks)

	recent, err := srv.store.RecentClicks(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "203.0.113.8", recent[0].IPAddress)
}

func TestRedirect_UnknownGoesToFallback(t *testing.T) {
	srv := newTestServer(t, Config{FallbackURL: "https://sho.rt/missing"})

	rec := srv.get(t, "/nope123")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://sho.rt/missing", rec.Header().Get("Location"))
}

func TestPreview(t *testing.T) {
	srv := newTestServer(t, Config{})
	srv.shorten(t, "https://example.com", "peek")

	rec := srv.get(t, "/preview/peek")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"short_code":"peek","original_url":"https://example.com","is_active":true}`, rec.Body.String())

	m, err := srv.store.FindByCode(context.Background(), "peek")
	require.NoError(t, err)
	assert.Zero(t, m.Clicks)

	rec = srv.get(t, "/preview/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "URL_NOT_FOUND", errorCode(t, rec))
}

func TestQR(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := srv.get(t, "/qr/abc123")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]string](t, rec)
	assert.Equal(t, baseURL+"/abc123", body["short_url"])

	png, err := base64.StdEncoding.DecodeString(body["qr_code"])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestSession(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := srv.get(t, "/admin/session")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())

	cookie := srv.login(t)
	assert.True(t, cookie.HttpOnly)

	rec = srv.get(t, "/admin/session", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "admin", body["username"])
	assert.Equal(t, true, body["is_admin"])

	rec = srv.postJSON(t, "/admin/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestLogin_Errors(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := srv.postJSON(t, "/admin/login", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.postJSON(t, "/admin/login", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_FIELD", errorCode(t, rec))

	form := url.Values{"password": {"admin123"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = srv.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "'username'")
}

func TestLogin_RateLimited(t *testing.T) {
	limiter := ratelimit.NewSlidingWindow(ratelimit.Config{MaxRequests: 2, Window: time.Minute})
	srv := newTestServer(t, Config{LoginLimiter: limiter})

	for i := 0; i < 2; i++ {
		rec := srv.postJSON(t, "/admin/login", map[string]string{"username": "admin", "password": "guess"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := srv.postJSON(t, "/admin/login", map[string]string{"username": "admin", "password": "admin123"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAdmin_RequiresSession(t *testing.T) {
	srv := newTestServer(t, Config{})

	for _, path := range []string{"/admin/urls", "/admin/users", "/admin/dashboard/stats", "/admin/dashboard/chart/top-urls"} {
		rec := srv.get(t, path)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := srv.postJSON(t, "/admin/urls/1/toggle", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdmin_ManageURLs(t *testing.T) {
	srv := newTestServer(t, Config{})
	cookie := srv.login(t)
	srv.shorten(t, "https://example.com", "managed")

	rec := srv.get(t, "/admin/urls", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	urls := decode[[]model.URLMapping](t, rec)
	require.Len(t, urls, 1)
	id := urls[0].ID
	path := "/admin/urls/" + strconv.FormatInt(id, 10)

	rec = srv.postJSON(t, path+"/toggle", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"is_active":false}`, rec.Body.String())

	rec = srv.get(t, "/managed")
	assert.Equal(t, "/", rec.Header().Get("Location"), "inactive codes go to the fallback")

	rec = srv.postJSON(t, path+"/toggle", nil, cookie)
	assert.JSONEq(t, `{"success":true,"is_active":true}`, rec.Body.String())

	rec = srv.postJSON(t, path+"/delete", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.postJSON(t, path+"/delete", nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.postJSON(t, "/admin/urls/abc/toggle", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_Users(t *testing.T) {
	srv := newTestServer(t, Config{})
	cookie := srv.login(t)

	rec := srv.get(t, "/admin/users", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	users := decode[[]model.User](t, rec)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)
}

func TestDashboard(t *testing.T) {
	srv := newTestServer(t, Config{})
	cookie := srv.login(t)
	resp := srv.shorten(t, "https://example.com", "")
	srv.get(t, "/"+resp.ShortCode)
	srv.get(t, "/"+resp.ShortCode)

	rec := srv.get(t, "/admin/dashboard/stats", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_urls":1,"total_clicks":2,"active_urls":1,"top_country":"Unknown"}`, rec.Body.String())

	rec = srv.get(t, "/admin/dashboard/recent", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.RecentClick](t, rec), 2)

	rec = srv.get(t, "/admin/dashboard/chart/top-urls", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Chart{Labels: []string{resp.ShortCode}, Clicks: []int64{2}}, decode[model.Chart](t, rec))

	for _, chart := range []string{"clicks-over-time", "geographic-distribution", "device-types"} {
		rec = srv.get(t, "/admin/dashboard/chart/"+chart, cookie)
		assert.Equal(t, http.StatusOK, rec.Code, chart)
	}

	rec = srv.get(t, "/admin/dashboard/chart/pie", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
