package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSessionLifecycle drives login, a protected page, inactivity expiry
// and the follow up login page through the full middleware stack.
func TestSessionLifecycle(t *testing.T) {
	api := newAuthAPI(t)
	clock := newFakeClock()
	timer := &fakeTimer{}
	sink := &recordingSink{}

	api.handle(loginPath, loginOK(signedToken(t, clock.Now().Add(time.Hour)), "refresh-1"))

	cfg := DefaultConfig{AuthBaseURL: api.srv.URL, CSRFEnabled: true}
	manager, err := NewManager(cfg, newMemBackend(), newMemBackend(),
		WithLogger(quietLogger{}),
		WithClock(clock.Now),
		WithTimer(timer.Func),
		WithActivitySink(sink),
	)
	require.NoError(t, err)
	defer manager.Close()

	auther, err := NewHTTPAuthenticator(manager)
	require.NoError(t, err)

	srv := NewFiberServer()
	app := srv.WrappedRouter()
	UseDefaultMiddleware(app, cfg)
	RegisterAuthRoutes(srv.Router(), WithAuthenticator(auther))
	srv.Init()

	var csrfToken string
	var visitor string
	var flashed string

	do := func(method, target string, form url.Values) *http.Response {
		t.Helper()
		var body *strings.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		} else {
			body = strings.NewReader("")
		}
		req := httptest.NewRequest(method, target, body)
		if form != nil {
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
		}
		if csrfToken != "" {
			req.AddCookie(&http.Cookie{Name: "coachpro_csrf", Value: csrfToken})
		}
		if visitor != "" {
			req.AddCookie(&http.Cookie{Name: defaultVisitorCookieName, Value: visitor})
		}
		if flashed != "" {
			req.AddCookie(&http.Cookie{Name: defaultFlashCookieName, Value: flashed})
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)

		for _, c := range resp.Cookies() {
			switch c.Name {
			case "coachpro_csrf":
				csrfToken = c.Value
			case defaultVisitorCookieName:
				visitor = c.Value
			case defaultFlashCookieName:
				flashed = c.Value
			}
		}
		return resp
	}

	resp := do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = do(http.MethodGet, resp.Header.Get(fiber.HeaderLocation), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, csrfToken)
	body := readBody(t, resp)
	assert.Contains(t, body, `value="`+csrfToken+`"`)
	assert.Contains(t, body, NoticeLoginRequired)
	assert.Empty(t, flashed)

	creds := url.Values{
		"email":    {"ada@coachpro.test"},
		"password": {"secret1"},
		"next":     {"/dashboard"},
	}

	resp = do(http.MethodPost, "/login", creds)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, api.callCount(loginPath))

	creds.Set(csrfFormField, csrfToken)
	resp = do(http.MethodPost, "/login", creds)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get(fiber.HeaderLocation))
	require.NotEmpty(t, visitor)

	resp = do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Welcome, Ada")

	clock.Advance(30 * time.Minute)
	timer.FireAll()
	assert.False(t, manager.Store(visitor).HasSession(context.Background()))

	resp = do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))

	resp = do(http.MethodGet, "/login", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, strings.Count(readBody(t, resp), NoticeSessionExpired))

	resp = do(http.MethodGet, "/login", nil)
	assert.NotContains(t, readBody(t, resp), NoticeSessionExpired)

	assert.Equal(t, 1, sink.count(ActivityEventLoginSuccess))
	assert.Equal(t, 1, sink.count(ActivityEventSessionExpired))
}
