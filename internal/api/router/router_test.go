package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/store-dashboard/internal/apiclient/apitest"
	"github.com/wolfman30/store-dashboard/internal/auth"
	"github.com/wolfman30/store-dashboard/internal/chat"
	"github.com/wolfman30/store-dashboard/internal/courses"
	"github.com/wolfman30/store-dashboard/internal/notify"
	"github.com/wolfman30/store-dashboard/internal/session"
	"github.com/wolfman30/store-dashboard/internal/settings"
	"github.com/wolfman30/store-dashboard/internal/staff"
	"github.com/wolfman30/store-dashboard/internal/stores"
	"github.com/wolfman30/store-dashboard/internal/web"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

type testApp struct {
	api     *apitest.Server
	handler http.Handler
	store   *session.MemoryStore
	codec   *session.Codec
}

func newTestApp(t *testing.T, health func(context.Context) error) *testApp {
	t.Helper()
	logger := logging.Discard()
	app := &testApp{
		api:   apitest.New(t),
		store: session.NewMemoryStore(),
		codec: session.NewCodec("router-test-secret"),
	}
	client := app.api.Client()
	renderer := web.MustRenderer(logger)
	relay := notify.NewRelay(logger)

	app.handler = New(&Config{
		Logger:   logger,
		Sessions: session.NewManager(app.store, app.codec, session.Options{TTL: time.Hour}, logger),
		Auth:     auth.NewHandler(client, auth.NewGoogleConfig("cid", "http://dash.local/auth/google/callback"), renderer, relay, nil, logger),
		Stores:   stores.NewHandler(client, renderer, relay, nil, logger),
		Staff:    staff.NewHandler(client, renderer, relay, nil, logger),
		Courses:  courses.NewHandler(client, renderer, relay, nil, logger),
		Settings: settings.NewHandler(client, renderer, relay, nil, nil, logger),
		Chat:     chat.NewHandler(client, renderer, relay, logger),
		Health:   health,
	})
	return app
}

// signIn stores an authenticated session and returns its cookie.
func (a *testApp) signIn(t *testing.T) *http.Cookie {
	t.Helper()
	sess := session.New()
	sess.Token = "tok-router"
	sess.User = &session.User{ID: "u1", Username: "ana"}
	require.NoError(t, a.store.Save(context.Background(), sess, time.Hour))
	value, err := a.codec.Encode(sess.ID, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: session.DefaultCookieName, Value: value}
}

func (a *testApp) do(method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthEndpoint(t *testing.T) {
	app := newTestApp(t, nil)
	rr := app.do(http.MethodGet, "/health", nil, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Errorf("health check should not create a session")
	}
}

func TestRouterHealthReportsDegraded(t *testing.T) {
	app := newTestApp(t, func(context.Context) error { return errors.New("redis down") })
	rr := app.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "redis down")
}

func TestRouterRedirectsAnonymousToLogin(t *testing.T) {
	app := newTestApp(t, nil)
	for _, target := range []string{"/", "/stores", "/stores/s1/management", "/conversations"} {
		rr := app.do(http.MethodGet, target, nil, nil)
		assert.Equal(t, http.StatusSeeOther, rr.Code, target)
		assert.Equal(t, "/login", rr.Header().Get("Location"), target)
	}
	assert.Empty(t, app.api.Requests())
}

func TestRouterLoginIsPublic(t *testing.T) {
	app := newTestApp(t, nil)
	rr := app.do(http.MethodGet, "/login", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "accounts.google.com")
	require.Len(t, rr.Result().Cookies(), 1)
}

func TestRouterCallbackWithoutCode(t *testing.T) {
	app := newTestApp(t, nil)
	rr := app.do(http.MethodGet, "/auth/google/callback", nil, nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login?error=missing_code", rr.Header().Get("Location"))
	assert.Empty(t, app.api.Requests())
}

func TestRouterLoginFlow(t *testing.T) {
	app := newTestApp(t, nil)
	app.api.SetDoc("/auth/login", auth.LoginResult{Token: "tok-new", User: session.User{ID: "u9", Username: "bo"}})

	rr := app.do(http.MethodGet, "/login", nil, nil)
	cookie := rr.Result().Cookies()[0]
	match := regexp.MustCompile(`state=([0-9a-f-]+)`).FindStringSubmatch(rr.Body.String())
	require.Len(t, match, 2)
	state := match[1]

	rr = app.do(http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil, cookie)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/stores", rr.Header().Get("Location"))
	cookie = rr.Result().Cookies()[0]

	rr = app.do(http.MethodGet, "/stores", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	reqs := app.api.Requests()
	assert.Equal(t, "Bearer tok-new", reqs[len(reqs)-1].Auth)
}

func TestRouterRootRedirectsToStores(t *testing.T) {
	app := newTestApp(t, nil)
	rr := app.do(http.MethodGet, "/", nil, app.signIn(t))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/stores", rr.Header().Get("Location"))
}

func TestRouterConfirmedStaffDeleteRefetchesList(t *testing.T) {
	app := newTestApp(t, nil)
	app.api.Seed("/stores", "s1", stores.Store{Name: "Downtown"})
	app.api.Seed("/stores/s1/staffs", "7", staff.Staff{Name: "Mia", Active: 1})
	app.api.Seed("/stores/s1/staffs", "8", staff.Staff{Name: "Noah", Active: 1})
	cookie := app.signIn(t)

	rr := app.do(http.MethodPost, "/stores/s1/staffs/7/delete", url.Values{"confirm": {"yes"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	location := rr.Header().Get("Location")
	require.Equal(t, "/stores/s1/management?action=staff", location)

	rr = app.do(http.MethodGet, location, nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.NotContains(t, body, "Mia")
	assert.Contains(t, body, "Noah")
	assert.Contains(t, body, "Staff deleted")

	deleteAt, listAt := -1, -1
	for i, r := range app.api.Requests() {
		switch {
		case r.Method == http.MethodDelete && r.Path == "/stores/s1/staffs/7":
			deleteAt = i
		case r.Method == http.MethodGet && r.Path == "/stores/s1/staffs":
			listAt = i
		}
	}
	require.GreaterOrEqual(t, deleteAt, 0)
	assert.Greater(t, listAt, deleteAt)
	assert.False(t, app.api.Has("/stores/s1/staffs", "7"))
}

func TestRouterSettingsMounted(t *testing.T) {
	app := newTestApp(t, nil)
	rr := app.do(http.MethodGet, "/stores/s1/setting?action=setting-slot", nil, app.signIn(t))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `name="slot_duration"`)
	assert.Equal(t, 1, app.api.Count(http.MethodGet, "/stores/s1/setting-slot"))
}

func TestRouterLogout(t *testing.T) {
	app := newTestApp(t, nil)
	cookie := app.signIn(t)

	rr := app.do(http.MethodPost, "/logout", url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = app.do(http.MethodGet, "/stores", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}
