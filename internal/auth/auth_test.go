package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/store-dashboard/internal/apiclient"
	"github.com/wolfman30/store-dashboard/internal/notify"
	"github.com/wolfman30/store-dashboard/internal/session"
	"github.com/wolfman30/store-dashboard/internal/web"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

type fixture struct {
	handler *Handler
	sess    *session.Session
	calls   atomic.Int32
	reply   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{sess: session.New(), reply: `{"code":200,"data":{"token":"tok-1","user":{"id":"u1","username":"ana","email":"ana@example.com"}}}`}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "the-code", body["code"])
		assert.Equal(t, "http://dash.local/auth/google/callback", body["redirect_uri"])
		_, _ = w.Write([]byte(f.reply))
	}))
	t.Cleanup(upstream.Close)

	logger := logging.Discard()
	f.handler = NewHandler(
		apiclient.New(upstream.URL+"/api", apiclient.WithLogger(logger)),
		NewGoogleConfig("client-123", "http://dash.local/auth/google/callback"),
		web.MustRenderer(logger),
		notify.NewRelay(logger),
		nil,
		logger,
	)
	return f
}

func (f *fixture) serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req.WithContext(session.NewContext(req.Context(), f.sess)))
	return rec
}

func TestLoginRendersGoogleURLWithState(t *testing.T) {
	f := newFixture(t)
	rec := f.serve(f.handler.Login, httptest.NewRequest(http.MethodGet, "/login", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, f.sess.OAuthState)
	body := rec.Body.String()
	assert.Contains(t, body, "accounts.google.com")
	assert.Contains(t, body, "client_id=client-123")
	assert.Contains(t, body, "state="+f.sess.OAuthState)
	assert.Contains(t, body, "scope=email+profile")
}

func TestLoginShowsErrorFlag(t *testing.T) {
	f := newFixture(t)
	rec := f.serve(f.handler.Login, httptest.NewRequest(http.MethodGet, "/login?error=missing_code", nil))
	assert.Contains(t, rec.Body.String(), "did not return an authorization code")
}

func TestLoginRedirectsWhenSignedIn(t *testing.T) {
	f := newFixture(t)
	f.sess.Token = "tok"
	rec := f.serve(f.handler.Login, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/stores", rec.Header().Get("Location"))
}

func TestCallbackWithoutCodeSkipsBackend(t *testing.T) {
	f := newFixture(t)
	f.sess.OAuthState = "st"
	rec := f.serve(f.handler.Callback, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=st&error=access_denied", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?error=missing_code", rec.Header().Get("Location"))
	assert.Zero(t, f.calls.Load())
	assert.False(t, f.sess.Authenticated())
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	f := newFixture(t)
	f.sess.OAuthState = "expected"
	rec := f.serve(f.handler.Callback, httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=the-code&state=other", nil))

	assert.Equal(t, "/login?error=invalid_state", rec.Header().Get("Location"))
	assert.Zero(t, f.calls.Load())
	assert.Empty(t, f.sess.OAuthState)
}

func TestCallbackSignsIn(t *testing.T) {
	f := newFixture(t)
	f.sess.OAuthState = "st"
	oldID := f.sess.ID
	rec := f.serve(f.handler.Callback, httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=the-code&state=st", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/stores", rec.Header().Get("Location"))
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, "tok-1", f.sess.Token)
	require.NotNil(t, f.sess.User)
	assert.Equal(t, "ana", f.sess.User.Username)
	assert.NotEqual(t, oldID, f.sess.ID)
}

func TestCallbackBackendFailure(t *testing.T) {
	f := newFixture(t)
	f.reply = `{"code":401,"message":"invalid grant","data":null}`
	f.sess.OAuthState = "st"
	rec := f.serve(f.handler.Callback, httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=the-code&state=st", nil))

	assert.Equal(t, "/login?error=login_failed", rec.Header().Get("Location"))
	assert.False(t, f.sess.Authenticated())
	flashes := f.sess.TakeFlashes()
	require.Len(t, flashes, 1)
	assert.Equal(t, notify.LevelError, flashes[0].Level)
	assert.Equal(t, "invalid grant", flashes[0].Message)
}

func TestCallbackWithoutTokenFails(t *testing.T) {
	f := newFixture(t)
	f.reply = `{"code":200,"data":{"user":{"id":"u1"}}}`
	f.sess.OAuthState = "st"
	rec := f.serve(f.handler.Callback, httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=the-code&state=st", nil))

	assert.Equal(t, "/login?error=login_failed", rec.Header().Get("Location"))
	assert.False(t, f.sess.Authenticated())
}

func TestLogoutClearsTokenAndDrafts(t *testing.T) {
	f := newFixture(t)
	f.sess.SignIn("tok", &session.User{ID: "u1"})
	require.NoError(t, f.sess.SaveDraft("setting-time:s1", map[string]bool{"is_open": true}))

	req := httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader(url.Values{}.Encode()))
	rec := f.serve(f.handler.Logout, req)

	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, f.sess.Authenticated())
	ok, err := f.sess.LoadDraft("setting-time:s1", &map[string]bool{})
	require.NoError(t, err)
	assert.False(t, ok)
}
