// Package auth signs operators in with Google and exchanges the
// authorization code for a booking API token.
package auth

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/wolfman30/store-dashboard/internal/apiclient"
	"github.com/wolfman30/store-dashboard/internal/audit"
	"github.com/wolfman30/store-dashboard/internal/notify"
	"github.com/wolfman30/store-dashboard/internal/session"
	"github.com/wolfman30/store-dashboard/internal/web"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

// Login error flags carried on /login?error=.
const (
	ErrMissingCode  = "missing_code"
	ErrInvalidState = "invalid_state"
	ErrLoginFailed  = "login_failed"
)

var errorMessages = map[string]string{
	ErrMissingCode:  "Google did not return an authorization code.",
	ErrInvalidState: "The sign-in request expired. Please try again.",
	ErrLoginFailed:  "Sign-in failed.",
}

// LoginResult is the data of POST /auth/login.
type LoginResult struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

type loginRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// NewGoogleConfig returns the authorization-code flow config. Only the
// authorization URL is built here; the booking API redeems the code.
func NewGoogleConfig(clientID, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURL,
		Endpoint:    google.Endpoint,
		Scopes:      []string{"email", "profile"},
	}
}

// LoginPage is the data for the login template.
type LoginPage struct {
	AuthURL string
	Error   string
}

type Handler struct {
	api      *apiclient.Client
	oauth    *oauth2.Config
	renderer *web.Renderer
	relay    *notify.Relay
	audit    *audit.Service
	logger   *logging.Logger
}

func NewHandler(api *apiclient.Client, oauth *oauth2.Config, renderer *web.Renderer, relay *notify.Relay, auditor *audit.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{api: api, oauth: oauth, renderer: renderer, relay: relay, audit: auditor, logger: logger}
}

// Login renders the sign-in page with a fresh state value.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess.Authenticated() {
		http.Redirect(w, r, "/stores", http.StatusSeeOther)
		return
	}
	sess.OAuthState = uuid.NewString()
	h.renderer.Render(w, r, http.StatusOK, "login", "Sign in", LoginPage{
		AuthURL: h.oauth.AuthCodeURL(sess.OAuthState),
		Error:   errorMessages[r.URL.Query().Get("error")],
	})
}

// Callback handles Google's redirect. A missing code or a state mismatch is
// rejected before any call to the booking API.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	q := r.URL.Query()

	code := q.Get("code")
	if code == "" {
		h.logger.Warn("auth: callback without code", "error_param", q.Get("error"))
		redirectLogin(w, r, ErrMissingCode)
		return
	}
	expected := sess.OAuthState
	sess.OAuthState = ""
	if expected == "" || q.Get("state") != expected {
		h.logger.Warn("auth: state mismatch")
		redirectLogin(w, r, ErrInvalidState)
		return
	}

	result, err := apiclient.Post[LoginResult](ctx, h.api, "/auth/login", loginRequest{
		Code:        code,
		RedirectURI: h.oauth.RedirectURL,
	})
	if err == nil && result.Token == "" {
		err = &apiclient.APIError{Method: http.MethodPost, Path: "/auth/login", Code: apiclient.CodeOK, Message: "no token issued"}
	}
	if err != nil {
		h.logger.Error("auth: code exchange failed", "error", err)
		h.relay.Error(ctx, apiclient.Message(err, "Sign-in failed"))
		redirectLogin(w, r, ErrLoginFailed)
		return
	}

	user := result.User
	sess.SignIn(result.Token, &user)
	h.audit.Record(ctx, audit.Event{Action: audit.ActionOperatorLogin, UserID: user.ID})
	h.logger.Info("auth: operator signed in", "user_id", user.ID)
	http.Redirect(w, r, "/stores", http.StatusSeeOther)
}

// Logout forgets the token and every unsaved draft.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	if sess.Authenticated() {
		h.audit.Record(ctx, audit.Event{Action: audit.ActionOperatorLogout, UserID: sess.UserID()})
	}
	sess.SignOut()
	sess.Rotate()
	h.relay.Info(ctx, "Signed out")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func redirectLogin(w http.ResponseWriter, r *http.Request, flag string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(flag), http.StatusSeeOther)
}
