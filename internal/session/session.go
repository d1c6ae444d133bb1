// Package session keeps per-browser dashboard state: the bearer token for the
// booking API, the signed-in user, pending notifications and unsaved
// settings drafts.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/store-dashboard/internal/apiclient"
	"github.com/wolfman30/store-dashboard/internal/notify"
)

// User is the operator returned by the login exchange.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
}

// Session is the server-side state behind one session cookie.
type Session struct {
	ID         string                     `json:"id"`
	Token      string                     `json:"token,omitempty"`
	User       *User                      `json:"user,omitempty"`
	OAuthState string                     `json:"oauth_state,omitempty"`
	Flashes    []notify.Notification      `json:"flashes,omitempty"`
	Drafts     map[string]json.RawMessage `json:"drafts,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`

	previousID string
	destroyed  bool
}

// New returns an empty session with a fresh id.
func New() *Session {
	return &Session{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
}

// Authenticated reports whether a login exchange has stored a token.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// UserID is the signed-in user's id, or "".
func (s *Session) UserID() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.ID
}

// SignIn stores the login result and rotates the session id.
func (s *Session) SignIn(token string, user *User) {
	s.Rotate()
	s.Token = token
	s.User = user
	s.OAuthState = ""
}

// SignOut forgets the token, the user and every draft.
func (s *Session) SignOut() {
	s.Token = ""
	s.User = nil
	s.OAuthState = ""
	s.ClearDrafts()
}

// Rotate assigns a new id; the manager removes the old record on commit.
func (s *Session) Rotate() {
	if s.previousID == "" {
		s.previousID = s.ID
	}
	s.ID = uuid.NewString()
}

// Destroy marks the session for deletion instead of saving.
func (s *Session) Destroy() {
	s.destroyed = true
}

// Push queues a notification for the next rendered page.
func (s *Session) Push(n notify.Notification) {
	s.Flashes = append(s.Flashes, n)
}

// TakeFlashes returns and clears the queued notifications.
func (s *Session) TakeFlashes() []notify.Notification {
	out := s.Flashes
	s.Flashes = nil
	return out
}

// Client binds base to this session's bearer token.
func (s *Session) Client(base *apiclient.Client) *apiclient.Client {
	if s == nil {
		return base.WithToken("")
	}
	return base.WithToken(s.Token)
}

// LoadDraft decodes the draft stored under key into v. It reports false when
// there is no draft.
func (s *Session) LoadDraft(key string, v any) (bool, error) {
	raw, ok := s.Drafts[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("session: decode draft %s: %w", key, err)
	}
	return true, nil
}

// SaveDraft stores v under key.
func (s *Session) SaveDraft(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("session: encode draft %s: %w", key, err)
	}
	if s.Drafts == nil {
		s.Drafts = make(map[string]json.RawMessage)
	}
	s.Drafts[key] = raw
	return nil
}

func (s *Session) ClearDraft(key string) {
	delete(s.Drafts, key)
}

func (s *Session) ClearDrafts() {
	s.Drafts = nil
}
