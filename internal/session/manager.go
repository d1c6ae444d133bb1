package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/wolfman30/store-dashboard/internal/notify"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

const DefaultCookieName = "dashboard_session"

// Options tune cookie behaviour.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager loads the session for each request and commits it before the
// response is written.
type Manager struct {
	store  Store
	codec  *Codec
	opts   Options
	logger *logging.Logger
}

func NewManager(store Store, codec *Codec, opts Options, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	return &Manager{store: store, codec: codec, opts: opts, logger: logger}
}

type ctxKey struct{}

// NewContext attaches sess to ctx and makes it the notification sink.
func NewContext(ctx context.Context, sess *Session) context.Context {
	ctx = context.WithValue(ctx, ctxKey{}, sess)
	return notify.WithSink(ctx, sess)
}

// FromContext returns the request's session, or nil outside the middleware.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(ctxKey{}).(*Session)
	return sess
}

// Load resolves the session named by the request cookie. A missing,
// tampered or expired cookie yields a new empty session.
func (m *Manager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return New()
	}
	id, err := m.codec.Decode(cookie.Value)
	if err != nil {
		m.logger.Debug("session: rejected cookie", "error", err)
		return New()
	}
	sess, err := m.store.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Error("session: load failed", "error", err)
		}
		return New()
	}
	return sess
}

// Commit persists sess and writes its cookie onto w's headers. It must run
// before the status line is written.
func (m *Manager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess.previousID != "" {
		if err := m.store.Delete(ctx, sess.previousID); err != nil {
			m.logger.Warn("session: delete rotated session failed", "error", err)
		}
		sess.previousID = ""
	}
	if sess.destroyed {
		if err := m.store.Delete(ctx, sess.ID); err != nil {
			return err
		}
		http.SetCookie(w, m.cookie("", -1))
		return nil
	}
	if err := m.store.Save(ctx, sess, m.opts.TTL); err != nil {
		return err
	}
	value, err := m.codec.Encode(sess.ID, m.opts.TTL)
	if err != nil {
		return err
	}
	http.SetCookie(w, m.cookie(value, int(m.opts.TTL.Seconds())))
	return nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Middleware makes the session available via FromContext and commits it
// exactly once, just before the first byte of the response.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.Load(r)
		ctx := NewContext(r.Context(), sess)
		cw := &commitWriter{ResponseWriter: w}
		cw.commit = func() {
			if err := m.Commit(ctx, w, sess); err != nil {
				m.logger.Error("session: commit failed", "error", err, "path", r.URL.Path)
			}
		}
		next.ServeHTTP(cw, r.WithContext(ctx))
		cw.once.Do(cw.commit)
	})
}

type commitWriter struct {
	http.ResponseWriter
	once   sync.Once
	commit func()
}

func (w *commitWriter) WriteHeader(status int) {
	w.once.Do(w.commit)
	w.ResponseWriter.WriteHeader(status)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	w.once.Do(w.commit)
	return w.ResponseWriter.Write(b)
}

func (w *commitWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
