// Package web renders the dashboard's HTML pages and decodes its forms.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/wolfman30/store-dashboard/internal/notify"
	"github.com/wolfman30/store-dashboard/internal/session"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is the value every template executes against.
type Page struct {
	Title   string
	Flashes []notify.Notification
	User    *session.User
	Data    any
}

// Renderer executes embedded page templates inside the shared layout.
type Renderer struct {
	pages  map[string]*template.Template
	logger *logging.Logger
}

var funcs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"yesno": func(v int) string {
		if v != 0 {
			return "Yes"
		}
		return "No"
	},
}

// NewRenderer parses every page under templates/ together with layout.html.
func NewRenderer(logger *logging.Logger) (*Renderer, error) {
	if logger == nil {
		logger = logging.Default()
	}
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: list templates: %w", err)
	}
	r := &Renderer{pages: make(map[string]*template.Template), logger: logger}
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" || strings.HasPrefix(base, "_") {
			continue
		}
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/_*.html", name)
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", base, err)
		}
		r.pages[strings.TrimSuffix(base, ".html")] = tmpl
	}
	return r, nil
}

// MustRenderer is NewRenderer for process start-up and tests.
func MustRenderer(logger *logging.Logger) *Renderer {
	r, err := NewRenderer(logger)
	if err != nil {
		panic(err)
	}
	return r
}

// Render writes page with status. Pending notifications are drained from the
// request's session into the page.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, page, title string, data any) {
	tmpl, ok := r.pages[page]
	if !ok {
		r.logger.Error("web: unknown page", "page", page)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	p := Page{Title: title, Data: data}
	if sess := session.FromContext(req.Context()); sess != nil {
		p.Flashes = sess.TakeFlashes()
		p.User = sess.User
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		r.logger.Error("web: render failed", "page", page, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// ErrorPage is the data for the generic error template.
type ErrorPage struct {
	Message string
	Back    string
}

// Error renders the error page.
func (r *Renderer) Error(w http.ResponseWriter, req *http.Request, status int, message, back string) {
	r.Render(w, req, status, "error", http.StatusText(status), ErrorPage{Message: message, Back: back})
}
