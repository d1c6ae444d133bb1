package router

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/store-dashboard/internal/auth"
	httpmiddleware "github.com/wolfman30/store-dashboard/internal/http/middleware"
	"github.com/wolfman30/store-dashboard/internal/session"
	"github.com/wolfman30/store-dashboard/internal/stores"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

// Mountable is a handler that serves a subtree.
type Mountable interface {
	Routes() chi.Router
}

// Config holds router configuration
type Config struct {
	Logger   *logging.Logger
	Sessions *session.Manager

	Auth     *auth.Handler
	Stores   *stores.Handler
	Staff    Mountable
	Courses  Mountable
	Settings Mountable
	Chat     Mountable

	MetricsHandler http.Handler
	RateLimiter    *httpmiddleware.RateLimiter
	AllowedOrigins []string

	// Health reports dependency problems; nil means always healthy.
	Health func(context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.RateLimiter != nil {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
	}
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(httpmiddleware.SameOrigin(cfg.AllowedOrigins))
	}

	// Public endpoints (no session)
	r.Get("/health", healthHandler(cfg.Health))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(app chi.Router) {
		app.Use(cfg.Sessions.Middleware)

		app.Get("/login", cfg.Auth.Login)
		app.Get("/auth/google/callback", cfg.Auth.Callback)

		app.Group(func(signedIn chi.Router) {
			signedIn.Use(httpmiddleware.RequireAuth("/login"))
			signedIn.Use(noStore)

			signedIn.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/stores", http.StatusSeeOther)
			})
			signedIn.Post("/logout", cfg.Auth.Logout)

			storeRoutes := cfg.Stores.Routes()
			if cfg.Staff != nil {
				storeRoutes.Mount("/{storeID}/staffs", cfg.Staff.Routes())
			}
			if cfg.Courses != nil {
				storeRoutes.Mount("/{storeID}/courses", cfg.Courses.Routes())
			}
			if cfg.Settings != nil {
				storeRoutes.Mount("/{storeID}/setting", cfg.Settings.Routes())
			}
			signedIn.Mount("/stores", storeRoutes)

			if cfg.Chat != nil {
				signedIn.Mount("/conversations", cfg.Chat.Routes())
			}
		})
	})

	return r
}

func healthHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, map[string]string{"status": "ok"}
		if check != nil {
			if err := check(r.Context()); err != nil {
				status, body = http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
