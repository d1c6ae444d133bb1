package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/store-dashboard/internal/api/router"
	"github.com/wolfman30/store-dashboard/internal/apiclient"
	"github.com/wolfman30/store-dashboard/internal/app/bootstrap"
	"github.com/wolfman30/store-dashboard/internal/audit"
	"github.com/wolfman30/store-dashboard/internal/auth"
	"github.com/wolfman30/store-dashboard/internal/chat"
	appconfig "github.com/wolfman30/store-dashboard/internal/config"
	"github.com/wolfman30/store-dashboard/internal/courses"
	httpmiddleware "github.com/wolfman30/store-dashboard/internal/http/middleware"
	"github.com/wolfman30/store-dashboard/internal/notify"
	"github.com/wolfman30/store-dashboard/internal/observability/metrics"
	"github.com/wolfman30/store-dashboard/internal/session"
	"github.com/wolfman30/store-dashboard/internal/settings"
	"github.com/wolfman30/store-dashboard/internal/staff"
	"github.com/wolfman30/store-dashboard/internal/stores"
	"github.com/wolfman30/store-dashboard/internal/web"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting store dashboard",
		"env", cfg.Env,
		"port", cfg.Port,
		"api_base_url", cfg.APIBaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, cleanup, err := buildApp(ctx, cfg, logger, prometheus.NewRegistry())
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.APITimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", "error", err)
		cleanup()
		os.Exit(1)
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		cleanup()
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildApp wires every dependency and returns the root handler. cleanup
// releases connections and background goroutines.
func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg *prometheus.Registry) (http.Handler, func(), error) {
	secret, err := bootstrap.SessionSecret(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	upstreamMetrics := metrics.NewUpstreamMetrics(reg)
	settingsMetrics := metrics.NewSettingsMetrics(reg)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	sessionStore := bootstrap.BuildSessionStore(redisClient, logger)
	auditDB := bootstrap.OpenAuditDB(ctx, cfg.DatabaseURL, logger)
	auditor := audit.NewService(auditDB, logger)

	renderer, err := web.NewRenderer(logger)
	if err != nil {
		return nil, nil, err
	}
	relay := notify.NewRelay(logger)
	client := apiclient.New(cfg.APIBaseURL,
		apiclient.WithTimeout(cfg.APITimeout),
		apiclient.WithLogger(logger),
		apiclient.WithMetrics(upstreamMetrics),
	)
	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	var health func(context.Context) error
	if redisClient != nil {
		health = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	handler := router.New(&router.Config{
		Logger: logger,
		Sessions: session.NewManager(sessionStore, session.NewCodec(secret), session.Options{
			TTL:    cfg.SessionTTL,
			Secure: cfg.CookieSecure || strings.HasPrefix(cfg.PublicBaseURL, "https://"),
		}, logger),
		Auth:           auth.NewHandler(client, auth.NewGoogleConfig(cfg.GoogleClientID, cfg.OAuthRedirectURL()), renderer, relay, auditor, logger),
		Stores:         stores.NewHandler(client, renderer, relay, auditor, logger),
		Staff:          staff.NewHandler(client, renderer, relay, auditor, logger),
		Courses:        courses.NewHandler(client, renderer, relay, auditor, logger),
		Settings:       settings.NewHandler(client, renderer, relay, settingsMetrics, auditor, logger),
		Chat:           chat.NewHandler(client, renderer, relay, logger),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		RateLimiter:    limiter,
		AllowedOrigins: []string{cfg.PublicBaseURL},
		Health:         health,
	})

	cleanup := func() {
		limiter.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if auditDB != nil {
			_ = auditDB.Close()
		}
	}
	return handler, cleanup, nil
}
