package bootstrap

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/store-dashboard/internal/config"
	"github.com/wolfman30/store-dashboard/internal/session"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore keeps sessions in Redis when a client is available and
// in process memory otherwise.
func BuildSessionStore(redisClient *redis.Client, logger *logging.Logger) session.Store {
	if redisClient != nil {
		return session.NewRedisStore(redisClient)
	}
	if logger == nil {
		logger = logging.Default()
	}
	logger.Warn("REDIS_ADDR not set; sessions are kept in memory and lost on restart")
	return session.NewMemoryStore()
}

// OpenAuditDB connects to the operator audit database. It returns nil when
// no DATABASE_URL is configured or the database cannot be reached; the audit
// service then only logs.
func OpenAuditDB(ctx context.Context, databaseURL string, logger *logging.Logger) *sql.DB {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		logger.Warn("audit database disabled", "error", err)
		return nil
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Warn("audit database not reachable", "error", err)
		_ = db.Close()
		return nil
	}
	return db
}

// SessionSecret returns the configured cookie signing secret, or a random
// one when unset. A random secret signs every operator out on restart.
func SessionSecret(cfg *appconfig.Config, logger *logging.Logger) (string, error) {
	if cfg != nil && strings.TrimSpace(cfg.SessionSecret) != "" {
		return cfg.SessionSecret, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg != nil && cfg.IsProduction() {
		return "", fmt.Errorf("bootstrap: SESSION_SECRET is required in production")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("bootstrap: generate session secret: %w", err)
	}
	logger.Warn("SESSION_SECRET not set; using a random secret for this process")
	return hex.EncodeToString(buf), nil
}
