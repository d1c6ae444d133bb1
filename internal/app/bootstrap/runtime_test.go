package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/wolfman30/store-dashboard/internal/config"
	"github.com/wolfman30/store-dashboard/internal/session"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.Discard(), true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.Discard(), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	defer client.Close()

	if _, ok := BuildSessionStore(client, logging.Discard()).(*session.RedisStore); !ok {
		t.Fatalf("expected redis session store")
	}

	mr.Close()
	if c := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.Discard(), true); c != nil {
		t.Fatalf("expected nil client for unreachable redis")
	}
}

func TestBuildSessionStoreFallsBackToMemory(t *testing.T) {
	if _, ok := BuildSessionStore(nil, logging.Discard()).(*session.MemoryStore); !ok {
		t.Fatalf("expected memory session store")
	}
}

func TestOpenAuditDBEmptyURLReturnsNil(t *testing.T) {
	if db := OpenAuditDB(context.Background(), " ", logging.Discard()); db != nil {
		t.Fatalf("expected nil db for empty URL")
	}
}

func TestSessionSecret(t *testing.T) {
	secret, err := SessionSecret(&appconfig.Config{SessionSecret: "configured"}, logging.Discard())
	if err != nil || secret != "configured" {
		t.Fatalf("expected configured secret, got %q (%v)", secret, err)
	}

	a, err := SessionSecret(&appconfig.Config{}, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := SessionSecret(&appconfig.Config{}, logging.Discard())
	if len(a) != 64 || a == b {
		t.Fatalf("expected distinct random 32-byte secrets, got %q and %q", a, b)
	}

	if _, err := SessionSecret(&appconfig.Config{Env: "production"}, logging.Discard()); err == nil {
		t.Fatalf("expected error when production has no secret")
	}
}
