package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tbourn/zync-backend/internal/config"
	"github.com/tbourn/zync-backend/internal/domain"
	"github.com/tbourn/zync-backend/internal/ratelimit"
)

func TestOpenStore_Drivers(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		cfg  config.StoreConfig
	}{
		{"sqlite", config.StoreConfig{Driver: config.StoreSQLite, DBPath: filepath.Join(dir, "zync.db")}},
		{"bolt", config.StoreConfig{Driver: config.StoreBolt, BoltPath: filepath.Join(dir, "zync.bolt")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, closer, err := openStore(config.Config{Store: tc.cfg})
			if err != nil {
				t.Fatalf("openStore: %v", err)
			}
			defer closer.Close()

			ctx := context.Background()
			d := &domain.Drop{ID: "abcd1234", Content: "hi", CreatedAt: 1, ExpiresAt: 2}
			if err := store.Insert(ctx, domain.KindNote, d); err != nil {
				t.Fatalf("insert: %v", err)
			}
			got, err := store.Get(ctx, domain.KindNote, "abcd1234")
			if err != nil || got.Content != "hi" {
				t.Fatalf("get = %+v, %v", got, err)
			}
		})
	}
}

func TestOpenStore_Errors(t *testing.T) {
	if _, _, err := openStore(config.Config{Store: config.StoreConfig{Driver: "mongo"}}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	missing := filepath.Join(t.TempDir(), "no", "such", "dir", "zync.db")
	if _, _, err := openStore(config.Config{Store: config.StoreConfig{Driver: config.StoreSQLite, DBPath: missing}}); err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
}

func TestNewCounter_Memory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Config{RateLimit: config.RateLimitConfig{
		Backend: config.RateBackendMemory, Window: time.Minute, Max: 1, Cleanup: time.Minute,
	}}
	c, closer, err := newCounter(ctx, cfg)
	if err != nil {
		t.Fatalf("newCounter: %v", err)
	}
	defer closer.Close()

	if _, ok := c.(*ratelimit.MemoryCounter); !ok {
		t.Fatalf("counter type = %T; want *ratelimit.MemoryCounter", c)
	}
	first, _ := c.Admit(ctx, "ip:1")
	second, _ := c.Admit(ctx, "ip:1")
	if !first.Allowed || second.Allowed {
		t.Fatalf("decisions = %+v, %+v", first, second)
	}
}

func TestNewCounter_RedisUnreachable(t *testing.T) {
	cfg := config.Config{
		RateLimit: config.RateLimitConfig{Backend: config.RateBackendRedis, Window: time.Minute, Max: 1},
		Redis:     config.RedisConfig{Addr: "127.0.0.1:1"},
	}
	if _, _, err := newCounter(context.Background(), cfg); err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestNewCounter_UnknownBackend(t *testing.T) {
	cfg := config.Config{RateLimit: config.RateLimitConfig{Backend: "memcached"}}
	if _, _, err := newCounter(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
