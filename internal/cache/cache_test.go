package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/campusdesk/consulthub/internal/cache"
)

func TestMemoryExpiry(t *testing.T) {
	c := cache.NewMemory(30 * time.Millisecond)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"))

	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Fatalf("expected hit with %q, got %q ok=%v", "v", got, ok)
	}

	time.Sleep(50 * time.Millisecond)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected entry to have expired")
	}
}

func TestMemoryDelete(t *testing.T) {
	c := cache.NewMemory(time.Minute)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))

	c.Delete(ctx, "a", "b")

	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("key a should be gone")
	}
	if _, ok := c.Get(ctx, "b"); ok {
		t.Fatal("key b should be gone")
	}
}

func TestRedisStore(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer srv.Close()

	c := cache.NewRedis(cache.RedisConfig{Addr: srv.Addr(), TTL: time.Minute})
	defer c.Close()

	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatal("expected miss on empty store")
	}

	c.Set(ctx, "k", []byte("v"))

	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Fatalf("expected hit with %q, got %q ok=%v", "v", got, ok)
	}

	c.Delete(ctx, "k")

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected key to be deleted")
	}

	// TTL is enforced by the backend
	c.Set(ctx, "ttl", []byte("x"))
	srv.FastForward(2 * time.Minute)

	if _, ok := c.Get(ctx, "ttl"); ok {
		t.Fatal("expected entry to have expired")
	}
}
