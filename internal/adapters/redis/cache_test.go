package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "travel_booking/internal/adapters/redis"
	"travel_booking/internal/domain"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_SetGetDel(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	in := domain.Offer{ID: "o1", Title: "Kreta", Price: domain.Zloty(2499)}
	if err := c.Set(ctx, "offer:o1", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out domain.Offer
	ok, err := c.Get(ctx, "offer:o1", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.ID != "o1" || out.Price != domain.Zloty(2499) {
		t.Fatalf("unexpected value: %+v", out)
	}

	if err := c.Del(ctx, "offer:o1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	ok, err = c.Get(ctx, "offer:o1", &out)
	if err != nil || ok {
		t.Fatalf("expected miss after delete, ok=%v err=%v", ok, err)
	}
}

func TestCache_TTLAndPrefix(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "offer:o2", map[string]int{"a": 1}, 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("travel:offer:o2") {
		t.Fatalf("expected prefixed key in redis, keys=%v", mr.Keys())
	}
	mr.FastForward(31 * time.Second)

	var out map[string]int
	if ok, _ := c.Get(ctx, "offer:o2", &out); ok {
		t.Fatalf("expected expiry after ttl")
	}
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := newCache(t)
	if err := mr.Set("travel:offer:bad", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var out domain.Offer
	ok, err := c.Get(context.Background(), "offer:bad", &out)
	if err != nil || ok {
		t.Fatalf("corrupt entry should be a miss, ok=%v err=%v", ok, err)
	}
	if mr.Exists("travel:offer:bad") {
		t.Fatalf("corrupt entry should be dropped")
	}
}
