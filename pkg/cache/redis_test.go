package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	rc, err := NewRedisCache(WithRedisHost(mr.Host()), WithRedisPort(port), WithRedisPrefix("test"))
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestRedisCache_RoundTripWithPrefix(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)

	if err := rc.Set(ctx, "intraday:AAPL", sample{Symbol: "AAPL", Closes: []float64{170.1}}, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists("test:intraday:AAPL") {
		t.Fatal("key not stored under prefix")
	}
	if ttl := mr.TTL("test:intraday:AAPL"); ttl != 0 {
		t.Errorf("ttl = %v, want none", ttl)
	}

	var out sample
	if err := rc.Get(ctx, "intraday:AAPL", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Symbol != "AAPL" || out.Closes[0] != 170.1 {
		t.Errorf("got %+v", out)
	}
}

func TestRedisCache_MissAndTTL(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)

	var out sample
	if err := rc.Get(ctx, "absent", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	_ = rc.Set(ctx, "short", sample{Symbol: "X"}, time.Minute)
	mr.FastForward(2 * time.Minute)
	if err := rc.Get(ctx, "short", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired miss, got %v", err)
	}
}

func TestRedisCache_DeleteAndExists(t *testing.T) {
	ctx := context.Background()
	rc, _ := newTestRedis(t)

	_ = rc.Set(ctx, "k", 1, 0)
	if ok, err := rc.Exists(ctx, "k"); err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if err := rc.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := rc.Exists(ctx, "k"); ok {
		t.Error("key still exists after delete")
	}
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	port, _ := strconv.Atoi(mr.Port())
	host := mr.Host()
	mr.Close()
	if _, err := NewRedisCache(WithRedisHost(host), WithRedisPort(port)); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestLayeredCache_PromotesFromRedis(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)

	// written by another replica
	_ = rc.Set(ctx, "historical:MSFT:1y", sample{Symbol: "MSFT"}, 0)

	lc := NewLayeredCache(rc, WithLayeredMemorySize(10))
	defer lc.memCache.Close()

	var out sample
	if err := lc.Get(ctx, "historical:MSFT:1y", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Symbol != "MSFT" {
		t.Errorf("got %+v", out)
	}

	// served from L1 once Redis loses the key
	mr.Del("test:historical:MSFT:1y")
	var again sample
	if err := lc.Get(ctx, "historical:MSFT:1y", &again); err != nil || again.Symbol != "MSFT" {
		t.Fatalf("expected L1 hit, got %+v, %v", again, err)
	}
}

func TestLayeredCache_PromotionKeepsRemoteTTL(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)
	lc := NewLayeredCache(rc)
	defer lc.memCache.Close()

	_ = rc.Set(ctx, "intraday:AAPL", sample{Symbol: "AAPL"}, time.Minute)
	mr.FastForward(20 * time.Second)

	var out sample
	if err := lc.Get(ctx, "intraday:AAPL", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}

	lc.memCache.mutex.Lock()
	item := lc.memCache.data["intraday:AAPL"]
	lc.memCache.mutex.Unlock()
	if item == nil || item.expireAt.IsZero() {
		t.Fatal("promoted entry should expire")
	}
	if left := time.Until(item.expireAt); left > 41*time.Second || left < 30*time.Second {
		t.Errorf("promoted ttl = %v, want about 40s", left)
	}

	if d, err := rc.TTL(ctx, "absent"); !errors.Is(err, ErrCacheMiss) || d != 0 {
		t.Errorf("TTL(absent) = %v, %v", d, err)
	}
}

func TestLayeredCache_WriteThrough(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)
	lc := NewLayeredCache(rc)
	defer lc.memCache.Close()

	if err := lc.Set(ctx, "intraday:AAPL", sample{Symbol: "AAPL"}, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists("test:intraday:AAPL") {
		t.Error("value not written to redis")
	}
	if ok, _ := lc.memCache.Exists(ctx, "intraday:AAPL"); !ok {
		t.Error("value not written to memory")
	}
}
