package reports

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func newTestCache(t *testing.T) (*Cache, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	return cache, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestCacheFetchJSONPopulatesOnce(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()
	ctx := context.Background()

	calls := 0
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return map[string]string{"value": "first"}, nil
	}
	key, err := cache.BuildKey(ctx, "reports", "tb", "1")
	if err != nil {
		t.Fatalf("build key: %v", err)
	}
	var out map[string]string
	if err := cache.FetchJSON(ctx, key, &out, loader); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if err := cache.FetchJSON(ctx, key, &out, loader); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected loader called once, got %d", calls)
	}
	if out["value"] != "first" {
		t.Fatalf("unexpected cached value: %+v", out)
	}
}

func TestCacheBumpChangesKeys(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "reports", "tb", "1")
	if err != nil {
		t.Fatalf("build key: %v", err)
	}
	if err := cache.Bump(ctx); err != nil {
		t.Fatalf("bump: %v", err)
	}
	after, err := cache.BuildKey(ctx, "reports", "tb", "1")
	if err != nil {
		t.Fatalf("build key after bump: %v", err)
	}
	if before == after {
		t.Fatalf("expected bump to change key, both %q", before)
	}
}

func TestCacheBumpIsTenantScoped(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()
	orgOne := shared.ContextWithTenant(context.Background(), shared.Tenant{OrgID: 1, ActorID: 7})
	orgTwo := shared.ContextWithTenant(context.Background(), shared.Tenant{OrgID: 2, ActorID: 7})

	oneBefore, err := cache.BuildKey(orgOne, "reports", "tb", "1")
	if err != nil {
		t.Fatalf("build key org 1: %v", err)
	}
	twoBefore, err := cache.BuildKey(orgTwo, "reports", "tb", "2")
	if err != nil {
		t.Fatalf("build key org 2: %v", err)
	}
	if err := cache.Bump(orgOne); err != nil {
		t.Fatalf("bump org 1: %v", err)
	}
	oneAfter, err := cache.BuildKey(orgOne, "reports", "tb", "1")
	if err != nil {
		t.Fatalf("build key org 1 after bump: %v", err)
	}
	twoAfter, err := cache.BuildKey(orgTwo, "reports", "tb", "2")
	if err != nil {
		t.Fatalf("build key org 2 after bump: %v", err)
	}
	if oneBefore == oneAfter {
		t.Fatalf("expected bump to change org 1 key, both %q", oneBefore)
	}
	if twoBefore != twoAfter {
		t.Fatalf("expected org 2 key untouched, got %q then %q", twoBefore, twoAfter)
	}
}

func TestCacheNilClientFallsThrough(t *testing.T) {
	var cache *Cache
	ctx := context.Background()
	loader := func(ctx context.Context) (interface{}, error) {
		return []int{1, 2, 3}, nil
	}
	var out []int
	if err := cache.FetchJSON(ctx, "any", &out, loader); err != nil {
		t.Fatalf("nil cache fetch: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected loader result, got %v", out)
	}
}
