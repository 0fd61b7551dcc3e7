package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/catalogapi/internal/repo/memory"
	"github.com/geocoder89/catalogapi/internal/resource"
)

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "k", []byte("v"))
	if b, ok, _ := c.Get(ctx, "k"); !ok || string(b) != "v" {
		t.Fatalf("expected hit, got (%q, %v)", b, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after ttl")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be evicted on read")
	}
}

// countingCollection counts reads that reach the inner store.
type countingCollection struct {
	resource.Collection
	reads int
}

func (c *countingCollection) GetByID(ctx context.Context, id int64) (resource.Record, error) {
	c.reads++
	return c.Collection.GetByID(ctx, id)
}

func TestCollectionReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := &countingCollection{Collection: memory.NewRecordsRepo(resource.Food)}
	cached := NewCollection(inner, NewMemory(time.Minute), nil)

	rec, err := cached.Create(ctx, resource.Attributes{"name": "apple", "calories": int64(95)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, err := cached.GetByID(ctx, rec.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Attributes["calories"] != int64(95) {
			t.Fatalf("calories = %#v", got.Attributes["calories"])
		}
	}
	if inner.reads != 1 {
		t.Fatalf("inner reads = %d, want 1", inner.reads)
	}

	if _, err := cached.Update(ctx, rec.ID, resource.Attributes{"name": "pear"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := cached.GetByID(ctx, rec.ID)
	if got.Attributes["name"] != "pear" {
		t.Fatalf("stale read after update: %v", got.Attributes["name"])
	}

	if n, err := cached.Delete(ctx, rec.ID); err != nil || n != 1 {
		t.Fatalf("delete = (%d, %v)", n, err)
	}
	if _, err := cached.GetByID(ctx, rec.ID); !errors.Is(err, resource.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

// pausingCollection holds the first GetByID after it has loaded the row,
// until release is closed.
type pausingCollection struct {
	resource.Collection
	loaded  chan struct{}
	release chan struct{}
	paused  bool
}

func (c *pausingCollection) GetByID(ctx context.Context, id int64) (resource.Record, error) {
	rec, err := c.Collection.GetByID(ctx, id)
	if !c.paused {
		c.paused = true
		close(c.loaded)
		<-c.release
	}
	return rec, err
}

func TestCollectionSlowReadDoesNotRecacheStaleRow(t *testing.T) {
	ctx := context.Background()
	inner := &pausingCollection{
		Collection: memory.NewRecordsRepo(resource.Food),
		loaded:     make(chan struct{}),
		release:    make(chan struct{}),
	}
	cached := NewCollection(inner, NewMemory(time.Minute), nil)

	rec, err := inner.Collection.Create(ctx, resource.Attributes{"name": "apple"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	done := make(chan resource.Record)
	go func() {
		got, _ := cached.GetByID(ctx, rec.ID)
		done <- got
	}()

	// the read has the old row in hand; update lands before it fills the cache
	<-inner.loaded
	if _, err := cached.Update(ctx, rec.ID, resource.Attributes{"name": "pear"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	close(inner.release)

	if old := <-done; old.Attributes["name"] != "apple" {
		t.Fatalf("slow read should return the row it loaded, got %v", old.Attributes["name"])
	}

	got, err := cached.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Attributes["name"] != "pear" {
		t.Fatalf("stale row was cached: name = %v", got.Attributes["name"])
	}
}

func TestRedisIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	c := NewRedis(RedisConfig{Addr: addr, TTL: time.Minute, Prefix: "catalogapi-test:"})
	defer c.Close()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if err := c.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if b, ok, err := c.Get(ctx, "k"); err != nil || !ok || string(b) != "v" {
		t.Fatalf("get = (%q, %v, %v)", b, ok, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, err := c.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected miss after delete, got (%v, %v)", ok, err)
	}
}
