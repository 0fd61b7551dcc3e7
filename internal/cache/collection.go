package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"

	"github.com/geocoder89/catalogapi/internal/resource"
)

// Collection wraps a resource.Collection with a read-through cache for
// single-record reads. Writes go straight to the inner collection and drop
// the cached entry. Cache failures are logged and never fail the request.
//
// A read fills the cache only if no write finished while it was loading, so
// a slow read cannot put back a row that an update just invalidated. The
// guard is per process; with several instances on one redis a stale entry can
// still live for one TTL.
type Collection struct {
	resource.Collection
	store Store
	log   *slog.Logger

	// mu orders cache fills against invalidations; gen counts finished writes.
	mu  sync.Mutex
	gen uint64
}

func NewCollection(inner resource.Collection, store Store, log *slog.Logger) *Collection {
	if log == nil {
		log = slog.Default()
	}
	return &Collection{Collection: inner, store: store, log: log}
}

func (c *Collection) key(id int64) string {
	return "record:" + c.Schema().Name + ":" + strconv.FormatInt(id, 10)
}

func (c *Collection) GetByID(ctx context.Context, id int64) (resource.Record, error) {
	key := c.key(id)

	b, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.WarnContext(ctx, "cache_get_failed", "key", key, "err", err)
	}
	if ok {
		var rec resource.Record
		if err := json.Unmarshal(b, &rec); err == nil {
			return rec, nil
		}
		_ = c.store.Delete(ctx, key)
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	rec, err := c.Collection.GetByID(ctx, id)
	if err != nil {
		return resource.Record{}, err
	}

	b, err = json.Marshal(rec)
	if err != nil {
		return rec, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		// a write landed while we were loading; rec may already be stale
		return rec, nil
	}
	if err := c.store.Set(ctx, key, b); err != nil {
		c.log.WarnContext(ctx, "cache_set_failed", "key", key, "err", err)
	}
	return rec, nil
}

func (c *Collection) Update(ctx context.Context, id int64, attrs resource.Attributes) (resource.Record, error) {
	rec, err := c.Collection.Update(ctx, id, attrs)
	c.invalidate(ctx, id)
	return rec, err
}

func (c *Collection) Delete(ctx context.Context, id int64) (int64, error) {
	n, err := c.Collection.Delete(ctx, id)
	c.invalidate(ctx, id)
	return n, err
}

func (c *Collection) invalidate(ctx context.Context, id int64) {
	key := c.key(id)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	if err := c.store.Delete(ctx, key); err != nil {
		c.log.WarnContext(ctx, "cache_delete_failed", "key", key, "err", err)
	}
}
