package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a read-through cache over Redis keyed by typed logical queries.
// Concurrent reads for the same key share a single underlying fetch. An
// invalidation that lands while a fetch is in flight keeps that fetch's
// result out of the cache and out of later reads: the superseded result is
// never stored, and reads issued after the invalidation run a fresh fetch
// instead of joining the old one.
//
// Redis being down degrades every read to a direct fetch; it never fails a
// request. The cache provides read-your-writes within one client session
// only. It has no conflict detection; racing writers fall through to the
// store's own last-write-wins behavior.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration

	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

// New creates a Cache using the provided Redis client and entry TTL. A nil
// client yields a cache that always fetches but still coalesces concurrent
// reads. A zero TTL disables storing.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		redis: client,
		ttl:   ttl,
		gens:  make(map[string]uint64),
	}
}

// Read returns the cached value for key when present, and otherwise runs
// fetch exactly once across concurrent callers, stores the result, and
// returns it. fetch must be an idempotent read against the store.
func Read[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return fetch(ctx)
	}

	if data, ok := c.load(ctx, key); ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		// Corrupt entry; drop it and fall through to a fetch.
		c.drop(ctx, key)
	}

	res, err, _ := c.group.Do(key.String(), func() (any, error) {
		start := c.generation(key)
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		// Only publish the result if no invalidation raced the fetch.
		if c.generation(key) == start {
			c.store(ctx, key, v)
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

// Invalidate marks the given keys stale. The next Read for each key fetches
// from the store again; other keys are untouched.
func (c *Cache) Invalidate(ctx context.Context, keys ...Key) {
	if c == nil || len(keys) == 0 {
		return
	}
	names := make([]string, len(keys))
	c.mu.Lock()
	for i, k := range keys {
		name := k.String()
		names[i] = name
		c.gens[name]++
		// Detach any in-flight fetch so a read issued after this point runs
		// its own fetch instead of joining one that predates the write.
		c.group.Forget(name)
	}
	c.mu.Unlock()

	if c.redis != nil {
		_, _ = c.redis.Del(ctx, names...).Result()
	}
}

func (c *Cache) generation(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key.String()]
}

func (c *Cache) load(ctx context.Context, key Key) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			// Redis trouble: treat as a miss and clear whatever is there.
			c.drop(ctx, key)
		}
		return nil, false
	}
	return data, true
}

func (c *Cache) store(ctx context.Context, key Key, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key.String(), data, c.ttl).Err()
}

func (c *Cache) drop(ctx context.Context, key Key) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, key.String()).Err()
}
