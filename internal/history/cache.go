package history

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/synthetics-engine/internal/metrics"
)

// PageCache stores encoded history pages by key. Implementations must be
// safe for concurrent use. A failed lookup is reported as a miss.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, page []byte)
}

// MemoryPageCache is a size-bounded LRU with a per-entry TTL.
type MemoryPageCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List
	now      func() time.Time
}

type pageEntry struct {
	key       string
	page      []byte
	expiresAt time.Time
}

// NewMemoryPageCache creates a cache holding at most capacity pages. A
// non-positive ttl keeps pages until they are evicted.
func NewMemoryPageCache(capacity int, ttl time.Duration) *MemoryPageCache {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryPageCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *MemoryPageCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		metrics.PageCacheLookups.WithLabelValues("memory", "miss").Inc()
		return nil, false
	}
	entry := elem.Value.(*pageEntry)
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		metrics.PageCacheLookups.WithLabelValues("memory", "expired").Inc()
		return nil, false
	}
	c.order.MoveToFront(elem)
	metrics.PageCacheLookups.WithLabelValues("memory", "hit").Inc()
	return entry.page, true
}

func (c *MemoryPageCache) Set(_ context.Context, key string, page []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*pageEntry)
		entry.page = page
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(&pageEntry{key: key, page: page, expiresAt: expiresAt})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*pageEntry).key)
	}
}

// Len returns the number of cached pages, expired ones included.
func (c *MemoryPageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// RedisPageCache shares pages between instances through Redis.
type RedisPageCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPageCache creates a Redis-backed cache with the given entry TTL.
func NewRedisPageCache(rdb *redis.Client, ttl time.Duration) *RedisPageCache {
	return &RedisPageCache{rdb: rdb, ttl: ttl}
}

func (c *RedisPageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.rdb.Get(ctx, pageKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("page cache read failed", "key", key, "err", err)
		}
		metrics.PageCacheLookups.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	metrics.PageCacheLookups.WithLabelValues("redis", "hit").Inc()
	return data, true
}

func (c *RedisPageCache) Set(ctx context.Context, key string, page []byte) {
	if err := c.rdb.Set(ctx, pageKey(key), page, c.ttl).Err(); err != nil {
		slog.Warn("page cache write failed", "key", key, "err", err)
	}
}

func pageKey(key string) string { return "history:page:" + key }
