// Package cache provides the byte-oriented store shared by the provider
// guard and the hot read paths. A memory backend is always available; a
// redis backend is selected by configuration or by REDIS_ADDR.
package cache

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/gregleo12/spooky-football-engine/internal/config"
)

// redisOpTimeout bounds every redis round trip so a stalled cache never
// blocks a request path.
const redisOpTimeout = 500 * time.Millisecond

// Cache implementations are safe for concurrent use. A miss and an error
// look the same to callers; the cache is never load-bearing.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
	Del(ctx context.Context, keys ...string)
	Stats() Stats
	Close() error
}

// Stats reports hit/miss counters since construction.
type Stats struct {
	Hits   int64
	Misses int64
}

// Key joins parts into the canonical colon-separated cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

type memory struct {
	mu    sync.Mutex
	m     map[string]entry
	stats Stats

	stopCh   chan struct{}
	stopOnce sync.Once
}

type entry struct {
	b   []byte
	exp time.Time
}

// NewMemory returns an in-process cache with a background expiry sweep.
func NewMemory() Cache {
	c := &memory{
		m:      make(map[string]entry),
		stopCh: make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return e.b, true
}

func (c *memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
}

func (c *memory) Del(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.m, k)
	}
}

func (c *memory) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *memory) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *memory) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *memory) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, e := range c.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(c.m, k)
		}
	}
}

type redisCache struct {
	r *redis.Client

	mu    sync.Mutex
	stats Stats
}

// NewRedis wraps an existing client, which lets tests inject a mock.
func NewRedis(client *redis.Client) Cache {
	return &redisCache{r: client}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	v, err := c.r.Get(ctx, key).Bytes()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return v, true
}

func (c *redisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	_ = c.r.Set(ctx, key, val, ttl).Err()
}

func (c *redisCache) Del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	_ = c.r.Del(ctx, keys...).Err()
}

func (c *redisCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *redisCache) Close() error {
	return c.r.Close()
}

// NewAuto picks the backend from configuration. In auto mode redis is used
// when an address is configured or exported via REDIS_ADDR, otherwise the
// process-local memory cache.
func NewAuto(cfg *config.StorageConfig) Cache {
	addr := cfg.Redis.Addr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	switch cfg.Cache.Backend {
	case "memory":
		return NewMemory()
	case "redis":
	default: // auto
		if addr == "" {
			return NewMemory()
		}
	}

	return NewRedis(redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password(),
	}))
}
