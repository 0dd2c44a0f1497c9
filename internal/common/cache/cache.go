package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
)

// Cache defines the interface for cache operations. A ttl of 0 uses the
// cache's default.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Config holds cache configuration. A nil RedisClient yields a local cache.
type Config struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	KeyPrefix       string
	RedisClient     *redis.Client
}

// New creates a two-tier cache when Redis is configured, local otherwise
func New(config Config) Cache {
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 2 * config.TTL
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "cache:"
	}

	local := NewLocalCache(config.TTL, config.CleanupInterval)
	if config.RedisClient == nil {
		return local
	}
	return &TwoTierCache{
		l1: local,
		l2: NewRedisCache(config.RedisClient, config.KeyPrefix, config.TTL),
	}
}

// GetJSON decodes a cached value into v and reports whether it was found
func GetJSON(ctx context.Context, c Cache, key string, v interface{}) bool {
	data, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON encodes v and caches it
func SetJSON(ctx context.Context, c Cache, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}

// LocalCache wraps patrickmn/go-cache for in-memory caching
type LocalCache struct {
	cache *gocache.Cache
}

func NewLocalCache(defaultTTL, cleanupInterval time.Duration) *LocalCache {
	return &LocalCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

func (l *LocalCache) Get(_ context.Context, key string) ([]byte, bool) {
	val, found := l.cache.Get(key)
	if !found {
		return nil, false
	}
	data, ok := val.([]byte)
	return data, ok
}

func (l *LocalCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	l.cache.Set(key, value, ttl)
	return nil
}

func (l *LocalCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		l.cache.Delete(key)
	}
	return nil
}

// RedisCache wraps go-redis for distributed caching
type RedisCache struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
}

func NewRedisCache(client *redis.Client, keyPrefix string, defaultTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     client,
		keyPrefix:  keyPrefix,
		defaultTTL: defaultTTL,
	}
}

// Get treats Redis errors as misses
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	return r.client.Set(ctx, r.keyPrefix+key, value, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.keyPrefix + key
	}
	return r.client.Del(ctx, prefixed...).Err()
}

// TwoTierCache combines local and Redis cache. Redis is the source of
// truth; the local copy lives at most l1MaxTTL so deletes on other
// instances are seen soon.
type TwoTierCache struct {
	l1 *LocalCache
	l2 *RedisCache
}

const l1MaxTTL = time.Minute

func NewTwoTierCache(localTTL, cleanupInterval time.Duration, redisClient *redis.Client, keyPrefix string) *TwoTierCache {
	return &TwoTierCache{
		l1: NewLocalCache(localTTL, cleanupInterval),
		l2: NewRedisCache(redisClient, keyPrefix, localTTL),
	}
}

// Get checks L1 first, then L2
func (t *TwoTierCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, found := t.l1.Get(ctx, key); found {
		return val, true
	}

	if val, found := t.l2.Get(ctx, key); found {
		t.l1.Set(ctx, key, val, l1MaxTTL)
		return val, true
	}

	return nil, false
}

// Set stores in both L1 and L2
func (t *TwoTierCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := t.l2.Set(ctx, key, value, ttl); err != nil {
		return err
	}

	l1TTL := ttl
	if ttl <= 0 || ttl > l1MaxTTL {
		l1TTL = l1MaxTTL
	}
	return t.l1.Set(ctx, key, value, l1TTL)
}

// Delete removes from both L1 and L2
func (t *TwoTierCache) Delete(ctx context.Context, keys ...string) error {
	t.l1.Delete(ctx, keys...)
	return t.l2.Delete(ctx, keys...)
}
