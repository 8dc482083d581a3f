package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores embeddings by key. Get reports a miss with ok == false.
type Cache interface {
	Get(ctx context.Context, key string) (vec []float32, ok bool, err error)
	Set(ctx context.Context, key string, vec []float32) error
}

// CacheKey derives the cache key for text embedded by model.
func CacheKey(model, text string) string {
	hash := sha256.Sum256([]byte(model + ":" + text))
	return fmt.Sprintf("emb:%x", hash[:16])
}

// CachedEmbedder consults a Cache before delegating to an inner Embedder.
// Cache failures are logged and never fail the embedding.
type CachedEmbedder struct {
	inner  Embedder
	cache  Cache
	model  string
	logger *zap.Logger
}

// NewCachedEmbedder wraps inner. model namespaces the cache keys so vectors
// from different models never collide.
func NewCachedEmbedder(inner Embedder, cache Cache, model string, logger *zap.Logger) (*CachedEmbedder, error) {
	if inner == nil {
		return nil, ErrInvalidEmbedder
	}
	if cache == nil {
		return nil, errors.New("semantic: cache is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{inner: inner, cache: cache, model: model, logger: logger}, nil
}

// Embed implements Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(c.model, text)
	vec, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("embedding cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		c.logger.Debug("embedding cache hit", zap.String("key", key))
		return vec, nil
	}

	vec, err = c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, vec); err != nil {
		c.logger.Warn("embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
	return vec, nil
}

// MemoryCache is a bounded in-process Cache. When full, the oldest entry
// is evicted.
type MemoryCache struct {
	mu      sync.Mutex
	max     int
	entries map[string][]float32
	order   []string
}

// NewMemoryCache returns a cache holding at most max entries. Non-positive
// max selects 1024.
func NewMemoryCache(max int) *MemoryCache {
	if max <= 0 {
		max = 1024
	}
	return &MemoryCache{max: max, entries: make(map[string][]float32)}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vec, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]float32(nil), vec...), true, nil
}

// Set implements Cache.
func (m *MemoryCache) Set(_ context.Context, key string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		if len(m.order) >= m.max {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.entries, oldest)
		}
		m.order = append(m.order, key)
	}
	m.entries[key] = append([]float32(nil), vec...)
	return nil
}

// Len reports the number of cached entries.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RedisCache stores embeddings as JSON strings in Redis.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// NewRedisCacheWithClient uses an existing client.
func NewRedisCacheWithClient(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var vec []float32
	if err := json.Unmarshal([]byte(data), &vec); err != nil {
		return nil, false, fmt.Errorf("decode cached embedding: %w", err)
	}
	return vec, true, nil
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, vec []float32) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

// Close releases the underlying client when it owns one.
func (r *RedisCache) Close() error {
	if c, ok := r.client.(*redis.Client); ok {
		return c.Close()
	}
	return nil
}
