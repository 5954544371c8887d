package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CacheMetrics tracks cache performance
type CacheMetrics struct {
	Hits   int64
	Misses int64
	Sets   int64
}

// UnifiedCache is a typed TTL cache backed by go-cache.
type UnifiedCache[T any] struct {
	store  *gocache.Cache
	ttl    time.Duration
	name   string
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// NewUnifiedCache creates a cache whose items expire after ttl.
// Expired items are purged twice per TTL period.
func NewUnifiedCache[T any](ttl time.Duration, name string, logger *zap.Logger) *UnifiedCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnifiedCache[T]{
		store:  gocache.New(ttl, ttl/2),
		ttl:    ttl,
		name:   name,
		logger: logger,
	}
}

// Set stores an item in the cache with the given key
func (c *UnifiedCache[T]) Set(key string, value T) {
	c.store.Set(key, value, gocache.DefaultExpiration)
	c.sets.Add(1)

	c.logger.Debug("Cache set",
		zap.String("cache", c.name),
		zap.String("key", key),
		zap.Duration("ttl", c.ttl),
	)
}

// Get retrieves an item from the cache
func (c *UnifiedCache[T]) Get(key string) (T, bool) {
	var zero T

	raw, found := c.store.Get(key)
	if !found {
		c.misses.Add(1)
		c.logger.Debug("Cache miss",
			zap.String("cache", c.name),
			zap.String("key", key),
		)
		return zero, false
	}

	value, ok := raw.(T)
	if !ok {
		c.misses.Add(1)
		c.logger.Warn("Cache item has unexpected type",
			zap.String("cache", c.name),
			zap.String("key", key),
		)
		return zero, false
	}

	c.hits.Add(1)
	c.logger.Debug("Cache hit",
		zap.String("cache", c.name),
		zap.String("key", key),
	)
	return value, true
}

// Delete removes an item from the cache
func (c *UnifiedCache[T]) Delete(key string) {
	c.store.Delete(key)
	c.logger.Debug("Cache delete",
		zap.String("cache", c.name),
		zap.String("key", key),
	)
}

// Clear removes all items from the cache
func (c *UnifiedCache[T]) Clear() {
	c.store.Flush()
	c.logger.Info("Cache cleared",
		zap.String("cache", c.name),
	)
}

// GetMetrics returns current cache metrics
func (c *UnifiedCache[T]) GetMetrics() CacheMetrics {
	return CacheMetrics{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
	}
}

// Size returns the number of items in the cache, including expired ones not yet purged.
func (c *UnifiedCache[T]) Size() int {
	return c.store.ItemCount()
}

// CacheKeyBuilder helps build consistent cache keys
type CacheKeyBuilder struct {
	components []any
	fold       cases.Caser
	logger     *zap.Logger
}

// NewCacheKeyBuilder creates a new cache key builder
func NewCacheKeyBuilder(logger *zap.Logger) *CacheKeyBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheKeyBuilder{
		components: make([]any, 0, 8),
		fold:       cases.Fold(),
		logger:     logger,
	}
}

// Add adds a component to the cache key as is.
func (b *CacheKeyBuilder) Add(key string, value any) *CacheKeyBuilder {
	b.components = append(b.components, map[string]any{key: value})
	return b
}

// AddText adds free text in normalized form: NFC, case folded, with runs of
// whitespace collapsed. "Paris" and " PARIS " produce the same key.
func (b *CacheKeyBuilder) AddText(key, value string) *CacheKeyBuilder {
	return b.Add(key, b.normalize(value))
}

// AddTextSet adds a list of free-text values whose order does not matter.
func (b *CacheKeyBuilder) AddTextSet(key string, values []string) *CacheKeyBuilder {
	seen := make(map[string]struct{}, len(values))
	normalized := make([]string, 0, len(values))
	for _, v := range values {
		n := b.normalize(v)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		normalized = append(normalized, n)
	}
	slices.Sort(normalized)
	return b.Add(key, normalized)
}

func (b *CacheKeyBuilder) normalize(s string) string {
	s = norm.NFC.String(s)
	s = b.fold.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Build generates the final cache key as an MD5 hash
func (b *CacheKeyBuilder) Build() (string, error) {
	jsonBytes, err := json.Marshal(b.components)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache key components: %w", err)
	}

	hash := md5.Sum(jsonBytes)
	key := hex.EncodeToString(hash[:])

	b.logger.Debug("Cache key built",
		zap.String("key", key),
		zap.String("components", string(jsonBytes)),
	)

	return key, nil
}

// BuildOrDefault builds the cache key, returns empty string on error
func (b *CacheKeyBuilder) BuildOrDefault() string {
	key, err := b.Build()
	if err != nil {
		b.logger.Error("Failed to build cache key", zap.Error(err))
		return ""
	}
	return key
}
