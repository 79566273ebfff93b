package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheHelper provides common caching operations for repositories
type CacheHelper struct {
	client *redis.Client
	prefix string
}

// NewCacheHelper creates a new cache helper instance
func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{
		client: client,
		prefix: prefix,
	}
}

// CacheConfig defines cache configuration for different data types
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Book detail rows, invalidated on every copy count change
	BookCacheConfig = CacheConfig{
		TTL:    2 * time.Minute,
		Prefix: "book:",
	}

	// Rating aggregates per book
	RatingCacheConfig = CacheConfig{
		TTL:    5 * time.Minute,
		Prefix: "rating:",
	}

	// Category list, rarely changed
	CategoryCacheConfig = CacheConfig{
		TTL:    10 * time.Minute,
		Prefix: "category:",
	}
)

// Enabled reports whether a redis client is attached
func (c *CacheHelper) Enabled() bool {
	return c != nil && c.client != nil
}

// GetCacheKey generates a cache key with prefix
func (c *CacheHelper) GetCacheKey(key string) string {
	return fmt.Sprintf("%s%s", c.prefix, key)
}

// Get retrieves and unmarshals data from cache
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.Enabled() {
		return ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, c.GetCacheKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}

	return nil
}

// Set marshals and stores data in cache
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil // Graceful degradation when cache not available
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	return c.client.Set(ctx, c.GetCacheKey(key), data, ttl).Err()
}

// Delete removes data from cache
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}

	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = c.GetCacheKey(key)
	}

	return c.client.Del(ctx, cacheKeys...).Err()
}

// InvalidatePattern removes all keys matching a pattern using SCAN instead of KEYS
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if !c.Enabled() {
		return nil
	}

	fullPattern := c.GetCacheKey(pattern)
	var cursor uint64
	var keys []string

	for {
		var scanKeys []string
		var err error
		scanKeys, cursor, err = c.client.Scan(ctx, cursor, fullPattern, 100).Result()
		if err != nil {
			slog.ErrorContext(ctx, "Cache scan pattern error",
				"error", err,
				"pattern", fullPattern)
			return fmt.Errorf("cache scan pattern error: %w", err)
		}
		keys = append(keys, scanKeys...)
		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	const batchSize = 100
	for i := 0; i < len(keys); i += batchSize {
		end := min(i+batchSize, len(keys))
		pipe.Del(ctx, keys[i:end]...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		slog.ErrorContext(ctx, "Cache pipeline delete error",
			"error", err,
			"total_keys", len(keys))
		return fmt.Errorf("cache pipeline delete error: %w", err)
	}

	return nil
}

// CacheOrExecute implements the cache-aside pattern. Cache failures never fail
// the call. The fetch result is written back before returning.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetchFunc func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}

	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		slog.InfoContext(ctx, "Cache get error, proceeding to fetch", "error", err, "key", key)
	}

	value, err := fetchFunc()
	if err != nil {
		return err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		slog.ErrorContext(ctx, "Cache set error", "error", err, "key", key)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal result error: %w", err)
	}

	return json.Unmarshal(data, dest)
}

// Cache errors
var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// CacheManager manages the cache helpers of every domain
type CacheManager struct {
	client   *redis.Client
	Book     *CacheHelper
	Rating   *CacheHelper
	Category *CacheHelper
}

// NewCacheManager creates cache manager with all cache helpers. A nil client
// yields helpers that miss on every read and ignore writes.
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		client:   client,
		Book:     NewCacheHelper(client, BookCacheConfig.Prefix),
		Rating:   NewCacheHelper(client, RatingCacheConfig.Prefix),
		Category: NewCacheHelper(client, CategoryCacheConfig.Prefix),
	}
}

// HealthCheck verifies cache connectivity
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}

	if _, err := cm.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}

	return nil
}

// BookKey is the detail key of one book
func BookKey(bookID uint) string {
	return fmt.Sprintf("id:%d", bookID)
}

// RatingSummaryKey is the aggregate key of one book
func RatingSummaryKey(bookID uint) string {
	return fmt.Sprintf("summary:%d", bookID)
}

// CategoryListKey holds the full category list
const CategoryListKey = "list"
