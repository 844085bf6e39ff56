package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "content-finder:"

// CacheInterface stores provider responses for a limited time
type CacheInterface interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache implements CacheInterface on top of Redis
type RedisCache struct {
	client *redis.Client
}

var _ CacheInterface = (*RedisCache)(nil)

// NewRedisCache connects to the Redis instance at url and verifies the connection
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logrus.Infof("Connected to Redis at %s", opts.Addr)
	return &RedisCache{client: client}, nil
}

// Get returns the cached value and whether it was present
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get from cache: %w", err)
	}
	return value, true, nil
}

// Set stores value under key with the given expiration
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Key builds a namespaced cache key from its parts
func Key(namespace string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return keyPrefix + namespace + ":" + hex.EncodeToString(sum[:16])
}

// GetJSON decodes a cached value into dest. A nil cache always misses.
func GetJSON(ctx context.Context, c CacheInterface, key string, dest interface{}) bool {
	if c == nil {
		return false
	}

	data, ok, err := c.Get(ctx, key)
	if err != nil {
		logrus.WithFields(logrus.Fields{"operation": "cache_get", "key": key}).Warnf("Cache read failed: %v", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logrus.WithFields(logrus.Fields{"operation": "cache_get", "key": key}).Warnf("Discarding undecodable cache entry: %v", err)
		return false
	}
	return true
}

// SetJSON encodes value and stores it. Failures are logged, not returned.
func SetJSON(ctx context.Context, c CacheInterface, key string, value interface{}, ttl time.Duration) {
	if c == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		logrus.WithFields(logrus.Fields{"operation": "cache_set", "key": key}).Warnf("Cache encode failed: %v", err)
		return
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		logrus.WithFields(logrus.Fields{"operation": "cache_set", "key": key}).Warnf("Cache write failed: %v", err)
	}
}
