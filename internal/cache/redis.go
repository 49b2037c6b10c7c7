package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
)

const (
	// DefaultPageTTL is how long a cached history page may be served.
	DefaultPageTTL = 30 * time.Second

	versionTTL = 24 * time.Hour
)

// RedisPageCache caches history pages per room. Every room has a version
// counter; pages are stored under the version that was current before the
// store read, and Invalidate bumps the counter so older pages are never
// read again.
type RedisPageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPageCache connects to redisURL (redis://...) and verifies the connection.
func NewRedisPageCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisPageCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &RedisPageCache{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (c *RedisPageCache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection.
func (c *RedisPageCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func versionKey(roomID string) string {
	return fmt.Sprintf("history:%s:version", roomID)
}

func pageKey(roomID string, version int64, key string) string {
	return fmt.Sprintf("history:%s:v%d:%s", roomID, version, key)
}

// Version returns the room's current cache version (0 if never invalidated).
func (c *RedisPageCache) Version(ctx context.Context, roomID string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(roomID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Get returns the page cached for key at version.
func (c *RedisPageCache) Get(ctx context.Context, roomID string, version int64, key string) (*models.HistoryPage, bool) {
	data, err := c.client.Get(ctx, pageKey(roomID, version, key)).Bytes()
	if err != nil {
		return nil, false
	}
	var page models.HistoryPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, false
	}
	return &page, true
}

// Set stores page for key at version.
func (c *RedisPageCache) Set(ctx context.Context, roomID string, version int64, key string, page *models.HistoryPage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pageKey(roomID, version, key), data, c.ttl).Err()
}

// Invalidate bumps the room's version so every cached page becomes unreachable.
func (c *RedisPageCache) Invalidate(ctx context.Context, roomID string) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, versionKey(roomID))
	pipe.Expire(ctx, versionKey(roomID), versionTTL)
	_, err := pipe.Exec(ctx)
	return err
}
