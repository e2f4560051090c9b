package hits

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisCounter stores counts in redis, so they survive restarts and are
// shared between instances.
type RedisCounter struct {
	rdb    *redis.Client
	prefix string
}

type RedisOption func(*RedisCounter)

// WithPrefix sets the key prefix (default "blog:hits").
func WithPrefix(prefix string) RedisOption {
	return func(c *RedisCounter) { c.prefix = strings.Trim(prefix, ":") }
}

func NewRedisCounter(rdb *redis.Client, opts ...RedisOption) *RedisCounter {
	c := &RedisCounter{
		rdb:    rdb,
		prefix: "blog:hits",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCounter) key(postID int64) string {
	return fmt.Sprintf("%s:post:%d", c.prefix, postID)
}

func (c *RedisCounter) Incr(ctx context.Context, postID int64) (int64, error) {
	n, err := c.rdb.Incr(ctx, c.key(postID)).Result()
	if err != nil {
		return 0, fmt.Errorf("unable to increment view count of post %d: %w", postID, err)
	}
	return n, nil
}

func (c *RedisCounter) Get(ctx context.Context, postID int64) (int64, error) {
	n, err := c.rdb.Get(ctx, c.key(postID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("unable to read view count of post %d: %w", postID, err)
	}
	return n, nil
}

// Reset deletes every key under the counter's prefix.
func (c *RedisCounter) Reset(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, c.prefix+":post:*", 100).Iterator()
	keys := []string{}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 100 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("unable to reset view counts: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("unable to scan view counts: %w", err)
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("unable to reset view counts: %w", err)
		}
	}
	return nil
}

// Ping checks that redis is reachable.
func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
