package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// deleteBatchSize bounds how many keys one DEL call carries during a
// pattern delete.
const deleteBatchSize = 512

// RedisBackend implements Backend on a redis client. TTL handling is
// redis-native; pattern deletes walk a SCAN cursor rather than KEYS so a
// large namespace cannot block the server.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an existing redis client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Get returns the value for key, with found=false on a miss.
func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := b.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	return val, true, nil
}

// SetWithTTL stores value under key with the given expiry.
func (b *RedisBackend) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// DeleteByPattern removes every key starting with prefix.
func (b *RedisBackend) DeleteByPattern(ctx context.Context, prefix string) error {
	iter := b.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	batch := make([]string, 0, deleteBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= deleteBatchSize {
			if err := b.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("%w: delete %s*: %v", ErrUnavailable, prefix, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: scan %s*: %v", ErrUnavailable, prefix, err)
	}
	if len(batch) > 0 {
		if err := b.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("%w: delete %s*: %v", ErrUnavailable, prefix, err)
		}
	}
	return nil
}

// Keys lists keys starting with prefix.
func (b *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan %s*: %v", ErrUnavailable, prefix, err)
	}
	return keys, nil
}

// Ping reports whether redis is reachable.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}
