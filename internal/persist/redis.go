package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisBackend stores envelope values in Redis.
type RedisBackend struct {
	rdb      *redis.Client
	maxBytes int
}

// NewRedisBackend connects to Redis and verifies the connection.
// maxBytes <= 0 disables the size budget.
func NewRedisBackend(addr, password string, db, maxBytes int) (*RedisBackend, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBackend{rdb: rdb, maxBytes: maxBytes}, nil
}

// GetItem retrieves a stored value.
func (b *RedisBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	val, err := b.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return val, true, nil
}

// SetItem stores a value, enforcing the size budget.
func (b *RedisBackend) SetItem(ctx context.Context, key, value string) error {
	if b.maxBytes > 0 && len(value) > b.maxBytes {
		return ErrQuotaExceeded
	}
	if err := b.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes a stored value.
func (b *RedisBackend) RemoveItem(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, key).Err()
}

// Close closes the Redis connection.
func (b *RedisBackend) Close() error {
	return b.rdb.Close()
}
