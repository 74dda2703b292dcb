package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wms/backend/internal/infrastructure/config"
)

const defaultKeyPrefix = "wms:idempotency:"

// RedisResponseStore implements ResponseStore on Redis so that every
// instance sees the same keys
type RedisResponseStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisClient connects and pings Redis
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewRedisResponseStore wraps an existing client
func NewRedisResponseStore(client *redis.Client, keyPrefix string) *RedisResponseStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisResponseStore{client: client, keyPrefix: keyPrefix}
}

// Reserve implements ResponseStore with SETNX
func (s *RedisResponseStore) Reserve(ctx context.Context, key string, rec Record, ttl time.Duration) (bool, error) {
	data, err := encodeRecord(rec)
	if err != nil {
		return false, err
	}
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Get implements ResponseStore
func (s *RedisResponseStore) Get(ctx context.Context, key string) (*Record, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	return decodeRecord(data)
}

// Put implements ResponseStore
func (s *RedisResponseStore) Put(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

// Release implements ResponseStore
func (s *RedisResponseStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisResponseStore) Close() error {
	return s.client.Close()
}

var _ ResponseStore = (*RedisResponseStore)(nil)
