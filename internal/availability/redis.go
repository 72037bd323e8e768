package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists availability entries in Redis so cache contents
// survive restarts and are shared across gateway instances. Expiry is
// delegated to Redis key TTLs.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    nowFunc
}

// RedisStoreOption is a functional option for the Redis store.
type RedisStoreOption func(*RedisStore)

// WithRedisKeyPrefix sets the key prefix. Default is "availability:".
func WithRedisKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates an availability store over an existing Redis
// client.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "availability:",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisStoreFromURL creates a store from a Redis URL and verifies
// connectivity.
func NewRedisStoreFromURL(ctx context.Context, url string, opts ...RedisStoreOption) (*RedisStore, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStore(client, opts...), nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key Key) (Entry, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("decode availability entry: %w", err)
	}
	if entry.Expired(s.now()) {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Set implements Store. Entries already past expiry are not written.
func (s *RedisStore) Set(ctx context.Context, entry Entry) error {
	ttl := entry.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode availability entry: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+entry.Key().String(), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	if err := s.client.Del(ctx, s.prefix+key.String()).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
