// Package store provides a shared Redis cache for fetched item values.
//
// The store sits between the paging cache's fetcher and the remote item
// source: hits are served from Redis, misses go to the source and are
// written back with a TTL. Store errors never fail a fetch; callers fall
// back to the source.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss indicates none of the requested items were found.
var ErrMiss = errors.New("store miss")

// Store caches item values by kind and index.
type Store interface {
	// GetMany returns the cached values among indices. Absent items are
	// omitted from the result.
	GetMany(ctx context.Context, kind string, indices []int) (map[int][]byte, error)

	// SetMany caches values.
	SetMany(ctx context.Context, kind string, values map[int][]byte) error

	// Delete removes cached values.
	Delete(ctx context.Context, kind string, indices []int) error
}

// Config holds Redis store configuration.
type Config struct {
	// Namespace separates collections sharing one Redis database.
	Namespace string

	// TTL of cached values.
	TTL time.Duration
}

// DefaultConfig returns a default store configuration.
func DefaultConfig() Config {
	return Config{
		Namespace: "default",
		TTL:       10 * time.Minute,
	}
}

// RedisStore implements Store on Redis.
type RedisStore struct {
	redis  *redis.Client
	config Config
}

// NewRedisStore creates a store backed by redisClient.
func NewRedisStore(redisClient *redis.Client, config Config) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if config.Namespace == "" {
		config.Namespace = "default"
	}
	if config.TTL <= 0 {
		config.TTL = 10 * time.Minute
	}
	return &RedisStore{
		redis:  redisClient,
		config: config,
	}
}

// Key returns the Redis key of an item value.
// Format: itempager:<namespace>:<kind>:<index>
func (s *RedisStore) Key(kind string, index int) string {
	return "itempager:" + s.config.Namespace + ":" + kind + ":" + strconv.Itoa(index)
}

// GetMany implements Store.
func (s *RedisStore) GetMany(ctx context.Context, kind string, indices []int) (map[int][]byte, error) {
	if len(indices) == 0 {
		return map[int][]byte{}, nil
	}

	keys := make([]string, len(indices))
	for i, index := range indices {
		keys[i] = s.Key(kind, index)
	}

	vals, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		StoreErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	found := make(map[int][]byte, len(indices))
	for i, val := range vals {
		str, ok := val.(string)
		if !ok {
			continue
		}
		found[indices[i]] = []byte(str)
	}

	StoreHits.Add(float64(len(found)))
	StoreMisses.Add(float64(len(indices) - len(found)))
	return found, nil
}

// SetMany implements Store.
func (s *RedisStore) SetMany(ctx context.Context, kind string, values map[int][]byte) error {
	if len(values) == 0 {
		return nil
	}

	pipe := s.redis.Pipeline()
	for index, value := range values {
		pipe.Set(ctx, s.Key(kind, index), value, s.config.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		StoreErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis pipeline set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, kind string, indices []int) error {
	if len(indices) == 0 {
		return nil
	}

	keys := make([]string, len(indices))
	for i, index := range indices {
		keys[i] = s.Key(kind, index)
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		StoreErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Get returns one cached value, or ErrMiss.
func (s *RedisStore) Get(ctx context.Context, kind string, index int) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.Key(kind, index)).Bytes()
	if err != nil {
		if err == redis.Nil {
			StoreMisses.Inc()
			return nil, ErrMiss
		}
		StoreErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}
	StoreHits.Inc()
	return data, nil
}
