// Package redis implements the persisted store on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

// Store keeps values as plain Redis strings
type Store struct {
	client *redis.Client
	prefix string // Key prefix (e.g., "brein:")
}

// Config configures the Redis store
type Config struct {
	RedisURL  string // Redis URL (defaults to BREIN_REDIS_URL or redis://localhost:6379/0)
	KeyPrefix string // Key prefix (defaults to "brein:")
}

// New creates a new Redis store client and checks the connection
func New(ctx context.Context, config Config) (*Store, error) {
	redisURL := config.RedisURL
	if redisURL == "" {
		redisURL = os.Getenv("BREIN_REDIS_URL")
	}
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "brein:"
	}

	return &Store{
		client: client,
		prefix: prefix,
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

// Get returns the value for key
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key without expiry
func (s *Store) Put(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
