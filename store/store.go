// Package store persists small string values, such as the remembered user
// identity, across process restarts.
package store

import (
	"context"
	"fmt"
	"sync"

	"brein.evalgo.org/config"
	"brein.evalgo.org/store/bolt"
	"brein.evalgo.org/store/redis"
)

// Store is a persisted key-value store.
type Store interface {
	// Get returns the value for key; found is false if the key is absent
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the store selected by cfg.Driver: "bolt", "redis" or, for an
// empty driver, an in-memory store.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "":
		return NewMemory(), nil
	case "bolt":
		db, err := bolt.Open(cfg.Path, "")
		if err != nil {
			return nil, err
		}
		return db, nil
	case "redis":
		rs, err := redis.New(ctx, redis.Config{
			RedisURL:  cfg.RedisURL,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

// Memory is a Store that forgets everything on exit.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *Memory) Put(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
