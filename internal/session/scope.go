// Package session persists the client's session bundle across restarts.
// Two storage scopes back it: a durable one that survives process restarts
// and an ephemeral one that does not. The remember-me choice at login picks
// which scope holds the bundle.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Scope is a flat string key-value store. Get returns ("", nil) for a
// missing key; absence is not an error.
type Scope interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// RedisScope is the durable scope. Values live in Redis without a TTL, so
// they survive client restarts until explicitly removed.
type RedisScope struct {
	client *redis.Client
	prefix string
}

// NewRedisScope creates a durable scope. The prefix namespaces this client's
// keys, so several clients can share one Redis.
func NewRedisScope(client *redis.Client, prefix string) *RedisScope {
	return &RedisScope{client: client, prefix: prefix}
}

func (s *RedisScope) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisScope) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *RedisScope) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// MemoryScope is the ephemeral scope: a process-local map that vanishes
// when the process exits. Safe for concurrent use.
type MemoryScope struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryScope creates an empty ephemeral scope.
func NewMemoryScope() *MemoryScope {
	return &MemoryScope{values: make(map[string]string)}
}

func (s *MemoryScope) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key], nil
}

func (s *MemoryScope) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryScope) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
