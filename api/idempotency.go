package api

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"petcare/domain"
)

// Deduper prevents a command from being applied twice.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, key string) (bool, error)
	// Remove deletes a previously added key, used when applying the command fails.
	Remove(ctx context.Context, key string) error
}

// RedisDeduper stores processed idempotency keys in Redis so all instances
// sharing the store skip replays.
type RedisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, prefix string, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisDeduper) key(key string) string {
	return r.prefix + "cmd:" + key
}

// Add records the key if it does not already exist.
func (r *RedisDeduper) Add(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(key), 1, r.ttl).Result()
}

// Remove deletes a previously recorded key.
func (r *RedisDeduper) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// MemoryDeduper keeps idempotency keys in process memory. Used with the
// local sqlite store where a single instance serves the checklist.
type MemoryDeduper struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock domain.Clock
	seen  map[string]time.Time
}

// NewMemoryDeduper creates an in-memory deduper. A nil clock uses wall time.
func NewMemoryDeduper(ttl time.Duration, clock domain.Clock) *MemoryDeduper {
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &MemoryDeduper{ttl: ttl, clock: clock, seen: make(map[string]time.Time)}
}

func (m *MemoryDeduper) Add(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	for k, expires := range m.seen {
		if !now.Before(expires) {
			delete(m.seen, k)
		}
	}
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = now.Add(m.ttl)
	return true, nil
}

func (m *MemoryDeduper) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.seen, key)
	m.mu.Unlock()
	return nil
}
