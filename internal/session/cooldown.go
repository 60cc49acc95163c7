package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownCache grants a key at most once per ttl.
type CooldownCache interface {
	// Acquire returns true if key was free and is now held for ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryCooldown is a process-local CooldownCache.
type MemoryCooldown struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryCooldown creates an empty in-memory cooldown cache.
func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{expires: make(map[string]time.Time), now: time.Now}
}

// Acquire holds key for ttl unless an earlier hold is still running.
func (m *MemoryCooldown) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if until, ok := m.expires[key]; ok && now.Before(until) {
		return false, nil
	}
	m.expires[key] = now.Add(ttl)
	for k, until := range m.expires {
		if !now.Before(until) {
			delete(m.expires, k)
		}
	}
	return true, nil
}

// RedisCooldown shares cooldown keys between service replicas.
type RedisCooldown struct {
	client *redis.Client
	prefix string
}

// NewRedisCooldown creates a redis-backed cooldown cache.
func NewRedisCooldown(client *redis.Client, prefix string) *RedisCooldown {
	return &RedisCooldown{client: client, prefix: prefix}
}

// Acquire sets the prefixed key with SET NX and the given expiry.
func (r *RedisCooldown) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}
