package idempotency

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "idempotency:"
	defaultTTL = 24 * time.Hour
)

// Locker hands out short-lived locks keyed by a deduplication key.
// First caller wins; duplicates within the TTL are suppressed.
type Locker interface {
	// TryLock returns true if the key was new (lock acquired), false if
	// it is already held.
	TryLock(ctx context.Context, key string) bool
}

// RedisLocker backs the lock with redis SETNX so it holds across
// instances. Redis errors degrade to the in-process fallback rather than
// failing the caller.
type RedisLocker struct {
	client   *redis.Client
	ttl      time.Duration
	fallback *MemoryLocker
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client:   client,
		ttl:      defaultTTL,
		fallback: NewMemoryLocker(defaultTTL),
	}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) bool {
	acquired, err := l.client.SetNX(ctx, keyPrefix+key, "PROCESSING", l.ttl).Result()
	if err != nil {
		log.Printf("[Idempotency] Redis error, falling back to memory: %v", err)
		return l.fallback.TryLock(ctx, key)
	}
	return acquired
}

// MemoryLocker is a process-local TTL map. Good enough for a
// single-instance deployment; a multi-instance one needs RedisLocker.
type MemoryLocker struct {
	mu      sync.Mutex
	ttl     time.Duration
	expiry  map[string]time.Time
	nowFunc func() time.Time
}

func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryLocker{
		ttl:     ttl,
		expiry:  make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	l.purgeExpired(now)

	if exp, held := l.expiry[key]; held && exp.After(now) {
		return false
	}
	l.expiry[key] = now.Add(l.ttl)
	return true
}

func (l *MemoryLocker) purgeExpired(now time.Time) {
	for key, exp := range l.expiry {
		if !exp.After(now) {
			delete(l.expiry, key)
		}
	}
}
