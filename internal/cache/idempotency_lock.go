package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IdempotencyLock guards a commit idempotency key while a request works on it
type IdempotencyLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// releaseScript deletes the lock only if we still own it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLock is an IdempotencyLock backed by SET NX
type RedisLock struct {
	client *redis.Client

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisLock creates a RedisLock from config
func NewRedisLock(cfg config.RedisConfig) *RedisLock {
	return &RedisLock{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		tokens: make(map[string]string),
	}
}

// Ping checks the connection
func (l *RedisLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Acquire takes the lock for key. Returns false if someone else holds it.
func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire idempotency lock: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.tokens[key] = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Release drops the lock for key if this process holds it
func (l *RedisLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	if err := releaseScript.Run(ctx, l.client, []string{lockKey(key)}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release idempotency lock: %w", err)
	}
	return nil
}

// Close closes the redis client
func (l *RedisLock) Close() error {
	return l.client.Close()
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:booking:commit:%s", key)
}

// LocalLock is an in-process IdempotencyLock, used when no redis is configured.
// It only protects against duplicates hitting the same instance; the unique
// idempotency key on booking_attempts still holds across instances.
type LocalLock struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewLocalLock creates a LocalLock
func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]time.Time), clock: time.Now}
}

// Acquire takes the lock for key unless it is held and not expired
func (l *LocalLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expiry, ok := l.held[key]; ok && expiry.After(now) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

// Release drops the lock for key
func (l *LocalLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	delete(l.held, key)
	l.mu.Unlock()
	return nil
}
