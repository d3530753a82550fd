package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/redis/go-redis/v9"
)

// InMemoryCounterStore keeps letter counters in a process-local map.
// Suitable for tests and single-instance deployments without a database.
type InMemoryCounterStore struct {
	mu       sync.Mutex
	counters map[letter.LetterType]int64
}

// NewInMemoryCounterStore creates an empty counter store
func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{counters: make(map[letter.LetterType]int64)}
}

// Get returns the stored value, 0 when absent
func (s *InMemoryCounterStore) Get(ctx context.Context, letterType letter.LetterType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[letterType], nil
}

// Set overwrites the stored value
func (s *InMemoryCounterStore) Set(ctx context.Context, letterType letter.LetterType, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[letterType] = value
	return nil
}

// Increment adds one and returns the new value
func (s *InMemoryCounterStore) Increment(ctx context.Context, letterType letter.LetterType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[letterType]++
	return s.counters[letterType], nil
}

// RaiseTo sets the counter to value when value is greater and returns the result
func (s *InMemoryCounterStore) RaiseTo(ctx context.Context, letterType letter.LetterType, value int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value > s.counters[letterType] {
		s.counters[letterType] = value
	}
	return s.counters[letterType], nil
}

const defaultCounterKeyPrefix = "letter:counter:"

// RedisCounterStore keeps letter counters in Redis.
// Increment uses INCR, so allocation is atomic across service instances.
type RedisCounterStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCounterStore connects to Redis and creates a counter store
func NewRedisCounterStore(cfg RedisConfig) (*RedisCounterStore, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisCounterStoreWithClient(client, ""), nil
}

// NewRedisCounterStoreWithClient creates a store with an existing Redis client
func NewRedisCounterStoreWithClient(client *redis.Client, keyPrefix string) *RedisCounterStore {
	if keyPrefix == "" {
		keyPrefix = defaultCounterKeyPrefix
	}
	return &RedisCounterStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisCounterStore) key(letterType letter.LetterType) string {
	return s.keyPrefix + letterType.String()
}

// Get returns the stored value, 0 when absent
func (s *RedisCounterStore) Get(ctx context.Context, letterType letter.LetterType) (int64, error) {
	val, err := s.client.Get(ctx, s.key(letterType)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter from Redis: %w", err)
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s holds non-numeric value %q: %w", letterType, val, err)
	}
	return n, nil
}

// Set overwrites the stored value. Counters never expire.
func (s *RedisCounterStore) Set(ctx context.Context, letterType letter.LetterType, value int64) error {
	if err := s.client.Set(ctx, s.key(letterType), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write counter to Redis: %w", err)
	}
	return nil
}

// Increment atomically adds one and returns the new value
func (s *RedisCounterStore) Increment(ctx context.Context, letterType letter.LetterType) (int64, error) {
	n, err := s.client.Incr(ctx, s.key(letterType)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter in Redis: %w", err)
	}
	return n, nil
}

// raiseScript compares and sets in one server-side step
var raiseScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local target = tonumber(ARGV[1])
if target > current then
  redis.call("SET", KEYS[1], ARGV[1])
  return target
end
return current
`)

// RaiseTo sets the counter to value when value is greater and returns the
// result. The comparison runs as a Lua script so a concurrent INCR is kept.
func (s *RedisCounterStore) RaiseTo(ctx context.Context, letterType letter.LetterType, value int64) (int64, error) {
	n, err := raiseScript.Run(ctx, s.client, []string{s.key(letterType)}, value).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to raise counter in Redis: %w", err)
	}
	return n, nil
}

// Close closes the Redis connection
func (s *RedisCounterStore) Close() error {
	return s.client.Close()
}

var (
	_ letter.AtomicCounterStore = (*InMemoryCounterStore)(nil)
	_ letter.AtomicCounterStore = (*RedisCounterStore)(nil)

	_ letter.RaisingCounterStore = (*InMemoryCounterStore)(nil)
	_ letter.RaisingCounterStore = (*RedisCounterStore)(nil)
)
