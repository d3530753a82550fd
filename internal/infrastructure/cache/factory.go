package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// errRedisDisabled is returned when redis.enabled is false
var errRedisDisabled = errors.New("redis is disabled in configuration")

// StoreFactory creates asset caches and counter stores based on configuration.
// One Redis client is shared by every store it creates.
type StoreFactory struct {
	redisConfig           config.RedisConfig
	assetConfig           config.AssetConfig
	logger                *zap.Logger
	allowInMemoryFallback bool

	once      sync.Once
	client    *redis.Client
	clientErr error
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(redisCfg config.RedisConfig, assetCfg config.AssetConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           redisCfg,
		assetConfig:           assetCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *StoreFactory) redisClient() (*redis.Client, error) {
	f.once.Do(func() {
		if !f.redisConfig.Enabled {
			f.clientErr = errRedisDisabled
			return
		}
		f.client, f.clientErr = NewRedisClient(RedisConfig{
			Host:     f.redisConfig.Host,
			Port:     f.redisConfig.Port,
			Password: f.redisConfig.Password,
			DB:       f.redisConfig.DB,
		})
	})
	return f.client, f.clientErr
}

// CreateInMemoryAssetCache creates a process-local asset cache sized from configuration
func (f *StoreFactory) CreateInMemoryAssetCache() *InMemoryAssetCache {
	return NewInMemoryAssetCache(
		WithAssetCacheConfig(AssetCacheConfig{
			TTL:        f.assetConfig.CacheTTL,
			MaxEntries: f.assetConfig.CacheMaxEntries,
		}),
		WithInMemoryLogger(f.logger),
	)
}

// CreateAssetCache returns a tiered memory+Redis cache when Redis is reachable,
// otherwise an in-memory cache (if fallback is allowed).
func (f *StoreFactory) CreateAssetCache() (AssetCache, error) {
	l1 := f.CreateInMemoryAssetCache()

	client, err := f.redisClient()
	if err == nil {
		f.logger.Info("using tiered asset cache (memory + Redis)")
		l2 := NewRedisAssetCacheWithClient(client, "", f.assetConfig.CacheTTL)
		return NewTieredAssetCache(l1, l2, WithTieredLogger(f.logger)), nil
	}

	if errors.Is(err, errRedisDisabled) {
		return l1, nil
	}
	if !f.allowInMemoryFallback {
		_ = l1.Close()
		return nil, fmt.Errorf("Redis required for asset cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory asset cache", zap.Error(err))
	return l1, nil
}

// CreateCounterStore returns a Redis counter store, or an in-memory one when
// Redis is unavailable and fallback is allowed.
// WARNING: in-memory counters are lost on restart; reconcile from approved
// requests before allocating.
func (f *StoreFactory) CreateCounterStore() (letter.AtomicCounterStore, error) {
	client, err := f.redisClient()
	if err == nil {
		f.logger.Info("using Redis letter counter store")
		return NewRedisCounterStoreWithClient(client, ""), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for letter counters but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory letter counters. "+
		"Numbers may be reissued across instances.",
		zap.Error(err),
	)
	return NewInMemoryCounterStore(), nil
}

// Close releases the shared Redis client, if one was opened
func (f *StoreFactory) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
