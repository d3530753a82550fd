package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// InMemoryAssetCache implements AssetCache with a bounded in-process map.
// When full, the entry closest to expiry is evicted.
type InMemoryAssetCache struct {
	mu      sync.Mutex
	entries map[string]*assetEntry
	config  AssetCacheConfig
	logger  *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once

	hits   int64
	misses int64
}

type assetEntry struct {
	value     string
	expiresAt time.Time
}

func (e *assetEntry) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// InMemoryAssetCacheOption is a functional option for configuring the cache
type InMemoryAssetCacheOption func(*InMemoryAssetCache)

// WithAssetCacheConfig sets TTL, capacity and cleanup interval.
// Zero fields keep their defaults.
func WithAssetCacheConfig(cfg AssetCacheConfig) InMemoryAssetCacheOption {
	return func(c *InMemoryAssetCache) {
		if cfg.TTL > 0 {
			c.config.TTL = cfg.TTL
		}
		if cfg.MaxEntries > 0 {
			c.config.MaxEntries = cfg.MaxEntries
		}
		if cfg.CleanupInterval > 0 {
			c.config.CleanupInterval = cfg.CleanupInterval
		}
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryAssetCacheOption {
	return func(c *InMemoryAssetCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewInMemoryAssetCache creates a new in-memory asset cache and starts its
// cleanup goroutine. Call Close to stop it.
func NewInMemoryAssetCache(opts ...InMemoryAssetCacheOption) *InMemoryAssetCache {
	c := &InMemoryAssetCache{
		entries: make(map[string]*assetEntry),
		config:  DefaultAssetCacheConfig(),
		logger:  zap.NewNop(),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupLoop()

	return c
}

// Get retrieves an inline asset
func (c *InMemoryAssetCache) Get(ctx context.Context, ref string) (string, bool, error) {
	c.mu.Lock()
	e, ok := c.entries[ref]
	if ok && e.isExpired(time.Now()) {
		delete(c.entries, ref)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return "", false, nil
	}
	atomic.AddInt64(&c.hits, 1)
	return e.value, true, nil
}

// Set stores an inline asset with the configured TTL
func (c *InMemoryAssetCache) Set(ctx context.Context, ref string, inline string) error {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[ref]; !exists && len(c.entries) >= c.config.MaxEntries {
		c.evictLocked(now)
	}
	c.entries[ref] = &assetEntry{value: inline, expiresAt: now.Add(c.config.TTL)}
	return nil
}

// Delete removes an inline asset
func (c *InMemoryAssetCache) Delete(ctx context.Context, ref string) error {
	c.mu.Lock()
	delete(c.entries, ref)
	c.mu.Unlock()
	return nil
}

// evictLocked drops expired entries, or the one expiring soonest when none have.
// Callers must hold c.mu.
func (c *InMemoryAssetCache) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
		removed   int
	)
	for k, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, k)
			removed++
			continue
		}
		if oldestKey == "" || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.expiresAt
		}
	}
	if removed == 0 && oldestKey != "" {
		delete(c.entries, oldestKey)
		c.logger.Debug("Evicted asset from full cache", zap.String("ref", oldestKey))
	}
}

// Len returns the number of stored entries, expired ones included
func (c *InMemoryAssetCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetStats returns hit/miss counters and the entry count
func (c *InMemoryAssetCache) GetStats() CacheStats {
	return CacheStats{
		Hits:    atomic.LoadInt64(&c.hits),
		Misses:  atomic.LoadInt64(&c.misses),
		Entries: c.Len(),
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryAssetCache) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	return nil
}

func (c *InMemoryAssetCache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryAssetCache) cleanup() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("Cleaned up expired assets", zap.Int("removed", removed))
	}
}

var _ AssetCache = (*InMemoryAssetCache)(nil)
