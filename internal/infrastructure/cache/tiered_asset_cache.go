package cache

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// TieredAssetCache implements a two-tier caching strategy
// L1: Local in-memory cache (fast, but local to instance)
// L2: Shared cache, usually Redis (slower, but shared across instances)
// Reads go L1 then L2 and backfill L1 on an L2 hit; writes go to both tiers.
// An L2 failure degrades to L1 only and is never returned to the caller.
type TieredAssetCache struct {
	l1     AssetCache
	l2     AssetCache
	logger *zap.Logger

	l1Hits   int64
	l2Hits   int64
	misses   int64
	l2Errors int64
}

// TieredAssetCacheOption is a functional option for configuring the cache
type TieredAssetCacheOption func(*TieredAssetCache)

// WithTieredLogger sets the logger for the cache
func WithTieredLogger(logger *zap.Logger) TieredAssetCacheOption {
	return func(c *TieredAssetCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewTieredAssetCache creates a new tiered asset cache
func NewTieredAssetCache(l1, l2 AssetCache, opts ...TieredAssetCacheOption) *TieredAssetCache {
	c := &TieredAssetCache{
		l1:     l1,
		l2:     l2,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves an inline asset from L1, then L2
func (c *TieredAssetCache) Get(ctx context.Context, ref string) (string, bool, error) {
	if v, ok, err := c.l1.Get(ctx, ref); err == nil && ok {
		atomic.AddInt64(&c.l1Hits, 1)
		return v, true, nil
	}

	v, ok, err := c.l2.Get(ctx, ref)
	if err != nil {
		atomic.AddInt64(&c.l2Errors, 1)
		c.logger.Warn("L2 asset cache read failed", zap.String("ref", ref), zap.Error(err))
		atomic.AddInt64(&c.misses, 1)
		return "", false, nil
	}
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return "", false, nil
	}

	atomic.AddInt64(&c.l2Hits, 1)
	if err := c.l1.Set(ctx, ref, v); err != nil {
		c.logger.Warn("Failed to backfill L1 asset cache", zap.String("ref", ref), zap.Error(err))
	}
	return v, true, nil
}

// Set stores an inline asset in both tiers
func (c *TieredAssetCache) Set(ctx context.Context, ref string, inline string) error {
	if err := c.l1.Set(ctx, ref, inline); err != nil {
		return err
	}
	if err := c.l2.Set(ctx, ref, inline); err != nil {
		atomic.AddInt64(&c.l2Errors, 1)
		c.logger.Warn("L2 asset cache write failed", zap.String("ref", ref), zap.Error(err))
	}
	return nil
}

// Delete removes an inline asset from both tiers
func (c *TieredAssetCache) Delete(ctx context.Context, ref string) error {
	if err := c.l1.Delete(ctx, ref); err != nil {
		return err
	}
	if err := c.l2.Delete(ctx, ref); err != nil {
		atomic.AddInt64(&c.l2Errors, 1)
		c.logger.Warn("L2 asset cache delete failed", zap.String("ref", ref), zap.Error(err))
	}
	return nil
}

// TieredCacheStats reports per-tier hit counts
type TieredCacheStats struct {
	L1Hits   int64
	L2Hits   int64
	Misses   int64
	L2Errors int64
}

// GetStats returns the current tier statistics
func (c *TieredAssetCache) GetStats() TieredCacheStats {
	return TieredCacheStats{
		L1Hits:   atomic.LoadInt64(&c.l1Hits),
		L2Hits:   atomic.LoadInt64(&c.l2Hits),
		Misses:   atomic.LoadInt64(&c.misses),
		L2Errors: atomic.LoadInt64(&c.l2Errors),
	}
}

var _ AssetCache = (*TieredAssetCache)(nil)
