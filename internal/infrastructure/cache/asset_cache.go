package cache

import (
	"context"
	"time"
)

// AssetCache stores inline (data: URI) renditions of image references,
// keyed by the original reference string.
type AssetCache interface {
	// Get returns the cached inline value. A miss returns ("", false, nil).
	Get(ctx context.Context, ref string) (string, bool, error)
	Set(ctx context.Context, ref string, inline string) error
	Delete(ctx context.Context, ref string) error
}

// AssetCacheConfig holds asset cache settings
type AssetCacheConfig struct {
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

// DefaultAssetCacheConfig returns the defaults used when no config is supplied
func DefaultAssetCacheConfig() AssetCacheConfig {
	return AssetCacheConfig{
		TTL:             24 * time.Hour,
		MaxEntries:      256,
		CleanupInterval: 30 * time.Second,
	}
}

// CacheStats is a point-in-time view of cache effectiveness
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// HitRate returns hits / (hits + misses), or 0 when nothing was looked up
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
