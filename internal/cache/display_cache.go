package cache

import (
	"github.com/eko/gocache/lib/v4/codec"
	"github.com/quietdash/quietdash/internal/config"
)

// Cache key prefixes.
const (
	DisplayImageCachePrefix = "display-image-"
)

// DisplayCache holds the rendered display images.
type DisplayCache struct {
	Images *PrefixedCache[[]byte]
}

// NewDisplayCache creates the display caches for the configured backend.
func NewDisplayCache(cfg *config.CacheConfig) *DisplayCache {
	return &DisplayCache{
		Images: NewPrefixedCache[[]byte](
			newCacheInstanceByType(cfg),
			DisplayImageCachePrefix,
		),
	}
}

type Stats struct {
	*codec.Stats
	CacheName string `json:"cacheName"`
}

// GetStats returns the statistics of every display cache.
func (d *DisplayCache) GetStats() []*Stats {
	return []*Stats{
		{
			Stats:     d.Images.GetStats(),
			CacheName: "display-images",
		},
	}
}
