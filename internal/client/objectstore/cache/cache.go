package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mkrett/shuttle/internal/client/objectstore"
)

// EvictionPolicy defines the interface for cache eviction strategies.
type EvictionPolicy interface {
	// OnAccess is called when a cache key is accessed (read).
	OnAccess(key string)
	// OnAdd is called when a new item is successfully added to the cache, it returns the keys that should be evicted.
	OnAdd(key string) []string
	// OnRemove is called when an item is removed from the cache.
	OnRemove(key string)
}

// CacheConfig configures the cache storage.
type CacheConfig struct {
	// Cache is the local cache storage client.
	Cache objectstore.Client
	// Primary is the primary storage client (e.g., Storj).
	Primary objectstore.Client
	// EvictionPolicy bounds the cache (e.g., LRU with a size limit).
	EvictionPolicy EvictionPolicy
}

// CacheClient layers a bounded read cache over the primary store. Finalized
// assets are written through to both; downloads prefer the cache and backfill
// it on a miss.
type CacheClient struct {
	cache          objectstore.Client
	primary        objectstore.Client
	evictionPolicy EvictionPolicy
}

// NewCacheClient creates a new cache storage client.
func NewCacheClient(cfg CacheConfig) (*CacheClient, error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache storage client is required")
	}
	if cfg.Primary == nil {
		return nil, fmt.Errorf("primary storage client is required")
	}
	if cfg.EvictionPolicy == nil {
		return nil, fmt.Errorf("eviction policy is required")
	}

	return &CacheClient{
		cache:          cfg.Cache,
		primary:        cfg.Primary,
		evictionPolicy: cfg.EvictionPolicy,
	}, nil
}

// Upload writes through to the primary store first; a cache write failure is
// logged but never fails the upload.
func (c *CacheClient) Upload(ctx context.Context, key string, content io.Reader) error {
	// Tee into the cache while the primary upload streams, the content reader
	// can only be consumed once.
	pr, pw := io.Pipe()
	cacheDone := make(chan error, 1)
	go func() {
		cacheDone <- c.cache.Upload(ctx, key, pr)
	}()

	tee := io.TeeReader(content, pw)
	err := c.primary.Upload(ctx, key, tee)
	pw.CloseWithError(err)

	if cacheErr := <-cacheDone; cacheErr != nil {
		slog.Warn("failed to populate cache", "key", key, "error", cacheErr)
	} else if err == nil {
		for _, evictKey := range c.evictionPolicy.OnAdd(key) {
			if err := c.cache.Delete(ctx, evictKey); err != nil {
				slog.Warn("failed to evict from cache", "key", evictKey, "error", err)
			}
		}
	}

	if err != nil {
		// Primary failed; drop whatever partial object the cache accepted.
		if delErr := c.cache.Delete(ctx, key); delErr != nil {
			slog.Warn("failed to clean cache after primary failure", "key", key, "error", delErr)
		}
		return fmt.Errorf("upload to primary: %w", err)
	}

	return nil
}

// Download retrieves an object from the cache first, then falls back to the
// primary store.
func (c *CacheClient) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := c.cache.Download(ctx, key)
	if err == nil {
		c.evictionPolicy.OnAccess(key)
		return reader, nil
	}

	primaryReader, err := c.primary.Download(ctx, key)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("get from primary: %w", err)
	}

	return primaryReader, nil
}

// Delete deletes an object from both cache and primary storage.
func (c *CacheClient) Delete(ctx context.Context, key string) error {
	if err := c.cache.Delete(ctx, key); err != nil {
		slog.Warn("failed to delete from cache", "key", key, "error", err)
	} else {
		c.evictionPolicy.OnRemove(key)
	}

	if err := c.primary.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete from primary: %w", err)
	}

	return nil
}
