package cache

import "time"

// CacheService defines the interface for cache operations
type CacheService interface {
	// Get retrieves a value from the cache. Returns ErrCacheMiss when the
	// key is absent or expired.
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration window.
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache.
	Delete(key string) error
}
