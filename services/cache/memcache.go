package cache

import (
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// MemcacheService implements CacheService using memcached. The scraper
// uses it for category block flags so concurrent runs against the same
// site share rate-limit state.
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a new memcached-backed cache service
func NewMemcacheService(addr string) *MemcacheService {
	return &MemcacheService{client: memcache.New(addr)}
}

// Get retrieves a value from memcached
func (s *MemcacheService) Get(key string) ([]byte, error) {
	item, err := s.client.Get(key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value in memcached. Expirations below one second round up
// to one second, the smallest window memcached can express.
func (s *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	seconds := int32(expiration / time.Second)
	if expiration > 0 && seconds == 0 {
		seconds = 1
	}
	return s.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: seconds,
	})
}

// Delete removes a value from memcached
func (s *MemcacheService) Delete(key string) error {
	err := s.client.Delete(key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	return nil
}

// Ping verifies the memcached connection is usable
func (s *MemcacheService) Ping() error {
	return s.client.Ping()
}
