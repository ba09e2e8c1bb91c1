package cache

import (
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache: miss")

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// New builds the cache backend named by backend ("memory" or "memcache")
func New(backend, memcacheAddr string) (CacheService, error) {
	switch backend {
	case "", "memory":
		return NewMemoryService(), nil
	case "memcache":
		return NewMemcacheService(memcacheAddr), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
