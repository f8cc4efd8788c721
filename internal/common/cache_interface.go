package common

import "time"

// NoExpiration keeps an entry until it is deleted explicitly
const NoExpiration time.Duration = -1

// CacheInterface defines the contract for cache implementations.
// Values are opaque byte payloads so the in-memory and Redis backends behave the same.
type CacheInterface interface {
	// Set stores a value in cache with the given key and duration
	Set(key string, value []byte, duration time.Duration)

	// Get retrieves a value from cache by key
	// Returns the value and true if found, nil and false otherwise
	Get(key string) ([]byte, bool)

	// Delete removes a value from cache by key
	Delete(key string)

	// DeletePrefix removes every key starting with prefix
	DeletePrefix(prefix string)

	// Close closes any underlying connections (for Redis, etc.)
	Close() error
}
