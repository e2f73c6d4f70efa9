package core

import "context"

// Cache is any service that can cache serializable values with a TTL.
type Cache interface {
	// Get tries to populate dest (a pointer) with the value stored under key.
	// It returns (true, nil) on a hit and (false, nil) on a miss.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set serializes and stores val under key with a TTL in seconds.
	// ttlSecs <= 0 falls back to the adapter's default TTL.
	Set(ctx context.Context, key string, val interface{}, ttlSecs int) error

	// Delete removes key from the cache.
	Delete(ctx context.Context, key string) error
}
