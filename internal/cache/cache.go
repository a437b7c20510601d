// Package cache stores computed neighbour results for a short time.
//
// Only finished answers are cached, keyed by the query that produced them; star
// edges themselves are never kept. Three backends are provided:
//   - NullCache: caching disabled
//   - MemoryCache: process-local, for a single instance or the CLI
//   - RedisCache: shared between instances
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the stored bytes and true, or false on a miss or expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key for ttl. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend's resources.
	Close() error
}
