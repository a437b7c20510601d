package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

const (
	// minSweepSize is the map size at which Set first sweeps expired entries.
	minSweepSize = 128
	// sweepInterval is the longest Set goes without sweeping.
	sweepInterval = time.Minute
)

// MemoryCache keeps entries in process memory. It is safe for concurrent use.
//
// Expired entries are dropped when read, and swept by Set once the map doubles
// since the last sweep or sweepInterval has passed.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	now       func() time.Time
	sweepAt   int
	lastSweep time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		sweepAt: minSweepSize,
	}
}

// Get returns a copy of the stored bytes if the entry exists and has not expired.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.data...), true, nil
}

// Set stores a copy of data under key.
func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := c.now()
	entry := memoryEntry{data: append([]byte(nil), data...)}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.sweepAt || now.Sub(c.lastSweep) >= sweepInterval {
		c.sweep(now)
	}
	c.entries[key] = entry
	return nil
}

// sweep drops expired entries. The caller holds c.mu.
func (c *MemoryCache) sweep(now time.Time) {
	for key, entry := range c.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.lastSweep = now
	c.sweepAt = max(2*len(c.entries), minSweepSize)
}

// Delete removes key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Close drops every entry.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}

var _ Cache = (*MemoryCache)(nil)
