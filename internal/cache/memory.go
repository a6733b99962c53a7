package cache

import (
	"sync"
)

// MemoryCache is an unbounded in-memory cache with lazy TTL expiry
type MemoryCache struct {
	opts    Options
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(opts Options) *MemoryCache {
	return &MemoryCache{
		opts:    opts,
		entries: make(map[string]Entry),
	}
}

// Get retrieves a value from the cache
func (mc *MemoryCache) Get(key string) (Entry, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	entry, ok := mc.entries[key]
	if !ok {
		return Entry{}, false
	}

	// Expired entries are dropped on lookup only
	if !entry.Valid(mc.opts.now(), mc.opts.TTL) {
		delete(mc.entries, key)
		return Entry{}, false
	}

	return entry, true
}

// Set stores a value in the cache
func (mc *MemoryCache) Set(key string, payload []byte) {
	entry := Entry{
		Key:      key,
		Payload:  payload,
		StoredAt: mc.opts.now(),
	}

	mc.mu.Lock()
	mc.entries[key] = entry
	mc.mu.Unlock()
}

// Flush removes all entries
func (mc *MemoryCache) Flush() {
	mc.mu.Lock()
	mc.entries = make(map[string]Entry)
	mc.mu.Unlock()
}

// Len returns the number of stored entries
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.entries)
}

// Close does nothing; the map lives as long as the cache
func (mc *MemoryCache) Close() error {
	return nil
}

// NoopCache is a cache that does nothing (used when caching is disabled)
type NoopCache struct{}

// NewNoopCache creates a new no-op cache
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

// Get always returns not found
func (nc *NoopCache) Get(key string) (Entry, bool) {
	return Entry{}, false
}

// Set does nothing
func (nc *NoopCache) Set(key string, payload []byte) {}

// Flush does nothing
func (nc *NoopCache) Flush() {}

// Len always returns zero
func (nc *NoopCache) Len() int { return 0 }

// Close does nothing
func (nc *NoopCache) Close() error { return nil }
