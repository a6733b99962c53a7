package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// BoundedCache is an in-memory cache with lazy TTL expiry that holds at most
// size entries, discarding the least recently used one when full.
type BoundedCache struct {
	opts  Options
	cache *lru.Cache[string, Entry]
	mu    sync.Mutex
}

// NewBoundedCache creates a size-limited in-memory cache
func NewBoundedCache(size int, opts Options) (*BoundedCache, error) {
	c, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, err
	}

	return &BoundedCache{
		opts:  opts,
		cache: c,
	}, nil
}

// Get retrieves a value from the cache
func (bc *BoundedCache) Get(key string) (Entry, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	entry, ok := bc.cache.Get(key)
	if !ok {
		return Entry{}, false
	}

	if !entry.Valid(bc.opts.now(), bc.opts.TTL) {
		bc.cache.Remove(key)
		return Entry{}, false
	}

	return entry, true
}

// Set stores a value in the cache
func (bc *BoundedCache) Set(key string, payload []byte) {
	entry := Entry{
		Key:      key,
		Payload:  payload,
		StoredAt: bc.opts.now(),
	}

	bc.mu.Lock()
	bc.cache.Add(key, entry)
	bc.mu.Unlock()
}

// Flush removes all entries
func (bc *BoundedCache) Flush() {
	bc.mu.Lock()
	bc.cache.Purge()
	bc.mu.Unlock()
}

// Len returns the number of stored entries
func (bc *BoundedCache) Len() int {
	return bc.cache.Len()
}

// Close does nothing
func (bc *BoundedCache) Close() error {
	return nil
}
