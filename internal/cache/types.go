package cache

import "time"

// Cache defines the interface for response caching.
// Implementations treat expired entries as absent and never sweep in the background.
type Cache interface {
	// Get returns the entry stored under key if it is still within the TTL
	Get(key string) (Entry, bool)

	// Set stores payload under key, replacing any previous entry
	Set(key string, payload []byte)

	// Flush removes every entry
	Flush()

	// Len reports the number of stored entries, expired ones included
	Len() int

	// Close releases any resources held by the cache
	Close() error
}

// Entry is a cached response
type Entry struct {
	Key      string
	Payload  []byte
	StoredAt time.Time
}

// Valid reports whether the entry is still fresh at now
func (e Entry) Valid(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) < ttl
}

// Clock returns the current time. Tests substitute a fake one.
type Clock func() time.Time

// Options configures the cache implementations
type Options struct {
	TTL   time.Duration
	Clock Clock
}

func (o Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}
