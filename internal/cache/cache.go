// Package cache provides an in-memory TTL cache for idempotent tracker
// read results.
//
// Keys are opaque strings, typically composed from operation name, provider,
// and filter parameters. Expired entries are evicted lazily on read; a
// periodic sweep bounds memory independent of read activity.
package cache

import (
	"sync"
	"time"
)

const (
	// DefaultTTL applies when Set is called with a non-positive TTL.
	DefaultTTL = 5 * time.Minute
	// DefaultSweepInterval is how often the background sweep runs.
	DefaultSweepInterval = 10 * time.Minute
)

// entry pairs a stored value with its expiry timestamp.
type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Stats reports cache activity counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Cache is a TTL cache shared process-wide. All access is mutex-guarded;
// the internal map is the single source of truth.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	hits    int64
	misses  int64

	defaultTTL time.Duration

	stopOnce sync.Once
	stop     chan struct{}

	now func() time.Time
}

// New creates a cache with the given default TTL (DefaultTTL when
// non-positive) and starts the background sweep. Call Stop at shutdown.
func New(defaultTTL time.Duration) *Cache {
	return NewWithSweep(defaultTTL, DefaultSweepInterval)
}

// NewWithSweep is New with an explicit sweep interval. A non-positive
// interval disables the background sweep; lazy expiration on read is
// sufficient for correctness.
func NewWithSweep(defaultTTL, sweepInterval time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	c := &Cache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		stop:       make(chan struct{}),
		now:        time.Now,
	}
	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}
	return c
}

// Get returns the cached value for key. A read past the entry's expiry is a
// miss and removes the entry.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key with the given TTL. A non-positive TTL selects
// the cache default.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

// Delete removes a single entry.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops all entries unconditionally, for forced-refresh scenarios.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Stats returns a snapshot of cache activity.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}

// Stop halts the background sweep. The cache remains usable.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep proactively removes expired entries independent of read activity.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
