package cache

import (
	"sync"
	"time"
)

// Memory is an in-process TTL cache. It backs single-master setups that
// have no memcached, and the cache tests.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	expiration time.Duration

	// now is replaceable for TTL tests.
	now func() time.Time
}

type memoryEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewMemory creates an in-memory cache with the given TTL in seconds.
func NewMemory(expiration int) *Memory {
	return &Memory{
		entries:    make(map[string]memoryEntry),
		expiration: time.Duration(expiration) * time.Second,
		now:        time.Now,
	}
}

func (c *Memory) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	return entry.value, true
}

func (c *Memory) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		value:     value,
		expiresAt: c.now().Add(c.expiration),
	}
}
