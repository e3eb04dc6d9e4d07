package cache

import (
	"encoding/json"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	vperrors "github.com/saltops/vaultpillar/internal/errors"
	"github.com/saltops/vaultpillar/internal/logging"
	"github.com/saltops/vaultpillar/internal/metrics"
)

// Memcached caches serialized secret values in a memcached instance
// reached over a unix socket. TTL is applied at write time; entries are
// never explicitly invalidated.
type Memcached struct {
	client     *memcache.Client
	expiration int32
	logger     *logging.Logger
}

// NewMemcached connects to the memcached socket. expiration is the entry
// TTL in seconds, timeoutMs bounds each cache operation.
func NewMemcached(socket string, expiration, timeoutMs int, logger *logging.Logger) *Memcached {
	client := memcache.New(socket)
	client.Timeout = time.Duration(timeoutMs) * time.Millisecond

	return &Memcached{
		client:     client,
		expiration: int32(expiration),
		logger:     logger,
	}
}

// Get returns the cached value for key, or a miss. Transport failures
// are logged and reported as misses.
func (c *Memcached) Get(key string) (interface{}, bool) {
	item, err := c.client.Get(key)
	if err == memcache.ErrCacheMiss {
		metrics.RecordCache("miss")
		return nil, false
	}
	if err != nil {
		metrics.RecordCache("error")
		c.logger.Warn("%v", vperrors.CacheError{Op: "get", Err: err})

		return nil, false
	}

	var value interface{}
	if err := json.Unmarshal(item.Value, &value); err != nil {
		metrics.RecordCache("error")
		c.logger.Warn("%v", vperrors.CacheError{Op: "decode", Err: err})

		return nil, false
	}

	metrics.RecordCache("hit")

	return value, true
}

// Set stores value under key with the configured TTL. Failures are
// logged and dropped.
func (c *Memcached) Set(key string, value interface{}) {
	encoded, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("%v", vperrors.CacheError{Op: "encode", Err: err})
		return
	}

	err = c.client.Set(&memcache.Item{
		Key:        key,
		Value:      encoded,
		Expiration: c.expiration,
	})
	if err != nil {
		metrics.RecordCache("error")
		c.logger.Warn("%v", vperrors.CacheError{Op: "set", Err: err})
	}
}
