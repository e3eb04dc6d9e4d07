// Package cache implements the best-effort cache layer fronting secret
// fetches. Every backend degrades gracefully: a transport failure is a
// miss on read and a dropped write on store, never an error surfaced to
// the resolution.
package cache

import (
	"github.com/saltops/vaultpillar/internal/config"
	"github.com/saltops/vaultpillar/internal/logging"
	"github.com/saltops/vaultpillar/pkg/pillar"
)

// Nop is the default cache when no socket is configured: every Get is a
// miss and every Set is discarded.
type Nop struct{}

func (Nop) Get(string) (interface{}, bool) { return nil, false }

func (Nop) Set(string, interface{}) {}

// FromConfig selects the cache backend: memcached when a socket is
// configured, otherwise the pass-through.
func FromConfig(cfg *config.Config, logger *logging.Logger) pillar.Cache {
	if cfg.MemcachedSocket == "" {
		return Nop{}
	}

	return NewMemcached(cfg.MemcachedSocket, cfg.MemcachedExpiration, cfg.MemcachedTimeout, logger)
}
