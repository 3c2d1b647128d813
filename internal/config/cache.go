package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the table catalog response cache.
// Caching is disabled when Enabled is false or no Redis client is
// available.  Only GET responses with status 200 are stored.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
	VaryByQuery  bool
}

// LoadCacheConfig reads CACHE_* variables.  The TTL is kept short because
// table availability and pricing are edited in place.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 10*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
		VaryByQuery:  !strings.EqualFold(envStr("CACHE_KEY_STRATEGY", "route_query"), "route"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	return cfg
}
