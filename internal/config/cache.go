package config

import "time"

// CacheConfig controls the Redis cache in front of the AI model catalog.
// Writes to the catalog invalidate every key under Prefix.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", time.Hour),
		Prefix:       envStr("CACHE_PREFIX", "cache:models"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
