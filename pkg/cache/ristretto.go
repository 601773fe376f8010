package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// RistrettoCache caches immutable round records behind the Cache
// interface. Entries are counted as cost 1 apiece: a round with its
// bets is one logical record regardless of byte size, so MaxCost is
// simply the number of recent rounds worth keeping.
type RistrettoCache struct {
	cache  *ristretto.Cache
	logger *zap.Logger
}

// RistrettoConfig holds sizing for the round record cache.
type RistrettoConfig struct {
	NumCounters int64 // Number of keys to track frequency (10x max items)
	MaxCost     int64 // Maximum number of cached records
	BufferItems int64 // Number of keys per Get buffer
	Logger      *zap.Logger
}

// NewRistrettoCache creates a Ristretto-backed round record cache with
// internal metrics enabled so Stats can report admission behaviour.
func NewRistrettoCache(cfg *RistrettoConfig) (Cache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{
		cache:  cache,
		logger: cfg.Logger,
	}, nil
}

// Get retrieves a round record from the cache.
func (r *RistrettoCache) Get(key string) (interface{}, bool) {
	value, found := r.cache.Get(key)
	if found {
		CacheHitsTotal.Inc()
		r.logger.Debug("cache-hit", zap.String("key", key))
	} else {
		CacheMissesTotal.Inc()
		r.logger.Debug("cache-miss", zap.String("key", key))
	}
	return value, found
}

// Set stores a round record with a TTL. Writes go through Ristretto's
// admission policy, so a Set may be rejected under pressure; callers
// treat the cache as best-effort and fall back to the store.
func (r *RistrettoCache) Set(key string, value interface{}, ttl time.Duration) bool {
	success := r.cache.SetWithTTL(key, value, 1, ttl)
	if success {
		CacheSetsTotal.Inc()
		r.logger.Debug("cache-set",
			zap.String("key", key),
			zap.Duration("ttl", ttl))
	}
	return success
}

// Delete removes a round record, used when a corrective auto-fix
// rewrites an already-completed round.
func (r *RistrettoCache) Delete(key string) {
	r.cache.Del(key)
	CacheDeletesTotal.Inc()
	r.logger.Debug("cache-delete", zap.String("key", key))
}

// Clear removes all cached records.
func (r *RistrettoCache) Clear() {
	r.cache.Clear()
	r.logger.Info("cache-cleared")
}

// Stats reports Ristretto's internal counters. Unlike the Prometheus
// counters these include admission-policy rejections, which is what
// tells an operator whether MaxCost is sized right.
func (r *RistrettoCache) Stats() Stats {
	m := r.cache.Metrics
	return Stats{
		Hits:        m.Hits(),
		Misses:      m.Misses(),
		Ratio:       m.Ratio(),
		KeysAdded:   m.KeysAdded(),
		KeysEvicted: m.KeysEvicted(),
	}
}

// Close closes the cache, logging final effectiveness numbers.
func (r *RistrettoCache) Close() {
	stats := r.Stats()
	r.cache.Close()
	r.logger.Info("cache-closed",
		zap.Uint64("hits", stats.Hits),
		zap.Uint64("misses", stats.Misses),
		zap.Float64("hit-ratio", stats.Ratio),
		zap.Uint64("keys-evicted", stats.KeysEvicted))
}

// Wait blocks until all pending writes have been applied.
// Useful in tests that need a value to be observable immediately.
func (r *RistrettoCache) Wait() {
	r.cache.Wait()
}
