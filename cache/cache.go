package cache

import (
	"sync/atomic"

	"github.com/kvedge/kvedge/internal/util"
)

// Config sizes the cache. Both sizing fields are fixed for the cache's
// lifetime; total capacity is Shards * PerShardCapacity.
type Config struct {
	// Shards is the number of independently locked partitions. Must be > 0.
	Shards int

	// PerShardCapacity is the maximum resident entries per shard. Must be > 0.
	PerShardCapacity int

	// Metrics receives hit/miss/eviction/size signals. Nil => NoopMetrics.
	Metrics Metrics

	// OnEvict, if non-nil, is called for every capacity eviction, under the
	// shard lock. Keep callbacks lightweight.
	OnEvict func(key string, value []byte)
}

// Cache is a sharded in-memory LRU map from string keys to byte values.
// All methods are safe for concurrent use by multiple goroutines.
type Cache struct {
	shards []*shard
	closed atomic.Bool
}

// Stats is an aggregate of per-shard counters. Like Len, it is sampled
// shard by shard and is not a consistent global snapshot.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions uint64
	Entries   int
}

// New constructs a Cache with cfg.Shards shards of cfg.PerShardCapacity
// entries each. Panics on non-positive sizing, which is a wiring error,
// not a runtime condition.
func New(cfg Config) *Cache {
	if cfg.Shards <= 0 {
		panic("cache: Shards must be > 0")
	}
	if cfg.PerShardCapacity <= 0 {
		panic("cache: PerShardCapacity must be > 0")
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	shards := make([]*shard, cfg.Shards)
	for i := range shards {
		shards[i] = newShard(cfg.PerShardCapacity, metrics, cfg.OnEvict)
	}
	return &Cache{shards: shards}
}

// Get returns the value for key and a presence flag. On hit, the entry is
// promoted to most recently used within its shard before returning.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c.closed.Load() {
		return nil, false
	}
	return c.shardFor(key).get(key)
}

// Put inserts or updates key→value. An existing entry is updated in place
// and promoted; a new entry is inserted as most recently used, evicting
// the shard's least recently used entry first if the shard is full.
func (c *Cache) Put(key string, value []byte) {
	if c.closed.Load() {
		return
	}
	c.shardFor(key).put(key, value)
}

// Remove deletes key if present and reports whether an entry existed.
func (c *Cache) Remove(key string) bool {
	if c.closed.Load() {
		return false
	}
	return c.shardFor(key).remove(key)
}

// Len returns the total number of resident entries across all shards.
// Approximate: shards are sampled under their own locks in turn, so the
// result is per-shard-consistent but not a global snapshot.
func (c *Cache) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.entries()
	}
	return total
}

// Stats aggregates the per-shard hit/miss/eviction counters.
func (c *Cache) Stats() Stats {
	var st Stats
	for _, s := range c.shards {
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
		st.Evictions += s.evicts.Load()
		st.Entries += s.entries()
	}
	return st
}

// IterDebug walks shards in index order, each under its own lock, invoking
// visitor with (shard index, key) for every resident entry. Diagnostics
// only: no two shard locks are ever held at once, so entries inserted or
// removed during the walk may or may not be observed.
func (c *Cache) IterDebug(visitor func(shard int, key string)) {
	for i, s := range c.shards {
		s.walkKeys(func(key string) { visitor(i, key) })
	}
}

// Close marks the cache closed. Subsequent operations become no-ops; Get
// reports a miss. Shard memory is released when the Cache itself becomes
// unreachable.
func (c *Cache) Close() error {
	c.closed.Store(true)
	return nil
}

// shardFor selects the single shard owning key. The hash is deterministic
// for the process lifetime, so a key never migrates between shards.
func (c *Cache) shardFor(key string) *shard {
	h := util.HashString(key)
	return c.shards[h%uint64(len(c.shards))]
}
