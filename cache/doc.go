// Package cache implements the sharded, bounded LRU cache that fronts the
// backing store: a map from key to the most recently observed value, split
// into independently locked partitions so concurrent requests rarely
// contend on the same lock.
//
// Design
//
//   - Sharding: a key belongs to exactly one shard, selected by a stable
//     64-bit FNV-1a hash of the key modulo the shard count. Shard count and
//     per-shard capacity are fixed at construction.
//
//   - Storage: each shard keeps a map[string]*entry for lookups and an
//     intrusive MRU↔LRU doubly linked list for recency ordering. The map
//     value points at the entry's own list node, so promotion and unlink
//     are O(1) with no second lookup.
//
//   - Eviction: strict LRU within a shard. When a shard is at capacity and
//     a new key arrives, the least recently used entry is evicted before
//     the new one is recorded, so a shard never holds more than its
//     configured capacity, even transiently. Eviction never crosses
//     shards: a hot shard cannot spill into a cold one.
//
//   - Concurrency: one RWMutex per shard. Operations on different shards
//     proceed in parallel; operations on the same shard serialize. No
//     operation ever holds two shard locks at once, which also means
//     Len and IterDebug are per-shard-consistent, not global snapshots.
//
//   - Metrics: Config.Metrics receives Hit/Miss/Evict/Entries signals.
//     NoopMetrics is the default; metrics/prom provides a Prometheus
//     adapter.
//
// Basic usage
//
//	c := cache.New(cache.Config{Shards: 32, PerShardCapacity: 256})
//	c.Put("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v
//	}
//	c.Remove("a")
//
// All methods are safe for concurrent use. Typical operation cost is O(1)
// expected time: one hash, one map access, and a constant number of
// pointer fixes under a single shard lock.
package cache
