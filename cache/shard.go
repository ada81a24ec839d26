package cache

import (
	"sync"

	"github.com/kvedge/kvedge/internal/util"
)

// entry is an intrusive doubly linked list element owned by its shard. The
// shard map's value points at the entry, which carries its own list links,
// so promotion and unlink never need a second map lookup. The list owns
// the node; the map holds a non-owning locator.
type entry struct {
	key   string
	value []byte

	// List links: head is most recently used, tail is least.
	prev *entry
	next *entry
}

// shard is an independent partition of the cache: one lock guarding one
// map and one recency list. A key resident in this shard's map is always
// reachable from its list and vice versa.
type shard struct {
	// guarded by mu
	mu   sync.RWMutex
	m    map[string]*entry
	head *entry // MRU
	tail *entry // LRU
	cap  int

	metrics Metrics
	onEvict func(key string, value []byte)

	// hot counters on separate cache lines to avoid false sharing
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicUint64
}

func newShard(capacity int, metrics Metrics, onEvict func(key string, value []byte)) *shard {
	return &shard{
		m:       make(map[string]*entry, capacity),
		cap:     capacity,
		metrics: metrics,
		onEvict: onEvict,
	}
}

// get returns the value for key, promoting the entry to MRU on hit.
func (s *shard) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok {
		s.misses.Add(1)
		s.metrics.Miss()
		return nil, false
	}
	s.moveToFront(e)
	s.hits.Add(1)
	s.metrics.Hit()
	return e.value, true
}

// put inserts or updates key→value. On insert at capacity, the LRU entry
// is evicted before the new one is recorded, so len(s.m) never exceeds
// s.cap, even transiently.
func (s *shard) put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.m[key]; ok {
		e.value = value
		s.moveToFront(e)
		return
	}

	if len(s.m) >= s.cap {
		s.evictLocked(s.tail)
	}
	e := &entry{key: key, value: value}
	s.m[key] = e
	s.pushFront(e)
	s.metrics.Entries(1)
}

// remove deletes key if present. Explicit removal is not counted as an
// eviction.
func (s *shard) remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok {
		return false
	}
	s.unlink(e)
	delete(s.m, key)
	s.metrics.Entries(-1)
	return true
}

// entries returns the resident entry count for this shard.
func (s *shard) entries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// walkKeys invokes visit for every resident key, holding the shard's read
// lock for the duration of the walk.
func (s *shard) walkKeys(visit func(key string)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k := range s.m {
		visit(k)
	}
}

// -------------------- internals (mu held) --------------------

// pushFront inserts e at MRU in O(1).
func (s *shard) pushFront(e *entry) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

// moveToFront promotes e to MRU in O(1).
func (s *shard) moveToFront(e *entry) {
	if e == s.head {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if s.tail == e {
		s.tail = e.prev
	}
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
}

// unlink detaches e from the list in O(1).
func (s *shard) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if s.head == e {
		s.head = e.next
	}
	if s.tail == e {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

// evictLocked removes e from list and map, counting it as an eviction.
func (s *shard) evictLocked(e *entry) {
	if e == nil {
		return
	}
	s.unlink(e)
	delete(s.m, e.key)
	s.evicts.Add(1)
	s.metrics.Evict()
	s.metrics.Entries(-1)
	if cb := s.onEvict; cb != nil {
		cb(e.key, e.value)
	}
}
