// Package flight coalesces concurrent store lookups for the same key: the
// first caller runs the lookup, later callers for that key block until it
// completes and share the outcome. This keeps a burst of cache misses on
// one hot key from fanning out into a pile of identical store queries that
// would each tie up a pooled session.
package flight

import (
	"context"
	"sync"
)

// lookup is one in-flight call. done is closed exactly once, after the
// outcome fields are set.
type lookup struct {
	done  chan struct{}
	value []byte
	found bool
	err   error
}

// Group deduplicates concurrent Do calls by key. The zero value is ready
// to use.
type Group struct {
	mu sync.Mutex
	m  map[string]*lookup
}

// Do invokes fn once per key among concurrent callers. Followers block
// until the leader's fn returns and receive the leader's outcome, or
// ctx.Err() if their own context expires first. The leader's fn runs with
// whatever context the leader passed it; Do itself never cancels it.
func (g *Group) Do(ctx context.Context, key string, fn func() ([]byte, bool, error)) ([]byte, bool, error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[string]*lookup)
	}
	if l, ok := g.m[key]; ok {
		g.mu.Unlock()
		select {
		case <-l.done:
			return l.value, l.found, l.err
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}

	l := &lookup{done: make(chan struct{})}
	g.m[key] = l
	g.mu.Unlock()

	l.value, l.found, l.err = fn()

	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
	close(l.done)

	return l.value, l.found, l.err
}
