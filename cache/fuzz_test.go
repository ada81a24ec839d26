package cache

import (
	"strings"
	"testing"
)

// Fuzz basic Put/Get/Remove semantics under arbitrary string inputs.
// Guards against panics and checks the map/list invariants after every
// sequence. Key/value lengths are capped to keep memory bounded during
// fuzzing; the invariants checked do not depend on length.
func FuzzCache_PutGetRemove(f *testing.F) {
	// Seed corpus: empty, ASCII, Unicode, long strings.
	f.Add("", "")
	f.Add("a", "1")
	f.Add("b", "2")
	f.Add("αβγ", "δ")
	f.Add("emoji🙂", "🙂🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		const limit = 1 << 12
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		c := New(Config{Shards: 2, PerShardCapacity: 8})
		t.Cleanup(func() { _ = c.Close() })

		// Put -> Get must return the same value.
		c.Put(k, []byte(v))
		got, ok := c.Get(k)
		if !ok || string(got) != v {
			t.Fatalf("after Put/Get: want %q, got %q ok=%v", v, got, ok)
		}

		// Updating must replace the value in place.
		c.Put(k, []byte(v+"!"))
		if got2, ok := c.Get(k); !ok || string(got2) != v+"!" {
			t.Fatalf("after update: want %q, got %q ok=%v", v+"!", got2, ok)
		}
		if c.Len() != 1 {
			t.Fatalf("Len after update = %d, want 1", c.Len())
		}

		// Remove must delete and report true exactly once.
		if !c.Remove(k) {
			t.Fatal("Remove must report true")
		}
		if c.Remove(k) {
			t.Fatal("second Remove must report false")
		}
		if _, ok := c.Get(k); ok {
			t.Fatal("key must be absent after Remove")
		}

		// After removal, Put must succeed again.
		c.Put(k, []byte(v))
		if _, ok := c.Get(k); !ok {
			t.Fatal("key must be present after re-Put")
		}

		checkConsistency(t, c)
	})
}
