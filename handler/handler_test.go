package handler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kvedge/kvedge/cache"
	"github.com/kvedge/kvedge/kverrors"
	"github.com/kvedge/kvedge/pool"
	"github.com/kvedge/kvedge/writer"
)

type fakeConn struct{ id int }

func (fakeConn) Exec(ctx context.Context, sql string, args ...any) error { return nil }
func (fakeConn) QueryRow(ctx context.Context, sql string, args ...any) pool.Row {
	return nil
}
func (fakeConn) Close(ctx context.Context) error { return nil }
func (fakeConn) IsClosed() bool                  { return false }

func newTestPool(t *testing.T, size int) *pool.Pool {
	t.Helper()
	n := 0
	dialer := func(ctx context.Context, dsn string) (pool.Conn, error) {
		n++
		return fakeConn{id: n}, nil
	}
	p, err := pool.New(context.Background(), pool.Config{Size: size, Dialer: dialer})
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p
}

// fakeStore is an in-memory stand-in for a real Postgres-backed store.Store,
// so these tests exercise the handler's orchestration without standing up
// a live database. It counts Lookup calls to verify the cache short-circuits
// the store on a hit (S1, S2).
type fakeStore struct {
	mu     sync.Mutex
	rows   map[string][]byte
	lookups atomic.Int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string][]byte)}
}

func (s *fakeStore) Upsert(ctx context.Context, conn pool.Conn, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[key] = append([]byte(nil), value...)
	return nil
}

func (s *fakeStore) Lookup(ctx context.Context, conn pool.Conn, key string) ([]byte, bool, error) {
	s.lookups.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.rows[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *fakeStore) Delete(ctx context.Context, conn pool.Conn, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, key)
	return nil
}

func (s *fakeStore) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.rows[key]
	return v, ok
}

func (s *fakeStore) queryCount() int64 { return s.lookups.Load() }

type testEnv struct {
	h   *Handler
	st  *fakeStore
	w   *writer.Writer
	ctx context.Context
}

func newTestEnv(t *testing.T, shards, perShardCap, poolSize int) *testEnv {
	t.Helper()
	c := cache.New(cache.Config{Shards: shards, PerShardCapacity: perShardCap})
	p := newTestPool(t, poolSize)
	st := newFakeStore()
	w := writer.New(writer.Config{Pool: p, Store: st, QueueCapacity: 64})
	if err := w.Start(); err != nil {
		t.Fatalf("writer.Start: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop(context.Background()) })

	h := New(c, p, st, w, Config{MaxKeyLen: 512, MaxValueLen: 4096})
	return &testEnv{h: h, st: st, w: w, ctx: context.Background()}
}

func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	if err := e.w.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

// S1 — hit path: a cached value is returned without any store query.
func TestHandler_HitPath(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 2, 2, 2)

	if err := e.h.Create(e.ctx, "a", []byte("1")); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if err := e.h.Create(e.ctx, "b", []byte("2")); err != nil {
		t.Fatalf("Create b: %v", err)
	}

	v, err := e.h.Read(e.ctx, "a")
	if err != nil {
		t.Fatalf("Read a: %v", err)
	}
	if string(v) != "1" {
		t.Fatalf("Read a = %q, want %q", v, "1")
	}
	if n := e.st.queryCount(); n != 0 {
		t.Fatalf("store query counter = %d, want 0 (should be served from cache)", n)
	}
}

// S2 — miss path: a store-only row is fetched once, then served from
// cache on the next read.
func TestHandler_MissPathPopulatesCache(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 2, 2, 2)
	e.st.rows["x"] = []byte("42")

	v, err := e.h.Read(e.ctx, "x")
	if err != nil {
		t.Fatalf("Read x: %v", err)
	}
	if string(v) != "42" {
		t.Fatalf("Read x = %q, want %q", v, "42")
	}
	before := e.st.queryCount()

	v2, err := e.h.Read(e.ctx, "x")
	if err != nil {
		t.Fatalf("second Read x: %v", err)
	}
	if string(v2) != "42" {
		t.Fatalf("second Read x = %q, want %q", v2, "42")
	}
	if after := e.st.queryCount(); after != before {
		t.Fatalf("store query counter changed on cached read: %d -> %d", before, after)
	}
}

// S3 — eviction: refreshing k1 before k4 is inserted spares it from
// eviction; k2 (never refreshed) is evicted instead.
func TestHandler_EvictionOrder(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 1, 3, 1)

	for _, k := range []string{"k1", "k2", "k3"} {
		if err := e.h.Create(e.ctx, k, []byte(k)); err != nil {
			t.Fatalf("Create %s: %v", k, err)
		}
	}
	if _, err := e.h.Read(e.ctx, "k1"); err != nil {
		t.Fatalf("Read k1: %v", err)
	}
	if err := e.h.Create(e.ctx, "k4", []byte("k4")); err != nil {
		t.Fatalf("Create k4: %v", err)
	}

	present := map[string]bool{}
	e.anyCacheKeys(t, present)
	want := map[string]bool{"k1": true, "k3": true, "k4": true}
	if len(present) != len(want) {
		t.Fatalf("resident keys = %v, want %v", present, want)
	}
	for k := range want {
		if !present[k] {
			t.Fatalf("expected %q resident, got %v", k, present)
		}
	}
}

func (e *testEnv) anyCacheKeys(t *testing.T, out map[string]bool) {
	t.Helper()
	e.h.cache.IterDebug(func(shard int, k string) {
		out[k] = true
	})
}

// S4 — write-behind visibility: a write is visible to a concurrent
// same-process read immediately, and reaches the store once the writer
// drains.
func TestHandler_WriteBehindVisibility(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 2, 4, 2)

	if err := e.h.Create(e.ctx, "u", []byte("v")); err != nil {
		t.Fatalf("Create u: %v", err)
	}
	v, err := e.h.Read(e.ctx, "u")
	if err != nil {
		t.Fatalf("Read u: %v", err)
	}
	if string(v) != "v" {
		t.Fatalf("Read u = %q, want %q (local read-your-writes)", v, "v")
	}

	e.drain(t)
	stored, ok := e.st.get("u")
	if !ok || string(stored) != "v" {
		t.Fatalf("store state after drain = (%q, %v), want (%q, true)", stored, ok, "v")
	}
}

// S5 — delete ordering: put, delete, put on the same key apply to the
// store in enqueue order.
func TestHandler_DeleteOrdering(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 2, 4, 2)

	if err := e.h.Create(e.ctx, "d", []byte("1")); err != nil {
		t.Fatalf("Create d=1: %v", err)
	}
	if err := e.h.Delete(e.ctx, "d"); err != nil {
		t.Fatalf("Delete d: %v", err)
	}
	if err := e.h.Create(e.ctx, "d", []byte("2")); err != nil {
		t.Fatalf("Create d=2: %v", err)
	}

	e.drain(t)
	stored, ok := e.st.get("d")
	if !ok || string(stored) != "2" {
		t.Fatalf("store state after drain = (%q, %v), want (%q, true)", stored, ok, "2")
	}
}

// S6 — pool exhaustion: a blocked acquirer gets Timeout, then succeeds
// once the holder releases.
func TestHandler_PoolExhaustion(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 1)

	held, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire (holder): %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	if !errors.Is(err, kverrors.Timeout) {
		t.Fatalf("second Acquire err = %v, want kverrors.Timeout", err)
	}

	p.Release(held)
	fresh, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	p.Release(fresh)
}

// Empty keys are rejected at every operation.
func TestHandler_BadRequestOnEmptyKey(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 2, 2, 2)

	if err := e.h.Create(e.ctx, "", []byte("x")); !errors.Is(err, kverrors.BadRequest) {
		t.Fatalf("Create empty key err = %v, want BadRequest", err)
	}
	if _, err := e.h.Read(e.ctx, ""); !errors.Is(err, kverrors.BadRequest) {
		t.Fatalf("Read empty key err = %v, want BadRequest", err)
	}
	if err := e.h.Delete(e.ctx, ""); !errors.Is(err, kverrors.BadRequest) {
		t.Fatalf("Delete empty key err = %v, want BadRequest", err)
	}
}

// Oversize keys/values are rejected with BadRequest.
func TestHandler_BadRequestOnOversizePayload(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 2, 2, 2)

	bigKey := make([]byte, 600)
	if err := e.h.Create(e.ctx, string(bigKey), []byte("x")); !errors.Is(err, kverrors.BadRequest) {
		t.Fatalf("Create oversize key err = %v, want BadRequest", err)
	}

	bigValue := make([]byte, 5000)
	if err := e.h.Create(e.ctx, "k", bigValue); !errors.Is(err, kverrors.BadRequest) {
		t.Fatalf("Create oversize value err = %v, want BadRequest", err)
	}
}

// Read against a key absent from both cache and store returns NotFound.
func TestHandler_ReadNotFound(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 2, 2, 2)

	if _, err := e.h.Read(e.ctx, "nope"); !errors.Is(err, kverrors.NotFound) {
		t.Fatalf("Read missing key err = %v, want NotFound", err)
	}
}
