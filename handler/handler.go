package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/kvedge/kvedge/cache"
	"github.com/kvedge/kvedge/internal/flight"
	"github.com/kvedge/kvedge/kverrors"
	"github.com/kvedge/kvedge/pool"
	"github.com/kvedge/kvedge/store"
	"github.com/kvedge/kvedge/writer"
)

// Config bounds request payload sizes. Zero fields mean "no limit" — callers
// are expected to fill these from config.WithDefaults before constructing a
// Handler.
type Config struct {
	MaxKeyLen   int
	MaxValueLen int
}

// Handler wires the cache, pool, store and writer into the three service
// operations. It holds no transport knowledge: Create/Read/Delete take and
// return plain Go values, never HTTP types.
type Handler struct {
	cache   *cache.Cache
	pool    *pool.Pool
	store   store.Store
	writer  *writer.Writer
	flights flight.Group
	cfg     Config
}

// New constructs a Handler over an already-running cache, pool, store and
// writer. None of these are owned by the Handler — callers start and stop
// them.
func New(c *cache.Cache, p *pool.Pool, s store.Store, w *writer.Writer, cfg Config) *Handler {
	return &Handler{cache: c, pool: p, store: s, writer: w, cfg: cfg}
}

// Create inserts or updates key→value: update the cache first, then
// enqueue the store write. Cache-before-enqueue is what makes a
// same-process read-your-writes guarantee hold without waiting on the
// store.
func (h *Handler) Create(ctx context.Context, key string, value []byte) error {
	if err := h.validate(key, value); err != nil {
		return err
	}
	h.cache.Put(key, value)
	if err := h.writer.EnqueueUpsert(ctx, key, value); err != nil {
		return fmt.Errorf("handler: enqueue upsert %q: %w", key, err)
	}
	return nil
}

// Read serves from the cache on hit. On miss it acquires a pooled
// connection, performs a synchronous store lookup, releases the
// connection, and populates the cache before returning. Concurrent misses
// for the same key are coalesced into a single store query.
func (h *Handler) Read(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", kverrors.BadRequest)
	}
	if v, ok := h.cache.Get(key); ok {
		return v, nil
	}

	value, found, err := h.flights.Do(ctx, key, func() ([]byte, bool, error) {
		conn, aerr := h.pool.Acquire(ctx)
		if aerr != nil {
			return nil, false, fmt.Errorf("handler: acquire for read %q: %w", key, aerr)
		}
		defer h.pool.Release(conn)
		return h.store.Lookup(ctx, conn, key)
	})
	if err != nil {
		// A follower whose own context expired while waiting on the
		// leader's lookup gets a bare context error; surface it as the
		// same kind an Acquire timeout would produce.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: read %q: %v", kverrors.Timeout, key, err)
		}
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", kverrors.NotFound, key)
	}
	h.cache.Put(key, value)
	return value, nil
}

// Delete removes key from the cache, then enqueues a store delete.
func (h *Handler) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", kverrors.BadRequest)
	}
	h.cache.Remove(key)
	if err := h.writer.EnqueueDelete(ctx, key); err != nil {
		return fmt.Errorf("handler: enqueue delete %q: %w", key, err)
	}
	return nil
}

func (h *Handler) validate(key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", kverrors.BadRequest)
	}
	if h.cfg.MaxKeyLen > 0 && len(key) > h.cfg.MaxKeyLen {
		return fmt.Errorf("%w: key length %d exceeds %d", kverrors.BadRequest, len(key), h.cfg.MaxKeyLen)
	}
	if h.cfg.MaxValueLen > 0 && len(value) > h.cfg.MaxValueLen {
		return fmt.Errorf("%w: value length %d exceeds %d", kverrors.BadRequest, len(value), h.cfg.MaxValueLen)
	}
	return nil
}
