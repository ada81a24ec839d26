package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kvedge/kvedge/kverrors"
)

// Config configures a Pool. DSN and Dialer are opaque to everything above
// this package.
type Config struct {
	// DSN is the backing store connection string, passed to Dialer as-is.
	DSN string

	// Size is the fixed number of live sessions the pool holds open for
	// its entire lifetime. Must be positive.
	Size int

	// Dialer opens one session. Nil defaults to PGXDialer.
	Dialer Dialer

	// Metrics receives wait/in-use observability signals. Nil defaults to
	// NoopMetrics.
	Metrics Metrics
}

// Pool is a fixed-size set of live sessions to the backing store, handed
// out one at a time. See package doc for the concurrency design.
type Pool struct {
	dsn    string
	size   int
	dialer Dialer
	metric Metrics

	tokens chan struct{} // one token per free slot
	closed atomic.Bool
	closeCh chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	idle      []Conn       // LIFO stack of free sessions
	checkedOut map[Conn]bool
}

// New opens Config.Size sessions via Config.Dialer and returns a ready
// Pool, or a kverrors.ConnectError wrapping the first dial failure — any
// sessions already opened are closed before returning.
func New(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.Size <= 0 {
		panic("pool: Size must be > 0")
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = PGXDialer
	}
	metric := cfg.Metrics
	if metric == nil {
		metric = NoopMetrics{}
	}

	conns := make([]Conn, 0, cfg.Size)
	for i := 0; i < cfg.Size; i++ {
		c, err := dialer(ctx, cfg.DSN)
		if err != nil {
			for _, opened := range conns {
				_ = opened.Close(context.Background())
			}
			return nil, fmt.Errorf("%w: session %d/%d: %v", kverrors.ConnectError, i+1, cfg.Size, err)
		}
		conns = append(conns, c)
	}

	tokens := make(chan struct{}, cfg.Size)
	for i := 0; i < cfg.Size; i++ {
		tokens <- struct{}{}
	}

	p := &Pool{
		dsn:        cfg.DSN,
		size:       cfg.Size,
		dialer:     dialer,
		metric:     metric,
		tokens:     tokens,
		closeCh:    make(chan struct{}),
		idle:       conns,
		checkedOut: make(map[Conn]bool, cfg.Size),
	}
	metric.Size(cfg.Size)
	return p, nil
}

// Acquire blocks until a session is free or ctx is done. A Pool that has
// been shut down returns kverrors.Shutdown immediately.
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	if p.closed.Load() {
		return nil, kverrors.Shutdown
	}

	select {
	case <-p.tokens:
	case <-p.closeCh:
		return nil, kverrors.Shutdown
	case <-ctx.Done():
		p.metric.Timeout()
		return nil, fmt.Errorf("%w: %v", kverrors.Timeout, ctx.Err())
	}

	p.mu.Lock()
	if p.closed.Load() || len(p.idle) == 0 {
		// Raced with Shutdown after the token was already handed out;
		// return the token and report Shutdown instead of panicking on
		// an empty stack.
		p.mu.Unlock()
		p.tokens <- struct{}{}
		return nil, kverrors.Shutdown
	}
	n := len(p.idle) - 1
	c := p.idle[n]
	p.idle = p.idle[:n]
	p.mu.Unlock()

	// pgx connections do not silently redial. Replace a session that
	// died while idle before handing it out. On redial failure the dead
	// session goes back on the stack with its token, keeping the pool at
	// exactly N sessions; a later Acquire retries the redial.
	if c.IsClosed() {
		fresh, err := p.dialer(ctx, p.dsn)
		if err != nil {
			p.mu.Lock()
			p.idle = append(p.idle, c)
			p.mu.Unlock()
			p.tokens <- struct{}{}
			return nil, fmt.Errorf("%w: redial: %v", kverrors.ConnectError, err)
		}
		c = fresh
	}

	p.mu.Lock()
	p.checkedOut[c] = true
	inUse := p.size - len(p.idle)
	p.mu.Unlock()

	p.metric.InUse(inUse)
	return c, nil
}

// Release returns a session to the pool and wakes at most one waiter.
// Releasing a session not obtained from this pool, or releasing it twice,
// is a programming error and panics rather than silently corrupting pool
// bookkeeping.
func (p *Pool) Release(c Conn) {
	p.mu.Lock()
	if !p.checkedOut[c] {
		p.mu.Unlock()
		panic("pool: Release called with a session not currently checked out of this pool")
	}
	delete(p.checkedOut, c)
	p.idle = append(p.idle, c)
	inUse := p.size - len(p.idle)
	p.mu.Unlock()

	p.metric.InUse(inUse)
	p.tokens <- struct{}{}
}

// Shutdown waits for every outstanding session to be released, closes all
// sessions exactly once, and makes subsequent Acquire calls fail with
// kverrors.Shutdown. Calling Shutdown more than once is a no-op.
func (p *Pool) Shutdown(ctx context.Context) error {
	first := false
	p.closeOnce.Do(func() {
		first = true
		p.closed.Store(true)
		close(p.closeCh)
	})
	if !first {
		return nil
	}

	for i := 0; i < p.size; i++ {
		select {
		case <-p.tokens:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.idle {
		_ = c.Close(context.Background())
	}
	p.idle = nil
	return nil
}

// Len reports the number of sessions currently idle (available to acquire).
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Size reports the fixed pool size N. At every instant the number of
// idle sessions plus the number handed out equals N.
func (p *Pool) Size() int { return p.size }
