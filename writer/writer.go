package writer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kvedge/kvedge/kverrors"
	"github.com/kvedge/kvedge/pool"
	"github.com/kvedge/kvedge/store"
)

// Config configures a Writer.
type Config struct {
	Pool           *pool.Pool
	Store          store.Store
	QueueCapacity  int
	AcquireTimeout time.Duration
	Metrics        Metrics
}

// Writer drains a bounded FIFO of store mutations on a single background
// goroutine, applying each against the backing store. See package doc for
// the drain-on-stop and at-most-once delivery guarantees.
type Writer struct {
	pool   *pool.Pool
	store  store.Store
	tasks  chan task
	metric Metrics
	acqTO  time.Duration

	started atomic.Bool
	doneCh  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// New constructs a Writer. Call Start to begin draining it.
func New(cfg Config) *Writer {
	metric := cfg.Metrics
	if metric == nil {
		metric = NoopMetrics{}
	}
	return &Writer{
		pool:   cfg.Pool,
		store:  cfg.Store,
		tasks:  make(chan task, cfg.QueueCapacity),
		metric: metric,
		acqTO:  cfg.AcquireTimeout,
		doneCh: make(chan struct{}),
	}
}

// Start launches the background worker. Calling Start more than once
// returns an error; it is not idempotent, unlike Stop.
func (w *Writer) Start() error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("kvedge: writer already started")
	}
	go w.loop()
	return nil
}

// EnqueueUpsert queues a store upsert for key/value. It blocks until the
// queue has room, ctx is done, or Config.AcquireTimeout (when positive)
// elapses, whichever comes first.
func (w *Writer) EnqueueUpsert(ctx context.Context, key string, value []byte) error {
	return w.enqueue(ctx, task{kind: taskUpsert, key: key, value: value})
}

// EnqueueDelete queues a store delete for key.
func (w *Writer) EnqueueDelete(ctx context.Context, key string) error {
	return w.enqueue(ctx, task{kind: taskDelete, key: key})
}

func (w *Writer) enqueue(ctx context.Context, t task) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return kverrors.Shutdown
	}
	if w.acqTO > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.acqTO)
		defer cancel()
	}
	select {
	case w.tasks <- t:
		w.metric.QueueDepth(len(w.tasks))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", kverrors.Timeout, ctx.Err())
	}
}

// Stop closes the queue to further writes and waits for the worker to
// drain every task already queued, or for ctx to be done, whichever comes
// first. Stop is idempotent: calling it again is a no-op.
func (w *Writer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		select {
		case <-w.doneCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	w.closed = true
	close(w.tasks)
	w.mu.Unlock()

	select {
	case <-w.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) loop() {
	defer close(w.doneCh)
	for t := range w.tasks {
		w.metric.QueueDepth(len(w.tasks))
		w.apply(t)
	}
}

func (w *Writer) apply(t task) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if w.acqTO > 0 {
		ctx, cancel = context.WithTimeout(ctx, w.acqTO)
		defer cancel()
	}

	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		log.Printf("writer: acquire failed for key %q: %v", t.key, err)
		w.metric.Dropped()
		return
	}
	defer w.pool.Release(conn)

	switch t.kind {
	case taskUpsert:
		err = w.store.Upsert(ctx, conn, t.key, t.value)
	case taskDelete:
		err = w.store.Delete(ctx, conn, t.key)
	}
	if err != nil {
		log.Printf("writer: store write failed for key %q, discarding: %v", t.key, err)
		w.metric.Dropped()
	}
}
