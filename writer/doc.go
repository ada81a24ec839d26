// Package writer implements the asynchronous write-behind worker: a single
// background goroutine drains a bounded FIFO queue of store mutations,
// applying each against the backing store through a session borrowed from
// pool.Pool.
//
// Stop drains: it closes the task channel and waits for the worker to
// empty it before returning, so every write acknowledged to a client is
// applied to the store, or its failure logged, before shutdown completes.
//
// Delivery is at-most-once: a task that fails against the store is logged
// and discarded, never retried. A retry would reorder against later tasks
// queued for the same key, and FIFO order through a single worker is what
// keeps the store converging on each key's last write.
package writer
