// Package kverrors defines the error kinds surfaced across the cache/pool/
// writer/store/handler boundary. Callers identify a kind with errors.Is;
// call sites wrap it with context via fmt.Errorf("...: %w", kind).
package kverrors

import "errors"

var (
	// BadRequest marks a request rejected at the handler boundary: an empty
	// key, or a key/value past the configured size limit.
	BadRequest = errors.New("kvedge: bad request")

	// NotFound marks a read against a key present in neither the cache nor
	// the backing store.
	NotFound = errors.New("kvedge: not found")

	// StoreError marks a backing-store statement that was rejected or
	// failed. Returned to the caller on synchronous reads; logged and
	// swallowed on async writes (write-behind never surfaces per-task
	// errors to the original caller).
	StoreError = errors.New("kvedge: store error")

	// Timeout marks a pool acquisition or queue enqueue that exceeded its
	// caller-supplied deadline without acquiring or enqueueing.
	Timeout = errors.New("kvedge: timeout")

	// Shutdown marks an operation attempted after the pool or writer was
	// stopped.
	Shutdown = errors.New("kvedge: shutdown")

	// ConnectError marks a connection pool that failed to construct all of
	// its sessions. Partial pools are never exposed; any sessions opened
	// before the failure are closed. Acquire also returns it when redialing
	// a dead idle session fails.
	ConnectError = errors.New("kvedge: connect error")
)
