// Package pool implements a fixed-size connection pool over the backing
// store: a caller-supplied number of live sessions are opened once at
// construction and handed out one at a time to callers, blocking when none
// are free.
//
// Design
//
//   - Construction (New) either yields a pool with exactly Config.Size live
//     sessions, or fails with kverrors.ConnectError wrapping the dial
//     failure; any sessions already opened before the failure are closed —
//     partial pools are never exposed.
//
//   - Acquire blocks until a session is available or ctx is done. Internally
//     a buffered channel of Config.Size tokens stands in for "a free slot
//     exists"; a mutex-guarded LIFO stack holds the actual idle sessions.
//     Selecting on the token channel and ctx.Done() gives a native,
//     cancellable blocking wait without hand-rolling a condition variable
//     that can't be selected against a context deadline.
//
//   - Release returns a session to the stack and its token to the channel,
//     waking at most one blocked Acquire. Releasing a session not obtained
//     from this pool, or releasing the same session twice, is a programming
//     error; Release panics in that case rather than silently corrupting
//     pool bookkeeping.
//
//   - Shutdown waits for every outstanding session to be released (by
//     draining all Config.Size tokens), closes every session exactly once,
//     and causes subsequent Acquire calls to fail with kverrors.Shutdown.
//
// The pool never probes session health. A session whose next query fails
// still must be released back to the pool; callers see that failure as a
// kverrors.StoreError independent of pool state (see package store).
package pool
