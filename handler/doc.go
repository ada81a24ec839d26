// Package handler orchestrates the read-through/write-behind protocol
// across cache, pool, store and writer. It is transport-agnostic: it
// knows nothing about HTTP, JSON, or status codes (see package httpapi
// for that boundary).
package handler
