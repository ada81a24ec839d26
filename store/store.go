// Package store issues the parameterized UPSERT/SELECT/DELETE statements
// the service needs against a relational backing store, with a key
// uniqueness constraint assumed. Every statement binds key and value as
// query parameters — values never reach the SQL text itself.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kvedge/kvedge/kverrors"
	"github.com/kvedge/kvedge/pool"
)

const (
	upsertSQL = `INSERT INTO kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	selectSQL = `SELECT value FROM kv WHERE key = $1`
	deleteSQL = `DELETE FROM kv WHERE key = $1`

	createTableSQL = `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL
	)`
)

// Store is the backing-store contract the handler and writer consume. Every
// method is executed against a session the caller already holds — Store
// never acquires or releases a connection itself.
type Store interface {
	// Upsert writes (key, value), replacing any prior value for key.
	Upsert(ctx context.Context, conn pool.Conn, key string, value []byte) error

	// Lookup returns (value, true, nil) if key exists, (nil, false, nil) on
	// a clean miss, or a non-nil error on a store failure.
	Lookup(ctx context.Context, conn pool.Conn, key string) ([]byte, bool, error)

	// Delete removes any row for key. Zero rows affected is not an error.
	Delete(ctx context.Context, conn pool.Conn, key string) error
}

// PGStore implements Store against Postgres. It holds no state of its own —
// every call binds key/value as query parameters against the pool.Conn
// supplied by the caller, never by string concatenation.
type PGStore struct{}

// NewPGStore constructs a Postgres-backed Store.
func NewPGStore() PGStore { return PGStore{} }

func (PGStore) Upsert(ctx context.Context, conn pool.Conn, key string, value []byte) error {
	if err := conn.Exec(ctx, upsertSQL, key, value); err != nil {
		return fmt.Errorf("%w: upsert %q: %v", kverrors.StoreError, key, err)
	}
	return nil
}

func (PGStore) Lookup(ctx context.Context, conn pool.Conn, key string) ([]byte, bool, error) {
	var value []byte
	row := conn.QueryRow(ctx, selectSQL, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: lookup %q: %v", kverrors.StoreError, key, err)
	}
	return value, true, nil
}

func (PGStore) Delete(ctx context.Context, conn pool.Conn, key string) error {
	if err := conn.Exec(ctx, deleteSQL, key); err != nil {
		return fmt.Errorf("%w: delete %q: %v", kverrors.StoreError, key, err)
	}
	return nil
}

// EnsureSchema creates the kv table if it does not already exist, so
// cmd/server can stand up a fresh database without a migration step.
func EnsureSchema(ctx context.Context, conn pool.Conn) error {
	if err := conn.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("%w: ensure schema: %v", kverrors.StoreError, err)
	}
	return nil
}

var _ Store = PGStore{}
