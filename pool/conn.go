package pool

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Row is the narrow result of QueryRow: scan the columns of at most one row.
// pgx.Row already satisfies this exactly, so no adapter is needed there.
type Row interface {
	Scan(dest ...any) error
}

// Conn is the session type the pool manages. It is deliberately narrower
// than *pgx.Conn so that pool and store can be exercised in tests with a
// fake implementation, without a live Postgres instance.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) error
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Close(ctx context.Context) error
	IsClosed() bool
}

// Dialer opens one new session. PGXDialer is the production default;
// tests supply a fake that never touches the network.
type Dialer func(ctx context.Context, dsn string) (Conn, error)

// PGXDialer dials a single Postgres connection via jackc/pgx/v5. Each
// dialed connection is a standalone session — not a pgxpool — because the
// pool in this package IS the pooling layer; wrapping pgxpool here would
// just nest one pool inside another.
func PGXDialer(ctx context.Context, dsn string) (Conn, error) {
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return pgxConn{c}, nil
}

// pgxConn adapts *pgx.Conn to Conn. Exec drops the command tag: nothing
// above this layer needs affected-row counts, and a DELETE that touches
// zero rows is not an error.
type pgxConn struct{ c *pgx.Conn }

func (p pgxConn) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := p.c.Exec(ctx, sql, args...)
	return err
}

func (p pgxConn) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return p.c.QueryRow(ctx, sql, args...)
}

func (p pgxConn) Close(ctx context.Context) error { return p.c.Close(ctx) }

func (p pgxConn) IsClosed() bool { return p.c.IsClosed() }
