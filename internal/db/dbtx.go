package db

import (
	"context"
	"database/sql"
)

// DBTX is the common interface satisfied by both *sql.DB and *sql.Tx.
// Repositories depend on it so the same code runs inside and outside a
// transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
	_ DBTX = (*rebinder)(nil)
)

// rebinder rewrites `?` placeholders for drivers that want `$n`.
type rebinder struct {
	inner   DBTX
	dialect Dialect
}

// Bind returns a DBTX that accepts `?` placeholders under every dialect.
func Bind(inner DBTX, dialect Dialect) DBTX {
	if dialect != Postgres {
		return inner
	}
	if rb, ok := inner.(*rebinder); ok {
		return rb
	}
	return &rebinder{inner: inner, dialect: dialect}
}

func (r *rebinder) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.inner.ExecContext(ctx, r.dialect.Rebind(query), args...)
}

func (r *rebinder) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.inner.QueryContext(ctx, r.dialect.Rebind(query), args...)
}

func (r *rebinder) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return r.inner.QueryRowContext(ctx, r.dialect.Rebind(query), args...)
}
