package testutil

import (
	"context"
	"database/sql"
	"strings"
	"sync/atomic"

	"github.com/unclebandit/phonathon-backend/internal/db"
)

// InsertRaceUoW delegates to a real unit of work. In the Nth transaction it
// runs Stmt just before the first INSERT, as if another writer had claimed
// the key between the row's lookup and its create. Counting starts at 1.
type InsertRaceUoW struct {
	Inner db.UnitOfWork
	On    int32
	Stmt  string
	Args  []any

	// StmtErr is what Stmt returned, if it ran.
	StmtErr error

	count atomic.Int32
}

func (u *InsertRaceUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	if u.count.Add(1) != u.On {
		return u.Inner.WithinTx(ctx, fn)
	}
	return u.Inner.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, &racingTx{DBTX: tx, uow: u})
	})
}

type racingTx struct {
	db.DBTX
	uow  *InsertRaceUoW
	done bool
}

func (t *racingTx) race(ctx context.Context, query string) {
	if t.done || !strings.HasPrefix(strings.TrimSpace(query), "INSERT") {
		return
	}
	t.done = true
	_, t.uow.StmtErr = t.DBTX.ExecContext(ctx, t.uow.Stmt, t.uow.Args...)
}

func (t *racingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	t.race(ctx, query)
	return t.DBTX.ExecContext(ctx, query, args...)
}

func (t *racingTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	t.race(ctx, query)
	return t.DBTX.QueryRowContext(ctx, query, args...)
}
