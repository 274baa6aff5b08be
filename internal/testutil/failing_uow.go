package testutil

import (
	"context"
	"sync/atomic"

	"github.com/unclebandit/phonathon-backend/internal/db"
)

// FailOnNthTxUoW delegates to a real unit of work but fails the Nth
// transaction before it starts, simulating a lost connection mid-batch.
// Counting starts at 1.
type FailOnNthTxUoW struct {
	Inner  db.UnitOfWork
	FailOn int32
	Err    error

	count atomic.Int32
}

func (u *FailOnNthTxUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	if u.count.Add(1) == u.FailOn {
		return u.Err
	}
	return u.Inner.WithinTx(ctx, fn)
}
