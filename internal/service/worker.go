package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionPurger defines the methods the worker needs
type SessionPurger interface {
	PurgeSessions(ctx context.Context) (int64, error)
}

// Worker removes expired sessions on a fixed interval.
type Worker struct {
	Purger   SessionPurger
	Interval time.Duration
	Log      *zap.Logger
}

func NewWorker(p SessionPurger, interval time.Duration, log *zap.Logger) *Worker {
	return &Worker{
		Purger:   p,
		Interval: interval,
		Log:      nopIfNil(log),
	}
}

// Start purges once, then on every tick until ctx is done.
func (w *Worker) Start(ctx context.Context) error {
	t := time.NewTicker(w.Interval)
	defer t.Stop()

	for {
		if _, err := w.Purger.PurgeSessions(ctx); err != nil && ctx.Err() == nil {
			w.Log.Warn("purging sessions failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
