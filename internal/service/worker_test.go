package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unclebandit/phonathon-backend/internal/service"
)

// MockPurger counts calls and signals each one.
type MockPurger struct {
	calls atomic.Int32
	err   error
	done  chan struct{}
}

func (m *MockPurger) PurgeSessions(ctx context.Context) (int64, error) {
	m.calls.Add(1)
	select {
	case m.done <- struct{}{}:
	default:
	}
	return 0, m.err
}

func TestWorkerPurgesUntilCancelled(t *testing.T) {
	purger := &MockPurger{done: make(chan struct{}, 1)}
	worker := service.NewWorker(purger, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- worker.Start(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-purger.done:
		case <-time.After(time.Second):
			t.Fatal("worker did not purge")
		}
	}
	cancel()

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.GreaterOrEqual(t, purger.calls.Load(), int32(3))
}

func TestWorkerLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	purger := &MockPurger{err: errors.New("database is locked"), done: make(chan struct{}, 1)}
	worker := service.NewWorker(purger, time.Hour, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- worker.Start(ctx) }()
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("purging sessions failed").Len() == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-stopped)
}
