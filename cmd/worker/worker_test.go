package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unclebandit/phonathon-backend/internal/queue"
)

func TestWorker(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)
	q := queue.NewInMemoryQueue(log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, q, log) }()

	// The subscriber is registered asynchronously; keep publishing until
	// a report has been logged.
	report := &queue.UploadReport{ID: "r1", Model: "Prospect", Uploader: "mina", Rows: 2, Created: 2}
	require.Eventually(t, func() bool {
		if err := q.Publish(queue.TopicUploadReports, report); err != nil {
			return false
		}
		return logs.FilterMessage("upload report").Len() > 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	fields := logs.FilterMessage("upload report").All()[0].ContextMap()
	assert.Equal(t, "r1", fields["id"])
	assert.Equal(t, int64(2), fields["created"])
	assert.ErrorIs(t, q.Publish(queue.TopicUploadReports, report), queue.ErrClosed)
}
