package queue

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestQueue(t *testing.T) (*InMemoryQueue, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	q := NewInMemoryQueue(zap.New(core))
	q.Backoff = time.Millisecond
	return q, logs
}

func TestInMemoryQueue_Delivers(t *testing.T) {
	q, _ := newTestQueue(t)

	var got atomic.Value
	require.NoError(t, q.Subscribe("t", func(p any) error {
		got.Store(p)
		return nil
	}))
	require.NoError(t, q.Publish("t", "hello"))
	require.NoError(t, q.Close())

	assert.Equal(t, "hello", got.Load())
}

func TestInMemoryQueue_NoSubscribers(t *testing.T) {
	q, _ := newTestQueue(t)
	defer q.Close()
	assert.Error(t, q.Publish("nobody", 1))
}

func TestInMemoryQueue_RetriesThenSucceeds(t *testing.T) {
	q, logs := newTestQueue(t)

	var calls atomic.Int32
	require.NoError(t, q.Subscribe("t", func(any) error {
		if calls.Add(1) < 3 {
			return errors.New("flaky")
		}
		return nil
	}))
	require.NoError(t, q.Publish("t", 1))
	require.NoError(t, q.Close())

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2, logs.FilterMessage("job failed, retrying").Len())
	assert.Zero(t, logs.FilterMessage("job permanently failed").Len())
}

func TestInMemoryQueue_GivesUp(t *testing.T) {
	q, logs := newTestQueue(t)
	q.MaxRetries = 2

	var calls atomic.Int32
	require.NoError(t, q.Subscribe("t", func(any) error {
		calls.Add(1)
		return errors.New("down")
	}))
	require.NoError(t, q.Publish("t", 1))
	require.NoError(t, q.Close())

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1, logs.FilterMessage("job permanently failed").Len())
}

func TestInMemoryQueue_Closed(t *testing.T) {
	q, _ := newTestQueue(t)
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Publish("t", 1), ErrClosed)
	assert.ErrorIs(t, q.Subscribe("t", func(any) error { return nil }), ErrClosed)
}

func TestUploadReportSubscriber(t *testing.T) {
	q, _ := newTestQueue(t)
	core, logs := observer.New(zapcore.InfoLevel)
	require.NoError(t, StartUploadReportSubscriber(q, zap.New(core)))

	report := &UploadReport{
		ID: "r1", Model: "Prospect", Uploader: "admin", Rows: 3, Created: 1, Updated: 1,
		Skipped: []SkippedRow{{Line: 3, Kind: "validation", Error: "bad"}},
	}
	require.NoError(t, q.Publish(TopicUploadReports, report))

	body, err := json.Marshal(UploadReport{ID: "r2", Model: "Fund", Aborted: "connection reset"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(TopicUploadReports, body))
	require.NoError(t, q.Publish(TopicUploadReports, 42))
	require.NoError(t, q.Close())

	assert.Equal(t, 1, logs.FilterMessage("upload report").Len())
	assert.Equal(t, 1, logs.FilterMessage("upload skipped row").Len())
	aborted := logs.FilterMessage("upload aborted").All()
	require.Len(t, aborted, 1)
	assert.Equal(t, "r2", aborted[0].ContextMap()["id"])
	assert.Equal(t, 1, logs.FilterMessage("invalid upload report").Len())
}

func TestDecodeUploadReport(t *testing.T) {
	r, err := DecodeUploadReport(UploadReport{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", r.ID)

	_, err = DecodeUploadReport([]byte("{"))
	assert.Error(t, err)
}

func TestRetryCount(t *testing.T) {
	assert.Equal(t, 0, retryCount(nil))
	assert.Equal(t, 2, retryCount(amqp.Table{retryHeader: int32(2)}))
	assert.Equal(t, 5, retryCount(amqp.Table{retryHeader: int64(5)}))
	assert.Equal(t, 0, retryCount(amqp.Table{retryHeader: "3"}))
}
