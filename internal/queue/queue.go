package queue

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler processes one message. A non-nil error asks for a retry.
type Handler func(payload any) error

// Queue is a topic-based publisher the services depend on.
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler Handler) error
	Close() error
}

// InMemoryQueue delivers each message to every subscriber on its own
// goroutine, retrying failed deliveries with a linear backoff.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]Handler
	closed   bool
	wg       sync.WaitGroup

	log        *zap.Logger
	MaxRetries int
	Backoff    time.Duration
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(log *zap.Logger) *InMemoryQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		log:        log.Named("queue"),
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
	}
}

// job wraps a message payload with retry info
type job struct {
	topic      string
	payload    any
	retryCount int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	handlers := q.handlers[topic]
	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, h := range handlers {
		q.wg.Add(1)
		go q.process(h, job{topic: topic, payload: payload})
	}
	return nil
}

func (q *InMemoryQueue) process(h Handler, j job) {
	defer q.wg.Done()
	log := q.log.With(zap.String("topic", j.topic))

	for {
		err := h(j.payload)
		if err == nil {
			log.Debug("job processed", zap.Int("retries", j.retryCount))
			return
		}

		j.retryCount++
		if j.retryCount > q.MaxRetries {
			log.Error("job permanently failed", zap.Int("attempts", j.retryCount), zap.Error(err))
			return
		}
		log.Warn("job failed, retrying", zap.Int("attempt", j.retryCount), zap.Int("max_retries", q.MaxRetries), zap.Error(err))
		time.Sleep(time.Duration(j.retryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Close rejects further messages and waits for in-flight deliveries.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
