package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const retryHeader = "x-retry-count"

// AMQPQueue publishes JSON messages to durable RabbitMQ queues named after
// their topic. Subscribers receive the raw message body as []byte.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	mu   sync.Mutex // guards ch for publishing
	wg   sync.WaitGroup

	log        *zap.Logger
	MaxRetries int
}

// DialAMQP connects to the broker at url and opens a channel.
func DialAMQP(url string, log *zap.Logger) (*AMQPQueue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening a channel: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch, log: log.Named("amqp"), MaxRetries: 3}, nil
}

func (q *AMQPQueue) declare(topic string) error {
	_, err := q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declaring queue %s: %w", topic, err)
	}
	return nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s message: %w", topic, err)
	}
	return q.publish(topic, body, 0)
}

func (q *AMQPQueue) publish(topic string, body []byte, retries int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.declare(topic); err != nil {
		return err
	}
	return q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{retryHeader: int32(retries)},
		Body:         body,
	})
}

// Subscribe consumes topic with manual acks. A failed delivery is
// republished with its retry count raised until MaxRetries is reached.
func (q *AMQPQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	err := q.declare(topic)
	var msgs <-chan amqp.Delivery
	if err == nil {
		msgs, err = q.ch.Consume(
			topic,
			"",
			false, // autoAck = false for reliability
			false,
			false,
			false,
			nil,
		)
	}
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("registering consumer for %s: %w", topic, err)
	}

	log := q.log.With(zap.String("topic", topic))
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for d := range msgs {
			q.handle(log, topic, d, handler)
		}
		log.Debug("consumer stopped")
	}()
	return nil
}

func (q *AMQPQueue) handle(log *zap.Logger, topic string, d amqp.Delivery, handler Handler) {
	err := handler(d.Body)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	retries := retryCount(d.Headers) + 1
	if retries > q.MaxRetries {
		log.Error("message permanently failed", zap.String("message_id", d.MessageId), zap.Int("attempts", retries), zap.Error(err))
		_ = d.Ack(false)
		return
	}
	log.Warn("message failed, requeueing", zap.String("message_id", d.MessageId), zap.Int("attempt", retries), zap.Error(err))
	if perr := q.publish(topic, d.Body, retries); perr != nil {
		log.Error("requeue failed", zap.Error(perr))
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// retryCount reads the retry header. The broker may hand integers back in
// any width.
func retryCount(h amqp.Table) int {
	switch v := h[retryHeader].(type) {
	case int:
		return v
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

// Close shuts the channel, which ends every consumer, then the connection.
func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	chErr := q.ch.Close()
	q.mu.Unlock()
	q.wg.Wait()
	if err := q.conn.Close(); err != nil {
		return err
	}
	return chErr
}

var _ Queue = (*AMQPQueue)(nil)
