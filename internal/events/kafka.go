// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/furniture-store/internal/domain/order"
)

// HeaderEventType carries the event type on every message.
const HeaderEventType = "event-type"

// MessageWriter is the subset of *kafka.Writer used by Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ MessageWriter = (*kafka.Writer)(nil)

// NewWriter returns an asynchronous writer for topic. WriteMessages only
// enqueues; delivery failures are reported to lg once retries are exhausted.
// Messages are hashed by key, so all events of one order land on the same
// partition.
func NewWriter(brokers []string, topic string, lg *zap.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             completion(lg),
	}
}

func completion(lg *zap.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, m := range msgs {
			lg.Error("Deliver order event",
				zap.String("order_id", string(m.Key)),
				zap.String("type", eventType(m)),
				zap.Error(err),
			)
		}
	}
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == HeaderEventType {
			return string(h.Value)
		}
	}
	return ""
}

var _ order.Publisher = (*Publisher)(nil)

// Publisher implements order.Publisher on a Kafka topic.
type Publisher struct {
	w MessageWriter
}

// NewPublisher creates a Publisher writing through w.
func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{w: w}
}

// Publish writes e keyed by order id.
func (p *Publisher) Publish(ctx context.Context, e order.Event) error {
	msg := kafka.Message{
		Key:   []byte(e.Order.ID),
		Value: Encode(e),
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(e.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "write %s", e.Type)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// Ping dials the first reachable broker.
func Ping(ctx context.Context, brokers []string) error {
	var lastErr error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		return errors.New("no brokers configured")
	}
	return errors.Wrap(lastErr, "dial broker")
}
