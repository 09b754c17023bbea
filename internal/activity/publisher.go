// Package activity forwards recorded share activity entries to an event stream
// so other systems (notifications, analytics) can follow what happens on a share.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// Publisher emits activity entries. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, entry domain.LogEntry) error
	Close() error
}

// Nop discards every entry. It is used when no Kafka brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, domain.LogEntry) error { return nil }
func (Nop) Close() error                                     { return nil }

// KafkaPublisher writes entries to a Kafka topic keyed by share id, so all
// entries of one share land on the same partition in order.
type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher builds an async writer for the given broker addresses.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}}
}

// Publish encodes the entry as JSON and hands it to the writer.
func (p *KafkaPublisher) Publish(ctx context.Context, entry domain.LogEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("activity.KafkaPublisher.Publish: encode: %w", err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.ShareID),
		Value: value,
		Time:  time.Now(),
	}); err != nil {
		return fmt.Errorf("activity.KafkaPublisher.Publish: %w", err)
	}
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
