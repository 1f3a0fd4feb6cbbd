// Package dispatch contains NotificationDispatcher implementations that hand
// notification events to the delivery pipeline.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/osmanaliaydemir/getir-tracking/internal/api/metrics"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
)

const writeTimeout = 2 * time.Second

// KafkaDispatcher publishes notification events to a Kafka topic consumed by
// the push/SMS delivery service. Messages are keyed by order ID so all
// notifications for one order land on the same partition, in order.
type KafkaDispatcher struct {
	writer *kafka.Writer
}

var _ ports.NotificationDispatcher = (*KafkaDispatcher)(nil)

func NewKafkaDispatcher(brokers []string, topic string) *KafkaDispatcher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	return &KafkaDispatcher{writer: w}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, event domain.NotificationEvent) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(event.Kind)},
		},
	}
	if event.Kind.Urgent() {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "priority", Value: []byte("high")})
	}

	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		metrics.NotificationsDispatchedTotal.WithLabelValues(string(event.Kind), "error").Inc()
		return err
	}
	metrics.NotificationsDispatchedTotal.WithLabelValues(string(event.Kind), "ok").Inc()
	return nil
}

func (d *KafkaDispatcher) Close() error {
	if d.writer == nil {
		return nil
	}
	return d.writer.Close()
}
