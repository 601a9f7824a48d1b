// Package kafka publishes depth snapshots to a Kafka topic.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type DepthPublisher struct {
	writer *kafka.Writer
}

func NewDepthPublisher(brokers []string, topic string) *DepthPublisher {
	return &DepthPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish sends one depth snapshot keyed by market name, so all
// snapshots of a market land on one partition in order.
func (p *DepthPublisher) Publish(ctx context.Context, marketName string, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(marketName),
		Value: payload,
	})
}

func (p *DepthPublisher) Close() error {
	return p.writer.Close()
}
