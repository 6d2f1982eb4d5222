package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/contacorrente/ledger-service/internal/interfaces"
)

// Publisher delivers operation events to Kafka. It is the notification
// channel of the service: best effort, decoupled from ledger commits.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Publisher writing to the given brokers.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish marshals the event as JSON and writes it to the topic.
func (p *Publisher) Publish(topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(
		context.Background(),
		kafka.Message{
			Topic: topic,
			Value: data,
		},
	)
}

// Close flushes pending messages and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Compile-time check: Publisher implements interfaces.EventPublisher.
var _ interfaces.EventPublisher = (*Publisher)(nil)
