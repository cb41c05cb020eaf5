package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

// Publisher produces newly classified complaints to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for topic on brokers.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishBatch serializes and publishes complaints in a single WriteMessages
// call. Messages are keyed by complaint ID so updates to one complaint stay
// on one partition.
func (p *Publisher) PublishBatch(ctx context.Context, complaints []domain.Complaint) error {
	if len(complaints) == 0 {
		return nil
	}
	ingestedAt := domain.Now()
	msgs := make([]kafkago.Message, len(complaints))
	for i := range complaints {
		msg, err := serializeToMessage(complaints[i], ingestedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d complaints: %w", len(msgs), err)
	}
	p.logger.Debug("complaints published", "count", len(msgs), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Complaint into a Kafka message.
func serializeToMessage(c domain.Complaint, ingestedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize complaint %s: %w", c.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(c.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(c.Category)},
			{Key: "ingested_at", Value: []byte(ingestedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
