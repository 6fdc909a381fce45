// Package publisher writes the service's outbound events to Kafka. One
// writer per produced topic; order streams are keyed by symbol and portfolio
// events by portfolio id, so consumers see per-key ordering.
package publisher

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	eventv1 "github.com/quantara/execution/internal/domain/event/v1"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/errors"
	"github.com/quantara/execution/pkg/logger"
)

// Publisher is the Kafka implementation of eventv1.Publisher.
type Publisher struct {
	statusWriter     *kafka.Writer
	fillWriter       *kafka.Writer
	completionWriter *kafka.Writer
	portfolioWriter  *kafka.Writer
	logger           logger.Interface
}

var _ eventv1.Publisher = (*Publisher)(nil)

// NewPublisher creates writers for the four produced topics.
func NewPublisher(cfg config.ProducerKafkaConfig, log logger.Interface) *Publisher {
	newWriter := func(topic string) *kafka.Writer {
		return kafka.NewWriter(kafka.WriterConfig{
			Brokers:  cfg.Brokers,
			Topic:    topic,
			Balancer: &kafka.Hash{},
		})
	}
	return &Publisher{
		statusWriter:     newWriter(cfg.StatusTopic),
		fillWriter:       newWriter(cfg.FillTopic),
		completionWriter: newWriter(cfg.CompletionTopic),
		portfolioWriter:  newWriter(cfg.PortfolioTopic),
		logger:           log,
	}
}

// PublishStatus publishes an order status update, keyed by symbol.
func (p *Publisher) PublishStatus(ctx context.Context, event *eventv1.OrderStatusEvent) error {
	return p.write(ctx, p.statusWriter, event.Symbol, event)
}

// PublishFill publishes an order fill, keyed by symbol.
func (p *Publisher) PublishFill(ctx context.Context, event *eventv1.OrderFillEvent) error {
	return p.write(ctx, p.fillWriter, event.Symbol, event)
}

// PublishCompletion publishes an order completion, keyed by symbol.
func (p *Publisher) PublishCompletion(ctx context.Context, event *eventv1.OrderCompletionEvent) error {
	return p.write(ctx, p.completionWriter, event.Symbol, event)
}

// PublishPortfolio publishes a portfolio event, keyed by portfolio id.
func (p *Publisher) PublishPortfolio(ctx context.Context, event *eventv1.PortfolioEvent) error {
	return p.write(ctx, p.portfolioWriter, event.PortfolioID, event)
}

func (p *Publisher) write(ctx context.Context, writer *kafka.Writer, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return errors.NewTracer(string(errors.KafkaPublishError)).Wrap(err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	if err := writer.WriteMessages(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, "failed to write event",
			logger.Field{Key: "topic", Value: writer.Topic},
			logger.Field{Key: "key", Value: key},
			logger.Field{Key: "error", Value: err.Error()},
		)
		return errors.NewTracer(string(errors.KafkaPublishError)).Wrap(err)
	}
	return nil
}

// Close closes every topic writer, reporting the first failure.
func (p *Publisher) Close() error {
	var first error
	for _, w := range []*kafka.Writer{p.statusWriter, p.fillWriter, p.completionWriter, p.portfolioWriter} {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
