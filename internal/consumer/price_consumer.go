package consumer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	eventv1 "github.com/quantara/execution/internal/domain/event/v1"
	portfoliov1 "github.com/quantara/execution/internal/domain/portfolio/v1"
	positionv1 "github.com/quantara/execution/internal/domain/position/v1"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/logger"
	"github.com/quantara/execution/pkg/util"
)

// PriceConsumer consumes the price-updates topic and marks positions to the
// latest price. Last-price semantics make redelivery harmless, so malformed
// and handled messages alike are committed.
type PriceConsumer struct {
	kafkaReader *kafka.Reader
	ledger      positionv1.Ledger
	valuator    portfoliov1.Valuator
	logger      logger.Interface
}

// NewPriceConsumer creates a consumer for the price-updates topic.
func NewPriceConsumer(
	cfg config.ConsumerKafkaConfig,
	ledger positionv1.Ledger,
	valuator portfoliov1.Valuator,
	log logger.Interface,
) *PriceConsumer {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return &PriceConsumer{
		kafkaReader: kafkaReader,
		ledger:      ledger,
		valuator:    valuator,
		logger:      log,
	}
}

// Start fetches, applies and commits until the context ends.
func (c *PriceConsumer) Start(ctx context.Context) {
	c.logger.InfoContext(ctx, "starting price consumer", logger.Field{
		Key:   "topic",
		Value: c.kafkaReader.Config().Topic,
	})

	for {
		msg, err := c.kafkaReader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfoContext(ctx, "price consumer stopped")
				return
			}
			c.logger.ErrorContext(ctx, "failed to fetch price message",
				logger.Field{Key: "error", Value: err.Error()},
			)
			continue
		}

		msgCtx := util.WithRequestID(ctx, "")

		var update eventv1.PriceUpdate
		if err := json.Unmarshal(msg.Value, &update); err != nil {
			c.logger.ErrorContext(msgCtx, "malformed price message skipped",
				logger.Field{Key: "offset", Value: msg.Offset},
				logger.Field{Key: "error", Value: err.Error()},
			)
		} else {
			c.handle(msgCtx, &update)
		}

		if err := c.kafkaReader.CommitMessages(msgCtx, msg); err != nil {
			c.logger.ErrorContext(msgCtx, "failed to commit price offset",
				logger.Field{Key: "offset", Value: msg.Offset},
				logger.Field{Key: "error", Value: err.Error()},
			)
		}
	}
}

// handle marks every position on the symbol and queues the affected
// portfolios for revaluation.
func (c *PriceConsumer) handle(ctx context.Context, update *eventv1.PriceUpdate) {
	if update.Symbol == "" || !update.Price.IsPositive() {
		c.logger.WarnContext(ctx, "price update skipped",
			logger.Field{Key: "symbol", Value: update.Symbol},
			logger.Field{Key: "price", Value: update.Price.String()},
		)
		return
	}

	for _, portfolioID := range c.ledger.MarkPrice(ctx, update.Exchange, update.Symbol, update.Price) {
		c.valuator.NotifyActivity(portfolioID)
	}
}

// Close closes the underlying reader.
func (c *PriceConsumer) Close() error {
	return c.kafkaReader.Close()
}
