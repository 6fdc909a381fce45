// Package consumer runs the explicit Kafka consumer loops: one per consumed
// topic, fetch then handle then commit. Offsets are committed only after the
// handler finished; handlers are idempotent, so redelivery after a crash is
// safe.
package consumer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	eventv1 "github.com/quantara/execution/internal/domain/event/v1"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/logger"
	"github.com/quantara/execution/pkg/util"
)

// ExecutionHandler admits one execution order request. A non-nil error means
// the message must not be committed and will be redelivered.
type ExecutionHandler interface {
	HandleExecutionOrder(ctx context.Context, req *eventv1.ExecutionOrderRequest) error
}

// ExecutionConsumer consumes the execution-orders topic.
type ExecutionConsumer struct {
	kafkaReader *kafka.Reader
	handler     ExecutionHandler
	logger      logger.Interface
}

// NewExecutionConsumer creates a consumer for the execution-orders topic.
func NewExecutionConsumer(cfg config.ConsumerKafkaConfig, handler ExecutionHandler, log logger.Interface) *ExecutionConsumer {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return &ExecutionConsumer{
		kafkaReader: kafkaReader,
		handler:     handler,
		logger:      log,
	}
}

// Start fetches, handles and commits until the context ends. Malformed
// payloads are logged and committed so a poison pill cannot wedge the
// partition; handler failures leave the offset uncommitted for redelivery.
func (c *ExecutionConsumer) Start(ctx context.Context) {
	c.logger.InfoContext(ctx, "starting execution order consumer", logger.Field{
		Key:   "topic",
		Value: c.kafkaReader.Config().Topic,
	})

	for {
		msg, err := c.kafkaReader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfoContext(ctx, "execution order consumer stopped")
				return
			}
			c.logger.ErrorContext(ctx, "failed to fetch execution order message",
				logger.Field{Key: "error", Value: err.Error()},
			)
			continue
		}

		msgCtx := util.WithRequestID(ctx, "")

		var req eventv1.ExecutionOrderRequest
		if err := json.Unmarshal(msg.Value, &req); err != nil {
			c.logger.ErrorContext(msgCtx, "malformed execution order message skipped",
				logger.Field{Key: "offset", Value: msg.Offset},
				logger.Field{Key: "error", Value: err.Error()},
			)
			c.commit(msgCtx, msg)
			continue
		}

		if err := c.handler.HandleExecutionOrder(msgCtx, &req); err != nil {
			c.logger.ErrorContext(msgCtx, "execution order handling failed, message left for redelivery",
				logger.Field{Key: "strategy_execution_id", Value: req.StrategyExecutionID},
				logger.Field{Key: "offset", Value: msg.Offset},
				logger.Field{Key: "error", Value: err.Error()},
			)
			continue
		}

		c.commit(msgCtx, msg)
	}
}

func (c *ExecutionConsumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.kafkaReader.CommitMessages(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "failed to commit execution order offset",
			logger.Field{Key: "offset", Value: msg.Offset},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
}

// Close closes the underlying reader.
func (c *ExecutionConsumer) Close() error {
	return c.kafkaReader.Close()
}
