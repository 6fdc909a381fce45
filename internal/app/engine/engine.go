// Package engine wires the execution pipeline together and owns its
// lifecycle: restore persisted state, run the consumer loops, the venue
// update streams, the valuation loop, the snapshot scheduler and the
// reconciliation loop, then drain everything on shutdown.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/quantara/execution/internal/consumer"
	exchangev1 "github.com/quantara/execution/internal/domain/exchange/v1"
	ordermanager "github.com/quantara/execution/internal/usecase/order-manager"
	"github.com/quantara/execution/internal/usecase/valuation"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/logger"
)

// Engine runs the execution pipeline.
type Engine struct {
	cfg       *config.Config
	manager   *ordermanager.Manager
	valuator  *valuation.Valuator
	scheduler *valuation.Scheduler
	execution *consumer.ExecutionConsumer
	prices    *consumer.PriceConsumer
	adapters  []exchangev1.Adapter
	logger    logger.Interface

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates an engine from fully constructed components. adapters
// are the venues whose update streams the engine subscribes to; they must
// already be registered with the gateway the manager uses.
func NewEngine(
	cfg *config.Config,
	manager *ordermanager.Manager,
	valuator *valuation.Valuator,
	scheduler *valuation.Scheduler,
	execution *consumer.ExecutionConsumer,
	prices *consumer.PriceConsumer,
	adapters []exchangev1.Adapter,
	log logger.Interface,
) *Engine {
	return &Engine{
		cfg:       cfg,
		manager:   manager,
		valuator:  valuator,
		scheduler: scheduler,
		execution: execution,
		prices:    prices,
		adapters:  adapters,
		logger:    log,
	}
}

// Start restores persisted state and spawns the pipeline loops. It returns
// once everything is running.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	// Active orders re-enter the live set and re-establish their
	// reservations before any consumer can deliver work for them.
	if err := e.manager.Restore(e.ctx); err != nil {
		e.cancel()
		return err
	}

	e.wg.Add(4)
	go func() {
		defer e.wg.Done()
		e.valuator.Run(e.ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.scheduler.Run(e.ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.execution.Start(e.ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.prices.Start(e.ctx)
	}()

	for _, adapter := range e.adapters {
		adapter := adapter
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.logger.Info("subscribing to venue updates",
				logger.Field{Key: "venue", Value: adapter.Name()},
			)
			if err := adapter.SubscribeUpdates(e.ctx, e.manager.HandleOrderUpdate); err != nil && e.ctx.Err() == nil {
				e.logger.ErrorContext(e.ctx, "venue update subscription ended",
					logger.Field{Key: "venue", Value: adapter.Name()},
					logger.Field{Key: "error", Value: err.Error()},
				)
			}
		}()
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runReconciler()
	}()

	e.logger.Info("execution engine started",
		logger.Field{Key: "venues", Value: len(e.adapters)},
		logger.Field{Key: "live_orders", Value: e.manager.LiveOrders()},
	)
	return nil
}

// Stop cancels the loops, waits for them within the context's deadline and
// takes a final snapshot of every portfolio.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}
	if err := e.execution.Close(); err != nil {
		e.logger.Warn("failed to close execution consumer",
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
	if err := e.prices.Close(); err != nil {
		e.logger.Warn("failed to close price consumer",
			logger.Field{Key: "error", Value: err.Error()},
		)
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		e.logger.Warn("engine stop timeout exceeded")
		return ctx.Err()
	}

	// State as of shutdown becomes the restore point of the next start.
	e.scheduler.SnapshotAll(ctx)
	e.logger.Info("execution engine stopped")
	return nil
}

// runReconciler periodically refreshes stale in-flight orders from their
// venues, recovering updates the streams lost.
func (e *Engine) runReconciler() {
	interval := e.cfg.Gateway.ReconcileInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.manager.ReconcileStale(e.ctx)
		}
	}
}
