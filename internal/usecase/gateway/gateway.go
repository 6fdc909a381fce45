// Package gateway is the single door to the venues. Every outbound call
// passes a per-venue token bucket (fail fast, never queue), a circuit
// breaker and bounded exponential retry of transient failures. Submissions
// always carry the client order id, so a retry after an ambiguous network
// failure can never create a second venue order.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	exchangev1 "github.com/quantara/execution/internal/domain/exchange/v1"
	orderv1 "github.com/quantara/execution/internal/domain/order/v1"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/logger"
)

var _ exchangev1.Gateway = (*Gateway)(nil)

// venue bundles one adapter with its protective gear and the last known
// order snapshots used as the open-breaker fallback.
type venue struct {
	adapter exchangev1.Adapter
	limiter *TokenBucket
	breaker *CircuitBreaker

	mu        sync.RWMutex
	snapshots map[string]exchangev1.OrderSnapshot
}

func (v *venue) cacheSnapshot(snap exchangev1.OrderSnapshot) {
	if snap.ClientOrderID == "" {
		return
	}
	v.mu.Lock()
	v.snapshots[snap.ClientOrderID] = snap
	v.mu.Unlock()
}

func (v *venue) cachedSnapshot(clientOrderID string) (exchangev1.OrderSnapshot, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	snap, ok := v.snapshots[clientOrderID]
	return snap, ok
}

// Gateway routes orders to registered venue adapters.
type Gateway struct {
	cfg    config.GatewayConfig
	logger logger.Interface

	mu     sync.RWMutex
	venues map[string]*venue
}

// NewGateway creates a gateway with no venues registered.
func NewGateway(cfg config.GatewayConfig, logger logger.Interface) *Gateway {
	return &Gateway{
		cfg:    cfg,
		logger: logger,
		venues: make(map[string]*venue),
	}
}

// Register adds a venue adapter, sizing its token bucket from the adapter's
// declared budget. Registering the same name again replaces the adapter and
// resets its protection state.
func (g *Gateway) Register(adapter exchangev1.Adapter) {
	budget := adapter.RateBudget()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.venues[adapter.Name()] = &venue{
		adapter:   adapter,
		limiter:   NewTokenBucket(budget.Tokens, budget.RefillInterval),
		breaker:   NewCircuitBreaker(g.cfg.BreakerThreshold, g.cfg.BreakerCooldown),
		snapshots: make(map[string]exchangev1.OrderSnapshot),
	}
	g.logger.Info("venue registered",
		logger.Field{Key: "venue", Value: adapter.Name()},
		logger.Field{Key: "rate_limit", Value: budget.Tokens},
		logger.Field{Key: "refill_interval", Value: budget.RefillInterval.String()},
	)
}

// Venues lists the registered venue names.
func (g *Gateway) Venues() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.venues))
	for name := range g.venues {
		names = append(names, name)
	}
	return names
}

func (g *Gateway) venueFor(exchange string) (*venue, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.venues[exchange]
	if !ok {
		return nil, fmt.Errorf("%w: %s", exchangev1.ErrVenueNotRegistered, exchange)
	}
	return v, nil
}

// Submit places the order on its venue. Every attempt takes a token;
// without one the call fails fast with ErrRateLimitExceeded and the venue
// is never contacted. Venue-side duplicate detection is resolved by
// querying the existing order, never by submitting again.
func (g *Gateway) Submit(ctx context.Context, order *orderv1.Order) (*exchangev1.SubmitResult, error) {
	v, err := g.venueFor(order.Exchange)
	if err != nil {
		return nil, err
	}

	result, err := callVenue(ctx, g, v, "submit", order, func(ctx context.Context) (*exchangev1.SubmitResult, error) {
		return v.adapter.SubmitOrder(ctx, order)
	})
	if err != nil {
		if exchangev1.IsDuplicate(err) {
			return g.resolveDuplicate(ctx, v, order)
		}
		return nil, err
	}

	v.cacheSnapshot(exchangev1.OrderSnapshot{
		ExchangeOrderID: result.ExchangeOrderID,
		ClientOrderID:   order.ClientOrderID,
		Status:          result.Status,
		AsOf:            time.Now().UTC(),
	})
	return result, nil
}

// resolveDuplicate turns venue-side duplicate detection into the existing
// order's authoritative state.
func (g *Gateway) resolveDuplicate(ctx context.Context, v *venue, order *orderv1.Order) (*exchangev1.SubmitResult, error) {
	g.logger.WarnContext(ctx, "venue already knows this order, resolving by query",
		logger.Field{Key: "venue", Value: order.Exchange},
		logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
	)
	snap, err := callVenue(ctx, g, v, "query", order, func(ctx context.Context) (*exchangev1.OrderSnapshot, error) {
		return v.adapter.QueryOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	v.cacheSnapshot(*snap)
	return &exchangev1.SubmitResult{
		ExchangeOrderID: snap.ExchangeOrderID,
		Status:          snap.Status,
		Resolved:        true,
	}, nil
}

// Cancel asks the venue to cancel a working order. Best effort: the caller
// only marks the order CANCELLED once the venue confirms, here or on the
// update stream.
func (g *Gateway) Cancel(ctx context.Context, order *orderv1.Order) error {
	v, err := g.venueFor(order.Exchange)
	if err != nil {
		return err
	}

	_, err = callVenue(ctx, g, v, "cancel", order, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, v.adapter.CancelOrder(ctx, order)
	})
	return err
}

// QueryStatus fetches the venue's authoritative view of the order. While
// the breaker is open the last cached snapshot is served instead; its AsOf
// tells the caller how stale it is.
func (g *Gateway) QueryStatus(ctx context.Context, order *orderv1.Order) (*exchangev1.OrderSnapshot, error) {
	v, err := g.venueFor(order.Exchange)
	if err != nil {
		return nil, err
	}

	snap, err := callVenue(ctx, g, v, "query", order, func(ctx context.Context) (*exchangev1.OrderSnapshot, error) {
		return v.adapter.QueryOrder(ctx, order)
	})
	if err != nil {
		if errors.Is(err, exchangev1.ErrCircuitOpen) {
			if cached, ok := v.cachedSnapshot(order.ClientOrderID); ok {
				return &cached, nil
			}
		}
		return nil, err
	}
	v.cacheSnapshot(*snap)
	return snap, nil
}

// callVenue runs one venue call through the limiter and the breaker,
// retrying transient failures with exponential backoff up to the configured
// attempt budget. Every attempt, retries included, takes its own token so
// the venue's documented budget holds under retry pressure; an empty bucket
// fails the call fast. Answers from the venue, including rejections, count
// as breaker successes; only failures to get an answer trip it.
func callVenue[T any](ctx context.Context, g *Gateway, v *venue, op string, order *orderv1.Order, call func(context.Context) (T, error)) (T, error) {
	var zero T
	delay := &backoff.Backoff{
		Min:    g.cfg.RetryBaseDelay,
		Max:    g.cfg.RetryMaxDelay,
		Factor: 2,
		Jitter: true,
	}
	attempts := g.cfg.MaxRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay.Duration()):
			}
		}

		if !v.limiter.TryAcquire() {
			return zero, fmt.Errorf("%w: %s", exchangev1.ErrRateLimitExceeded, v.adapter.Name())
		}
		if !v.breaker.Allow() {
			return zero, fmt.Errorf("%w: %s", exchangev1.ErrCircuitOpen, v.adapter.Name())
		}

		result, err := call(ctx)
		if err == nil {
			v.breaker.Success()
			return result, nil
		}
		if errors.Is(err, context.Canceled) {
			return zero, err
		}
		if e, ok := exchangev1.AsError(err); ok && e.Kind != exchangev1.KindTransient {
			// The venue answered; the answer just was not yes.
			v.breaker.Success()
			return zero, err
		}

		v.breaker.Failure()
		lastErr = err
		g.logger.WarnContext(ctx, "venue call failed",
			logger.Field{Key: "venue", Value: v.adapter.Name()},
			logger.Field{Key: "op", Value: op},
			logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
			logger.Field{Key: "attempt", Value: attempt},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
	return zero, lastErr
}
