// Package ordermanager drives orders from admission to a terminal state. It
// owns the in-memory live order set, serializes all work per client order id,
// persists every mutation through the order repository and publishes the
// status, fill and completion streams. Fills are routed to the position
// ledger and the portfolio's cash in the same serialized step.
package ordermanager

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	eventv1 "github.com/quantara/execution/internal/domain/event/v1"
	exchangev1 "github.com/quantara/execution/internal/domain/exchange/v1"
	orderv1 "github.com/quantara/execution/internal/domain/order/v1"
	portfoliov1 "github.com/quantara/execution/internal/domain/portfolio/v1"
	positionv1 "github.com/quantara/execution/internal/domain/position/v1"
	"github.com/quantara/execution/internal/usecase/validation"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/errors"
	"github.com/quantara/execution/pkg/keymutex"
	"github.com/quantara/execution/pkg/logger"
)

// reservation is what admission set aside for one live order: base quantity
// locked in the ledger for sells, cash locked in the portfolio for buys.
// Fills consume it; terminal cleanup releases the remainder.
type reservation struct {
	Quantity decimal.Decimal
	Cash     decimal.Decimal
}

// Manager owns live orders. Everything that touches one order runs under
// that order's key mutex: admission, venue updates, cancellation and
// reconciliation never interleave for the same order.
type Manager struct {
	cfg       config.GatewayConfig
	portfolio config.PortfolioConfig
	validator *validation.Validator
	repo      orderv1.Repository
	gateway   exchangev1.Gateway
	ledger    positionv1.Ledger
	valuator  portfoliov1.Valuator
	publisher eventv1.Publisher
	logger    logger.Interface

	keys *keymutex.KeyMutex

	mu           sync.RWMutex
	orders       map[string]*orderv1.Order
	venueIndex   map[string]string
	reservations map[string]reservation
}

// NewManager creates a manager with an empty live set. Restore loads
// persisted active orders before consumers start.
func NewManager(
	cfg config.GatewayConfig,
	portfolio config.PortfolioConfig,
	validator *validation.Validator,
	repo orderv1.Repository,
	gateway exchangev1.Gateway,
	ledger positionv1.Ledger,
	valuator portfoliov1.Valuator,
	publisher eventv1.Publisher,
	logger logger.Interface,
) *Manager {
	return &Manager{
		cfg:          cfg,
		portfolio:    portfolio,
		validator:    validator,
		repo:         repo,
		gateway:      gateway,
		ledger:       ledger,
		valuator:     valuator,
		publisher:    publisher,
		logger:       logger,
		keys:         keymutex.New(),
		orders:       make(map[string]*orderv1.Order),
		venueIndex:   make(map[string]string),
		reservations: make(map[string]reservation),
	}
}

// HandleExecutionOrder admits one execution request end to end: duplicate
// suppression, validation, reservation, persistence and submission. It is
// idempotent by strategy execution id. A non-nil return means handling must
// be retried by redelivery; rejections are handled and return nil.
func (m *Manager) HandleExecutionOrder(ctx context.Context, req *eventv1.ExecutionOrderRequest) error {
	if req.PortfolioID == "" {
		req.PortfolioID = m.portfolio.DefaultID
	}

	m.keys.Lock(req.StrategyExecutionID)
	defer m.keys.Unlock(req.StrategyExecutionID)

	known, err := m.alreadyKnown(ctx, req.StrategyExecutionID)
	if err != nil {
		return errors.NewTracer(string(errors.GeneralRepositoryError)).Wrap(err)
	}
	if known {
		m.logger.InfoContext(ctx, "duplicate execution request skipped",
			logger.Field{Key: "strategy_execution_id", Value: req.StrategyExecutionID},
		)
		return nil
	}

	order, rejection := m.validator.Validate(ctx, req)
	if rejection != nil {
		m.logger.WarnContext(ctx, "execution request rejected",
			logger.Field{Key: "strategy_execution_id", Value: req.StrategyExecutionID},
			logger.Field{Key: "error_code", Value: string(rejection.Code)},
			logger.Field{Key: "reason", Value: rejection.Reason},
		)
		return nil
	}

	res, rejection := m.reserve(ctx, order, order.Quantity, true)
	if rejection != nil {
		m.logger.WarnContext(ctx, "execution request rejected",
			logger.Field{Key: "strategy_execution_id", Value: req.StrategyExecutionID},
			logger.Field{Key: "error_code", Value: string(rejection.Code)},
			logger.Field{Key: "reason", Value: rejection.Reason},
		)
		return nil
	}

	if err := m.repo.Save(ctx, order); err != nil {
		m.release(ctx, order, res)
		return errors.NewTracer(string(errors.GeneralRepositoryError)).Wrap(err)
	}
	m.track(order)
	m.setReservation(order.ClientOrderID, res)
	m.publishStatus(ctx, order, order.StatusUpdates[len(order.StatusUpdates)-1])

	return m.submit(ctx, order)
}

// HandleOrderUpdate applies one asynchronous venue update: fills first, then
// any status the fills do not already imply. Updates for unknown or already
// terminal orders are logged and dropped; at-least-once venue streams make
// them normal.
func (m *Manager) HandleOrderUpdate(ctx context.Context, update exchangev1.OrderUpdate) {
	clientID := m.clientIDFor(ctx, update)
	if clientID == "" {
		m.logger.WarnContext(ctx, "update for unknown order dropped",
			logger.Field{Key: "error_code", Value: string(errors.DataConsistency)},
			logger.Field{Key: "exchange", Value: update.Exchange},
			logger.Field{Key: "exchange_order_id", Value: update.ExchangeOrderID},
		)
		return
	}

	m.keys.Lock(clientID)
	defer m.keys.Unlock(clientID)

	order, ok := m.resolveOrder(ctx, clientID)
	if !ok {
		m.logger.WarnContext(ctx, "update for terminal or unknown order dropped",
			logger.Field{Key: "error_code", Value: string(errors.DataConsistency)},
			logger.Field{Key: "client_order_id", Value: clientID},
			logger.Field{Key: "status", Value: string(update.Status)},
		)
		return
	}

	if update.ExchangeOrderID != "" && order.ExchangeOrderID == "" {
		order.ExchangeOrderID = update.ExchangeOrderID
		m.indexVenueOrder(order)
	}

	if update.Fill != nil {
		m.applyFill(ctx, order, *update.Fill)
	}
	if order.IsTerminal() {
		return
	}

	switch update.Status {
	case orderv1.StatusAcknowledged:
		if orderv1.CanTransition(order.Status, orderv1.StatusAcknowledged) {
			reason := update.Reason
			if reason == "" {
				reason = "venue acknowledged the order"
			}
			m.transition(ctx, order, orderv1.StatusAcknowledged, reason, orderv1.SourceExchange, update.ErrorCode)
		}
	case orderv1.StatusCancelled, orderv1.StatusExpired, orderv1.StatusRejected:
		if orderv1.CanTransition(order.Status, update.Status) {
			reason := update.Reason
			if reason == "" {
				reason = "venue reported " + string(update.Status)
			}
			m.transition(ctx, order, update.Status, reason, orderv1.SourceExchange, update.ErrorCode)
			m.finalize(ctx, order)
		}
	}
}

// Cancel requests venue cancellation of a live order. The order is marked
// CANCELLED only when the venue confirms, here or on the update stream. A
// fill racing the cancel still applies: after confirmation the venue's
// executed state is folded in before the local transition, so a partial
// execution ends PARTIALLY_FILLED-then-CANCELLED rather than losing the
// fill against a terminal order.
func (m *Manager) Cancel(ctx context.Context, clientOrderID, reason string) error {
	m.keys.Lock(clientOrderID)
	defer m.keys.Unlock(clientOrderID)

	order, ok := m.resolveOrder(ctx, clientOrderID)
	if !ok {
		return fmt.Errorf("unknown order: %s", clientOrderID)
	}
	if !order.IsCancellable() {
		return fmt.Errorf("%w: %s is %s", orderv1.ErrNotCancellable, clientOrderID, order.Status)
	}
	if reason == "" {
		reason = "cancel requested"
	}

	if order.Status == orderv1.StatusPending {
		// Never reached the venue; nothing to confirm.
		m.transition(ctx, order, orderv1.StatusCancelled, reason, orderv1.SourceUser, "")
		m.finalize(ctx, order)
		return nil
	}

	if err := m.gateway.Cancel(ctx, order); err != nil {
		if exchangev1.IsUnknownOrder(err) {
			// The venue has no such working order; reconciliation will
			// surface what actually happened to it.
			m.logger.WarnContext(ctx, "venue does not know the order being cancelled",
				logger.Field{Key: "client_order_id", Value: clientOrderID},
			)
		}
		return err
	}

	// The venue may have executed a last fill just before accepting the
	// cancel, with its trade report still in flight. Fold the venue's
	// authoritative state first so that fill lands before the order turns
	// terminal and immutable.
	if snap, qerr := m.gateway.QueryStatus(ctx, order); qerr == nil {
		m.applySnapshot(ctx, order, snap)
	} else {
		m.logger.WarnContext(ctx, "post-cancel venue query failed",
			logger.Field{Key: "client_order_id", Value: clientOrderID},
			logger.Field{Key: "error", Value: qerr.Error()},
		)
	}
	if order.IsTerminal() {
		return nil
	}
	m.transition(ctx, order, orderv1.StatusCancelled, reason, orderv1.SourceUser, "")
	m.finalize(ctx, order)
	return nil
}

// CancelByStrategy cancels the live order admitted for the given strategy
// execution id. The id doubles as the client order id end to end.
func (m *Manager) CancelByStrategy(ctx context.Context, strategyExecutionID string) error {
	return m.Cancel(ctx, strategyExecutionID, "cancelled by strategy")
}

// Restore loads persisted active orders into the live set, re-establishes
// their reservations and re-submits orders that never reached the venue.
// The engine calls it once before consumers start.
func (m *Manager) Restore(ctx context.Context) error {
	orders, err := m.repo.ListActive(ctx)
	if err != nil {
		return errors.NewTracer(string(errors.GeneralRepositoryError)).Wrap(err)
	}

	for _, order := range orders {
		m.keys.Lock(order.ClientOrderID)

		m.valuator.EnsurePortfolio(ctx, order.PortfolioID)
		m.track(order)
		res, _ := m.reserve(ctx, order, order.RemainingQuantity, false)
		m.setReservation(order.ClientOrderID, res)

		if order.Status == orderv1.StatusPending {
			// Persisted but never submitted. Submission is idempotent by
			// client order id, so resubmitting cannot double-place.
			if err := m.submit(ctx, order); err != nil {
				m.logger.ErrorContext(ctx, "failed to resubmit restored order",
					logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
					logger.Field{Key: "error", Value: err.Error()},
				)
			}
		}

		m.keys.Unlock(order.ClientOrderID)
	}

	m.logger.InfoContext(ctx, "order manager restored",
		logger.Field{Key: "active_orders", Value: len(orders)},
	)
	return nil
}

// ReconcileStale queries the venue for in-flight orders that have not moved
// within the configured staleness window and applies the authoritative
// snapshot, recovering updates lost between the venue stream and us.
func (m *Manager) ReconcileStale(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-m.cfg.ReconcileAfter)
	for _, clientID := range m.liveOrderIDs() {
		m.reconcileOrder(ctx, clientID, cutoff)
	}
}

// LiveOrders reports the number of orders not yet terminal.
func (m *Manager) LiveOrders() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

// submit drives the order through the gateway. Local rate-limit refusals are
// retried with a fixed delay up to the configured attempt budget; venue
// refusals end REJECTED, exhausted attempts end ERROR.
func (m *Manager) submit(ctx context.Context, order *orderv1.Order) error {
	attempts := m.cfg.SubmitAttempts
	if attempts < 1 {
		attempts = 1
	}

	var result *exchangev1.SubmitResult
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			order.RetryCount++
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.cfg.SubmitRetryDelay):
			}
		}

		result, err = m.gateway.Submit(ctx, order)
		if err == nil || !stderrors.Is(err, exchangev1.ErrRateLimitExceeded) {
			break
		}
		m.logger.WarnContext(ctx, "venue rate limit hit, retrying submission",
			logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
			logger.Field{Key: "venue", Value: order.Exchange},
			logger.Field{Key: "attempt", Value: attempt},
		)
	}
	if err != nil {
		if stderrors.Is(err, context.Canceled) {
			return err
		}
		m.failSubmission(ctx, order, err)
		return nil
	}

	order.ExchangeOrderID = result.ExchangeOrderID
	m.indexVenueOrder(order)
	m.transition(ctx, order, orderv1.StatusSubmitted, "submitted to venue", orderv1.SourceSystem, "")

	if result.Resolved {
		m.logger.InfoContext(ctx, "submission resolved against existing venue order",
			logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
			logger.Field{Key: "venue_status", Value: string(result.Status)},
		)
	}
	if result.Status == orderv1.StatusAcknowledged && orderv1.CanTransition(order.Status, orderv1.StatusAcknowledged) {
		m.transition(ctx, order, orderv1.StatusAcknowledged, "venue acknowledged the order", orderv1.SourceExchange, "")
	}

	for _, fill := range result.Fills {
		m.applyFill(ctx, order, fill)
	}

	// A duplicate resolved to a terminal venue state carries no fills in the
	// result; the full snapshot has the quantities the stream never gave us.
	if result.Resolved && result.Status.IsTerminal() && !order.IsTerminal() {
		if snap, qerr := m.gateway.QueryStatus(ctx, order); qerr == nil {
			m.applySnapshot(ctx, order, snap)
		} else if orderv1.CanTransition(order.Status, result.Status) {
			m.transition(ctx, order, result.Status, "venue state at duplicate resolution", orderv1.SourceExchange, "")
		}
	}

	if order.IsTerminal() {
		m.finalize(ctx, order)
	}
	return nil
}

// failSubmission ends an order the gateway could not place: REJECTED for a
// venue refusal, ERROR for everything else.
func (m *Manager) failSubmission(ctx context.Context, order *orderv1.Order, cause error) {
	status := orderv1.StatusError
	source := orderv1.SourceSystem
	code := errors.SubmissionFailed
	switch {
	case exchangev1.IsRejection(cause):
		status = orderv1.StatusRejected
		source = orderv1.SourceExchange
		code = errors.ExchangeRejected
	case stderrors.Is(cause, exchangev1.ErrRateLimitExceeded):
		code = errors.RateLimitExceeded
	case stderrors.Is(cause, exchangev1.ErrCircuitOpen):
		code = errors.CircuitOpen
	}

	m.transition(ctx, order, status, cause.Error(), source, string(code))
	m.finalize(ctx, order)
}

// applyFill applies one venue fill to the order, the ledger and the
// portfolio's cash, then publishes the fill, any status change and the
// completion exactly once. Duplicate fill ids are no-ops.
func (m *Manager) applyFill(ctx context.Context, order *orderv1.Order, fill orderv1.Fill) {
	auditBefore := len(order.StatusUpdates)
	applied, err := order.ApplyFill(fill)
	if err != nil {
		m.logger.ErrorContext(ctx, "fill dropped",
			logger.Field{Key: "error_code", Value: string(errors.DataConsistency)},
			logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
			logger.Field{Key: "fill_id", Value: fill.ID},
			logger.Field{Key: "error", Value: err.Error()},
		)
		return
	}
	if !applied {
		m.logger.DebugContext(ctx, "duplicate fill skipped",
			logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
			logger.Field{Key: "fill_id", Value: fill.ID},
		)
		return
	}

	if err := m.repo.RecordFill(ctx, order, fill); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist fill",
			logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
			logger.Field{Key: "fill_id", Value: fill.ID},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}

	signedQty := fill.Quantity.Mul(order.Side.Sign())
	if _, err := m.ledger.ApplyTrade(ctx, positionv1.Trade{
		Key:      positionKey(order),
		Quantity: signedQty,
		Price:    fill.Price,
		Fee:      fill.Fee,
		TradedAt: fill.Timestamp,
	}); err != nil {
		m.logger.ErrorContext(ctx, "ledger rejected fill",
			logger.Field{Key: "error_code", Value: string(errors.DataConsistency)},
			logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
			logger.Field{Key: "fill_id", Value: fill.ID},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
	if err := m.valuator.ApplyFillCash(ctx, order.PortfolioID, signedQty, fill.Price, fill.Fee); err != nil {
		m.logger.ErrorContext(ctx, "failed to move cash for fill",
			logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
			logger.Field{Key: "fill_id", Value: fill.ID},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
	m.consumeReservation(order, fill)
	m.valuator.NotifyActivity(order.PortfolioID)

	if err := m.publisher.PublishFill(ctx, eventv1.NewFillEvent(order, fill)); err != nil {
		m.logger.ErrorContext(ctx, "failed to publish fill event",
			logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
			logger.Field{Key: "fill_id", Value: fill.ID},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}

	// ApplyFill appends an audit record when the fill moved the status.
	if len(order.StatusUpdates) > auditBefore {
		update := order.StatusUpdates[len(order.StatusUpdates)-1]
		if err := m.repo.RecordStatus(ctx, order, update); err != nil {
			m.logger.ErrorContext(ctx, "failed to persist status update",
				logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
				logger.Field{Key: "status", Value: string(update.NewStatus)},
				logger.Field{Key: "error", Value: err.Error()},
			)
		}
		m.publishStatus(ctx, order, update)
	}

	if order.Status == orderv1.StatusFilled && order.MarkCompletionEmitted() {
		if err := m.publisher.PublishCompletion(ctx, eventv1.NewCompletionEvent(order)); err != nil {
			m.logger.ErrorContext(ctx, "failed to publish completion event",
				logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
				logger.Field{Key: "error", Value: err.Error()},
			)
		}
	}

	if order.IsTerminal() {
		m.finalize(ctx, order)
	}
}

// reconcileOrder refreshes one stale in-flight order from the venue.
func (m *Manager) reconcileOrder(ctx context.Context, clientOrderID string, cutoff time.Time) {
	m.keys.Lock(clientOrderID)
	defer m.keys.Unlock(clientOrderID)

	order, ok := m.liveOrder(clientOrderID)
	if !ok || order.IsTerminal() || order.Status == orderv1.StatusPending {
		return
	}
	if !order.UpdatedAt.Before(cutoff) {
		return
	}

	snap, err := m.gateway.QueryStatus(ctx, order)
	if err != nil {
		m.logger.WarnContext(ctx, "reconciliation query failed",
			logger.Field{Key: "client_order_id", Value: clientOrderID},
			logger.Field{Key: "error", Value: err.Error()},
		)
		return
	}
	m.applySnapshot(ctx, order, snap)
}

// applySnapshot folds the venue's authoritative view into the order: filled
// quantity we never saw becomes a synthesized fill priced so our average
// converges on the venue's, then the venue status is applied when it is
// ahead of ours.
func (m *Manager) applySnapshot(ctx context.Context, order *orderv1.Order, snap *exchangev1.OrderSnapshot) {
	if snap.ExchangeOrderID != "" && order.ExchangeOrderID == "" {
		order.ExchangeOrderID = snap.ExchangeOrderID
		m.indexVenueOrder(order)
	}

	if snap.FilledQuantity.GreaterThan(order.FilledQuantity) {
		missing := snap.FilledQuantity.Sub(order.FilledQuantity)
		price := decimal.Zero
		if snap.AverageFillPrice.IsPositive() {
			notional := snap.AverageFillPrice.Mul(snap.FilledQuantity)
			seen := order.AverageFillPrice.Mul(order.FilledQuantity)
			price = notional.Sub(seen).Div(missing)
		}
		if !price.IsPositive() {
			price = order.Price
		}
		if price.IsPositive() {
			m.applyFill(ctx, order, orderv1.Fill{
				ID:        fmt.Sprintf("%s:recon:%s", order.ClientOrderID, snap.FilledQuantity),
				Quantity:  missing,
				Price:     price,
				Timestamp: snap.AsOf,
			})
		} else {
			m.logger.ErrorContext(ctx, "cannot price reconciled fill",
				logger.Field{Key: "error_code", Value: string(errors.DataConsistency)},
				logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
				logger.Field{Key: "missing_quantity", Value: missing.String()},
			)
		}
	}

	if order.IsTerminal() {
		return
	}
	switch snap.Status {
	case orderv1.StatusCancelled, orderv1.StatusExpired, orderv1.StatusRejected:
		if orderv1.CanTransition(order.Status, snap.Status) {
			m.transition(ctx, order, snap.Status, "venue state on reconciliation", orderv1.SourceExchange, "")
			m.finalize(ctx, order)
		}
	case orderv1.StatusAcknowledged:
		if orderv1.CanTransition(order.Status, orderv1.StatusAcknowledged) {
			m.transition(ctx, order, orderv1.StatusAcknowledged, "venue state on reconciliation", orderv1.SourceExchange, "")
		}
	}
}

// reserve sets aside what the order will consume. Sells lock position
// quantity, degrading to a partial or empty lock when less is available (the
// unreserved remainder executes as a short sale, venue permitting). Buys lock
// the estimated cost; in strict mode an insufficient balance rejects the
// order instead of proceeding unreserved.
func (m *Manager) reserve(ctx context.Context, order *orderv1.Order, qty decimal.Decimal, strict bool) (reservation, *validation.Rejection) {
	var res reservation
	if !qty.IsPositive() {
		return res, nil
	}

	if order.Side == orderv1.SideSell {
		key := positionKey(order)
		if err := m.ledger.Lock(ctx, key, qty); err == nil {
			res.Quantity = qty
			return res, nil
		}
		if snap, ok := m.ledger.Get(ctx, key); ok && snap.AvailableQuantity.IsPositive() {
			partial := decimal.Min(qty, snap.AvailableQuantity)
			if err := m.ledger.Lock(ctx, key, partial); err == nil {
				res.Quantity = partial
			}
		}
		return res, nil
	}

	price := order.Price
	if !price.IsPositive() {
		price, _ = m.ledger.LastPrice(ctx, order.Symbol)
	}
	if !price.IsPositive() {
		return res, nil
	}

	cost := qty.Mul(price)
	if err := m.valuator.LockCash(ctx, order.PortfolioID, cost); err != nil {
		if strict && stderrors.Is(err, portfoliov1.ErrInsufficientCash) {
			return res, &validation.Rejection{
				Code:   errors.RiskCheckFailed,
				Reason: fmt.Sprintf("insufficient buying power: need %s", cost),
			}
		}
		m.logger.WarnContext(ctx, "cash reservation failed, order proceeds unreserved",
			logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
			logger.Field{Key: "error", Value: err.Error()},
		)
		return res, nil
	}
	res.Cash = cost
	return res, nil
}

// consumeReservation reduces the order's reservation by what the fill used.
// The ledger and the portfolio consume their locked buckets themselves; this
// only tracks how much remains to release at the terminal state.
func (m *Manager) consumeReservation(order *orderv1.Order, fill orderv1.Fill) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[order.ClientOrderID]
	if !ok {
		return
	}
	if order.Side == orderv1.SideSell {
		res.Quantity = decimal.Max(decimal.Zero, res.Quantity.Sub(fill.Quantity))
	} else {
		used := fill.Quantity.Mul(fill.Price).Add(fill.Fee)
		res.Cash = decimal.Max(decimal.Zero, res.Cash.Sub(used))
	}
	m.reservations[order.ClientOrderID] = res
}

// finalize releases whatever reservation the terminal order still holds and
// drops it from the live set. Idempotent: the second call for the same order
// finds nothing tracked and returns. Late updates for a finalized order load
// the terminal aggregate from the repository and are dropped there.
func (m *Manager) finalize(ctx context.Context, order *orderv1.Order) {
	m.mu.Lock()
	_, tracked := m.orders[order.ClientOrderID]
	res := m.reservations[order.ClientOrderID]
	delete(m.reservations, order.ClientOrderID)
	delete(m.orders, order.ClientOrderID)
	if order.ExchangeOrderID != "" {
		delete(m.venueIndex, venueKey(order.Exchange, order.ExchangeOrderID))
	}
	m.mu.Unlock()
	if !tracked {
		return
	}

	m.release(ctx, order, res)
	m.valuator.NotifyActivity(order.PortfolioID)
}

// release returns an unused reservation to its source buckets.
func (m *Manager) release(ctx context.Context, order *orderv1.Order, res reservation) {
	if res.Quantity.IsPositive() {
		if err := m.ledger.Unlock(ctx, positionKey(order), res.Quantity); err != nil {
			m.logger.WarnContext(ctx, "failed to release quantity reservation",
				logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
				logger.Field{Key: "quantity", Value: res.Quantity.String()},
				logger.Field{Key: "error", Value: err.Error()},
			)
		}
	}
	if res.Cash.IsPositive() {
		if err := m.valuator.UnlockCash(ctx, order.PortfolioID, res.Cash); err != nil {
			m.logger.WarnContext(ctx, "failed to release cash reservation",
				logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
				logger.Field{Key: "cash", Value: res.Cash.String()},
				logger.Field{Key: "error", Value: err.Error()},
			)
		}
	}
}

// transition moves the order, persists the audit record and publishes the
// status event. Illegal transitions are logged as consistency errors and
// dropped, never applied.
func (m *Manager) transition(ctx context.Context, order *orderv1.Order, next orderv1.Status, reason string, source orderv1.UpdateSource, errorCode string) {
	if err := order.Transition(next, reason, source, errorCode); err != nil {
		m.logger.ErrorContext(ctx, "illegal status transition dropped",
			logger.Field{Key: "error_code", Value: string(errors.DataConsistency)},
			logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
			logger.Field{Key: "from", Value: string(order.Status)},
			logger.Field{Key: "to", Value: string(next)},
			logger.Field{Key: "error", Value: err.Error()},
		)
		return
	}

	update := order.StatusUpdates[len(order.StatusUpdates)-1]
	if err := m.repo.RecordStatus(ctx, order, update); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist status update",
			logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
			logger.Field{Key: "status", Value: string(next)},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
	m.publishStatus(ctx, order, update)
}

func (m *Manager) publishStatus(ctx context.Context, order *orderv1.Order, update orderv1.StatusUpdate) {
	if err := m.publisher.PublishStatus(ctx, eventv1.NewStatusEvent(order, update)); err != nil {
		m.logger.ErrorContext(ctx, "failed to publish status event",
			logger.Field{Key: "client_order_id", Value: order.ClientOrderID},
			logger.Field{Key: "status", Value: string(update.NewStatus)},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
}

// alreadyKnown reports whether the strategy execution id already maps to an
// order, live or persisted.
func (m *Manager) alreadyKnown(ctx context.Context, clientOrderID string) (bool, error) {
	if _, ok := m.liveOrder(clientOrderID); ok {
		return true, nil
	}
	existing, err := m.repo.FindByClientOrderID(ctx, clientOrderID)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// clientIDFor resolves an update to its client order id: the update itself,
// the in-memory venue index, then the repository.
func (m *Manager) clientIDFor(ctx context.Context, update exchangev1.OrderUpdate) string {
	if update.ClientOrderID != "" {
		return update.ClientOrderID
	}
	if update.ExchangeOrderID == "" {
		return ""
	}

	m.mu.RLock()
	clientID := m.venueIndex[venueKey(update.Exchange, update.ExchangeOrderID)]
	m.mu.RUnlock()
	if clientID != "" {
		return clientID
	}

	order, err := m.repo.FindByExchangeOrderID(ctx, update.Exchange, update.ExchangeOrderID)
	if err != nil || order == nil {
		return ""
	}
	return order.ClientOrderID
}

// resolveOrder returns the live order, falling back to the repository for
// orders admitted before the last restart. Terminal orders never resolve.
func (m *Manager) resolveOrder(ctx context.Context, clientOrderID string) (*orderv1.Order, bool) {
	if order, ok := m.liveOrder(clientOrderID); ok {
		return order, true
	}
	order, err := m.repo.FindByClientOrderID(ctx, clientOrderID)
	if err != nil || order == nil || order.IsTerminal() {
		return nil, false
	}
	m.track(order)
	return order, true
}

func (m *Manager) liveOrder(clientOrderID string) (*orderv1.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[clientOrderID]
	return order, ok
}

func (m *Manager) liveOrderIDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.orders))
	for id := range m.orders {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (m *Manager) track(order *orderv1.Order) {
	m.mu.Lock()
	m.orders[order.ClientOrderID] = order
	if order.ExchangeOrderID != "" {
		m.venueIndex[venueKey(order.Exchange, order.ExchangeOrderID)] = order.ClientOrderID
	}
	m.mu.Unlock()
}

func (m *Manager) indexVenueOrder(order *orderv1.Order) {
	if order.ExchangeOrderID == "" {
		return
	}
	m.mu.Lock()
	m.venueIndex[venueKey(order.Exchange, order.ExchangeOrderID)] = order.ClientOrderID
	m.mu.Unlock()
}

func (m *Manager) setReservation(clientOrderID string, res reservation) {
	m.mu.Lock()
	m.reservations[clientOrderID] = res
	m.mu.Unlock()
}

func venueKey(exchange, exchangeOrderID string) string {
	return exchange + "|" + exchangeOrderID
}

func positionKey(order *orderv1.Order) positionv1.Key {
	return positionv1.Key{
		PortfolioID: order.PortfolioID,
		Symbol:      order.Symbol,
		Exchange:    order.Exchange,
	}
}
