// Package valuation owns portfolio state. Every cash move and every
// valuation goes through the Valuator; position state stays with the ledger
// and is folded in on revaluation. Revaluations are coalesced: activity
// notifications queue portfolios, a single loop drains the queue and
// publishes one portfolio-events message per affected portfolio.
package valuation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	eventv1 "github.com/quantara/execution/internal/domain/event/v1"
	portfoliov1 "github.com/quantara/execution/internal/domain/portfolio/v1"
	positionv1 "github.com/quantara/execution/internal/domain/position/v1"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/keymutex"
	"github.com/quantara/execution/pkg/logger"
)

// Valuator keeps every portfolio the service has touched and is the only
// writer of portfolio state. Portfolios are registered lazily: the first
// touch restores from the snapshot store when a snapshot exists, otherwise
// starts fresh with the configured initial capital.
type Valuator struct {
	cfg       config.PortfolioConfig
	risk      config.RiskConfig
	ledger    positionv1.Ledger
	store     portfoliov1.SnapshotStore
	publisher eventv1.Publisher
	logger    logger.Interface

	// keys serializes first-touch registration per portfolio so a restore
	// finishes before anyone acts on the restored portfolio.
	keys *keymutex.KeyMutex

	mu         sync.RWMutex
	portfolios map[string]*portfoliov1.Portfolio

	pendingMu sync.Mutex
	pending   map[string]struct{}
	wake      chan struct{}
}

var _ portfoliov1.Valuator = (*Valuator)(nil)

// NewValuator creates a valuator with no portfolios registered.
func NewValuator(
	cfg config.PortfolioConfig,
	risk config.RiskConfig,
	ledger positionv1.Ledger,
	store portfoliov1.SnapshotStore,
	publisher eventv1.Publisher,
	logger logger.Interface,
) *Valuator {
	return &Valuator{
		cfg:        cfg,
		risk:       risk,
		ledger:     ledger,
		store:      store,
		publisher:  publisher,
		logger:     logger,
		keys:       keymutex.New(),
		portfolios: make(map[string]*portfoliov1.Portfolio),
		pending:    make(map[string]struct{}),
		wake:       make(chan struct{}, 1),
	}
}

// EnsurePortfolio returns the portfolio's risk limits, registering it on
// first touch. A stored snapshot is restored into the portfolio and the
// ledger before the portfolio becomes visible; a portfolio with no snapshot
// starts fresh and announces itself with a PORTFOLIO_CREATED event.
func (v *Valuator) EnsurePortfolio(ctx context.Context, portfolioID string) portfoliov1.Limits {
	if p, ok := v.get(portfolioID); ok {
		return p.Limits
	}

	v.keys.Lock(portfolioID)
	defer v.keys.Unlock(portfolioID)

	// Registration may have finished while we waited for the key.
	if p, ok := v.get(portfolioID); ok {
		return p.Limits
	}

	snap, err := v.store.Latest(ctx, portfolioID)
	if err != nil {
		v.logger.WarnContext(ctx, "snapshot lookup failed, starting portfolio fresh",
			logger.Field{Key: "portfolio_id", Value: portfolioID},
			logger.Field{Key: "error", Value: err.Error()},
		)
		snap = nil
	}

	if snap == nil {
		p := portfoliov1.NewPortfolio(portfolioID, v.cfg.DefaultInitialCapital, v.limits())
		event := eventv1.NewPortfolioEvent(eventv1.PortfolioCreated, p.Snapshot(nil), p.IsHealthy())
		v.put(portfolioID, p)
		v.logger.InfoContext(ctx, "portfolio created",
			logger.Field{Key: "portfolio_id", Value: portfolioID},
			logger.Field{Key: "initial_capital", Value: v.cfg.DefaultInitialCapital.String()},
		)
		v.publish(ctx, event)
		return p.Limits
	}

	p := portfoliov1.Restore(*snap, v.limits())
	v.ledger.Restore(ctx, portfolioID, snap.Positions, realizedCarry(snap))
	v.put(portfolioID, p)
	v.logger.InfoContext(ctx, "portfolio restored from snapshot",
		logger.Field{Key: "portfolio_id", Value: portfolioID},
		logger.Field{Key: "total_value", Value: snap.TotalValue.String()},
		logger.Field{Key: "positions", Value: len(snap.Positions)},
	)
	return p.Limits
}

// ApplyFillCash moves cash for an executed fill. Quantity is signed: buys
// debit cost plus fee, consuming any reservation first; sells credit
// proceeds net of fee. Fills are authoritative, so a buy is debited even
// when it overdraws available cash.
func (v *Valuator) ApplyFillCash(ctx context.Context, portfolioID string, quantity, price, fee decimal.Decimal) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.portfolios[portfolioID]
	if !ok {
		return fmt.Errorf("unknown portfolio: %s", portfolioID)
	}
	switch {
	case quantity.IsPositive():
		return p.DebitFill(quantity.Mul(price), fee)
	case quantity.IsNegative():
		return p.CreditFill(quantity.Neg().Mul(price), fee)
	default:
		return fmt.Errorf("fill quantity must be non-zero")
	}
}

// LockCash reserves available cash for a working buy order.
func (v *Valuator) LockCash(ctx context.Context, portfolioID string, amount decimal.Decimal) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.portfolios[portfolioID]
	if !ok {
		return fmt.Errorf("unknown portfolio: %s", portfolioID)
	}
	return p.LockCash(amount)
}

// UnlockCash releases up to the given amount of reserved cash. Fills consume
// reservations as they debit, so the leftover release on a terminal order
// can exceed what is still locked; the release is clamped, not failed.
func (v *Valuator) UnlockCash(ctx context.Context, portfolioID string, amount decimal.Decimal) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.portfolios[portfolioID]
	if !ok {
		return fmt.Errorf("unknown portfolio: %s", portfolioID)
	}
	release := decimal.Min(amount, p.LockedCash)
	if !release.IsPositive() {
		return nil
	}
	return p.UnlockCash(release)
}

// NotifyActivity queues the portfolio for revaluation. Bursts coalesce: a
// portfolio queued many times between runs is revalued once.
func (v *Valuator) NotifyActivity(portfolioID string) {
	v.pendingMu.Lock()
	v.pending[portfolioID] = struct{}{}
	v.pendingMu.Unlock()

	select {
	case v.wake <- struct{}{}:
	default:
	}
}

// Run drains revaluation requests until the context ends.
func (v *Valuator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-v.wake:
			v.revalueBatch(ctx)
		}
	}
}

// DailyRealizedPnl is the portfolio's realized P&L since UTC midnight.
// Unknown portfolios report zero.
func (v *Valuator) DailyRealizedPnl(ctx context.Context, portfolioID string) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.portfolios[portfolioID]
	if !ok {
		return decimal.Zero
	}
	return p.DailyRealizedPnl()
}

// View revalues the portfolio against the ledger and returns the resulting
// snapshot.
func (v *Valuator) View(ctx context.Context, portfolioID string) (portfoliov1.Snapshot, bool) {
	snap, _, ok := v.refresh(ctx, portfolioID)
	return snap, ok
}

// Snapshots revalues every known portfolio and returns their snapshots,
// ordered by portfolio id.
func (v *Valuator) Snapshots(ctx context.Context) []portfoliov1.Snapshot {
	v.mu.RLock()
	ids := make([]string, 0, len(v.portfolios))
	for id := range v.portfolios {
		ids = append(ids, id)
	}
	v.mu.RUnlock()
	sort.Strings(ids)

	snaps := make([]portfoliov1.Snapshot, 0, len(ids))
	for _, id := range ids {
		if snap, _, ok := v.refresh(ctx, id); ok {
			snaps = append(snaps, snap)
		}
	}
	return snaps
}

// revalueBatch revalues the queued portfolios in id order and publishes one
// PORTFOLIO_UPDATED event per portfolio.
func (v *Valuator) revalueBatch(ctx context.Context) {
	v.pendingMu.Lock()
	batch := v.pending
	v.pending = make(map[string]struct{})
	v.pendingMu.Unlock()

	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		snap, healthy, ok := v.refresh(ctx, id)
		if !ok {
			continue
		}
		v.publish(ctx, eventv1.NewPortfolioEvent(eventv1.PortfolioUpdated, snap, healthy))
	}
}

// refresh folds the ledger's current position aggregates into the portfolio
// and returns the resulting snapshot and health.
func (v *Valuator) refresh(ctx context.Context, portfolioID string) (portfoliov1.Snapshot, bool, bool) {
	if _, ok := v.get(portfolioID); !ok {
		return portfoliov1.Snapshot{}, false, false
	}

	positions := v.ledger.PortfolioPositions(ctx, portfolioID)
	agg := v.ledger.PortfolioAggregates(ctx, portfolioID)

	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.portfolios[portfolioID]
	if !ok {
		return portfoliov1.Snapshot{}, false, false
	}
	p.Revalue(agg.PositionsValue, agg.RealizedPnl, agg.UnrealizedPnl)
	return p.Snapshot(positions), p.IsHealthy(), true
}

func (v *Valuator) get(portfolioID string) (*portfoliov1.Portfolio, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p, ok := v.portfolios[portfolioID]
	return p, ok
}

func (v *Valuator) put(portfolioID string, p *portfoliov1.Portfolio) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.portfolios[portfolioID] = p
}

func (v *Valuator) publish(ctx context.Context, event *eventv1.PortfolioEvent) {
	if err := v.publisher.PublishPortfolio(ctx, event); err != nil {
		v.logger.ErrorContext(ctx, "failed to publish portfolio event",
			logger.Field{Key: "portfolio_id", Value: event.PortfolioID},
			logger.Field{Key: "event_type", Value: string(event.EventType)},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
}

func (v *Valuator) limits() portfoliov1.Limits {
	return portfoliov1.Limits{
		MaxPositionSize: v.risk.MaxPositionSize,
		MaxDailyLoss:    v.risk.MaxDailyLoss,
		MaxDrawdownPct:  v.cfg.MaxDrawdownPct,
	}
}

// realizedCarry is the realized P&L the snapshot attributes to positions
// absent from its position list: cycles closed and dropped from the book
// before the snapshot was taken. The ledger keeps carrying it so the
// portfolio's aggregates survive restarts.
func realizedCarry(snap *portfoliov1.Snapshot) decimal.Decimal {
	carry := snap.RealizedPnl
	for _, pos := range snap.Positions {
		carry = carry.Sub(pos.RealizedPnl)
	}
	return carry
}
