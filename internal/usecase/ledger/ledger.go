// Package ledger keeps the in-memory position book: one position per
// (portfolio, symbol, exchange) key, a last-price index per symbol, and the
// per-portfolio aggregates the valuator folds into portfolio valuations.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	positionv1 "github.com/quantara/execution/internal/domain/position/v1"
	"github.com/quantara/execution/pkg/keymutex"
)

// Ledger is the in-memory position book. A keyed mutex serializes all
// mutations per position; mutators work on a private copy and republish it,
// so a published position is never written in place and readers always see
// fully applied trades.
type Ledger struct {
	keys *keymutex.KeyMutex

	mu        sync.RWMutex
	positions map[positionv1.Key]*positionv1.Position
	// realizedCarry holds per portfolio the realized P&L of positions that
	// were compacted out of restored snapshots.
	realizedCarry map[string]decimal.Decimal

	priceMu sync.RWMutex
	prices  map[string]decimal.Decimal
}

var _ positionv1.Ledger = (*Ledger)(nil)

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		keys:          keymutex.New(),
		positions:     make(map[positionv1.Key]*positionv1.Position),
		realizedCarry: make(map[string]decimal.Decimal),
		prices:        make(map[string]decimal.Decimal),
	}
}

// ApplyTrade folds one executed fill into the keyed position, creating the
// position on first touch. The position is re-marked against the last known
// symbol price, falling back to the trade's own price when no tick has
// arrived yet.
func (l *Ledger) ApplyTrade(ctx context.Context, trade positionv1.Trade) (*positionv1.TradeResult, error) {
	if trade.Quantity.IsZero() {
		return nil, fmt.Errorf("trade quantity must be non-zero")
	}
	if !trade.Price.IsPositive() {
		return nil, fmt.Errorf("trade price must be positive, got %s", trade.Price)
	}
	if trade.Fee.IsNegative() {
		return nil, fmt.Errorf("trade fee must not be negative, got %s", trade.Fee)
	}

	ks := trade.Key.String()
	l.keys.Lock(ks)
	defer l.keys.Unlock(ks)

	pos := l.working(trade.Key)
	wasFlat := pos.IsFlat()
	realizedBefore := pos.RealizedPnl

	if err := pos.ApplyTrade(trade.Quantity, trade.Price, trade.Fee); err != nil {
		return nil, err
	}

	mark := trade.Price
	if last, ok := l.LastPrice(ctx, trade.Key.Symbol); ok {
		mark = last
	}
	pos.Mark(mark)

	l.publish(trade.Key, pos)

	return &positionv1.TradeResult{
		Position:      pos.Snapshot(),
		RealizedDelta: pos.RealizedPnl.Sub(realizedBefore),
		Flattened:     !wasFlat && pos.IsFlat(),
	}, nil
}

// MarkPrice records the symbol's latest price and refreshes every open
// position on it, scoped to one venue when exchange is non-empty. It returns
// the ids of portfolios whose valuation changed, sorted for determinism.
func (l *Ledger) MarkPrice(ctx context.Context, exchange, symbol string, price decimal.Decimal) []string {
	if !price.IsPositive() {
		return nil
	}

	l.priceMu.Lock()
	l.prices[symbol] = price
	l.priceMu.Unlock()

	l.mu.RLock()
	keys := make([]positionv1.Key, 0, len(l.positions))
	for k := range l.positions {
		if k.Symbol != symbol {
			continue
		}
		if exchange != "" && k.Exchange != exchange {
			continue
		}
		keys = append(keys, k)
	}
	l.mu.RUnlock()

	var affected []string
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		ks := k.String()
		l.keys.Lock(ks)
		if cur, ok := l.lookup(k); ok && !cur.IsClosed() {
			cp := *cur
			cp.Mark(price)
			l.publish(k, &cp)
			// A flat position's valuation does not move with price.
			if _, dup := seen[k.PortfolioID]; !dup && !cp.IsFlat() {
				seen[k.PortfolioID] = struct{}{}
				affected = append(affected, k.PortfolioID)
			}
		}
		l.keys.Unlock(ks)
	}

	sort.Strings(affected)
	return affected
}

// Lock reserves available quantity on the keyed position for a working sell
// order.
func (l *Ledger) Lock(ctx context.Context, key positionv1.Key, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("lock quantity must be positive, got %s", quantity)
	}

	ks := key.String()
	l.keys.Lock(ks)
	defer l.keys.Unlock(ks)

	cur, ok := l.lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", positionv1.ErrNotFound, ks)
	}

	cp := *cur
	if err := cp.Lock(quantity); err != nil {
		return err
	}
	l.publish(key, &cp)
	return nil
}

// Unlock releases reserved quantity back to the available bucket.
func (l *Ledger) Unlock(ctx context.Context, key positionv1.Key, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("unlock quantity must be positive, got %s", quantity)
	}

	ks := key.String()
	l.keys.Lock(ks)
	defer l.keys.Unlock(ks)

	cur, ok := l.lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", positionv1.ErrNotFound, ks)
	}

	cp := *cur
	if err := cp.Unlock(quantity); err != nil {
		return err
	}
	l.publish(key, &cp)
	return nil
}

// ClosePosition flattens the keyed position at the given price, realizing
// whatever P&L remains, and marks it closed.
func (l *Ledger) ClosePosition(ctx context.Context, key positionv1.Key, price decimal.Decimal) (*positionv1.TradeResult, error) {
	ks := key.String()
	l.keys.Lock(ks)
	defer l.keys.Unlock(ks)

	cur, ok := l.lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", positionv1.ErrNotFound, ks)
	}

	cp := *cur
	wasFlat := cp.IsFlat()
	realizedBefore := cp.RealizedPnl

	if err := cp.Close(price); err != nil {
		return nil, err
	}
	l.publish(key, &cp)

	return &positionv1.TradeResult{
		Position:      cp.Snapshot(),
		RealizedDelta: cp.RealizedPnl.Sub(realizedBefore),
		Flattened:     !wasFlat,
	}, nil
}

// Restore seeds the book with positions recovered from a portfolio snapshot
// and records the realized P&L carried by positions absent from it. Restored
// quantity is fully available; the snapshot's current prices seed the price
// index until fresher ticks arrive.
func (l *Ledger) Restore(ctx context.Context, portfolioID string, positions []positionv1.Snapshot, realizedCarry decimal.Decimal) {
	for _, snap := range positions {
		key := positionv1.Key{PortfolioID: portfolioID, Symbol: snap.Symbol, Exchange: snap.Exchange}
		ks := key.String()
		l.keys.Lock(ks)
		if _, ok := l.lookup(key); !ok {
			l.publish(key, positionv1.FromSnapshot(portfolioID, snap))
		}
		l.keys.Unlock(ks)

		if snap.CurrentPrice.IsPositive() {
			l.priceMu.Lock()
			if _, ok := l.prices[snap.Symbol]; !ok {
				l.prices[snap.Symbol] = snap.CurrentPrice
			}
			l.priceMu.Unlock()
		}
	}

	if !realizedCarry.IsZero() {
		l.mu.Lock()
		l.realizedCarry[portfolioID] = l.realizedCarry[portfolioID].Add(realizedCarry)
		l.mu.Unlock()
	}
}

// Get returns a copy of the keyed position.
func (l *Ledger) Get(ctx context.Context, key positionv1.Key) (positionv1.Snapshot, bool) {
	cur, ok := l.lookup(key)
	if !ok {
		return positionv1.Snapshot{}, false
	}
	return cur.Snapshot(), true
}

// PortfolioPositions lists the portfolio's open positions, ordered by symbol
// then exchange.
func (l *Ledger) PortfolioPositions(ctx context.Context, portfolioID string) []positionv1.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []positionv1.Snapshot
	for k, pos := range l.positions {
		if k.PortfolioID != portfolioID || pos.IsClosed() {
			continue
		}
		out = append(out, pos.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Exchange < out[j].Exchange
	})
	return out
}

// PortfolioAggregates sums the portfolio's position values and P&L. Closed
// positions hold no market value but keep contributing their realized P&L,
// as does the realized carry of restored snapshots.
func (l *Ledger) PortfolioAggregates(ctx context.Context, portfolioID string) positionv1.Aggregates {
	l.mu.RLock()
	defer l.mu.RUnlock()

	agg := positionv1.Aggregates{RealizedPnl: l.realizedCarry[portfolioID]}
	for k, pos := range l.positions {
		if k.PortfolioID != portfolioID {
			continue
		}
		agg.PositionsValue = agg.PositionsValue.Add(pos.MarketValue)
		agg.RealizedPnl = agg.RealizedPnl.Add(pos.RealizedPnl)
		agg.UnrealizedPnl = agg.UnrealizedPnl.Add(pos.UnrealizedPnl)
	}
	return agg
}

// Exposure is the portfolio's absolute open quantity on a symbol summed
// across venues, reserved quantity included.
func (l *Ledger) Exposure(ctx context.Context, portfolioID, symbol string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := decimal.Zero
	for k, pos := range l.positions {
		if k.PortfolioID != portfolioID || k.Symbol != symbol {
			continue
		}
		total = total.Add(pos.Quantity.Abs())
	}
	return total
}

// LastPrice returns the most recent marked price for a symbol.
func (l *Ledger) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	l.priceMu.RLock()
	defer l.priceMu.RUnlock()
	price, ok := l.prices[symbol]
	return price, ok
}

// lookup returns the currently published position for the key.
func (l *Ledger) lookup(key positionv1.Key) (*positionv1.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.positions[key]
	return pos, ok
}

// working returns a private copy of the keyed position to mutate, creating a
// fresh one on first touch. The caller must hold the key's mutex.
func (l *Ledger) working(key positionv1.Key) *positionv1.Position {
	if cur, ok := l.lookup(key); ok {
		cp := *cur
		return &cp
	}
	return positionv1.NewPosition(key.PortfolioID, key.Symbol, key.Exchange)
}

// publish replaces the stored position with the mutated copy.
func (l *Ledger) publish(key positionv1.Key, pos *positionv1.Position) {
	l.mu.Lock()
	l.positions[key] = pos
	l.mu.Unlock()
}
