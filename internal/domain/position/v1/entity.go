package positionv1

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a position, derived from the sign of its quantity.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
	SideFlat  Side = "FLAT"
)

// Sentinel errors of position bookkeeping.
var (
	// ErrInsufficientAvailable means a lock asked for more than the
	// available bucket holds.
	ErrInsufficientAvailable = errors.New("insufficient available quantity")
	// ErrInsufficientLocked means an unlock asked for more than the
	// locked bucket holds.
	ErrInsufficientLocked = errors.New("insufficient locked quantity")
	// ErrClosed means the position was explicitly closed and takes no
	// further trades.
	ErrClosed = errors.New("position is closed")
	// ErrNotFound means the ledger holds no position for the key.
	ErrNotFound = errors.New("position not found")
)

// hundred scales ratios to percentages.
var hundred = decimal.NewFromInt(100)

// Position is the net holding of one symbol on one exchange within one
// portfolio. It is mutated exclusively by the position ledger, which
// serializes all writes per (portfolio, symbol, exchange) key.
type Position struct {
	PortfolioID string `json:"portfolioId"`
	Symbol      string `json:"symbol"`
	Exchange    string `json:"exchange"`

	// Quantity is signed: positive long, negative short. It always equals
	// AvailableQuantity + LockedQuantity.
	Quantity          decimal.Decimal `json:"quantity"`
	AvailableQuantity decimal.Decimal `json:"availableQuantity"`
	LockedQuantity    decimal.Decimal `json:"lockedQuantity"`

	// TotalCost is the net cash invested in the open cycle: buys add
	// quantity times price, sells subtract their proceeds.
	TotalCost decimal.Decimal `json:"totalCost"`
	AvgCost   decimal.Decimal `json:"avgCost"`
	TotalFees decimal.Decimal `json:"totalFees"`

	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	MarketValue   decimal.Decimal `json:"marketValue"`
	RealizedPnl   decimal.Decimal `json:"realizedPnl"`
	UnrealizedPnl decimal.Decimal `json:"unrealizedPnl"`
	TotalPnl      decimal.Decimal `json:"totalPnl"`

	HighWaterMark  decimal.Decimal `json:"highWaterMark"`
	MaxDrawdownPct decimal.Decimal `json:"maxDrawdownPct"`

	TradeCount int `json:"tradeCount"`
	WinCount   int `json:"winCount"`
	LossCount  int `json:"lossCount"`

	OpenedAt  time.Time  `json:"openedAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`

	// cycleRealizedStart marks RealizedPnl at the start of the open
	// cycle so the flatten can classify the cycle as a win or a loss.
	cycleRealizedStart decimal.Decimal
}

// NewPosition creates a flat position for the given key.
func NewPosition(portfolioID, symbol, exchange string) *Position {
	now := time.Now().UTC()
	return &Position{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Exchange:    exchange,
		OpenedAt:    now,
		UpdatedAt:   now,
	}
}

// FromSnapshot rebuilds a position from a persisted snapshot. The restored
// quantity is fully available: reservations belong to working orders and are
// re-established when those orders are restored, not from the snapshot.
func FromSnapshot(portfolioID string, snap Snapshot) *Position {
	now := time.Now().UTC()
	return &Position{
		PortfolioID:        portfolioID,
		Symbol:             snap.Symbol,
		Exchange:           snap.Exchange,
		Quantity:           snap.Quantity,
		AvailableQuantity:  snap.Quantity,
		TotalCost:          snap.AvgCost.Mul(snap.Quantity),
		AvgCost:            snap.AvgCost,
		CurrentPrice:       snap.CurrentPrice,
		MarketValue:        snap.MarketValue,
		RealizedPnl:        snap.RealizedPnl,
		UnrealizedPnl:      snap.UnrealizedPnl,
		TotalPnl:           snap.RealizedPnl.Add(snap.UnrealizedPnl),
		OpenedAt:           now,
		UpdatedAt:          now,
		cycleRealizedStart: snap.RealizedPnl,
	}
}

// Side derives the position direction from the quantity sign.
func (p *Position) Side() Side {
	switch {
	case p.Quantity.IsPositive():
		return SideLong
	case p.Quantity.IsNegative():
		return SideShort
	}
	return SideFlat
}

// IsFlat reports whether the position holds no quantity.
func (p *Position) IsFlat() bool {
	return p.Quantity.IsZero()
}

// IsClosed reports whether the position was explicitly closed.
func (p *Position) IsClosed() bool {
	return p.ClosedAt != nil
}

// ApplyTrade folds a signed trade quantity (positive buy, negative sell) at
// the given price with the given fee into the position. Fees are expensed to
// realized P&L immediately. When the trade flattens the position exactly, the
// remaining cost basis is realized and the cycle's win/loss counter updated.
func (p *Position) ApplyTrade(quantity, price, fee decimal.Decimal) error {
	if p.IsClosed() {
		return fmt.Errorf("%w: %s %s %s", ErrClosed, p.PortfolioID, p.Symbol, p.Exchange)
	}

	wasFlat := p.IsFlat()

	p.TotalCost = p.TotalCost.Add(quantity.Mul(price))
	p.Quantity = p.Quantity.Add(quantity)
	p.TotalFees = p.TotalFees.Add(fee)
	p.RealizedPnl = p.RealizedPnl.Sub(fee)
	p.TradeCount++

	// Sells consume locked quantity first: reservations exist so that
	// working sell orders cannot double-spend the holding.
	if quantity.IsNegative() {
		sold := quantity.Neg()
		fromLocked := decimal.Min(p.LockedQuantity, sold)
		p.LockedQuantity = p.LockedQuantity.Sub(fromLocked)
		p.AvailableQuantity = p.AvailableQuantity.Sub(sold.Sub(fromLocked))
	} else {
		p.AvailableQuantity = p.AvailableQuantity.Add(quantity)
	}

	if wasFlat && !p.IsFlat() {
		p.cycleRealizedStart = p.RealizedPnl.Add(fee) // fee belongs to the new cycle
		p.OpenedAt = time.Now().UTC()
	}

	if p.IsFlat() {
		// The cycle's proceeds net out against its costs: whatever cost
		// basis remains is the realized result. AvgCost keeps the closed
		// cycle's entry basis; the next open recomputes it.
		p.RealizedPnl = p.RealizedPnl.Sub(p.TotalCost)
		p.TotalCost = decimal.Zero
		p.MarketValue = decimal.Zero
		p.UnrealizedPnl = decimal.Zero

		cycle := p.RealizedPnl.Sub(p.cycleRealizedStart)
		if cycle.IsPositive() {
			p.WinCount++
		} else if cycle.IsNegative() {
			p.LossCount++
		}
	} else {
		p.AvgCost = p.TotalCost.Div(p.Quantity)
	}

	p.refreshValuation()
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Mark updates the position against the latest market price and recomputes
// market value, unrealized P&L and the drawdown watermarks.
func (p *Position) Mark(price decimal.Decimal) {
	p.CurrentPrice = price
	p.refreshValuation()
	p.UpdatedAt = time.Now().UTC()
}

// refreshValuation derives marketValue, unrealizedPnl, totalPnl and the
// high-water mark / max drawdown from the current state.
func (p *Position) refreshValuation() {
	if p.IsFlat() {
		p.MarketValue = decimal.Zero
		p.UnrealizedPnl = decimal.Zero
	} else {
		p.MarketValue = p.Quantity.Mul(p.CurrentPrice)
		p.UnrealizedPnl = p.MarketValue.Sub(p.TotalCost)
	}
	p.TotalPnl = p.RealizedPnl.Add(p.UnrealizedPnl)

	if p.TotalPnl.GreaterThan(p.HighWaterMark) {
		p.HighWaterMark = p.TotalPnl
	}
	if p.HighWaterMark.IsPositive() {
		drawdown := p.HighWaterMark.Sub(p.TotalPnl).Div(p.HighWaterMark).Mul(hundred)
		if drawdown.GreaterThan(p.MaxDrawdownPct) {
			p.MaxDrawdownPct = drawdown
		}
	}
}

// Lock moves quantity from the available bucket to the locked bucket,
// reserving it for a working order. Locking more than available is rejected.
func (p *Position) Lock(quantity decimal.Decimal) error {
	if quantity.GreaterThan(p.AvailableQuantity) {
		return fmt.Errorf("%w: want %s, have %s", ErrInsufficientAvailable, quantity, p.AvailableQuantity)
	}
	p.AvailableQuantity = p.AvailableQuantity.Sub(quantity)
	p.LockedQuantity = p.LockedQuantity.Add(quantity)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Unlock releases a reservation back to the available bucket.
func (p *Position) Unlock(quantity decimal.Decimal) error {
	if quantity.GreaterThan(p.LockedQuantity) {
		return fmt.Errorf("%w: want %s, have %s", ErrInsufficientLocked, quantity, p.LockedQuantity)
	}
	p.LockedQuantity = p.LockedQuantity.Sub(quantity)
	p.AvailableQuantity = p.AvailableQuantity.Add(quantity)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Close flattens the position at the given price, realizing whatever P&L
// remains, and stamps the close time. A closed position takes no further
// trades; this is distinct from flattening through ordinary trades.
func (p *Position) Close(price decimal.Decimal) error {
	if p.IsClosed() {
		return fmt.Errorf("%w: %s %s %s", ErrClosed, p.PortfolioID, p.Symbol, p.Exchange)
	}

	if !p.IsFlat() {
		proceeds := p.Quantity.Mul(price)
		p.RealizedPnl = p.RealizedPnl.Add(proceeds.Sub(p.TotalCost))

		cycle := p.RealizedPnl.Sub(p.cycleRealizedStart)
		if cycle.IsPositive() {
			p.WinCount++
		} else if cycle.IsNegative() {
			p.LossCount++
		}
	}

	p.Quantity = decimal.Zero
	p.AvailableQuantity = decimal.Zero
	p.LockedQuantity = decimal.Zero
	p.TotalCost = decimal.Zero
	p.AvgCost = decimal.Zero
	p.MarketValue = decimal.Zero
	p.UnrealizedPnl = decimal.Zero
	p.TotalPnl = p.RealizedPnl

	now := time.Now().UTC()
	p.ClosedAt = &now
	p.UpdatedAt = now
	return nil
}

// Snapshot captures the position's key metrics for portfolio snapshots.
func (p *Position) Snapshot() Snapshot {
	return Snapshot{
		Symbol:            p.Symbol,
		Exchange:          p.Exchange,
		Quantity:          p.Quantity,
		AvailableQuantity: p.AvailableQuantity,
		LockedQuantity:    p.LockedQuantity,
		AvgCost:           p.AvgCost,
		CurrentPrice:      p.CurrentPrice,
		MarketValue:       p.MarketValue,
		RealizedPnl:       p.RealizedPnl,
		UnrealizedPnl:     p.UnrealizedPnl,
	}
}

// Snapshot is an immutable copy of a position's key metrics at a point in
// time.
type Snapshot struct {
	Symbol            string          `json:"symbol"`
	Exchange          string          `json:"exchange"`
	Quantity          decimal.Decimal `json:"quantity"`
	AvailableQuantity decimal.Decimal `json:"availableQuantity"`
	LockedQuantity    decimal.Decimal `json:"lockedQuantity"`
	AvgCost           decimal.Decimal `json:"avgCost"`
	CurrentPrice      decimal.Decimal `json:"currentPrice"`
	MarketValue       decimal.Decimal `json:"marketValue"`
	RealizedPnl       decimal.Decimal `json:"realizedPnl"`
	UnrealizedPnl     decimal.Decimal `json:"unrealizedPnl"`
}
