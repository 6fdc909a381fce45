package portfoliov1

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a portfolio.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusClosed    Status = "CLOSED"
)

// Sentinel errors of portfolio cash handling.
var (
	// ErrInsufficientCash means a withdrawal, lock or unlock asked for
	// more than the relevant cash bucket holds.
	ErrInsufficientCash = errors.New("insufficient cash")
	// ErrInvalidAmount means a cash operation was given a non-positive
	// amount.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrPortfolioClosed means the portfolio takes no further activity.
	ErrPortfolioClosed = errors.New("portfolio is closed")
)

var hundred = decimal.NewFromInt(100)

// Limits are the configured risk ceilings the pre-trade gate and the health
// predicate evaluate against.
type Limits struct {
	// MaxPositionSize caps the global per-portfolio position quantity.
	MaxPositionSize decimal.Decimal `json:"maxPositionSize"`
	// MaxDailyLoss caps today's realized loss; breaching it blocks new
	// orders at admission.
	MaxDailyLoss decimal.Decimal `json:"maxDailyLoss"`
	// MaxDrawdownPct is the advisory drawdown ceiling for health checks.
	MaxDrawdownPct decimal.Decimal `json:"maxDrawdownPct"`
}

// Portfolio aggregates cash and the market value of its positions into one
// valuation. It is mutated exclusively by the portfolio valuator.
type Portfolio struct {
	ID     string `json:"id"`
	Status Status `json:"status"`

	InitialCapital decimal.Decimal `json:"initialCapital"`
	AvailableCash  decimal.Decimal `json:"availableCash"`
	LockedCash     decimal.Decimal `json:"lockedCash"`

	PositionsValue decimal.Decimal `json:"positionsValue"`
	TotalValue     decimal.Decimal `json:"totalValue"`

	RealizedPnl    decimal.Decimal `json:"realizedPnl"`
	UnrealizedPnl  decimal.Decimal `json:"unrealizedPnl"`
	TotalPnl       decimal.Decimal `json:"totalPnl"`
	TotalReturnPct decimal.Decimal `json:"totalReturnPct"`

	HighWaterMark  decimal.Decimal `json:"highWaterMark"`
	MaxDrawdownPct decimal.Decimal `json:"maxDrawdownPct"`

	Limits Limits `json:"limits"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`

	// Daily realized P&L tracking: dayAnchor is the UTC date the marks
	// belong to, dayStartRealized the realized P&L when that day began.
	dayAnchor        time.Time
	dayStartRealized decimal.Decimal
}

// NewPortfolio creates an active portfolio funded with the given capital.
func NewPortfolio(id string, initialCapital decimal.Decimal, limits Limits) *Portfolio {
	now := time.Now().UTC()
	return &Portfolio{
		ID:             id,
		Status:         StatusActive,
		InitialCapital: initialCapital,
		AvailableCash:  initialCapital,
		TotalValue:     initialCapital,
		Limits:         limits,
		CreatedAt:      now,
		UpdatedAt:      now,
		dayAnchor:      now.Truncate(24 * time.Hour),
	}
}

// Restore rebuilds a portfolio from a persisted snapshot. Drawdown watermarks
// carry over; daily P&L marks restart at the restore point, so the first day
// after a restart counts losses from there.
func Restore(snap Snapshot, limits Limits) *Portfolio {
	now := time.Now().UTC()
	p := &Portfolio{
		ID:               snap.PortfolioID,
		Status:           snap.Status,
		InitialCapital:   snap.InitialCapital,
		AvailableCash:    snap.AvailableCash,
		LockedCash:       snap.LockedCash,
		PositionsValue:   snap.PositionsValue,
		TotalValue:       snap.TotalValue,
		RealizedPnl:      snap.RealizedPnl,
		UnrealizedPnl:    snap.UnrealizedPnl,
		TotalPnl:         snap.TotalPnl,
		TotalReturnPct:   snap.TotalReturnPct,
		HighWaterMark:    snap.HighWaterMark,
		MaxDrawdownPct:   snap.MaxDrawdownPct,
		Limits:           limits,
		CreatedAt:        snap.CreatedAt,
		UpdatedAt:        now,
		dayAnchor:        now.Truncate(24 * time.Hour),
		dayStartRealized: snap.RealizedPnl,
	}
	if p.Status == StatusClosed {
		closedAt := snap.CreatedAt
		p.ClosedAt = &closedAt
	}
	return p
}

// AddCash deposits into the available bucket and revalues.
func (p *Portfolio) AddCash(amount decimal.Decimal) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	p.AvailableCash = p.AvailableCash.Add(amount)
	p.recompute()
	return nil
}

// RemoveCash withdraws from the available bucket and revalues. Withdrawing
// more than available is rejected.
func (p *Portfolio) RemoveCash(amount decimal.Decimal) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if amount.GreaterThan(p.AvailableCash) {
		return fmt.Errorf("%w: want %s, available %s", ErrInsufficientCash, amount, p.AvailableCash)
	}
	p.AvailableCash = p.AvailableCash.Sub(amount)
	p.recompute()
	return nil
}

// LockCash reserves available cash for a working order.
func (p *Portfolio) LockCash(amount decimal.Decimal) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if amount.GreaterThan(p.AvailableCash) {
		return fmt.Errorf("%w: want %s, available %s", ErrInsufficientCash, amount, p.AvailableCash)
	}
	p.AvailableCash = p.AvailableCash.Sub(amount)
	p.LockedCash = p.LockedCash.Add(amount)
	p.recompute()
	return nil
}

// UnlockCash releases a reservation back to the available bucket.
func (p *Portfolio) UnlockCash(amount decimal.Decimal) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if amount.GreaterThan(p.LockedCash) {
		return fmt.Errorf("%w: want %s, locked %s", ErrInsufficientCash, amount, p.LockedCash)
	}
	p.LockedCash = p.LockedCash.Sub(amount)
	p.AvailableCash = p.AvailableCash.Add(amount)
	p.recompute()
	return nil
}

// DebitFill pays for a buy fill: cost plus fee, consuming any cash
// reservation first. Fills are authoritative, the trade already happened on
// the venue, so the debit is always applied; available cash may overdraw
// when an unreserved fill exceeds the balance.
func (p *Portfolio) DebitFill(cost, fee decimal.Decimal) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	total := cost.Add(fee)
	fromLocked := decimal.Min(p.LockedCash, total)
	p.LockedCash = p.LockedCash.Sub(fromLocked)
	p.AvailableCash = p.AvailableCash.Sub(total.Sub(fromLocked))
	p.recompute()
	return nil
}

// CreditFill banks a sell fill's proceeds net of fee.
func (p *Portfolio) CreditFill(proceeds, fee decimal.Decimal) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	p.AvailableCash = p.AvailableCash.Add(proceeds.Sub(fee))
	p.recompute()
	return nil
}

// Revalue folds the ledger's already-consistent position aggregates into the
// portfolio-level valuation.
func (p *Portfolio) Revalue(positionsValue, realizedPnl, unrealizedPnl decimal.Decimal) {
	p.PositionsValue = positionsValue
	p.RealizedPnl = realizedPnl
	p.UnrealizedPnl = unrealizedPnl
	p.recompute()
}

// recompute derives totals, returns and drawdown watermarks from the current
// cash buckets and position aggregates.
func (p *Portfolio) recompute() {
	p.rollDay(time.Now().UTC())

	p.TotalValue = p.AvailableCash.Add(p.LockedCash).Add(p.PositionsValue)
	p.TotalPnl = p.RealizedPnl.Add(p.UnrealizedPnl)
	if p.InitialCapital.IsPositive() {
		p.TotalReturnPct = p.TotalPnl.Div(p.InitialCapital).Mul(hundred)
	}

	if p.TotalPnl.GreaterThan(p.HighWaterMark) {
		p.HighWaterMark = p.TotalPnl
	}
	if p.HighWaterMark.IsPositive() {
		drawdown := p.HighWaterMark.Sub(p.TotalPnl).Div(p.HighWaterMark).Mul(hundred)
		if drawdown.GreaterThan(p.MaxDrawdownPct) {
			p.MaxDrawdownPct = drawdown
		}
	}
	p.UpdatedAt = time.Now().UTC()
}

// rollDay resets the daily realized mark when the UTC date changes.
func (p *Portfolio) rollDay(now time.Time) {
	day := now.Truncate(24 * time.Hour)
	if day.After(p.dayAnchor) {
		p.dayAnchor = day
		p.dayStartRealized = p.RealizedPnl
	}
}

// DailyRealizedPnl returns today's realized P&L (realized since UTC
// midnight). Negative values are losses counted against the daily limit.
func (p *Portfolio) DailyRealizedPnl() decimal.Decimal {
	p.rollDay(time.Now().UTC())
	return p.RealizedPnl.Sub(p.dayStartRealized)
}

// IsHealthy is the advisory health predicate: drawdown within the configured
// limit, today's loss within the daily loss limit and status ACTIVE. It is
// used for alerting, not as a trading gate.
func (p *Portfolio) IsHealthy() bool {
	if p.Status != StatusActive {
		return false
	}
	if p.Limits.MaxDrawdownPct.IsPositive() && p.MaxDrawdownPct.GreaterThan(p.Limits.MaxDrawdownPct) {
		return false
	}
	if p.Limits.MaxDailyLoss.IsPositive() && p.DailyRealizedPnl().Neg().GreaterThan(p.Limits.MaxDailyLoss) {
		return false
	}
	return true
}

// Close marks the portfolio closed. Closed portfolios take no cash activity.
func (p *Portfolio) Close() error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	now := time.Now().UTC()
	p.Status = StatusClosed
	p.ClosedAt = &now
	p.UpdatedAt = now
	return nil
}

func (p *Portfolio) checkOpen() error {
	if p.Status == StatusClosed {
		return fmt.Errorf("%w: %s", ErrPortfolioClosed, p.ID)
	}
	return nil
}
