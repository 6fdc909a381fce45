package portfoliov1

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	positionv1 "github.com/quantara/execution/internal/domain/position/v1"
)

// Snapshot is a point-in-time copy of a portfolio valuation together with
// its open positions. Snapshots are persisted to the snapshot store and the
// long-term archive.
type Snapshot struct {
	PortfolioID    string                `json:"portfolioId"`
	Status         Status                `json:"status"`
	InitialCapital decimal.Decimal       `json:"initialCapital"`
	AvailableCash  decimal.Decimal       `json:"availableCash"`
	LockedCash     decimal.Decimal       `json:"lockedCash"`
	PositionsValue decimal.Decimal       `json:"positionsValue"`
	TotalValue     decimal.Decimal       `json:"totalValue"`
	RealizedPnl    decimal.Decimal       `json:"realizedPnl"`
	UnrealizedPnl  decimal.Decimal       `json:"unrealizedPnl"`
	TotalPnl       decimal.Decimal       `json:"totalPnl"`
	TotalReturnPct decimal.Decimal       `json:"totalReturnPct"`
	HighWaterMark  decimal.Decimal       `json:"highWaterMark"`
	MaxDrawdownPct decimal.Decimal       `json:"maxDrawdownPct"`
	Positions      []positionv1.Snapshot `json:"positions"`
	CreatedAt      time.Time             `json:"createdAt"`
}

// Snapshot captures the portfolio state and the given open positions.
func (p *Portfolio) Snapshot(positions []positionv1.Snapshot) Snapshot {
	return Snapshot{
		PortfolioID:    p.ID,
		Status:         p.Status,
		InitialCapital: p.InitialCapital,
		AvailableCash:  p.AvailableCash,
		LockedCash:     p.LockedCash,
		PositionsValue: p.PositionsValue,
		TotalValue:     p.TotalValue,
		RealizedPnl:    p.RealizedPnl,
		UnrealizedPnl:  p.UnrealizedPnl,
		TotalPnl:       p.TotalPnl,
		TotalReturnPct: p.TotalReturnPct,
		HighWaterMark:  p.HighWaterMark,
		MaxDrawdownPct: p.MaxDrawdownPct,
		Positions:      positions,
		CreatedAt:      time.Now().UTC(),
	}
}

// PeriodReturn is the percentage change in total value between two
// consecutive snapshots. It returns zero when the earlier value is not
// positive.
func PeriodReturn(prev, cur Snapshot) decimal.Decimal {
	if !prev.TotalValue.IsPositive() {
		return decimal.Zero
	}
	return cur.TotalValue.Sub(prev.TotalValue).Div(prev.TotalValue).Mul(hundred)
}

// PeriodReturns maps a chronological snapshot series to the per-period
// returns between consecutive entries.
func PeriodReturns(history []Snapshot) []decimal.Decimal {
	if len(history) < 2 {
		return nil
	}
	returns := make([]decimal.Decimal, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		returns = append(returns, PeriodReturn(history[i-1], history[i]))
	}
	return returns
}

// Volatility is the sample standard deviation of period returns. Fewer than
// two returns yield zero.
func Volatility(returns []decimal.Decimal) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	values := make([]float64, len(returns))
	for i, r := range returns {
		values[i] = r.InexactFloat64()
		sum += values[i]
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
