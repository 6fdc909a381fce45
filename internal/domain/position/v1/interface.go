package positionv1

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=interface.go -destination=mock/interface_mock.go -package=positionv1_mock

// Key identifies one position in the ledger.
type Key struct {
	PortfolioID string `json:"portfolioId"`
	Symbol      string `json:"symbol"`
	Exchange    string `json:"exchange"`
}

// String renders the key for keyed-mutex addressing and logging.
func (k Key) String() string {
	return k.PortfolioID + "|" + k.Symbol + "|" + k.Exchange
}

// Trade is one executed fill routed to the ledger. Quantity is signed:
// buys are positive, sells negative.
type Trade struct {
	Key      Key             `json:"key"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Fee      decimal.Decimal `json:"fee"`
	TradedAt time.Time       `json:"tradedAt"`
}

// TradeResult reports the position state after a trade was applied.
type TradeResult struct {
	Position Snapshot `json:"position"`
	// RealizedDelta is the realized P&L change this trade produced,
	// including its fee.
	RealizedDelta decimal.Decimal `json:"realizedDelta"`
	// Flattened is true when the trade brought the quantity to exactly
	// zero and closed a trade cycle.
	Flattened bool `json:"flattened"`
}

// Aggregates are the per-portfolio position sums the valuator folds into the
// portfolio valuation. Closed positions keep contributing realized P&L.
type Aggregates struct {
	PositionsValue decimal.Decimal `json:"positionsValue"`
	RealizedPnl    decimal.Decimal `json:"realizedPnl"`
	UnrealizedPnl  decimal.Decimal `json:"unrealizedPnl"`
}

// Ledger is the in-memory position book. Writes to the same key are
// serialized; all accessors return copies.
type Ledger interface {
	// ApplyTrade applies a signed-quantity trade to the keyed position,
	// creating it on first touch.
	ApplyTrade(ctx context.Context, trade Trade) (*TradeResult, error)
	// MarkPrice refreshes the valuation of every position on the symbol
	// and returns the portfolio ids whose valuation changed. An empty
	// exchange marks the symbol across all venues.
	MarkPrice(ctx context.Context, exchange, symbol string, price decimal.Decimal) []string
	// Lock reserves available quantity for a working sell order.
	Lock(ctx context.Context, key Key, quantity decimal.Decimal) error
	// Unlock releases reserved quantity back to the available bucket.
	Unlock(ctx context.Context, key Key, quantity decimal.Decimal) error
	// ClosePosition flattens the keyed position at the given price and
	// marks it closed.
	ClosePosition(ctx context.Context, key Key, price decimal.Decimal) (*TradeResult, error)
	// Restore seeds the book with positions recovered from a portfolio
	// snapshot. realizedCarry is the realized P&L of positions absent from
	// the restored set (closed before the snapshot was taken); it keeps
	// contributing to the portfolio's aggregates.
	Restore(ctx context.Context, portfolioID string, positions []Snapshot, realizedCarry decimal.Decimal)
	// Get returns a copy of the keyed position.
	Get(ctx context.Context, key Key) (Snapshot, bool)
	// PortfolioPositions lists the portfolio's open (non-closed)
	// positions.
	PortfolioPositions(ctx context.Context, portfolioID string) []Snapshot
	// PortfolioAggregates sums the portfolio's position values and P&L.
	PortfolioAggregates(ctx context.Context, portfolioID string) Aggregates
	// Exposure is the portfolio's absolute open quantity on a symbol
	// across venues, working orders included via locked quantity.
	Exposure(ctx context.Context, portfolioID, symbol string) decimal.Decimal
	// LastPrice returns the most recent marked price for a symbol.
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, bool)
}
