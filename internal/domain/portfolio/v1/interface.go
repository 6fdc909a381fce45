package portfoliov1

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=interface.go -destination=mock/interface_mock.go -package=portfoliov1_mock

// Valuator owns all portfolio state. Cash moves and valuations go through
// it; position state stays with the ledger and is folded in on revaluation.
type Valuator interface {
	// EnsurePortfolio registers the portfolio on first touch, funded with
	// the configured initial capital, and returns its risk limits.
	EnsurePortfolio(ctx context.Context, portfolioID string) Limits
	// ApplyFillCash moves cash for an executed fill. Quantity is signed:
	// buys (q > 0) debit cost plus fee, consuming any reservation first;
	// sells credit proceeds net of fee.
	ApplyFillCash(ctx context.Context, portfolioID string, quantity, price, fee decimal.Decimal) error
	// LockCash reserves available cash for a working buy order.
	LockCash(ctx context.Context, portfolioID string, amount decimal.Decimal) error
	// UnlockCash releases up to the given amount of reserved cash. The
	// release is clamped to the current reservation.
	UnlockCash(ctx context.Context, portfolioID string, amount decimal.Decimal) error
	// NotifyActivity schedules a coalesced revaluation of the portfolio.
	NotifyActivity(portfolioID string)
	// DailyRealizedPnl is the portfolio's realized P&L since UTC midnight.
	DailyRealizedPnl(ctx context.Context, portfolioID string) decimal.Decimal
	// View returns the current valuation as a point-in-time snapshot.
	View(ctx context.Context, portfolioID string) (Snapshot, bool)
	// Snapshots revalues every known portfolio against the ledger and
	// returns their current snapshots, positions included.
	Snapshots(ctx context.Context) []Snapshot
}

// SnapshotStore persists portfolio snapshots: the latest per portfolio plus a
// bounded, time-indexed history.
type SnapshotStore interface {
	// Save stores the snapshot as the portfolio's latest and appends it to
	// the history.
	Save(ctx context.Context, snap Snapshot) error
	// Latest returns the portfolio's most recent snapshot, or nil when none
	// was stored yet.
	Latest(ctx context.Context, portfolioID string) (*Snapshot, error)
	// History returns the portfolio's snapshots between from and to in
	// chronological order. Zero bounds are open-ended.
	History(ctx context.Context, portfolioID string, from, to time.Time) ([]Snapshot, error)
}

// Archiver appends snapshots to long-term storage for offline analysis.
type Archiver interface {
	Append(ctx context.Context, snap Snapshot) error
}
