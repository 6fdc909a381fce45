package positionv1

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewPositionIsFlat(t *testing.T) {
	p := NewPosition("pf-1", "BTCUSDT", "BINANCE")

	assert.Equal(t, SideFlat, p.Side())
	assert.True(t, p.IsFlat())
	assert.False(t, p.IsClosed())
}

func TestApplyTradeRoundTrip(t *testing.T) {
	// buy 2 @ 50000 fee 10, sell 2 @ 51000 fee 10 -> realized 1980, flat
	p := NewPosition("pf-1", "BTCUSDT", "BINANCE")

	require.NoError(t, p.ApplyTrade(d("2"), d("50000"), d("10")))
	assert.Equal(t, SideLong, p.Side())
	assert.True(t, p.Quantity.Equal(d("2")))
	assert.True(t, p.AvgCost.Equal(d("50000")))
	assert.True(t, p.TotalCost.Equal(d("100000")))

	require.NoError(t, p.ApplyTrade(d("-2"), d("51000"), d("10")))
	assert.Equal(t, SideFlat, p.Side())
	assert.True(t, p.RealizedPnl.Equal(d("1980")), "realized was %s", p.RealizedPnl)
	assert.True(t, p.TotalCost.IsZero())
	assert.True(t, p.AvgCost.Equal(d("50000")), "avg cost at flat was %s", p.AvgCost)
	assert.True(t, p.UnrealizedPnl.IsZero())
	assert.True(t, p.MarketValue.IsZero())
	assert.Equal(t, 2, p.TradeCount)
	assert.Equal(t, 1, p.WinCount)
	assert.Equal(t, 0, p.LossCount)
}

func TestReopenFromFlatResetsCostBasis(t *testing.T) {
	p := NewPosition("pf-1", "BTCUSDT", "BINANCE")

	require.NoError(t, p.ApplyTrade(d("2"), d("50000"), decimal.Zero))
	require.NoError(t, p.ApplyTrade(d("-2"), d("51000"), decimal.Zero))
	assert.True(t, p.AvgCost.Equal(d("50000")), "avg cost at flat was %s", p.AvgCost)

	// The stale basis never bleeds into the next cycle.
	require.NoError(t, p.ApplyTrade(d("1"), d("60000"), decimal.Zero))
	assert.True(t, p.AvgCost.Equal(d("60000")), "avg cost after reopen was %s", p.AvgCost)
	assert.True(t, p.TotalCost.Equal(d("60000")))
}

func TestApplyTradeLosingCycle(t *testing.T) {
	p := NewPosition("pf-1", "ETHUSDT", "BINANCE")

	require.NoError(t, p.ApplyTrade(d("5"), d("3000"), d("1")))
	require.NoError(t, p.ApplyTrade(d("-5"), d("2900"), d("1")))

	// (5*2900 - 1) - (5*3000 + 1) = -502
	assert.True(t, p.RealizedPnl.Equal(d("-502")), "realized was %s", p.RealizedPnl)
	assert.Equal(t, 1, p.LossCount)
	assert.Equal(t, 0, p.WinCount)
}

func TestApplyTradeAveragesCost(t *testing.T) {
	p := NewPosition("pf-1", "BTCUSDT", "BINANCE")

	require.NoError(t, p.ApplyTrade(d("1"), d("100"), decimal.Zero))
	require.NoError(t, p.ApplyTrade(d("3"), d("120"), decimal.Zero))

	// (1*100 + 3*120) / 4 = 115
	assert.True(t, p.Quantity.Equal(d("4")))
	assert.True(t, p.AvgCost.Equal(d("115")), "avg cost was %s", p.AvgCost)
}

func TestApplyTradeShortSide(t *testing.T) {
	p := NewPosition("pf-1", "BTCUSDT", "BINANCE")

	require.NoError(t, p.ApplyTrade(d("-2"), d("50000"), decimal.Zero))
	assert.Equal(t, SideShort, p.Side())
	assert.True(t, p.TotalCost.Equal(d("-100000")))
	assert.True(t, p.AvgCost.Equal(d("50000")))

	p.Mark(d("49000"))
	// short gains when price falls: -2*49000 - (-100000) = 2000
	assert.True(t, p.UnrealizedPnl.Equal(d("2000")), "unrealized was %s", p.UnrealizedPnl)

	require.NoError(t, p.ApplyTrade(d("2"), d("49000"), decimal.Zero))
	assert.Equal(t, SideFlat, p.Side())
	assert.True(t, p.RealizedPnl.Equal(d("2000")))
}

func TestMarkRecomputesValuation(t *testing.T) {
	p := NewPosition("pf-1", "BTCUSDT", "BINANCE")
	require.NoError(t, p.ApplyTrade(d("2"), d("50000"), decimal.Zero))

	p.Mark(d("51000"))

	assert.True(t, p.MarketValue.Equal(d("102000")))
	assert.True(t, p.UnrealizedPnl.Equal(d("2000")))
	assert.True(t, p.TotalPnl.Equal(d("2000")))
	assert.True(t, p.HighWaterMark.Equal(d("2000")))
}

func TestDrawdownNeverDecreases(t *testing.T) {
	p := NewPosition("pf-1", "BTCUSDT", "BINANCE")
	require.NoError(t, p.ApplyTrade(d("1"), d("100"), decimal.Zero))

	p.Mark(d("200")) // totalPnl 100, hwm 100
	assert.True(t, p.MaxDrawdownPct.IsZero())

	p.Mark(d("150")) // totalPnl 50, drawdown (100-50)/100*100 = 50%
	assert.True(t, p.MaxDrawdownPct.Equal(d("50")), "drawdown was %s", p.MaxDrawdownPct)

	p.Mark(d("190")) // recovers, max drawdown stays
	assert.True(t, p.MaxDrawdownPct.Equal(d("50")))

	p.Mark(d("120")) // deeper: (100-20)/100*100 = 80%
	assert.True(t, p.MaxDrawdownPct.Equal(d("80")))
}

func TestLockUnlockInvariant(t *testing.T) {
	p := NewPosition("pf-1", "BTCUSDT", "BINANCE")
	require.NoError(t, p.ApplyTrade(d("10"), d("100"), decimal.Zero))

	require.NoError(t, p.Lock(d("4")))
	assert.True(t, p.AvailableQuantity.Equal(d("6")))
	assert.True(t, p.LockedQuantity.Equal(d("4")))
	assert.True(t, p.Quantity.Equal(p.AvailableQuantity.Add(p.LockedQuantity)))

	// locking more than available is rejected, state unchanged
	err := p.Lock(d("7"))
	require.ErrorIs(t, err, ErrInsufficientAvailable)
	assert.True(t, p.AvailableQuantity.Equal(d("6")))

	require.NoError(t, p.Unlock(d("3")))
	assert.True(t, p.AvailableQuantity.Equal(d("9")))
	assert.True(t, p.LockedQuantity.Equal(d("1")))
	assert.True(t, p.Quantity.Equal(p.AvailableQuantity.Add(p.LockedQuantity)))

	err = p.Unlock(d("2"))
	require.ErrorIs(t, err, ErrInsufficientLocked)
}

func TestSellsConsumeLockedFirst(t *testing.T) {
	p := NewPosition("pf-1", "BTCUSDT", "BINANCE")
	require.NoError(t, p.ApplyTrade(d("10"), d("100"), decimal.Zero))
	require.NoError(t, p.Lock(d("4")))

	require.NoError(t, p.ApplyTrade(d("-6"), d("110"), decimal.Zero))

	assert.True(t, p.Quantity.Equal(d("4")))
	assert.True(t, p.LockedQuantity.IsZero())
	assert.True(t, p.AvailableQuantity.Equal(d("4")))
	assert.True(t, p.Quantity.Equal(p.AvailableQuantity.Add(p.LockedQuantity)))
}

func TestClosePosition(t *testing.T) {
	p := NewPosition("pf-1", "BTCUSDT", "BINANCE")
	require.NoError(t, p.ApplyTrade(d("2"), d("50000"), d("10")))

	require.NoError(t, p.Close(d("51000")))

	assert.True(t, p.IsClosed())
	assert.True(t, p.Quantity.IsZero())
	assert.True(t, p.MarketValue.IsZero())
	assert.True(t, p.UnrealizedPnl.IsZero())
	// 2*51000 - 100000 - 10 fee = 1990
	assert.True(t, p.RealizedPnl.Equal(d("1990")), "realized was %s", p.RealizedPnl)
	require.NotNil(t, p.ClosedAt)

	// closed positions take no further activity
	require.ErrorIs(t, p.ApplyTrade(d("1"), d("100"), decimal.Zero), ErrClosed)
	require.ErrorIs(t, p.Close(d("100")), ErrClosed)
}

func TestPartialCloseKeepsEconomics(t *testing.T) {
	p := NewPosition("pf-1", "BTCUSDT", "BINANCE")
	require.NoError(t, p.ApplyTrade(d("2"), d("100"), decimal.Zero))

	// selling half banks the proceeds into the remaining cost basis
	require.NoError(t, p.ApplyTrade(d("-1"), d("110"), decimal.Zero))
	assert.True(t, p.Quantity.Equal(d("1")))
	assert.True(t, p.TotalCost.Equal(d("90")))

	p.Mark(d("110"))
	// 1*110 - 90 = 20: the full cycle gain stays visible as unrealized
	assert.True(t, p.UnrealizedPnl.Equal(d("20")), "unrealized was %s", p.UnrealizedPnl)
}

func TestSnapshotCopiesMetrics(t *testing.T) {
	p := NewPosition("pf-1", "BTCUSDT", "BINANCE")
	require.NoError(t, p.ApplyTrade(d("2"), d("100"), decimal.Zero))
	require.NoError(t, p.Lock(d("1")))
	p.Mark(d("105"))

	snap := p.Snapshot()

	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.Equal(t, "BINANCE", snap.Exchange)
	assert.True(t, snap.Quantity.Equal(d("2")))
	assert.True(t, snap.AvailableQuantity.Equal(d("1")))
	assert.True(t, snap.LockedQuantity.Equal(d("1")))
	assert.True(t, snap.MarketValue.Equal(d("210")))
	assert.True(t, snap.UnrealizedPnl.Equal(d("10")))
}
