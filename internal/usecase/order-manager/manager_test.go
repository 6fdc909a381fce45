package ordermanager

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	eventv1 "github.com/quantara/execution/internal/domain/event/v1"
	eventv1_mock "github.com/quantara/execution/internal/domain/event/v1/mock"
	exchangev1 "github.com/quantara/execution/internal/domain/exchange/v1"
	exchangev1_mock "github.com/quantara/execution/internal/domain/exchange/v1/mock"
	orderv1 "github.com/quantara/execution/internal/domain/order/v1"
	orderv1_mock "github.com/quantara/execution/internal/domain/order/v1/mock"
	portfoliov1 "github.com/quantara/execution/internal/domain/portfolio/v1"
	portfoliov1_mock "github.com/quantara/execution/internal/domain/portfolio/v1/mock"
	positionv1 "github.com/quantara/execution/internal/domain/position/v1"
	positionv1_mock "github.com/quantara/execution/internal/domain/position/v1/mock"
	"github.com/quantara/execution/internal/usecase/validation"
	"github.com/quantara/execution/pkg/config"
	logger_mock "github.com/quantara/execution/pkg/logger/mock"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type managerMocks struct {
	repo      *orderv1_mock.MockRepository
	gateway   *exchangev1_mock.MockGateway
	ledger    *positionv1_mock.MockLedger
	valuator  *portfoliov1_mock.MockValuator
	publisher *eventv1_mock.MockPublisher
}

func newTestManager(t *testing.T) (*Manager, managerMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)

	log := logger_mock.NewMockInterface(ctrl)
	log.EXPECT().DebugContext(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().InfoContext(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().WarnContext(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().ErrorContext(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	mocks := managerMocks{
		repo:      orderv1_mock.NewMockRepository(ctrl),
		gateway:   exchangev1_mock.NewMockGateway(ctrl),
		ledger:    positionv1_mock.NewMockLedger(ctrl),
		valuator:  portfoliov1_mock.NewMockValuator(ctrl),
		publisher: eventv1_mock.NewMockPublisher(ctrl),
	}

	validator := validation.NewValidator(config.RiskConfig{
		MaxOrderQuantity:       d("100"),
		MaxPositionSize:        d("1000"),
		SymbolExposureFraction: d("0.25"),
		MaxDailyLoss:           d("10000"),
		MinRiskReward:          d("1.5"),
		DefaultStopDistance:    d("0.02"),
	}, mocks.ledger, mocks.valuator, log)

	cfg := config.GatewayConfig{
		SubmitAttempts:   3,
		SubmitRetryDelay: time.Millisecond,
		ReconcileAfter:   time.Minute,
	}
	portfolio := config.PortfolioConfig{
		DefaultID:             "primary",
		DefaultInitialCapital: d("100000"),
	}

	m := NewManager(cfg, portfolio, validator,
		mocks.repo, mocks.gateway, mocks.ledger, mocks.valuator, mocks.publisher, log)
	return m, mocks
}

func marketRequest(side orderv1.Side, qty string) *eventv1.ExecutionOrderRequest {
	return &eventv1.ExecutionOrderRequest{
		StrategyExecutionID: "exec-1",
		PortfolioID:         "pf-1",
		Symbol:              "BTCUSDT",
		Exchange:            "BINANCE",
		Side:                side,
		Type:                orderv1.TypeMarket,
		Quantity:            d(qty),
		Timestamp:           time.Now().UTC(),
	}
}

// expectRiskPass makes the admission gates pass for pf-1 on BTCUSDT with a
// last marked price of 100.
func expectRiskPass(mocks managerMocks) {
	mocks.valuator.EXPECT().EnsurePortfolio(gomock.Any(), "pf-1").Return(portfoliov1.Limits{}).AnyTimes()
	mocks.ledger.EXPECT().Exposure(gomock.Any(), "pf-1", "BTCUSDT").Return(decimal.Zero).AnyTimes()
	mocks.ledger.EXPECT().LastPrice(gomock.Any(), "BTCUSDT").Return(d("100"), true).AnyTimes()
	mocks.valuator.EXPECT().DailyRealizedPnl(gomock.Any(), "pf-1").Return(decimal.Zero).AnyTimes()
}

// captureStatuses records every published status event in order.
func captureStatuses(mocks managerMocks) *[]orderv1.Status {
	statuses := &[]orderv1.Status{}
	mocks.publisher.EXPECT().PublishStatus(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event *eventv1.OrderStatusEvent) error {
			*statuses = append(*statuses, event.Status)
			return nil
		}).AnyTimes()
	return statuses
}

// admitAcknowledgedOrder runs one market buy of 2 BTCUSDT through admission
// and submission, leaving it ACKNOWLEDGED on the venue as X-1 with 200 cash
// reserved.
func admitAcknowledgedOrder(t *testing.T, m *Manager, mocks managerMocks) *orderv1.Order {
	t.Helper()

	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-1").Return(nil, nil)
	mocks.valuator.EXPECT().LockCash(gomock.Any(), "pf-1", gomock.Any()).Return(nil)
	var saved *orderv1.Order
	mocks.repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order *orderv1.Order) error {
			saved = order
			return nil
		})
	mocks.repo.EXPECT().RecordStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mocks.gateway.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return(&exchangev1.SubmitResult{ExchangeOrderID: "X-1", Status: orderv1.StatusAcknowledged}, nil)

	require.NoError(t, m.HandleExecutionOrder(context.Background(), marketRequest(orderv1.SideBuy, "2")))
	require.NotNil(t, saved)
	require.Equal(t, orderv1.StatusAcknowledged, saved.Status)
	return saved
}

func TestHandleExecutionOrderAdmitsAndSubmits(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	statuses := captureStatuses(mocks)

	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-1").Return(nil, nil)

	var locked decimal.Decimal
	mocks.valuator.EXPECT().LockCash(gomock.Any(), "pf-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, amount decimal.Decimal) error {
			locked = amount
			return nil
		})

	var saved *orderv1.Order
	mocks.repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order *orderv1.Order) error {
			saved = order
			return nil
		})
	mocks.repo.EXPECT().RecordStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	mocks.gateway.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order *orderv1.Order) (*exchangev1.SubmitResult, error) {
			assert.Equal(t, "exec-1", order.ClientOrderID)
			assert.Equal(t, orderv1.StatusPending, order.Status)
			return &exchangev1.SubmitResult{ExchangeOrderID: "X-1", Status: orderv1.StatusAcknowledged}, nil
		})

	require.NoError(t, m.HandleExecutionOrder(ctx, marketRequest(orderv1.SideBuy, "2")))

	require.NotNil(t, saved)
	assert.Equal(t, "exec-1", saved.ClientOrderID)
	assert.Equal(t, "pf-1", saved.PortfolioID)
	assert.Equal(t, "X-1", saved.ExchangeOrderID)
	assert.Equal(t, orderv1.StatusAcknowledged, saved.Status)
	assert.True(t, locked.Equal(d("200")), "locked cash was %s", locked)
	assert.Equal(t, []orderv1.Status{
		orderv1.StatusPending,
		orderv1.StatusSubmitted,
		orderv1.StatusAcknowledged,
	}, *statuses)
	assert.Equal(t, 1, m.LiveOrders())
}

func TestHandleExecutionOrderSkipsLiveDuplicate(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	captureStatuses(mocks)
	admitAcknowledgedOrder(t, m, mocks)

	// Redelivery of the same strategy execution id touches nothing.
	require.NoError(t, m.HandleExecutionOrder(ctx, marketRequest(orderv1.SideBuy, "2")))
	assert.Equal(t, 1, m.LiveOrders())
}

func TestHandleExecutionOrderSkipsPersistedDuplicate(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()

	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-1").
		Return(&orderv1.Order{ID: "o-1", ClientOrderID: "exec-1", Status: orderv1.StatusFilled}, nil)

	require.NoError(t, m.HandleExecutionOrder(ctx, marketRequest(orderv1.SideBuy, "2")))
	assert.Equal(t, 0, m.LiveOrders())
}

func TestHandleExecutionOrderRejectsBadRequest(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()

	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-1").Return(nil, nil)

	req := marketRequest(orderv1.SideBuy, "2")
	req.Quantity = decimal.Zero

	// Rejected requests create no order and publish nothing.
	require.NoError(t, m.HandleExecutionOrder(ctx, req))
	assert.Equal(t, 0, m.LiveOrders())
}

func TestHandleExecutionOrderRejectsWhenCashInsufficient(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)

	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-1").Return(nil, nil)
	mocks.valuator.EXPECT().LockCash(gomock.Any(), "pf-1", gomock.Any()).
		Return(fmt.Errorf("%w: want 200, available 50", portfoliov1.ErrInsufficientCash))

	require.NoError(t, m.HandleExecutionOrder(ctx, marketRequest(orderv1.SideBuy, "2")))
	assert.Equal(t, 0, m.LiveOrders())
}

func TestHandleExecutionOrderRetriesRepositoryFailures(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)

	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-1").Return(nil, nil)
	mocks.valuator.EXPECT().LockCash(gomock.Any(), "pf-1", gomock.Any()).Return(nil)
	mocks.repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	// The reservation is returned and the error propagates so the message
	// is redelivered.
	var unlocked decimal.Decimal
	mocks.valuator.EXPECT().UnlockCash(gomock.Any(), "pf-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, amount decimal.Decimal) error {
			unlocked = amount
			return nil
		})

	require.Error(t, m.HandleExecutionOrder(ctx, marketRequest(orderv1.SideBuy, "2")))
	assert.True(t, unlocked.Equal(d("200")), "unlocked cash was %s", unlocked)
	assert.Equal(t, 0, m.LiveOrders())
}

func TestSellReservationDegradesToAvailableQuantity(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	statuses := captureStatuses(mocks)

	key := positionv1.Key{PortfolioID: "pf-1", Symbol: "BTCUSDT", Exchange: "BINANCE"}
	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-1").Return(nil, nil)
	mocks.ledger.EXPECT().Lock(gomock.Any(), key, gomock.Any()).
		Return(errors.New("insufficient available quantity"))
	mocks.ledger.EXPECT().Get(gomock.Any(), key).
		Return(positionv1.Snapshot{AvailableQuantity: d("4")}, true)
	var lockedQty decimal.Decimal
	mocks.ledger.EXPECT().Lock(gomock.Any(), key, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ positionv1.Key, qty decimal.Decimal) error {
			lockedQty = qty
			return nil
		})

	var saved *orderv1.Order
	mocks.repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order *orderv1.Order) error {
			saved = order
			return nil
		})
	mocks.repo.EXPECT().RecordStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mocks.gateway.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return(nil, exchangev1.NewRejection("BINANCE", "-2010", "account has insufficient balance", nil))

	// The venue rejection ends the order, so the partial lock comes back.
	var released decimal.Decimal
	mocks.ledger.EXPECT().Unlock(gomock.Any(), key, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ positionv1.Key, qty decimal.Decimal) error {
			released = qty
			return nil
		})
	mocks.valuator.EXPECT().NotifyActivity("pf-1")

	require.NoError(t, m.HandleExecutionOrder(ctx, marketRequest(orderv1.SideSell, "10")))

	require.NotNil(t, saved)
	assert.Equal(t, orderv1.StatusRejected, saved.Status)
	assert.Equal(t, "exchange_rejection", saved.ErrorCode)
	assert.True(t, lockedQty.Equal(d("4")), "locked quantity was %s", lockedQty)
	assert.True(t, released.Equal(d("4")), "released quantity was %s", released)
	assert.Equal(t, []orderv1.Status{orderv1.StatusPending, orderv1.StatusRejected}, *statuses)
	assert.Equal(t, 0, m.LiveOrders())
}

func TestSubmitRetriesWhenRateLimited(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	captureStatuses(mocks)

	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-1").Return(nil, nil)
	mocks.valuator.EXPECT().LockCash(gomock.Any(), "pf-1", gomock.Any()).Return(nil)
	var saved *orderv1.Order
	mocks.repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order *orderv1.Order) error {
			saved = order
			return nil
		})
	mocks.repo.EXPECT().RecordStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	rateLimited := fmt.Errorf("%w: BINANCE", exchangev1.ErrRateLimitExceeded)
	mocks.gateway.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil, rateLimited).Times(2)
	mocks.gateway.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return(&exchangev1.SubmitResult{ExchangeOrderID: "X-1", Status: orderv1.StatusAcknowledged}, nil)

	require.NoError(t, m.HandleExecutionOrder(ctx, marketRequest(orderv1.SideBuy, "1")))

	require.NotNil(t, saved)
	assert.Equal(t, 2, saved.RetryCount)
	assert.Equal(t, orderv1.StatusAcknowledged, saved.Status)
	assert.Equal(t, 1, m.LiveOrders())
}

func TestSubmitEndsErrorWhenRateLimitPersists(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	statuses := captureStatuses(mocks)

	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-1").Return(nil, nil)
	mocks.valuator.EXPECT().LockCash(gomock.Any(), "pf-1", gomock.Any()).Return(nil)
	var saved *orderv1.Order
	mocks.repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order *orderv1.Order) error {
			saved = order
			return nil
		})
	mocks.repo.EXPECT().RecordStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	rateLimited := fmt.Errorf("%w: BINANCE", exchangev1.ErrRateLimitExceeded)
	mocks.gateway.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil, rateLimited).Times(3)

	var unlocked decimal.Decimal
	mocks.valuator.EXPECT().UnlockCash(gomock.Any(), "pf-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, amount decimal.Decimal) error {
			unlocked = amount
			return nil
		})
	mocks.valuator.EXPECT().NotifyActivity("pf-1")

	require.NoError(t, m.HandleExecutionOrder(ctx, marketRequest(orderv1.SideBuy, "2")))

	require.NotNil(t, saved)
	assert.Equal(t, orderv1.StatusError, saved.Status)
	assert.Equal(t, "rate_limit_exceeded", saved.ErrorCode)
	assert.Equal(t, 2, saved.RetryCount)
	assert.True(t, unlocked.Equal(d("200")), "unlocked cash was %s", unlocked)
	assert.Equal(t, []orderv1.Status{orderv1.StatusPending, orderv1.StatusError}, *statuses)
	assert.Equal(t, 0, m.LiveOrders())
}

func TestSubmissionFillsApplyInline(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	statuses := captureStatuses(mocks)

	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-1").Return(nil, nil)
	mocks.valuator.EXPECT().LockCash(gomock.Any(), "pf-1", gomock.Any()).Return(nil)
	var saved *orderv1.Order
	mocks.repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order *orderv1.Order) error {
			saved = order
			return nil
		})
	mocks.repo.EXPECT().RecordStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mocks.repo.EXPECT().RecordFill(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	fill := orderv1.Fill{ID: "t-1", Quantity: d("2"), Price: d("100"), Fee: d("0.2"), Timestamp: time.Now().UTC()}
	mocks.gateway.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(&exchangev1.SubmitResult{
		ExchangeOrderID: "X-1",
		Status:          orderv1.StatusFilled,
		Fills:           []orderv1.Fill{fill},
	}, nil)

	var trade positionv1.Trade
	mocks.ledger.EXPECT().ApplyTrade(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tr positionv1.Trade) (*positionv1.TradeResult, error) {
			trade = tr
			return &positionv1.TradeResult{}, nil
		})
	var cashQty decimal.Decimal
	mocks.valuator.EXPECT().ApplyFillCash(gomock.Any(), "pf-1", gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, qty, price, fee decimal.Decimal) error {
			cashQty = qty
			return nil
		})
	mocks.valuator.EXPECT().NotifyActivity("pf-1").Times(2)
	mocks.publisher.EXPECT().PublishFill(gomock.Any(), gomock.Any()).Return(nil)
	mocks.publisher.EXPECT().PublishCompletion(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event *eventv1.OrderCompletionEvent) error {
			assert.True(t, event.NetProceeds.Equal(d("200.2")), "net proceeds was %s", event.NetProceeds)
			return nil
		})

	require.NoError(t, m.HandleExecutionOrder(ctx, marketRequest(orderv1.SideBuy, "2")))

	require.NotNil(t, saved)
	assert.Equal(t, orderv1.StatusFilled, saved.Status)
	assert.Equal(t, positionv1.Key{PortfolioID: "pf-1", Symbol: "BTCUSDT", Exchange: "BINANCE"}, trade.Key)
	assert.True(t, trade.Quantity.Equal(d("2")), "trade quantity was %s", trade.Quantity)
	assert.True(t, cashQty.Equal(d("2")), "cash quantity was %s", cashQty)
	assert.Equal(t, []orderv1.Status{
		orderv1.StatusPending,
		orderv1.StatusSubmitted,
		orderv1.StatusFilled,
	}, *statuses)
	assert.Equal(t, 0, m.LiveOrders())
}

func TestSubmitResolvesDuplicateAlreadyFilled(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	statuses := captureStatuses(mocks)

	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-1").Return(nil, nil)
	mocks.valuator.EXPECT().LockCash(gomock.Any(), "pf-1", gomock.Any()).Return(nil)
	mocks.repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	mocks.repo.EXPECT().RecordStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	// The venue knew the client order id already; the gateway resolved the
	// submission to the existing order, which has fully filled since.
	mocks.gateway.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return(&exchangev1.SubmitResult{ExchangeOrderID: "X-1", Status: orderv1.StatusFilled, Resolved: true}, nil)
	mocks.gateway.EXPECT().QueryStatus(gomock.Any(), gomock.Any()).Return(&exchangev1.OrderSnapshot{
		ExchangeOrderID:  "X-1",
		ClientOrderID:    "exec-1",
		Status:           orderv1.StatusFilled,
		FilledQuantity:   d("1"),
		AverageFillPrice: d("100"),
		AsOf:             time.Now().UTC(),
	}, nil)

	var fill orderv1.Fill
	mocks.repo.EXPECT().RecordFill(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ *orderv1.Order, f orderv1.Fill) error {
			fill = f
			return nil
		})
	mocks.ledger.EXPECT().ApplyTrade(gomock.Any(), gomock.Any()).Return(&positionv1.TradeResult{}, nil)
	mocks.valuator.EXPECT().ApplyFillCash(gomock.Any(), "pf-1", gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	mocks.valuator.EXPECT().NotifyActivity("pf-1").Times(2)
	mocks.publisher.EXPECT().PublishFill(gomock.Any(), gomock.Any()).Return(nil)
	mocks.publisher.EXPECT().PublishCompletion(gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, m.HandleExecutionOrder(ctx, marketRequest(orderv1.SideBuy, "1")))

	assert.True(t, fill.Quantity.Equal(d("1")), "fill quantity was %s", fill.Quantity)
	assert.True(t, fill.Price.Equal(d("100")), "fill price was %s", fill.Price)
	assert.Equal(t, []orderv1.Status{
		orderv1.StatusPending,
		orderv1.StatusSubmitted,
		orderv1.StatusFilled,
	}, *statuses)
	assert.Equal(t, 0, m.LiveOrders())
}

func TestHandleOrderUpdateAppliesFillsOnce(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	statuses := captureStatuses(mocks)
	admitAcknowledgedOrder(t, m, mocks)

	mocks.repo.EXPECT().RecordFill(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	mocks.ledger.EXPECT().ApplyTrade(gomock.Any(), gomock.Any()).Return(&positionv1.TradeResult{}, nil).Times(2)
	mocks.valuator.EXPECT().ApplyFillCash(gomock.Any(), "pf-1", gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	mocks.valuator.EXPECT().NotifyActivity("pf-1").AnyTimes()
	mocks.publisher.EXPECT().PublishFill(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	mocks.publisher.EXPECT().PublishCompletion(gomock.Any(), gomock.Any()).Return(nil)

	partial := exchangev1.OrderUpdate{
		Exchange:      "BINANCE",
		ClientOrderID: "exec-1",
		Status:        orderv1.StatusPartiallyFilled,
		Fill:          &orderv1.Fill{ID: "t-1", Quantity: d("1"), Price: d("100"), Fee: d("0.1"), Timestamp: time.Now().UTC()},
		Timestamp:     time.Now().UTC(),
	}
	m.HandleOrderUpdate(ctx, partial)
	// Redelivered by the venue stream; the fill id dedups it.
	m.HandleOrderUpdate(ctx, partial)
	m.HandleOrderUpdate(ctx, exchangev1.OrderUpdate{
		Exchange:      "BINANCE",
		ClientOrderID: "exec-1",
		Status:        orderv1.StatusFilled,
		Fill:          &orderv1.Fill{ID: "t-2", Quantity: d("1"), Price: d("102"), Fee: d("0.1"), Timestamp: time.Now().UTC()},
		Timestamp:     time.Now().UTC(),
	})

	assert.Equal(t, []orderv1.Status{
		orderv1.StatusPending,
		orderv1.StatusSubmitted,
		orderv1.StatusAcknowledged,
		orderv1.StatusPartiallyFilled,
		orderv1.StatusFilled,
	}, *statuses)
	assert.Equal(t, 0, m.LiveOrders())
}

func TestHandleOrderUpdateResolvesByVenueOrderID(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	statuses := captureStatuses(mocks)
	admitAcknowledgedOrder(t, m, mocks)

	var unlocked decimal.Decimal
	mocks.valuator.EXPECT().UnlockCash(gomock.Any(), "pf-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, amount decimal.Decimal) error {
			unlocked = amount
			return nil
		})
	mocks.valuator.EXPECT().NotifyActivity("pf-1")

	m.HandleOrderUpdate(ctx, exchangev1.OrderUpdate{
		Exchange:        "BINANCE",
		ExchangeOrderID: "X-1",
		Status:          orderv1.StatusCancelled,
		Reason:          "cancelled on venue",
		Timestamp:       time.Now().UTC(),
	})

	assert.True(t, unlocked.Equal(d("200")), "unlocked cash was %s", unlocked)
	assert.Equal(t, orderv1.StatusCancelled, (*statuses)[len(*statuses)-1])
	assert.Equal(t, 0, m.LiveOrders())
}

func TestHandleOrderUpdateDropsUnknownOrders(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()

	// Nothing in memory and the repository has never seen the venue id.
	mocks.repo.EXPECT().FindByExchangeOrderID(gomock.Any(), "BINANCE", "X-404").Return(nil, nil)
	m.HandleOrderUpdate(ctx, exchangev1.OrderUpdate{
		Exchange:        "BINANCE",
		ExchangeOrderID: "X-404",
		Status:          orderv1.StatusFilled,
		Timestamp:       time.Now().UTC(),
	})

	// Known but already terminal: nothing reopens.
	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-done").
		Return(&orderv1.Order{ID: "o-9", ClientOrderID: "exec-done", Status: orderv1.StatusFilled}, nil)
	m.HandleOrderUpdate(ctx, exchangev1.OrderUpdate{
		Exchange:      "BINANCE",
		ClientOrderID: "exec-done",
		Status:        orderv1.StatusCancelled,
		Timestamp:     time.Now().UTC(),
	})

	assert.Equal(t, 0, m.LiveOrders())
}

func TestCancelPendingOrderLocally(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	statuses := captureStatuses(mocks)

	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-1").Return(nil, nil)
	mocks.valuator.EXPECT().LockCash(gomock.Any(), "pf-1", gomock.Any()).Return(nil)
	mocks.repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	mocks.repo.EXPECT().RecordStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mocks.gateway.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil, context.Canceled)

	// Shutdown interrupts the submission; the order stays PENDING.
	err := m.HandleExecutionOrder(ctx, marketRequest(orderv1.SideBuy, "2"))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, m.LiveOrders())

	var unlocked decimal.Decimal
	mocks.valuator.EXPECT().UnlockCash(gomock.Any(), "pf-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, amount decimal.Decimal) error {
			unlocked = amount
			return nil
		})
	mocks.valuator.EXPECT().NotifyActivity("pf-1")

	// Never reached the venue, so no venue call is needed to cancel it.
	require.NoError(t, m.Cancel(ctx, "exec-1", "draining for shutdown"))

	assert.True(t, unlocked.Equal(d("200")), "unlocked cash was %s", unlocked)
	assert.Equal(t, []orderv1.Status{orderv1.StatusPending, orderv1.StatusCancelled}, *statuses)
	assert.Equal(t, 0, m.LiveOrders())
}

func TestCancelConfirmsWithVenueFirst(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	statuses := captureStatuses(mocks)
	admitAcknowledgedOrder(t, m, mocks)

	// A failed venue call leaves the order working.
	mocks.gateway.EXPECT().Cancel(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
	require.Error(t, m.Cancel(ctx, "exec-1", "strategy exit"))
	require.Equal(t, 1, m.LiveOrders())
	require.NotEqual(t, orderv1.StatusCancelled, (*statuses)[len(*statuses)-1])

	mocks.gateway.EXPECT().Cancel(gomock.Any(), gomock.Any()).Return(nil)
	mocks.gateway.EXPECT().QueryStatus(gomock.Any(), gomock.Any()).Return(&exchangev1.OrderSnapshot{
		ExchangeOrderID: "X-1",
		ClientOrderID:   "exec-1",
		Status:          orderv1.StatusCancelled,
		AsOf:            time.Now().UTC(),
	}, nil)
	mocks.valuator.EXPECT().UnlockCash(gomock.Any(), "pf-1", gomock.Any()).Return(nil)
	mocks.valuator.EXPECT().NotifyActivity("pf-1")

	require.NoError(t, m.CancelByStrategy(ctx, "exec-1"))

	assert.Equal(t, orderv1.StatusCancelled, (*statuses)[len(*statuses)-1])
	assert.Equal(t, 0, m.LiveOrders())
}

func TestCancelAppliesFillExecutedBeforeCancel(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	statuses := captureStatuses(mocks)
	saved := admitAcknowledgedOrder(t, m, mocks)

	// The venue filled 1 of 2 just before accepting the cancel; the trade
	// report is still in flight when the cancel confirms.
	mocks.gateway.EXPECT().Cancel(gomock.Any(), gomock.Any()).Return(nil)
	mocks.gateway.EXPECT().QueryStatus(gomock.Any(), gomock.Any()).Return(&exchangev1.OrderSnapshot{
		ExchangeOrderID:  "X-1",
		ClientOrderID:    "exec-1",
		Status:           orderv1.StatusCancelled,
		FilledQuantity:   d("1"),
		AverageFillPrice: d("100"),
		AsOf:             time.Now().UTC(),
	}, nil)

	var fill orderv1.Fill
	mocks.repo.EXPECT().RecordFill(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ *orderv1.Order, f orderv1.Fill) error {
			fill = f
			return nil
		})
	var traded positionv1.Trade
	mocks.ledger.EXPECT().ApplyTrade(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, trade positionv1.Trade) (*positionv1.TradeResult, error) {
			traded = trade
			return &positionv1.TradeResult{}, nil
		})
	mocks.valuator.EXPECT().ApplyFillCash(gomock.Any(), "pf-1", gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	mocks.publisher.EXPECT().PublishFill(gomock.Any(), gomock.Any()).Return(nil)
	mocks.valuator.EXPECT().UnlockCash(gomock.Any(), "pf-1", gomock.Any()).Return(nil)
	mocks.valuator.EXPECT().NotifyActivity("pf-1").AnyTimes()

	require.NoError(t, m.Cancel(ctx, "exec-1", "strategy exit"))

	assert.True(t, fill.Quantity.Equal(d("1")), "fill quantity was %s", fill.Quantity)
	assert.True(t, fill.Price.Equal(d("100")), "fill price was %s", fill.Price)
	assert.True(t, traded.Quantity.Equal(d("1")), "ledger trade quantity was %s", traded.Quantity)
	assert.True(t, saved.FilledQuantity.Equal(d("1")), "filled quantity was %s", saved.FilledQuantity)
	assert.Equal(t, orderv1.StatusCancelled, saved.Status)
	assert.Equal(t, orderv1.StatusPartiallyFilled, (*statuses)[len(*statuses)-2])
	assert.Equal(t, orderv1.StatusCancelled, (*statuses)[len(*statuses)-1])
	assert.Equal(t, 0, m.LiveOrders())

	// The late trade report finds a terminal order and is dropped; the
	// quantities already converged, so nothing touches the books again.
	before := len(*statuses)
	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "exec-1").Return(saved, nil)
	m.HandleOrderUpdate(ctx, exchangev1.OrderUpdate{
		Exchange:        "BINANCE",
		ExchangeOrderID: "X-1",
		ClientOrderID:   "exec-1",
		Status:          orderv1.StatusPartiallyFilled,
		Fill: &orderv1.Fill{
			ID:        "t-901",
			Quantity:  d("1"),
			Price:     d("100"),
			Timestamp: time.Now().UTC(),
		},
	})
	assert.Equal(t, before, len(*statuses))
}

func TestCancelFallsBackWhenPostCancelQueryFails(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	statuses := captureStatuses(mocks)
	admitAcknowledgedOrder(t, m, mocks)

	mocks.gateway.EXPECT().Cancel(gomock.Any(), gomock.Any()).Return(nil)
	mocks.gateway.EXPECT().QueryStatus(gomock.Any(), gomock.Any()).
		Return(nil, exchangev1.NewTransient("BINANCE", "", "connect timeout", errors.New("connect timeout")))
	mocks.valuator.EXPECT().UnlockCash(gomock.Any(), "pf-1", gomock.Any()).Return(nil)
	mocks.valuator.EXPECT().NotifyActivity("pf-1")

	require.NoError(t, m.Cancel(ctx, "exec-1", "strategy exit"))

	assert.Equal(t, orderv1.StatusCancelled, (*statuses)[len(*statuses)-1])
	assert.Equal(t, 0, m.LiveOrders())
}

func TestCancelUnknownOrder(t *testing.T) {
	m, mocks := newTestManager(t)

	mocks.repo.EXPECT().FindByClientOrderID(gomock.Any(), "ghost").Return(nil, nil)

	err := m.Cancel(context.Background(), "ghost", "cleanup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown order")
}

func TestReconcileStaleSynthesizesMissedFill(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	statuses := captureStatuses(mocks)
	saved := admitAcknowledgedOrder(t, m, mocks)

	// Orders inside the staleness window are left alone.
	m.ReconcileStale(ctx)

	saved.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	mocks.gateway.EXPECT().QueryStatus(gomock.Any(), gomock.Any()).Return(&exchangev1.OrderSnapshot{
		ExchangeOrderID:  "X-1",
		ClientOrderID:    "exec-1",
		Status:           orderv1.StatusFilled,
		FilledQuantity:   d("2"),
		AverageFillPrice: d("101"),
		AsOf:             time.Now().UTC(),
	}, nil)

	var fill orderv1.Fill
	mocks.repo.EXPECT().RecordFill(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ *orderv1.Order, f orderv1.Fill) error {
			fill = f
			return nil
		})
	mocks.ledger.EXPECT().ApplyTrade(gomock.Any(), gomock.Any()).Return(&positionv1.TradeResult{}, nil)
	mocks.valuator.EXPECT().ApplyFillCash(gomock.Any(), "pf-1", gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	mocks.valuator.EXPECT().NotifyActivity("pf-1").AnyTimes()
	mocks.publisher.EXPECT().PublishFill(gomock.Any(), gomock.Any()).Return(nil)
	mocks.publisher.EXPECT().PublishCompletion(gomock.Any(), gomock.Any()).Return(nil)

	m.ReconcileStale(ctx)

	assert.Equal(t, "exec-1:recon:2", fill.ID)
	assert.True(t, fill.Quantity.Equal(d("2")), "fill quantity was %s", fill.Quantity)
	assert.True(t, fill.Price.Equal(d("101")), "fill price was %s", fill.Price)
	assert.Equal(t, orderv1.StatusFilled, (*statuses)[len(*statuses)-1])
	assert.Equal(t, 0, m.LiveOrders())
}

func TestReconcileAdoptsVenueCancel(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	expectRiskPass(mocks)
	statuses := captureStatuses(mocks)
	saved := admitAcknowledgedOrder(t, m, mocks)

	saved.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	mocks.gateway.EXPECT().QueryStatus(gomock.Any(), gomock.Any()).Return(&exchangev1.OrderSnapshot{
		ExchangeOrderID: "X-1",
		ClientOrderID:   "exec-1",
		Status:          orderv1.StatusCancelled,
		AsOf:            time.Now().UTC(),
	}, nil)

	var unlocked decimal.Decimal
	mocks.valuator.EXPECT().UnlockCash(gomock.Any(), "pf-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, amount decimal.Decimal) error {
			unlocked = amount
			return nil
		})
	mocks.valuator.EXPECT().NotifyActivity("pf-1")

	m.ReconcileStale(ctx)

	assert.True(t, unlocked.Equal(d("200")), "unlocked cash was %s", unlocked)
	assert.Equal(t, orderv1.StatusCancelled, (*statuses)[len(*statuses)-1])
	assert.Equal(t, 0, m.LiveOrders())
}

func TestRestoreReloadsActiveOrders(t *testing.T) {
	m, mocks := newTestManager(t)
	ctx := context.Background()
	statuses := captureStatuses(mocks)

	ack := orderv1.NewOrder(orderv1.NewOrderParams{
		ID:            "o-9",
		ClientOrderID: "exec-9",
		PortfolioID:   "pf-1",
		Symbol:        "BTCUSDT",
		Exchange:      "BINANCE",
		Side:          orderv1.SideBuy,
		Type:          orderv1.TypeMarket,
		TimeInForce:   orderv1.TimeInForceGTC,
		Quantity:      d("2"),
	})
	require.NoError(t, ack.Transition(orderv1.StatusSubmitted, "submitted to venue", orderv1.SourceSystem, ""))
	require.NoError(t, ack.Transition(orderv1.StatusAcknowledged, "venue acknowledged the order", orderv1.SourceExchange, ""))
	ack.ExchangeOrderID = "X-9"

	pend := orderv1.NewOrder(orderv1.NewOrderParams{
		ID:            "o-8",
		ClientOrderID: "exec-8",
		PortfolioID:   "pf-1",
		Symbol:        "ETHUSDT",
		Exchange:      "BINANCE",
		Side:          orderv1.SideSell,
		Type:          orderv1.TypeMarket,
		TimeInForce:   orderv1.TimeInForceGTC,
		Quantity:      d("3"),
	})

	mocks.repo.EXPECT().ListActive(gomock.Any()).Return([]*orderv1.Order{ack, pend}, nil)
	mocks.valuator.EXPECT().EnsurePortfolio(gomock.Any(), "pf-1").Return(portfoliov1.Limits{}).Times(2)

	// The working buy re-reserves cash at the last marked price.
	mocks.ledger.EXPECT().LastPrice(gomock.Any(), "BTCUSDT").Return(d("100"), true)
	var locked decimal.Decimal
	mocks.valuator.EXPECT().LockCash(gomock.Any(), "pf-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, amount decimal.Decimal) error {
			locked = amount
			return nil
		})

	// The pending sell re-locks quantity and goes back out to the venue.
	sellKey := positionv1.Key{PortfolioID: "pf-1", Symbol: "ETHUSDT", Exchange: "BINANCE"}
	var lockedQty decimal.Decimal
	mocks.ledger.EXPECT().Lock(gomock.Any(), sellKey, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ positionv1.Key, qty decimal.Decimal) error {
			lockedQty = qty
			return nil
		})
	mocks.repo.EXPECT().RecordStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mocks.gateway.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order *orderv1.Order) (*exchangev1.SubmitResult, error) {
			assert.Equal(t, "exec-8", order.ClientOrderID)
			return &exchangev1.SubmitResult{ExchangeOrderID: "X-8", Status: orderv1.StatusAcknowledged}, nil
		})

	require.NoError(t, m.Restore(ctx))

	assert.Equal(t, 2, m.LiveOrders())
	assert.True(t, locked.Equal(d("200")), "locked cash was %s", locked)
	assert.True(t, lockedQty.Equal(d("3")), "locked quantity was %s", lockedQty)
	assert.Equal(t, []orderv1.Status{orderv1.StatusSubmitted, orderv1.StatusAcknowledged}, *statuses)
}
