package validation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	eventv1 "github.com/quantara/execution/internal/domain/event/v1"
	orderv1 "github.com/quantara/execution/internal/domain/order/v1"
	portfoliov1 "github.com/quantara/execution/internal/domain/portfolio/v1"
	portfoliov1_mock "github.com/quantara/execution/internal/domain/portfolio/v1/mock"
	positionv1_mock "github.com/quantara/execution/internal/domain/position/v1/mock"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/errors"
	logger_mock "github.com/quantara/execution/pkg/logger/mock"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		MaxOrderQuantity:       d("100"),
		MaxPositionSize:        d("1000"),
		SymbolExposureFraction: d("0.25"),
		MaxDailyLoss:           d("10000"),
		MinRiskReward:          d("1.5"),
		DefaultStopDistance:    d("0.05"),
	}
}

func validRequest() *eventv1.ExecutionOrderRequest {
	return &eventv1.ExecutionOrderRequest{
		StrategyExecutionID: "se-001",
		PortfolioID:         "pf-1",
		Symbol:              "BTC-USD",
		Exchange:            "binance",
		Side:                orderv1.SideBuy,
		Type:                orderv1.TypeLimit,
		TimeInForce:         orderv1.TimeInForceGTC,
		Quantity:            d("2"),
		Price:               d("50000"),
		Timestamp:           time.Now().UTC(),
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name     string
		request  func() *eventv1.ExecutionOrderRequest
		mockFn   func(ledger *positionv1_mock.MockLedger, valuator *portfoliov1_mock.MockValuator)
		assertFn func(t *testing.T, order *orderv1.Order, rej *Rejection)
	}{
		{
			name:    "valid limit order admitted",
			request: validRequest,
			mockFn: func(ledger *positionv1_mock.MockLedger, valuator *portfoliov1_mock.MockValuator) {
				valuator.EXPECT().EnsurePortfolio(gomock.Any(), "pf-1").Return(portfoliov1.Limits{})
				ledger.EXPECT().Exposure(gomock.Any(), "pf-1", "BTC-USD").Return(decimal.Zero)
				valuator.EXPECT().DailyRealizedPnl(gomock.Any(), "pf-1").Return(decimal.Zero)
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.Nil(t, rej)
				require.NotNil(t, order)
				assert.Equal(t, orderv1.StatusPending, order.Status)
				assert.Equal(t, "se-001", order.ClientOrderID)
				assert.NotEmpty(t, order.ID)
				assert.True(t, order.RemainingQuantity.Equal(d("2")))
			},
		},
		{
			name: "time in force defaults to GTC",
			request: func() *eventv1.ExecutionOrderRequest {
				req := validRequest()
				req.TimeInForce = ""
				return req
			},
			mockFn: func(ledger *positionv1_mock.MockLedger, valuator *portfoliov1_mock.MockValuator) {
				valuator.EXPECT().EnsurePortfolio(gomock.Any(), "pf-1").Return(portfoliov1.Limits{})
				ledger.EXPECT().Exposure(gomock.Any(), "pf-1", "BTC-USD").Return(decimal.Zero)
				valuator.EXPECT().DailyRealizedPnl(gomock.Any(), "pf-1").Return(decimal.Zero)
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.Nil(t, rej)
				assert.Equal(t, orderv1.TimeInForceGTC, order.TimeInForce)
			},
		},
		{
			name: "missing strategy execution id",
			request: func() *eventv1.ExecutionOrderRequest {
				req := validRequest()
				req.StrategyExecutionID = ""
				return req
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.Nil(t, order)
				require.NotNil(t, rej)
				assert.Equal(t, errors.ValidationFailed, rej.Code)
			},
		},
		{
			name: "unknown side",
			request: func() *eventv1.ExecutionOrderRequest {
				req := validRequest()
				req.Side = "HOLD"
				return req
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.NotNil(t, rej)
				assert.Equal(t, errors.ValidationFailed, rej.Code)
			},
		},
		{
			name: "zero quantity",
			request: func() *eventv1.ExecutionOrderRequest {
				req := validRequest()
				req.Quantity = decimal.Zero
				return req
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.NotNil(t, rej)
				assert.Equal(t, errors.ValidationFailed, rej.Code)
				assert.Contains(t, rej.Reason, "quantity")
			},
		},
		{
			name: "limit order without price",
			request: func() *eventv1.ExecutionOrderRequest {
				req := validRequest()
				req.Price = decimal.Zero
				return req
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.NotNil(t, rej)
				assert.Equal(t, errors.ValidationFailed, rej.Code)
				assert.Contains(t, rej.Reason, "limit price")
			},
		},
		{
			name: "market order with price",
			request: func() *eventv1.ExecutionOrderRequest {
				req := validRequest()
				req.Type = orderv1.TypeMarket
				return req
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.NotNil(t, rej)
				assert.Equal(t, errors.ValidationFailed, rej.Code)
			},
		},
		{
			name: "stop order without stop price",
			request: func() *eventv1.ExecutionOrderRequest {
				req := validRequest()
				req.Type = orderv1.TypeStopLoss
				req.Price = decimal.Zero
				return req
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.NotNil(t, rej)
				assert.Equal(t, errors.ValidationFailed, rej.Code)
				assert.Contains(t, rej.Reason, "stop price")
			},
		},
		{
			name: "quantity above per-order limit",
			request: func() *eventv1.ExecutionOrderRequest {
				req := validRequest()
				req.Quantity = d("101")
				return req
			},
			mockFn: func(ledger *positionv1_mock.MockLedger, valuator *portfoliov1_mock.MockValuator) {
				valuator.EXPECT().EnsurePortfolio(gomock.Any(), "pf-1").Return(portfoliov1.Limits{})
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.NotNil(t, rej)
				assert.Equal(t, errors.RiskCheckFailed, rej.Code)
				assert.Contains(t, rej.Reason, "per-order limit")
			},
		},
		{
			name:    "symbol exposure ceiling",
			request: validRequest,
			mockFn: func(ledger *positionv1_mock.MockLedger, valuator *portfoliov1_mock.MockValuator) {
				valuator.EXPECT().EnsurePortfolio(gomock.Any(), "pf-1").Return(portfoliov1.Limits{})
				// Ceiling is 0.25 * 1000 = 250; 249 held + 2 requested breaches it.
				ledger.EXPECT().Exposure(gomock.Any(), "pf-1", "BTC-USD").Return(d("249"))
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.NotNil(t, rej)
				assert.Equal(t, errors.RiskCheckFailed, rej.Code)
				assert.Contains(t, rej.Reason, "exposure")
			},
		},
		{
			name: "portfolio limits override global ceiling",
			request: func() *eventv1.ExecutionOrderRequest {
				req := validRequest()
				req.Quantity = d("30")
				return req
			},
			mockFn: func(ledger *positionv1_mock.MockLedger, valuator *portfoliov1_mock.MockValuator) {
				// Portfolio cap 100 shrinks the ceiling to 25.
				valuator.EXPECT().EnsurePortfolio(gomock.Any(), "pf-1").Return(portfoliov1.Limits{
					MaxPositionSize: d("100"),
				})
				ledger.EXPECT().Exposure(gomock.Any(), "pf-1", "BTC-USD").Return(decimal.Zero)
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.NotNil(t, rej)
				assert.Equal(t, errors.RiskCheckFailed, rej.Code)
				assert.Contains(t, rej.Reason, "exposure")
			},
		},
		{
			name: "market order without reference price",
			request: func() *eventv1.ExecutionOrderRequest {
				req := validRequest()
				req.Type = orderv1.TypeMarket
				req.Price = decimal.Zero
				return req
			},
			mockFn: func(ledger *positionv1_mock.MockLedger, valuator *portfoliov1_mock.MockValuator) {
				valuator.EXPECT().EnsurePortfolio(gomock.Any(), "pf-1").Return(portfoliov1.Limits{})
				ledger.EXPECT().Exposure(gomock.Any(), "pf-1", "BTC-USD").Return(decimal.Zero)
				ledger.EXPECT().LastPrice(gomock.Any(), "BTC-USD").Return(decimal.Zero, false)
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.NotNil(t, rej)
				assert.Equal(t, errors.RiskCheckFailed, rej.Code)
				assert.Contains(t, rej.Reason, "reference price")
			},
		},
		{
			name: "daily loss ceiling with attached stop",
			request: func() *eventv1.ExecutionOrderRequest {
				req := validRequest()
				req.Type = orderv1.TypeStopLimit
				req.StopPrice = d("49000")
				return req
			},
			mockFn: func(ledger *positionv1_mock.MockLedger, valuator *portfoliov1_mock.MockValuator) {
				valuator.EXPECT().EnsurePortfolio(gomock.Any(), "pf-1").Return(portfoliov1.Limits{})
				ledger.EXPECT().Exposure(gomock.Any(), "pf-1", "BTC-USD").Return(decimal.Zero)
				// Worst case is (50000-49000)*2 = 2000; -8500 - 2000 breaches -10000.
				valuator.EXPECT().DailyRealizedPnl(gomock.Any(), "pf-1").Return(d("-8500"))
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.NotNil(t, rej)
				assert.Equal(t, errors.RiskCheckFailed, rej.Code)
				assert.Contains(t, rej.Reason, "daily loss")
			},
		},
		{
			name:    "daily loss ceiling without stop uses default distance",
			request: validRequest,
			mockFn: func(ledger *positionv1_mock.MockLedger, valuator *portfoliov1_mock.MockValuator) {
				valuator.EXPECT().EnsurePortfolio(gomock.Any(), "pf-1").Return(portfoliov1.Limits{})
				ledger.EXPECT().Exposure(gomock.Any(), "pf-1", "BTC-USD").Return(decimal.Zero)
				// Worst case is 0.05 * 50000 * 2 = 5000; -5500 - 5000 breaches -10000.
				valuator.EXPECT().DailyRealizedPnl(gomock.Any(), "pf-1").Return(d("-5500"))
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.NotNil(t, rej)
				assert.Equal(t, errors.RiskCheckFailed, rej.Code)
			},
		},
		{
			name: "risk reward below minimum",
			request: func() *eventv1.ExecutionOrderRequest {
				req := validRequest()
				req.Type = orderv1.TypeStopLimit
				req.StopPrice = d("49000")
				req.TakeProfitPrice = d("51000")
				return req
			},
			mockFn: func(ledger *positionv1_mock.MockLedger, valuator *portfoliov1_mock.MockValuator) {
				valuator.EXPECT().EnsurePortfolio(gomock.Any(), "pf-1").Return(portfoliov1.Limits{})
				ledger.EXPECT().Exposure(gomock.Any(), "pf-1", "BTC-USD").Return(decimal.Zero)
				valuator.EXPECT().DailyRealizedPnl(gomock.Any(), "pf-1").Return(decimal.Zero)
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				// Risk 1000 vs reward 1000 is 1.0, below the 1.5 minimum.
				require.NotNil(t, rej)
				assert.Equal(t, errors.RiskCheckFailed, rej.Code)
				assert.Contains(t, rej.Reason, "risk/reward")
			},
		},
		{
			name: "risk reward at minimum passes",
			request: func() *eventv1.ExecutionOrderRequest {
				req := validRequest()
				req.Type = orderv1.TypeStopLimit
				req.StopPrice = d("49000")
				req.TakeProfitPrice = d("51500")
				return req
			},
			mockFn: func(ledger *positionv1_mock.MockLedger, valuator *portfoliov1_mock.MockValuator) {
				valuator.EXPECT().EnsurePortfolio(gomock.Any(), "pf-1").Return(portfoliov1.Limits{})
				ledger.EXPECT().Exposure(gomock.Any(), "pf-1", "BTC-USD").Return(decimal.Zero)
				valuator.EXPECT().DailyRealizedPnl(gomock.Any(), "pf-1").Return(decimal.Zero)
			},
			assertFn: func(t *testing.T, order *orderv1.Order, rej *Rejection) {
				require.Nil(t, rej)
				require.NotNil(t, order)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			ledger := positionv1_mock.NewMockLedger(ctrl)
			valuator := portfoliov1_mock.NewMockValuator(ctrl)
			log := logger_mock.NewMockInterface(ctrl)
			log.EXPECT().DebugContext(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

			if tc.mockFn != nil {
				tc.mockFn(ledger, valuator)
			}

			v := NewValidator(testRiskConfig(), ledger, valuator, log)
			order, rej := v.Validate(context.Background(), tc.request())
			tc.assertFn(t, order, rej)
		})
	}
}
