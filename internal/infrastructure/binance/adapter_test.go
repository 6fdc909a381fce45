package binance

import (
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	exchangev1 "github.com/quantara/execution/internal/domain/exchange/v1"
	orderv1 "github.com/quantara/execution/internal/domain/order/v1"
	"github.com/quantara/execution/pkg/config"
	logger_mock "github.com/quantara/execution/pkg/logger/mock"
)

func newTestAdapter(t *testing.T) *Adapter {
	ctrl := gomock.NewController(t)
	log := logger_mock.NewMockInterface(ctrl)
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().WarnContext(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	return NewAdapter(config.BinanceConfig{RateLimit: 10}, log)
}

func TestMapError(t *testing.T) {
	adapter := newTestAdapter(t)

	tests := []struct {
		name   string
		err    error
		assert func(t *testing.T, mapped error)
	}{
		{
			name: "rate limited is transient",
			err:  &common.APIError{Code: -1003, Message: "Too many requests"},
			assert: func(t *testing.T, mapped error) {
				assert.True(t, exchangev1.IsTransient(mapped))
			},
		},
		{
			name: "timestamp outside recv window is transient",
			err:  &common.APIError{Code: -1021, Message: "Timestamp outside of recvWindow"},
			assert: func(t *testing.T, mapped error) {
				assert.True(t, exchangev1.IsTransient(mapped))
			},
		},
		{
			name: "duplicate client order id",
			err:  &common.APIError{Code: -2010, Message: "Duplicate order sent."},
			assert: func(t *testing.T, mapped error) {
				assert.True(t, exchangev1.IsDuplicate(mapped))
			},
		},
		{
			name: "insufficient balance is a rejection",
			err:  &common.APIError{Code: -2010, Message: "Account has insufficient balance for requested action."},
			assert: func(t *testing.T, mapped error) {
				assert.True(t, exchangev1.IsRejection(mapped))
			},
		},
		{
			name: "unknown order on cancel",
			err:  &common.APIError{Code: -2011, Message: "Unknown order sent."},
			assert: func(t *testing.T, mapped error) {
				assert.True(t, exchangev1.IsUnknownOrder(mapped))
			},
		},
		{
			name: "order does not exist",
			err:  &common.APIError{Code: -2013, Message: "Order does not exist."},
			assert: func(t *testing.T, mapped error) {
				assert.True(t, exchangev1.IsUnknownOrder(mapped))
			},
		},
		{
			name: "plain network failure is transient",
			err:  assert.AnError,
			assert: func(t *testing.T, mapped error) {
				assert.True(t, exchangev1.IsTransient(mapped))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mapped := adapter.mapError(tc.err, "test")
			require.Error(t, mapped)
			tc.assert(t, mapped)

			venueErr, ok := exchangev1.AsError(mapped)
			require.True(t, ok)
			assert.Equal(t, VenueName, venueErr.Venue)
		})
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		venueStatus string
		want        orderv1.Status
	}{
		{"NEW", orderv1.StatusAcknowledged},
		{"PARTIALLY_FILLED", orderv1.StatusPartiallyFilled},
		{"FILLED", orderv1.StatusFilled},
		{"CANCELED", orderv1.StatusCancelled},
		{"REJECTED", orderv1.StatusRejected},
		{"EXPIRED", orderv1.StatusExpired},
	}
	for _, tc := range tests {
		t.Run(tc.venueStatus, func(t *testing.T) {
			assert.Equal(t, tc.want, statusOf(tc.venueStatus))
		})
	}
}

func TestToOrderUpdate_TradeReport(t *testing.T) {
	adapter := newTestAdapter(t)

	update := adapter.toOrderUpdate(binance.WsOrderUpdate{
		Symbol:          "BTCUSDT",
		ClientOrderId:   "exec-1",
		Id:              42,
		ExecutionType:   "TRADE",
		Status:          "PARTIALLY_FILLED",
		LatestVolume:    "0.5",
		LatestPrice:     "50000",
		FeeCost:         "0.25",
		FeeAsset:        "USDT",
		IsMaker:         true,
		TradeId:         777,
		TransactionTime: 1700000000000,
	})

	assert.Equal(t, VenueName, update.Exchange)
	assert.Equal(t, "exec-1", update.ClientOrderID)
	assert.Equal(t, "42", update.ExchangeOrderID)
	assert.Equal(t, orderv1.StatusPartiallyFilled, update.Status)

	require.NotNil(t, update.Fill)
	assert.Equal(t, "777", update.Fill.ID)
	assert.True(t, update.Fill.Quantity.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, update.Fill.Price.Equal(decimal.NewFromInt(50000)))
	assert.True(t, update.Fill.Fee.Equal(decimal.RequireFromString("0.25")))
	assert.Equal(t, orderv1.LiquidityMaker, update.Fill.Liquidity)
}

func TestToOrderUpdate_CancelReport(t *testing.T) {
	adapter := newTestAdapter(t)

	update := adapter.toOrderUpdate(binance.WsOrderUpdate{
		Symbol:            "BTCUSDT",
		OrigCustomOrderId: "exec-2",
		Id:                43,
		ExecutionType:     "CANCELED",
		Status:            "CANCELED",
	})

	assert.Equal(t, "exec-2", update.ClientOrderID)
	assert.Equal(t, orderv1.StatusCancelled, update.Status)
	assert.Nil(t, update.Fill)
}

func TestTypeOf(t *testing.T) {
	got, err := typeOf(orderv1.TypeLimit)
	require.NoError(t, err)
	assert.Equal(t, binance.OrderTypeLimit, got)

	_, err = typeOf(orderv1.TypeTWAP)
	require.Error(t, err)
	assert.True(t, exchangev1.IsRejection(err))
}
