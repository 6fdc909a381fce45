// Package alpaca adapts the neutral order model to the Alpaca trading API.
package alpaca

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	exchangev1 "github.com/quantara/execution/internal/domain/exchange/v1"
	orderv1 "github.com/quantara/execution/internal/domain/order/v1"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/logger"
)

// VenueName is the exchange identifier orders carry to route here.
const VenueName = "ALPACA"

// Adapter implements exchangev1.Adapter against the Alpaca API. Alpaca
// enforces client order id uniqueness, which carries the submission
// idempotency contract.
type Adapter struct {
	client *alpaca.Client
	cfg    config.AlpacaConfig
	logger logger.Interface
}

var _ exchangev1.Adapter = (*Adapter)(nil)

// NewAdapter creates an Alpaca adapter.
func NewAdapter(cfg config.AlpacaConfig, log logger.Interface) *Adapter {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})
	return &Adapter{
		client: client,
		cfg:    cfg,
		logger: log,
	}
}

// Name returns the venue identifier.
func (a *Adapter) Name() string {
	return VenueName
}

// RateBudget returns the configured request budget.
func (a *Adapter) RateBudget() exchangev1.RateBudget {
	return exchangev1.RateBudget{
		Tokens:         a.cfg.RateLimit,
		RefillInterval: a.cfg.RefillInterval,
	}
}

// SubmitOrder places the order. Alpaca is decimal-native, so quantities and
// prices pass through without string round-trips.
func (a *Adapter) SubmitOrder(ctx context.Context, order *orderv1.Order) (*exchangev1.SubmitResult, error) {
	orderType, err := typeOf(order.Type)
	if err != nil {
		return nil, err
	}

	qty := order.Quantity
	req := alpaca.PlaceOrderRequest{
		Symbol:        order.Symbol,
		Qty:           &qty,
		Side:          sideOf(order.Side),
		Type:          orderType,
		TimeInForce:   timeInForceOf(order.TimeInForce),
		ClientOrderID: order.ClientOrderID,
	}
	if order.Price.IsPositive() {
		price := order.Price
		req.LimitPrice = &price
	}
	if order.StopPrice.IsPositive() {
		stop := order.StopPrice
		req.StopPrice = &stop
	}

	placed, err := a.client.PlaceOrder(req)
	if err != nil {
		return nil, a.mapError(err, "PlaceOrder")
	}

	return &exchangev1.SubmitResult{
		ExchangeOrderID: placed.ID,
		Status:          statusOf(placed.Status),
	}, nil
}

// CancelOrder cancels a working order by its venue order id.
func (a *Adapter) CancelOrder(ctx context.Context, order *orderv1.Order) error {
	if err := a.client.CancelOrder(order.ExchangeOrderID); err != nil {
		return a.mapError(err, "CancelOrder")
	}
	return nil
}

// QueryOrder fetches the venue's authoritative view by client order id.
func (a *Adapter) QueryOrder(ctx context.Context, order *orderv1.Order) (*exchangev1.OrderSnapshot, error) {
	res, err := a.client.GetOrderByClientOrderID(order.ClientOrderID)
	if err != nil {
		return nil, a.mapError(err, "GetOrderByClientOrderID")
	}

	avgPrice := decimal.Zero
	if res.FilledAvgPrice != nil {
		avgPrice = *res.FilledAvgPrice
	}
	return &exchangev1.OrderSnapshot{
		ExchangeOrderID:  res.ID,
		ClientOrderID:    res.ClientOrderID,
		Status:           statusOf(res.Status),
		FilledQuantity:   res.FilledQty,
		AverageFillPrice: avgPrice,
		AsOf:             res.UpdatedAt,
	}, nil
}

// SubscribeUpdates streams trade updates to handler until ctx ends,
// reconnecting after stream failures.
func (a *Adapter) SubscribeUpdates(ctx context.Context, handler exchangev1.UpdateHandler) error {
	for {
		err := a.client.StreamTradeUpdates(ctx, func(update alpaca.TradeUpdate) {
			handler(ctx, a.toOrderUpdate(update))
		}, alpaca.StreamTradeUpdatesRequest{})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			a.logger.WarnContext(ctx, "trade update stream interrupted, reconnecting",
				logger.Field{Key: "venue", Value: VenueName},
				logger.Field{Key: "error", Value: err.Error()},
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// toOrderUpdate maps one trade update to the neutral update. Fill events
// carry the execution keyed by Alpaca's execution id; Alpaca reports no
// per-fill fee.
func (a *Adapter) toOrderUpdate(update alpaca.TradeUpdate) exchangev1.OrderUpdate {
	out := exchangev1.OrderUpdate{
		Exchange:        VenueName,
		ExchangeOrderID: update.Order.ID,
		ClientOrderID:   update.Order.ClientOrderID,
		Symbol:          update.Order.Symbol,
		Timestamp:       update.At,
	}

	switch update.Event {
	case "new", "accepted":
		out.Status = orderv1.StatusAcknowledged
	case "fill":
		out.Status = orderv1.StatusFilled
	case "partial_fill":
		out.Status = orderv1.StatusPartiallyFilled
	case "canceled":
		out.Status = orderv1.StatusCancelled
	case "rejected":
		out.Status = orderv1.StatusRejected
		out.Reason = "venue rejected the order"
	case "expired":
		out.Status = orderv1.StatusExpired
	default:
		out.Status = statusOf(update.Order.Status)
	}

	if (update.Event == "fill" || update.Event == "partial_fill") && update.Qty != nil && update.Price != nil {
		ts := update.At
		if update.Timestamp != nil {
			ts = *update.Timestamp
		}
		fillID := update.ExecutionID
		if fillID == "" {
			fillID = update.Order.ID + ":" + strconv.FormatInt(ts.UnixNano(), 10)
		}
		out.Fill = &orderv1.Fill{
			ID:        fillID,
			Quantity:  *update.Qty,
			Price:     *update.Price,
			Fee:       decimal.Zero,
			Liquidity: orderv1.LiquidityTaker,
			Timestamp: ts,
		}
	}
	return out
}

// mapError classifies an Alpaca failure into the neutral taxonomy.
func (a *Adapter) mapError(err error, operation string) error {
	var apiErr *alpaca.APIError
	if stderrors.As(err, &apiErr) {
		code := strconv.Itoa(apiErr.StatusCode)
		switch {
		case apiErr.StatusCode == 429 || apiErr.StatusCode >= 500:
			return exchangev1.NewTransient(VenueName, code, apiErr.Message, err)
		case apiErr.StatusCode == 404:
			return exchangev1.NewUnknownOrder(VenueName, code, apiErr.Message, err)
		case apiErr.StatusCode == 422 && strings.Contains(strings.ToLower(apiErr.Message), "client_order_id"):
			return exchangev1.NewDuplicate(VenueName, code, apiErr.Message, err)
		default:
			a.logger.Warn("venue refused the request",
				logger.Field{Key: "venue", Value: VenueName},
				logger.Field{Key: "operation", Value: operation},
				logger.Field{Key: "status_code", Value: apiErr.StatusCode},
				logger.Field{Key: "message", Value: apiErr.Message},
			)
			return exchangev1.NewRejection(VenueName, code, apiErr.Message, err)
		}
	}

	if stderrors.Is(err, context.Canceled) {
		return err
	}
	return exchangev1.NewTransient(VenueName, "", err.Error(), err)
}

func sideOf(side orderv1.Side) alpaca.Side {
	if side == orderv1.SideSell {
		return alpaca.Sell
	}
	return alpaca.Buy
}

func typeOf(orderType orderv1.Type) (alpaca.OrderType, error) {
	switch orderType {
	case orderv1.TypeMarket:
		return alpaca.Market, nil
	case orderv1.TypeLimit, orderv1.TypeIceberg:
		return alpaca.Limit, nil
	case orderv1.TypeStopLoss, orderv1.TypeTakeProfit:
		return alpaca.Stop, nil
	case orderv1.TypeStopLimit:
		return alpaca.StopLimit, nil
	default:
		return "", exchangev1.NewRejection(VenueName, "", "order type not supported on this venue: "+string(orderType), nil)
	}
}

func timeInForceOf(tif orderv1.TimeInForce) alpaca.TimeInForce {
	switch tif {
	case orderv1.TimeInForceIOC:
		return alpaca.IOC
	case orderv1.TimeInForceFOK:
		return alpaca.FOK
	case orderv1.TimeInForceDay:
		return alpaca.Day
	default:
		return alpaca.GTC
	}
}

func statusOf(status string) orderv1.Status {
	switch status {
	case "new", "accepted", "pending_new":
		return orderv1.StatusAcknowledged
	case "partially_filled":
		return orderv1.StatusPartiallyFilled
	case "filled":
		return orderv1.StatusFilled
	case "canceled", "pending_cancel", "done_for_day":
		return orderv1.StatusCancelled
	case "rejected", "stopped", "suspended":
		return orderv1.StatusRejected
	case "expired":
		return orderv1.StatusExpired
	default:
		return orderv1.StatusAcknowledged
	}
}
