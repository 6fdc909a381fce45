// Package binance adapts the neutral order model to the Binance spot API.
package binance

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"

	exchangev1 "github.com/quantara/execution/internal/domain/exchange/v1"
	orderv1 "github.com/quantara/execution/internal/domain/order/v1"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/logger"
)

// VenueName is the exchange identifier orders carry to route here.
const VenueName = "BINANCE"

// listenKeyKeepAlive is well inside Binance's 60 minute listen key expiry.
const listenKeyKeepAlive = 30 * time.Minute

// Adapter implements exchangev1.Adapter against the Binance spot API. The
// client order id is passed as newClientOrderId, which Binance honors as the
// duplicate-detection key.
type Adapter struct {
	client *binance.Client
	cfg    config.BinanceConfig
	logger logger.Interface
}

var _ exchangev1.Adapter = (*Adapter)(nil)

// NewAdapter creates a Binance spot adapter.
func NewAdapter(cfg config.BinanceConfig, log logger.Interface) *Adapter {
	binance.UseTestnet = cfg.Testnet
	return &Adapter{
		client: binance.NewClient(cfg.APIKey, cfg.APISecret),
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

// SubmitOrder places the order. Market orders often return their fills
// inline with the response; those are carried on the result.
func (a *Adapter) SubmitOrder(ctx context.Context, order *orderv1.Order) (*exchangev1.SubmitResult, error) {
	svc := a.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(sideOf(order.Side)).
		Quantity(order.Quantity.String()).
		NewClientOrderID(order.ClientOrderID).
		NewOrderRespType(binance.NewOrderRespTypeFULL)

	orderType, err := typeOf(order.Type)
	if err != nil {
		return nil, err
	}
	svc = svc.Type(orderType)

	if order.Type != orderv1.TypeMarket {
		svc = svc.TimeInForce(timeInForceOf(order.TimeInForce))
	}
	if order.Price.IsPositive() {
		svc = svc.Price(order.Price.String())
	}
	if order.StopPrice.IsPositive() {
		svc = svc.StopPrice(order.StopPrice.String())
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return nil, a.mapError(err, "SubmitOrder")
	}

	result := &exchangev1.SubmitResult{
		ExchangeOrderID: strconv.FormatInt(res.OrderID, 10),
		Status:          statusOf(string(res.Status)),
	}
	transactedAt := time.UnixMilli(res.TransactTime).UTC()
	for _, f := range res.Fills {
		result.Fills = append(result.Fills, orderv1.Fill{
			ID:          strconv.FormatInt(f.TradeID, 10),
			Quantity:    mustDecimal(f.Quantity),
			Price:       mustDecimal(f.Price),
			Fee:         mustDecimal(f.Commission),
			FeeCurrency: f.CommissionAsset,
			Liquidity:   orderv1.LiquidityTaker,
			Timestamp:   transactedAt,
		})
	}
	return result, nil
}

// CancelOrder cancels a working order by its client order id.
func (a *Adapter) CancelOrder(ctx context.Context, order *orderv1.Order) error {
	_, err := a.client.NewCancelOrderService().
		Symbol(order.Symbol).
		OrigClientOrderID(order.ClientOrderID).
		Do(ctx)
	if err != nil {
		return a.mapError(err, "CancelOrder")
	}
	return nil
}

// QueryOrder fetches the venue's authoritative view by client order id.
func (a *Adapter) QueryOrder(ctx context.Context, order *orderv1.Order) (*exchangev1.OrderSnapshot, error) {
	res, err := a.client.NewGetOrderService().
		Symbol(order.Symbol).
		OrigClientOrderID(order.ClientOrderID).
		Do(ctx)
	if err != nil {
		return nil, a.mapError(err, "QueryOrder")
	}

	executed := mustDecimal(res.ExecutedQuantity)
	avgPrice := decimal.Zero
	if executed.IsPositive() {
		avgPrice = mustDecimal(res.CummulativeQuoteQuantity).Div(executed)
	}
	return &exchangev1.OrderSnapshot{
		ExchangeOrderID:  strconv.FormatInt(res.OrderID, 10),
		ClientOrderID:    res.ClientOrderID,
		Status:           statusOf(string(res.Status)),
		FilledQuantity:   executed,
		AverageFillPrice: avgPrice,
		AsOf:             time.UnixMilli(res.UpdateTime).UTC(),
	}, nil
}

// SubscribeUpdates streams user-data execution reports to handler until ctx
// ends, reconnecting after stream failures. The listen key is refreshed well
// inside its expiry.
func (a *Adapter) SubscribeUpdates(ctx context.Context, handler exchangev1.UpdateHandler) error {
	for {
		if err := a.streamOnce(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.WarnContext(ctx, "user data stream interrupted, reconnecting",
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

func (a *Adapter) streamOnce(ctx context.Context, handler exchangev1.UpdateHandler) error {
	listenKey, err := a.client.NewStartUserStreamService().Do(ctx)
	if err != nil {
		return a.mapError(err, "StartUserStream")
	}
	defer func() {
		_ = a.client.NewCloseUserStreamService().ListenKey(listenKey).Do(context.Background())
	}()

	streamErr := make(chan error, 1)
	doneC, stopC, err := binance.WsUserDataServe(listenKey,
		func(event *binance.WsUserDataEvent) {
			if event.Event != binance.UserDataEventTypeExecutionReport {
				return
			}
			handler(ctx, a.toOrderUpdate(event.OrderUpdate))
		},
		func(err error) {
			select {
			case streamErr <- err:
			default:
			}
		},
	)
	if err != nil {
		return err
	}

	keepAlive := time.NewTicker(listenKeyKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			close(stopC)
			<-doneC
			return ctx.Err()
		case <-doneC:
			return stderrors.New("user data stream closed")
		case err := <-streamErr:
			close(stopC)
			<-doneC
			return err
		case <-keepAlive.C:
			if err := a.client.NewKeepaliveUserStreamService().ListenKey(listenKey).Do(ctx); err != nil {
				a.logger.WarnContext(ctx, "listen key keepalive failed",
					logger.Field{Key: "venue", Value: VenueName},
					logger.Field{Key: "error", Value: err.Error()},
				)
			}
		}
	}
}

// toOrderUpdate maps one execution report to the neutral update. TRADE
// reports carry the executed fill keyed by the venue trade id.
func (a *Adapter) toOrderUpdate(report binance.WsOrderUpdate) exchangev1.OrderUpdate {
	update := exchangev1.OrderUpdate{
		Exchange:        VenueName,
		ExchangeOrderID: strconv.FormatInt(report.Id, 10),
		ClientOrderID:   report.ClientOrderId,
		Symbol:          report.Symbol,
		Status:          statusOf(report.Status),
		Reason:          report.RejectReason,
		Timestamp:       time.UnixMilli(report.TransactionTime).UTC(),
	}
	if report.ClientOrderId == "" {
		// Cancellations report the original id in a separate field.
		update.ClientOrderID = report.OrigCustomOrderId
	}

	if report.ExecutionType == "TRADE" {
		quantity := mustDecimal(report.LatestVolume)
		if quantity.IsPositive() {
			liquidity := orderv1.LiquidityTaker
			if report.IsMaker {
				liquidity = orderv1.LiquidityMaker
			}
			update.Fill = &orderv1.Fill{
				ID:          strconv.FormatInt(report.TradeId, 10),
				Quantity:    quantity,
				Price:       mustDecimal(report.LatestPrice),
				Fee:         mustDecimal(report.FeeCost),
				FeeCurrency: report.FeeAsset,
				Liquidity:   liquidity,
				Timestamp:   time.UnixMilli(report.TransactionTime).UTC(),
			}
		}
	}
	return update
}

// mapError classifies a Binance failure into the neutral taxonomy.
func (a *Adapter) mapError(err error, operation string) error {
	var apiErr *common.APIError
	if stderrors.As(err, &apiErr) {
		code := strconv.FormatInt(apiErr.Code, 10)
		switch apiErr.Code {
		case -1003, -1021:
			// Throttled or outside the recv window; both clear on retry.
			return exchangev1.NewTransient(VenueName, code, apiErr.Message, err)
		case -1000, -1001, -1006, -1007:
			return exchangev1.NewTransient(VenueName, code, apiErr.Message, err)
		case -2010:
			if strings.Contains(strings.ToLower(apiErr.Message), "duplicate") {
				return exchangev1.NewDuplicate(VenueName, code, apiErr.Message, err)
			}
			return exchangev1.NewRejection(VenueName, code, apiErr.Message, err)
		case -2011, -2013:
			return exchangev1.NewUnknownOrder(VenueName, code, apiErr.Message, err)
		}
		if apiErr.Code >= 500 && apiErr.Code < 600 {
			return exchangev1.NewTransient(VenueName, code, apiErr.Message, err)
		}
		a.logger.Warn("unmapped venue error treated as rejection",
			logger.Field{Key: "venue", Value: VenueName},
			logger.Field{Key: "operation", Value: operation},
			logger.Field{Key: "code", Value: apiErr.Code},
			logger.Field{Key: "message", Value: apiErr.Message},
		)
		return exchangev1.NewRejection(VenueName, code, apiErr.Message, err)
	}

	if stderrors.Is(err, context.Canceled) {
		return err
	}
	// Timeouts and connection failures reach here without an API code.
	return exchangev1.NewTransient(VenueName, "", err.Error(), err)
}

func sideOf(side orderv1.Side) binance.SideType {
	if side == orderv1.SideSell {
		return binance.SideTypeSell
	}
	return binance.SideTypeBuy
}

func typeOf(orderType orderv1.Type) (binance.OrderType, error) {
	switch orderType {
	case orderv1.TypeMarket:
		return binance.OrderTypeMarket, nil
	case orderv1.TypeLimit, orderv1.TypeIceberg:
		return binance.OrderTypeLimit, nil
	case orderv1.TypeStopLoss:
		return binance.OrderTypeStopLoss, nil
	case orderv1.TypeStopLimit:
		return binance.OrderTypeStopLossLimit, nil
	case orderv1.TypeTakeProfit:
		return binance.OrderTypeTakeProfit, nil
	default:
		return "", exchangev1.NewRejection(VenueName, "", "order type not supported on this venue: "+string(orderType), nil)
	}
}

func timeInForceOf(tif orderv1.TimeInForce) binance.TimeInForceType {
	switch tif {
	case orderv1.TimeInForceIOC:
		return binance.TimeInForceTypeIOC
	case orderv1.TimeInForceFOK:
		return binance.TimeInForceTypeFOK
	default:
		return binance.TimeInForceTypeGTC
	}
}

func statusOf(status string) orderv1.Status {
	switch status {
	case "NEW":
		return orderv1.StatusAcknowledged
	case "PARTIALLY_FILLED":
		return orderv1.StatusPartiallyFilled
	case "FILLED":
		return orderv1.StatusFilled
	case "CANCELED", "PENDING_CANCEL":
		return orderv1.StatusCancelled
	case "REJECTED":
		return orderv1.StatusRejected
	case "EXPIRED", "EXPIRED_IN_MATCH":
		return orderv1.StatusExpired
	default:
		return orderv1.StatusAcknowledged
	}
}

func mustDecimal(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}
