// Package eventv1 defines the payloads exchanged over the event log. All
// money fields are decimals and marshal as quoted strings.
package eventv1

import (
	"time"

	"github.com/shopspring/decimal"

	orderv1 "github.com/quantara/execution/internal/domain/order/v1"
	portfoliov1 "github.com/quantara/execution/internal/domain/portfolio/v1"
)

// PortfolioEventType tags portfolio-events messages.
type PortfolioEventType string

const (
	PortfolioCreated PortfolioEventType = "PORTFOLIO_CREATED"
	PortfolioUpdated PortfolioEventType = "PORTFOLIO_UPDATED"
	PortfolioClosed  PortfolioEventType = "PORTFOLIO_CLOSED"
)

// UrgencyLevel hints how aggressively the strategy wants the order worked.
// It is carried through for audit; execution treats all orders the same.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "LOW"
	UrgencyMedium   UrgencyLevel = "MEDIUM"
	UrgencyHigh     UrgencyLevel = "HIGH"
	UrgencyCritical UrgencyLevel = "CRITICAL"
)

// ExecutionOrderRequest is one message on the execution-orders topic. The
// strategy execution id doubles as the client order id, making redelivery
// and duplicate submission detectable end to end.
type ExecutionOrderRequest struct {
	StrategyExecutionID string              `json:"strategyExecutionId"`
	PortfolioID         string              `json:"portfolioId"`
	Symbol              string              `json:"symbol"`
	Exchange            string              `json:"exchange"`
	Side                orderv1.Side        `json:"side"`
	Type                orderv1.Type        `json:"type"`
	TimeInForce         orderv1.TimeInForce `json:"timeInForce"`
	Quantity            decimal.Decimal     `json:"quantity"`
	Price               decimal.Decimal     `json:"price"`
	StopPrice           decimal.Decimal     `json:"stopPrice"`
	TakeProfitPrice     decimal.Decimal     `json:"takeProfitPrice"`
	UrgencyLevel        UrgencyLevel        `json:"urgencyLevel"`
	Reason              string              `json:"reason"`
	Timestamp           time.Time           `json:"timestamp"`
}

// PriceUpdate is one message on the price-updates topic. An empty exchange
// marks the symbol on every venue.
type PriceUpdate struct {
	Symbol    string          `json:"symbol"`
	Exchange  string          `json:"exchange,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// OrderStatusEvent is one message on the order-status-updates topic, emitted
// on every lifecycle transition.
type OrderStatusEvent struct {
	OrderID        string          `json:"orderId"`
	ClientOrderID  string          `json:"clientOrderId"`
	PortfolioID    string          `json:"portfolioId"`
	Symbol         string          `json:"symbol"`
	Exchange       string          `json:"exchange"`
	Side           orderv1.Side    `json:"side"`
	PreviousStatus orderv1.Status  `json:"previousStatus"`
	Status         orderv1.Status  `json:"status"`
	Quantity       decimal.Decimal `json:"quantity"`
	FilledQuantity decimal.Decimal `json:"filledQuantity"`
	Reason         string          `json:"reason,omitempty"`
	ErrorCode      string          `json:"errorCode,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// OrderFillEvent is one message on the order-fills topic, emitted per
// recorded fill. FillID is the venue trade id and dedup key.
type OrderFillEvent struct {
	OrderID       string            `json:"orderId"`
	ClientOrderID string            `json:"clientOrderId"`
	PortfolioID   string            `json:"portfolioId"`
	FillID        string            `json:"fillId"`
	Symbol        string            `json:"symbol"`
	Exchange      string            `json:"exchange"`
	Side          orderv1.Side      `json:"side"`
	Quantity      decimal.Decimal   `json:"quantity"`
	Price         decimal.Decimal   `json:"price"`
	Fee           decimal.Decimal   `json:"fee"`
	FeeCurrency   string            `json:"feeCurrency,omitempty"`
	Liquidity     orderv1.Liquidity `json:"liquidity,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// OrderCompletionEvent is one message on the order-completions topic,
// emitted exactly once when an order reaches FILLED.
type OrderCompletionEvent struct {
	OrderID        string          `json:"orderId"`
	ClientOrderID  string          `json:"clientOrderId"`
	PortfolioID    string          `json:"portfolioId"`
	Symbol         string          `json:"symbol"`
	Exchange       string          `json:"exchange"`
	Side           orderv1.Side    `json:"side"`
	TotalQuantity  decimal.Decimal `json:"totalQuantity"`
	FilledQuantity decimal.Decimal `json:"filledQuantity"`
	AveragePrice   decimal.Decimal `json:"averagePrice"`
	TotalValue     decimal.Decimal `json:"totalValue"`
	TotalFees      decimal.Decimal `json:"totalFees"`
	NetProceeds    decimal.Decimal `json:"netProceeds"`
	CompletedAt    time.Time       `json:"completedAt"`
}

// PortfolioEvent is one message on the portfolio-events topic, emitted on
// portfolio creation, every revaluation and closure.
type PortfolioEvent struct {
	EventType      PortfolioEventType `json:"eventType"`
	PortfolioID    string             `json:"portfolioId"`
	TotalValue     decimal.Decimal    `json:"totalValue"`
	AvailableCash  decimal.Decimal    `json:"availableCash"`
	PositionsValue decimal.Decimal    `json:"positionsValue"`
	RealizedPnl    decimal.Decimal    `json:"realizedPnl"`
	UnrealizedPnl  decimal.Decimal    `json:"unrealizedPnl"`
	TotalPnl       decimal.Decimal    `json:"totalPnl"`
	TotalReturnPct decimal.Decimal    `json:"totalReturnPct"`
	Healthy        bool               `json:"healthy"`
	Timestamp      time.Time          `json:"timestamp"`
}

// NewStatusEvent maps an order transition to its outbound event.
func NewStatusEvent(order *orderv1.Order, update orderv1.StatusUpdate) *OrderStatusEvent {
	return &OrderStatusEvent{
		OrderID:        order.ID,
		ClientOrderID:  order.ClientOrderID,
		PortfolioID:    order.PortfolioID,
		Symbol:         order.Symbol,
		Exchange:       order.Exchange,
		Side:           order.Side,
		PreviousStatus: update.PreviousStatus,
		Status:         update.NewStatus,
		Quantity:       order.Quantity,
		FilledQuantity: order.FilledQuantity,
		Reason:         update.Reason,
		ErrorCode:      update.ErrorCode,
		Timestamp:      update.Timestamp,
	}
}

// NewFillEvent maps a recorded fill to its outbound event.
func NewFillEvent(order *orderv1.Order, fill orderv1.Fill) *OrderFillEvent {
	return &OrderFillEvent{
		OrderID:       order.ID,
		ClientOrderID: order.ClientOrderID,
		PortfolioID:   order.PortfolioID,
		FillID:        fill.ID,
		Symbol:        order.Symbol,
		Exchange:      order.Exchange,
		Side:          order.Side,
		Quantity:      fill.Quantity,
		Price:         fill.Price,
		Fee:           fill.Fee,
		FeeCurrency:   fill.FeeCurrency,
		Liquidity:     fill.Liquidity,
		Timestamp:     fill.Timestamp,
	}
}

// NewCompletionEvent maps a fully filled order to its completion event.
func NewCompletionEvent(order *orderv1.Order) *OrderCompletionEvent {
	completedAt := time.Now().UTC()
	if order.CompletedAt != nil {
		completedAt = *order.CompletedAt
	}
	return &OrderCompletionEvent{
		OrderID:        order.ID,
		ClientOrderID:  order.ClientOrderID,
		PortfolioID:    order.PortfolioID,
		Symbol:         order.Symbol,
		Exchange:       order.Exchange,
		Side:           order.Side,
		TotalQuantity:  order.Quantity,
		FilledQuantity: order.FilledQuantity,
		AveragePrice:   order.AverageFillPrice,
		TotalValue:     order.TotalValue,
		TotalFees:      order.TotalFees,
		NetProceeds:    order.NetProceeds,
		CompletedAt:    completedAt,
	}
}

// NewPortfolioEvent maps a valuation snapshot to its outbound event.
func NewPortfolioEvent(eventType PortfolioEventType, snap portfoliov1.Snapshot, healthy bool) *PortfolioEvent {
	return &PortfolioEvent{
		EventType:      eventType,
		PortfolioID:    snap.PortfolioID,
		TotalValue:     snap.TotalValue,
		AvailableCash:  snap.AvailableCash,
		PositionsValue: snap.PositionsValue,
		RealizedPnl:    snap.RealizedPnl,
		UnrealizedPnl:  snap.UnrealizedPnl,
		TotalPnl:       snap.TotalPnl,
		TotalReturnPct: snap.TotalReturnPct,
		Healthy:        healthy,
		Timestamp:      snap.CreatedAt,
	}
}
