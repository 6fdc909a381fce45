package orderv1

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	// SideBuy buys the base asset.
	SideBuy Side = "BUY"
	// SideSell sells the base asset.
	SideSell Side = "SELL"
)

// Valid reports whether the side is a known value.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Sign returns +1 for BUY and -1 for SELL as a decimal multiplier.
func (s Side) Sign() decimal.Decimal {
	if s == SideSell {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// Type is the execution style of an order.
type Type string

const (
	TypeMarket     Type = "MARKET"
	TypeLimit      Type = "LIMIT"
	TypeStopLoss   Type = "STOP_LOSS"
	TypeStopLimit  Type = "STOP_LIMIT"
	TypeTakeProfit Type = "TAKE_PROFIT"
	TypeIceberg    Type = "ICEBERG"
	TypeTWAP       Type = "TWAP"
	TypeVWAP       Type = "VWAP"
)

// Valid reports whether the type is a known value.
func (t Type) Valid() bool {
	switch t {
	case TypeMarket, TypeLimit, TypeStopLoss, TypeStopLimit, TypeTakeProfit, TypeIceberg, TypeTWAP, TypeVWAP:
		return true
	}
	return false
}

// RequiresPrice reports whether the type needs a limit price.
func (t Type) RequiresPrice() bool {
	switch t {
	case TypeLimit, TypeStopLimit, TypeIceberg:
		return true
	}
	return false
}

// RequiresStopPrice reports whether the type needs a trigger price.
func (t Type) RequiresStopPrice() bool {
	switch t {
	case TypeStopLoss, TypeStopLimit, TypeTakeProfit:
		return true
	}
	return false
}

// TimeInForce controls how long an order stays working on the venue.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
	TimeInForceDay TimeInForce = "DAY"
)

// Valid reports whether the time in force is a known value.
func (t TimeInForce) Valid() bool {
	switch t {
	case TimeInForceGTC, TimeInForceIOC, TimeInForceFOK, TimeInForceDay:
		return true
	}
	return false
}

// Status is a stage in the order lifecycle.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusSubmitted       Status = "SUBMITTED"
	StatusAcknowledged    Status = "ACKNOWLEDGED"
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	StatusFilled          Status = "FILLED"
	StatusCancelled       Status = "CANCELLED"
	StatusRejected        Status = "REJECTED"
	StatusExpired         Status = "EXPIRED"
	StatusError           Status = "ERROR"
)

// IsTerminal reports whether the status ends the lifecycle. Terminal orders
// are immutable except for audit appends.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected, StatusExpired, StatusError:
		return true
	}
	return false
}

// transitions holds the legal forward edges of the lifecycle. Terminal
// statuses have no outgoing edges; status never regresses.
var transitions = map[Status][]Status{
	StatusPending:         {StatusSubmitted, StatusCancelled, StatusRejected, StatusExpired, StatusError},
	StatusSubmitted:       {StatusAcknowledged, StatusPartiallyFilled, StatusFilled, StatusCancelled, StatusRejected, StatusExpired, StatusError},
	StatusAcknowledged:    {StatusPartiallyFilled, StatusFilled, StatusCancelled, StatusRejected, StatusExpired, StatusError},
	StatusPartiallyFilled: {StatusFilled, StatusCancelled, StatusRejected, StatusExpired, StatusError},
}

// CanTransition reports whether moving from to next is a legal lifecycle edge.
func CanTransition(from, next Status) bool {
	for _, s := range transitions[from] {
		if s == next {
			return true
		}
	}
	return false
}

// UpdateSource identifies who caused a status transition.
type UpdateSource string

const (
	SourceExchange       UpdateSource = "EXCHANGE"
	SourceSystem         UpdateSource = "SYSTEM"
	SourceUser           UpdateSource = "USER"
	SourceRiskManagement UpdateSource = "RISK_MANAGEMENT"
)

// Liquidity marks whether a fill added or removed book liquidity.
type Liquidity string

const (
	LiquidityMaker Liquidity = "MAKER"
	LiquidityTaker Liquidity = "TAKER"
)

// Sentinel errors of the order lifecycle.
var (
	// ErrTerminal means the order already reached a terminal state and must
	// not be mutated again.
	ErrTerminal = errors.New("order is in a terminal state")
	// ErrInvalidTransition means the requested status change is not a legal
	// lifecycle edge.
	ErrInvalidTransition = errors.New("illegal order status transition")
	// ErrOverfill means a fill would push filled quantity past the requested
	// quantity.
	ErrOverfill = errors.New("fill exceeds remaining quantity")
	// ErrInvalidFill means the fill record itself is malformed.
	ErrInvalidFill = errors.New("invalid fill")
	// ErrNotCancellable means the order has already fully filled or ended.
	ErrNotCancellable = errors.New("order cannot be cancelled")
)

// Fill is a partial or complete execution reported by the venue. The venue
// trade id is the idempotency key for applying it.
type Fill struct {
	ID          string          `json:"id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Fee         decimal.Decimal `json:"fee"`
	FeeCurrency string          `json:"feeCurrency"`
	Liquidity   Liquidity       `json:"liquidity"`
	Timestamp   time.Time       `json:"timestamp"`
}

// StatusUpdate is one immutable audit record, appended per transition.
type StatusUpdate struct {
	PreviousStatus Status       `json:"previousStatus"`
	NewStatus      Status       `json:"newStatus"`
	Reason         string       `json:"reason"`
	Source         UpdateSource `json:"source"`
	ErrorCode      string       `json:"errorCode,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
}

// Order is one execution instruction tracked from admission to a terminal
// state. It exclusively owns its fills and its status audit trail. All
// mutation must be serialized per order id by the caller.
type Order struct {
	ID            string `json:"id"`
	ClientOrderID string `json:"clientOrderId"`
	PortfolioID   string `json:"portfolioId"`
	Symbol        string `json:"symbol"`
	Exchange      string `json:"exchange"`

	Side        Side        `json:"side"`
	Type        Type        `json:"type"`
	TimeInForce TimeInForce `json:"timeInForce"`

	Quantity decimal.Decimal `json:"quantity"`
	// Price is the limit price; zero when the type carries none.
	Price decimal.Decimal `json:"price"`
	// StopPrice is the trigger price; zero when the type carries none.
	StopPrice decimal.Decimal `json:"stopPrice"`
	// TakeProfitPrice is an optional target used for risk/reward gating.
	TakeProfitPrice decimal.Decimal `json:"takeProfitPrice"`

	Status          Status `json:"status"`
	ExchangeOrderID string `json:"exchangeOrderId"`

	FilledQuantity    decimal.Decimal `json:"filledQuantity"`
	RemainingQuantity decimal.Decimal `json:"remainingQuantity"`
	AverageFillPrice  decimal.Decimal `json:"averageFillPrice"`
	TotalFees         decimal.Decimal `json:"totalFees"`
	TotalValue        decimal.Decimal `json:"totalValue"`
	NetProceeds       decimal.Decimal `json:"netProceeds"`

	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	RetryCount   int    `json:"retryCount"`

	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`
	FirstFillAt    *time.Time `json:"firstFillAt,omitempty"`
	LastFillAt     *time.Time `json:"lastFillAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`

	Fills         []Fill         `json:"fills"`
	StatusUpdates []StatusUpdate `json:"statusUpdates"`

	completionEmitted bool
}

// NewOrderParams carries everything the validator needs to admit an order.
type NewOrderParams struct {
	ID              string
	ClientOrderID   string
	PortfolioID     string
	Symbol          string
	Exchange        string
	Side            Side
	Type            Type
	TimeInForce     TimeInForce
	Quantity        decimal.Decimal
	Price           decimal.Decimal
	StopPrice       decimal.Decimal
	TakeProfitPrice decimal.Decimal
}

// NewOrder creates a PENDING order with its first audit record.
func NewOrder(p NewOrderParams) *Order {
	now := time.Now().UTC()
	o := &Order{
		ID:                p.ID,
		ClientOrderID:     p.ClientOrderID,
		PortfolioID:       p.PortfolioID,
		Symbol:            p.Symbol,
		Exchange:          p.Exchange,
		Side:              p.Side,
		Type:              p.Type,
		TimeInForce:       p.TimeInForce,
		Quantity:          p.Quantity,
		Price:             p.Price,
		StopPrice:         p.StopPrice,
		TakeProfitPrice:   p.TakeProfitPrice,
		Status:            StatusPending,
		RemainingQuantity: p.Quantity,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	o.StatusUpdates = append(o.StatusUpdates, StatusUpdate{
		NewStatus: StatusPending,
		Reason:    "order accepted",
		Source:    SourceSystem,
		Timestamp: now,
	})
	return o
}

// IsTerminal reports whether the order reached a terminal state.
func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// IsCancellable reports whether a cancellation request makes sense for the
// current state. Fully filled and otherwise terminal orders are not
// cancellable.
func (o *Order) IsCancellable() bool {
	return !o.IsTerminal()
}

// HasFill reports whether a fill with the given id was already applied.
func (o *Order) HasFill(id string) bool {
	for _, f := range o.Fills {
		if f.ID == id {
			return true
		}
	}
	return false
}

// Transition moves the order to next, appending an audit record. Milestone
// timestamps are stamped on first arrival at the corresponding state.
// Transitions out of a terminal state and edges not in the lifecycle table
// are rejected.
func (o *Order) Transition(next Status, reason string, source UpdateSource, errorCode string) error {
	if o.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, o.ID, o.Status)
	}
	if !CanTransition(o.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.setStatus(next, reason, source, errorCode)
	return nil
}

// setStatus performs the bookkeeping shared by Transition and ApplyFill.
// Callers must have checked legality.
func (o *Order) setStatus(next Status, reason string, source UpdateSource, errorCode string) {
	now := time.Now().UTC()
	o.StatusUpdates = append(o.StatusUpdates, StatusUpdate{
		PreviousStatus: o.Status,
		NewStatus:      next,
		Reason:         reason,
		Source:         source,
		ErrorCode:      errorCode,
		Timestamp:      now,
	})
	o.Status = next
	o.UpdatedAt = now

	switch next {
	case StatusSubmitted:
		if o.SubmittedAt == nil {
			o.SubmittedAt = &now
		}
	case StatusAcknowledged:
		if o.AcknowledgedAt == nil {
			o.AcknowledgedAt = &now
		}
	}
	if next.IsTerminal() && o.CompletedAt == nil {
		o.CompletedAt = &now
	}
	if next == StatusRejected || next == StatusError {
		o.ErrorCode = errorCode
		o.ErrorMessage = reason
	}
}

// ApplyFill applies a venue fill idempotently. Redelivery of an already
// recorded fill id returns (false, nil) and changes nothing. The aggregates
// are recomputed from the full fill list; fill timestamps feed monotonic
// first/last watermarks, so out-of-order arrival converges to the same
// state. Returns (true, nil) when the fill was newly applied.
func (o *Order) ApplyFill(f Fill) (bool, error) {
	if f.ID == "" {
		return false, fmt.Errorf("%w: missing fill id", ErrInvalidFill)
	}
	if !f.Quantity.IsPositive() {
		return false, fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidFill, f.Quantity)
	}
	if o.HasFill(f.ID) {
		return false, nil
	}
	if o.IsTerminal() {
		return false, fmt.Errorf("%w: fill %s on order %s (%s)", ErrTerminal, f.ID, o.ID, o.Status)
	}
	if o.FilledQuantity.Add(f.Quantity).GreaterThan(o.Quantity) {
		return false, fmt.Errorf("%w: %s + %s > %s", ErrOverfill, o.FilledQuantity, f.Quantity, o.Quantity)
	}

	o.Fills = append(o.Fills, f)
	o.recomputeFillAggregates()

	if o.FirstFillAt == nil || f.Timestamp.Before(*o.FirstFillAt) {
		ts := f.Timestamp
		o.FirstFillAt = &ts
	}
	if o.LastFillAt == nil || f.Timestamp.After(*o.LastFillAt) {
		ts := f.Timestamp
		o.LastFillAt = &ts
	}

	if o.RemainingQuantity.IsZero() {
		o.finalizeTotals()
		o.setStatus(StatusFilled, "order fully filled", SourceExchange, "")
	} else if o.Status != StatusPartiallyFilled {
		o.setStatus(StatusPartiallyFilled, "partial fill received", SourceExchange, "")
	} else {
		o.UpdatedAt = time.Now().UTC()
	}
	return true, nil
}

// recomputeFillAggregates derives the fill aggregates from the full fill
// list: filledQuantity, remainingQuantity, averageFillPrice and totalFees.
func (o *Order) recomputeFillAggregates() {
	filled := decimal.Zero
	notional := decimal.Zero
	fees := decimal.Zero
	for _, f := range o.Fills {
		filled = filled.Add(f.Quantity)
		notional = notional.Add(f.Quantity.Mul(f.Price))
		fees = fees.Add(f.Fee)
	}
	o.FilledQuantity = filled
	o.RemainingQuantity = o.Quantity.Sub(filled)
	o.TotalFees = fees
	if filled.IsPositive() {
		o.AverageFillPrice = notional.Div(filled)
	}
}

// finalizeTotals computes the completion economics once the order is fully
// filled. Net proceeds are total cash out for a buy (value plus fees) and
// total cash in for a sell (value minus fees).
func (o *Order) finalizeTotals() {
	notional := decimal.Zero
	for _, f := range o.Fills {
		notional = notional.Add(f.Quantity.Mul(f.Price))
	}
	o.TotalValue = notional
	if o.Side == SideBuy {
		o.NetProceeds = notional.Add(o.TotalFees)
	} else {
		o.NetProceeds = notional.Sub(o.TotalFees)
	}
}

// MarkCompletionEmitted flips the completion guard and reports whether the
// caller won the right to publish the completion event. Exactly one caller
// per order observes true.
func (o *Order) MarkCompletionEmitted() bool {
	if o.completionEmitted {
		return false
	}
	o.completionEmitted = true
	return true
}

// CompletionEmitted reports whether the completion event was already
// published for this order.
func (o *Order) CompletionEmitted() bool {
	return o.completionEmitted
}
