package exchangev1

import (
	"time"

	orderv1 "github.com/quantara/execution/internal/domain/order/v1"
	"github.com/shopspring/decimal"
)

// RateBudget declares a venue's documented request budget: Tokens calls per
// RefillInterval. The gateway sizes the venue's token bucket from it.
type RateBudget struct {
	Tokens         int
	RefillInterval time.Duration
}

// SubmitResult is the venue's answer to an order submission.
type SubmitResult struct {
	ExchangeOrderID string
	Status          orderv1.Status
	// Fills carries executions the venue reported inline with the
	// submission response; market orders often fill before the response
	// returns.
	Fills []orderv1.Fill
	// Resolved marks a result obtained by querying an already existing
	// order after venue-side duplicate detection, rather than by creating
	// a new one.
	Resolved bool
}

// OrderSnapshot is the venue's authoritative view of one order, returned by
// status queries and used for reconciliation.
type OrderSnapshot struct {
	ExchangeOrderID  string
	ClientOrderID    string
	Status           orderv1.Status
	FilledQuantity   decimal.Decimal
	AverageFillPrice decimal.Decimal
	AsOf             time.Time
}

// OrderUpdate is an asynchronous lifecycle notification delivered by a
// venue's update stream: acknowledgements, fills, cancellations, rejections
// and expiries. Fill is set only when the update carries an execution.
type OrderUpdate struct {
	Exchange        string
	ExchangeOrderID string
	ClientOrderID   string
	Symbol          string
	Status          orderv1.Status
	Fill            *orderv1.Fill
	Reason          string
	ErrorCode       string
	Timestamp       time.Time
}
