package exchangev1

import (
	"context"

	orderv1 "github.com/quantara/execution/internal/domain/order/v1"
)

//go:generate mockgen -source=interface.go -destination=mock/interface_mock.go -package=exchangev1_mock

// UpdateHandler consumes asynchronous order updates from a venue stream.
type UpdateHandler func(ctx context.Context, update OrderUpdate)

// Adapter translates the neutral order model into one venue's requests and
// responses, and maps that venue's error codes into the neutral taxonomy.
type Adapter interface {
	// Name returns the venue identifier orders reference in their
	// Exchange field (e.g. "BINANCE").
	Name() string
	// RateBudget returns the venue's documented request budget.
	RateBudget() RateBudget
	// SubmitOrder places the order on the venue, passing the client order
	// id as the venue-honored idempotency key.
	SubmitOrder(ctx context.Context, order *orderv1.Order) (*SubmitResult, error)
	// CancelOrder requests cancellation of a working order.
	CancelOrder(ctx context.Context, order *orderv1.Order) error
	// QueryOrder fetches the venue's authoritative view of the order.
	QueryOrder(ctx context.Context, order *orderv1.Order) (*OrderSnapshot, error)
	// SubscribeUpdates delivers asynchronous order updates to handler
	// until ctx is cancelled.
	SubscribeUpdates(ctx context.Context, handler UpdateHandler) error
}

// Gateway shields the pipeline from venue instability: per-venue token-bucket
// rate limiting (fail fast), bounded-backoff retry of transient errors and a
// circuit breaker. These are the only operations that block on network I/O.
type Gateway interface {
	Submit(ctx context.Context, order *orderv1.Order) (*SubmitResult, error)
	Cancel(ctx context.Context, order *orderv1.Order) error
	QueryStatus(ctx context.Context, order *orderv1.Order) (*OrderSnapshot, error)
}
