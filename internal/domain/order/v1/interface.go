package orderv1

import (
	"context"
)

//go:generate mockgen -source=interface.go -destination=mock/interface_mock.go -package=orderv1_mock

// Repository persists the order aggregate: the head row plus its fills and
// status audit trail. Lookups return (nil, nil) when nothing matches.
type Repository interface {
	// Save upserts the order head row.
	Save(ctx context.Context, order *Order) error
	// RecordFill atomically upserts the head row and appends the fill.
	RecordFill(ctx context.Context, order *Order, fill Fill) error
	// RecordStatus atomically upserts the head row and appends the audit record.
	RecordStatus(ctx context.Context, order *Order, update StatusUpdate) error
	// FindByClientOrderID loads an order aggregate by its idempotency key.
	FindByClientOrderID(ctx context.Context, clientOrderID string) (*Order, error)
	// FindByExchangeOrderID loads an order aggregate by venue assigned id.
	FindByExchangeOrderID(ctx context.Context, exchange, exchangeOrderID string) (*Order, error)
	// ListActive loads every order not yet in a terminal state.
	ListActive(ctx context.Context) ([]*Order, error)
}
