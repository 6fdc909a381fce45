// Package order persists the order aggregate in PostgreSQL across three
// tables: an orders head row plus order_fills and order_status_updates child
// rows, see schema.sql. Fills are keyed by venue trade id so replays insert
// nothing, and the audit trail is append-only.
package order

import (
	"context"

	"github.com/jackc/pgx/v5"

	orderv1 "github.com/quantara/execution/internal/domain/order/v1"
	"github.com/quantara/execution/pkg/errors"
	"github.com/quantara/execution/pkg/logger"
	"github.com/quantara/execution/pkg/postgres"
)

const headColumns = `id, client_order_id, portfolio_id, symbol, exchange, side, type, time_in_force,
	quantity, price, stop_price, take_profit_price, status, exchange_order_id,
	filled_quantity, remaining_quantity, average_fill_price, total_fees, total_value, net_proceeds,
	error_code, error_message, retry_count,
	created_at, updated_at, submitted_at, acknowledged_at, first_fill_at, last_fill_at, completed_at`

const upsertOrderQuery = `INSERT INTO orders (` + headColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	exchange_order_id = EXCLUDED.exchange_order_id,
	filled_quantity = EXCLUDED.filled_quantity,
	remaining_quantity = EXCLUDED.remaining_quantity,
	average_fill_price = EXCLUDED.average_fill_price,
	total_fees = EXCLUDED.total_fees,
	total_value = EXCLUDED.total_value,
	net_proceeds = EXCLUDED.net_proceeds,
	error_code = EXCLUDED.error_code,
	error_message = EXCLUDED.error_message,
	retry_count = EXCLUDED.retry_count,
	updated_at = EXCLUDED.updated_at,
	submitted_at = EXCLUDED.submitted_at,
	acknowledged_at = EXCLUDED.acknowledged_at,
	first_fill_at = EXCLUDED.first_fill_at,
	last_fill_at = EXCLUDED.last_fill_at,
	completed_at = EXCLUDED.completed_at`

const findByClientOrderIDQuery = `SELECT ` + headColumns + ` FROM orders WHERE client_order_id = $1`

const findByExchangeOrderIDQuery = `SELECT ` + headColumns + ` FROM orders WHERE exchange = $1 AND exchange_order_id = $2`

const listActiveQuery = `SELECT ` + headColumns + ` FROM orders WHERE status = ANY($1) ORDER BY created_at`

const insertFillQuery = `INSERT INTO order_fills (order_id, fill_id, quantity, price, fee, fee_currency, liquidity, filled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (order_id, fill_id) DO NOTHING`

const selectFillsQuery = `SELECT fill_id, quantity, price, fee, fee_currency, liquidity, filled_at
FROM order_fills WHERE order_id = $1 ORDER BY filled_at, fill_id`

const insertStatusUpdateQuery = `INSERT INTO order_status_updates (order_id, previous_status, new_status, reason, source, error_code, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const selectStatusUpdatesQuery = `SELECT previous_status, new_status, reason, source, error_code, occurred_at
FROM order_status_updates WHERE order_id = $1 ORDER BY id`

// activeStatuses are the lifecycle states ListActive reloads after a restart.
var activeStatuses = []string{
	string(orderv1.StatusPending),
	string(orderv1.StatusSubmitted),
	string(orderv1.StatusAcknowledged),
	string(orderv1.StatusPartiallyFilled),
}

type repository struct {
	db     postgres.Client
	logger logger.Interface
}

var _ orderv1.Repository = (*repository)(nil)

// NewRepository creates a new order repository.
func NewRepository(db postgres.Client, logger logger.Interface) *repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

// Save upserts the order head row.
func (r *repository) Save(ctx context.Context, order *orderv1.Order) error {
	_, err := r.db.Exec(ctx, upsertOrderQuery, headArgs(order)...)
	if err != nil {
		return errors.TracerFromError(err)
	}

	r.logger.InfoContext(ctx, "order saved", logger.Field{
		Key:   "order_id",
		Value: order.ID,
	}, logger.Field{
		Key:   "client_order_id",
		Value: order.ClientOrderID,
	}, logger.Field{
		Key:   "status",
		Value: string(order.Status),
	})

	return nil
}

// RecordFill upserts the head row and appends the fill in one transaction.
// The fill insert is keyed by (order_id, fill_id), so recording a replayed
// fill only refreshes the head row.
func (r *repository) RecordFill(ctx context.Context, order *orderv1.Order, fill orderv1.Fill) error {
	err := postgres.WithTx(ctx, r.db, func(ctx context.Context) error {
		if _, err := r.db.Exec(ctx, upsertOrderQuery, headArgs(order)...); err != nil {
			return err
		}
		_, err := r.db.Exec(ctx, insertFillQuery,
			order.ID,
			fill.ID,
			fill.Quantity,
			fill.Price,
			fill.Fee,
			fill.FeeCurrency,
			fill.Liquidity,
			fill.Timestamp,
		)
		return err
	})
	if err != nil {
		return errors.TracerFromError(err)
	}

	r.logger.DebugContext(ctx, "fill recorded", logger.Field{
		Key:   "order_id",
		Value: order.ID,
	}, logger.Field{
		Key:   "fill_id",
		Value: fill.ID,
	})

	return nil
}

// RecordStatus upserts the head row and appends the audit record in one
// transaction.
func (r *repository) RecordStatus(ctx context.Context, order *orderv1.Order, update orderv1.StatusUpdate) error {
	err := postgres.WithTx(ctx, r.db, func(ctx context.Context) error {
		if _, err := r.db.Exec(ctx, upsertOrderQuery, headArgs(order)...); err != nil {
			return err
		}
		_, err := r.db.Exec(ctx, insertStatusUpdateQuery,
			order.ID,
			update.PreviousStatus,
			update.NewStatus,
			update.Reason,
			update.Source,
			update.ErrorCode,
			update.Timestamp,
		)
		return err
	})
	if err != nil {
		return errors.TracerFromError(err)
	}

	return nil
}

// FindByClientOrderID loads an order aggregate by its idempotency key.
// Returns (nil, nil) when no order matches.
func (r *repository) FindByClientOrderID(ctx context.Context, clientOrderID string) (*orderv1.Order, error) {
	order := &orderv1.Order{}
	err := scanHead(r.db.QueryRow(ctx, findByClientOrderIDQuery, clientOrderID), order)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.TracerFromError(err)
	}

	if err := r.hydrate(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// FindByExchangeOrderID loads an order aggregate by venue assigned id.
// Returns (nil, nil) when no order matches.
func (r *repository) FindByExchangeOrderID(ctx context.Context, exchange, exchangeOrderID string) (*orderv1.Order, error) {
	order := &orderv1.Order{}
	err := scanHead(r.db.QueryRow(ctx, findByExchangeOrderIDQuery, exchange, exchangeOrderID), order)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.TracerFromError(err)
	}

	if err := r.hydrate(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// ListActive loads every order not yet in a terminal state, oldest first.
func (r *repository) ListActive(ctx context.Context) ([]*orderv1.Order, error) {
	rows, err := r.db.Query(ctx, listActiveQuery, activeStatuses)
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	defer rows.Close()

	orders := []*orderv1.Order{}
	for rows.Next() {
		order := &orderv1.Order{}
		if err := scanHead(rows, order); err != nil {
			return nil, errors.TracerFromError(err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.TracerFromError(err)
	}

	for _, order := range orders {
		if err := r.hydrate(ctx, order); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// hydrate loads the child rows of a head row that was already scanned.
func (r *repository) hydrate(ctx context.Context, order *orderv1.Order) error {
	if err := r.loadFills(ctx, order); err != nil {
		return err
	}
	if err := r.loadStatusUpdates(ctx, order); err != nil {
		return err
	}

	// A FILLED row was completed before it was persisted; a rehydrated
	// aggregate must not win the completion publish a second time.
	if order.Status == orderv1.StatusFilled {
		order.MarkCompletionEmitted()
	}

	return nil
}

func (r *repository) loadFills(ctx context.Context, order *orderv1.Order) error {
	rows, err := r.db.Query(ctx, selectFillsQuery, order.ID)
	if err != nil {
		return errors.TracerFromError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var fill orderv1.Fill
		err := rows.Scan(
			&fill.ID,
			&fill.Quantity,
			&fill.Price,
			&fill.Fee,
			&fill.FeeCurrency,
			&fill.Liquidity,
			&fill.Timestamp,
		)
		if err != nil {
			return errors.TracerFromError(err)
		}
		order.Fills = append(order.Fills, fill)
	}
	if err := rows.Err(); err != nil {
		return errors.TracerFromError(err)
	}

	return nil
}

func (r *repository) loadStatusUpdates(ctx context.Context, order *orderv1.Order) error {
	rows, err := r.db.Query(ctx, selectStatusUpdatesQuery, order.ID)
	if err != nil {
		return errors.TracerFromError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var update orderv1.StatusUpdate
		err := rows.Scan(
			&update.PreviousStatus,
			&update.NewStatus,
			&update.Reason,
			&update.Source,
			&update.ErrorCode,
			&update.Timestamp,
		)
		if err != nil {
			return errors.TracerFromError(err)
		}
		order.StatusUpdates = append(order.StatusUpdates, update)
	}
	if err := rows.Err(); err != nil {
		return errors.TracerFromError(err)
	}

	return nil
}

// scanner covers pgx.Row and postgres.RowsInterface.
type scanner interface {
	Scan(dest ...any) error
}

// scanHead reads one head row in headColumns order.
func scanHead(row scanner, o *orderv1.Order) error {
	return row.Scan(
		&o.ID,
		&o.ClientOrderID,
		&o.PortfolioID,
		&o.Symbol,
		&o.Exchange,
		&o.Side,
		&o.Type,
		&o.TimeInForce,
		&o.Quantity,
		&o.Price,
		&o.StopPrice,
		&o.TakeProfitPrice,
		&o.Status,
		&o.ExchangeOrderID,
		&o.FilledQuantity,
		&o.RemainingQuantity,
		&o.AverageFillPrice,
		&o.TotalFees,
		&o.TotalValue,
		&o.NetProceeds,
		&o.ErrorCode,
		&o.ErrorMessage,
		&o.RetryCount,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.SubmittedAt,
		&o.AcknowledgedAt,
		&o.FirstFillAt,
		&o.LastFillAt,
		&o.CompletedAt,
	)
}

// headArgs lists the head row values in headColumns order.
func headArgs(o *orderv1.Order) []any {
	return []any{
		o.ID,
		o.ClientOrderID,
		o.PortfolioID,
		o.Symbol,
		o.Exchange,
		o.Side,
		o.Type,
		o.TimeInForce,
		o.Quantity,
		o.Price,
		o.StopPrice,
		o.TakeProfitPrice,
		o.Status,
		o.ExchangeOrderID,
		o.FilledQuantity,
		o.RemainingQuantity,
		o.AverageFillPrice,
		o.TotalFees,
		o.TotalValue,
		o.NetProceeds,
		o.ErrorCode,
		o.ErrorMessage,
		o.RetryCount,
		o.CreatedAt,
		o.UpdatedAt,
		o.SubmittedAt,
		o.AcknowledgedAt,
		o.FirstFillAt,
		o.LastFillAt,
		o.CompletedAt,
	}
}
