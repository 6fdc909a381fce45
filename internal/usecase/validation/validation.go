// Package validation admits execution requests into the pipeline. Structural
// checks and pre-trade risk gates run synchronously before any venue
// interaction; a request either becomes a PENDING order or is rejected with
// a typed reason and no order is created.
package validation

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	eventv1 "github.com/quantara/execution/internal/domain/event/v1"
	orderv1 "github.com/quantara/execution/internal/domain/order/v1"
	portfoliov1 "github.com/quantara/execution/internal/domain/portfolio/v1"
	positionv1 "github.com/quantara/execution/internal/domain/position/v1"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/errors"
	"github.com/quantara/execution/pkg/logger"
)

// Rejection is a typed refusal. VALIDATION_FAILED marks structural problems,
// RISK_CHECK_FAILED a breached pre-trade limit. Neither creates an order.
type Rejection struct {
	Code   errors.ErrorCode
	Reason string
}

func (r *Rejection) String() string {
	return string(r.Code) + ": " + r.Reason
}

func reject(code errors.ErrorCode, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Validator checks execution requests against structural rules and the
// owning portfolio's risk limits. All checks are local CPU work; market
// orders price their risk from the ledger's last known price.
type Validator struct {
	cfg      config.RiskConfig
	ledger   positionv1.Ledger
	valuator portfoliov1.Valuator
	logger   logger.Interface
}

// NewValidator creates a validator gated by the given risk configuration.
func NewValidator(cfg config.RiskConfig, ledger positionv1.Ledger, valuator portfoliov1.Valuator, logger logger.Interface) *Validator {
	return &Validator{
		cfg:      cfg,
		ledger:   ledger,
		valuator: valuator,
		logger:   logger,
	}
}

// Validate admits a request. On success it returns a PENDING order carrying
// the strategy execution id as its client order id; otherwise the typed
// rejection.
func (v *Validator) Validate(ctx context.Context, req *eventv1.ExecutionOrderRequest) (*orderv1.Order, *Rejection) {
	if rej := v.checkStructure(req); rej != nil {
		v.logger.DebugContext(ctx, "execution request rejected",
			logger.Field{Key: "code", Value: rej.Code},
			logger.Field{Key: "reason", Value: rej.Reason},
		)
		return nil, rej
	}
	if rej := v.checkRisk(ctx, req); rej != nil {
		v.logger.DebugContext(ctx, "execution request rejected",
			logger.Field{Key: "code", Value: rej.Code},
			logger.Field{Key: "reason", Value: rej.Reason},
		)
		return nil, rej
	}

	tif := req.TimeInForce
	if tif == "" {
		tif = orderv1.TimeInForceGTC
	}
	order := orderv1.NewOrder(orderv1.NewOrderParams{
		ID:              ulid.Make().String(),
		ClientOrderID:   req.StrategyExecutionID,
		PortfolioID:     req.PortfolioID,
		Symbol:          req.Symbol,
		Exchange:        req.Exchange,
		Side:            req.Side,
		Type:            req.Type,
		TimeInForce:     tif,
		Quantity:        req.Quantity,
		Price:           req.Price,
		StopPrice:       req.StopPrice,
		TakeProfitPrice: req.TakeProfitPrice,
	})
	return order, nil
}

// checkStructure verifies the request is well formed on its own, without
// touching portfolio or market state.
func (v *Validator) checkStructure(req *eventv1.ExecutionOrderRequest) *Rejection {
	if req.StrategyExecutionID == "" {
		return reject(errors.ValidationFailed, "missing strategy execution id")
	}
	if req.Symbol == "" {
		return reject(errors.ValidationFailed, "missing symbol")
	}
	if req.Exchange == "" {
		return reject(errors.ValidationFailed, "missing exchange")
	}
	if !req.Side.Valid() {
		return reject(errors.ValidationFailed, "unknown side %q", req.Side)
	}
	if !req.Type.Valid() {
		return reject(errors.ValidationFailed, "unknown order type %q", req.Type)
	}
	if req.TimeInForce != "" && !req.TimeInForce.Valid() {
		return reject(errors.ValidationFailed, "unknown time in force %q", req.TimeInForce)
	}
	if !req.Quantity.IsPositive() {
		return reject(errors.ValidationFailed, "quantity must be positive, got %s", req.Quantity)
	}
	if req.Price.IsNegative() || req.StopPrice.IsNegative() || req.TakeProfitPrice.IsNegative() {
		return reject(errors.ValidationFailed, "prices must not be negative")
	}
	if req.Type.RequiresPrice() && !req.Price.IsPositive() {
		return reject(errors.ValidationFailed, "%s orders require a limit price", req.Type)
	}
	if !req.Type.RequiresPrice() && req.Price.IsPositive() {
		return reject(errors.ValidationFailed, "%s orders do not take a limit price", req.Type)
	}
	if req.Type.RequiresStopPrice() && !req.StopPrice.IsPositive() {
		return reject(errors.ValidationFailed, "%s orders require a stop price", req.Type)
	}
	if !req.Type.RequiresStopPrice() && req.StopPrice.IsPositive() {
		return reject(errors.ValidationFailed, "%s orders do not take a stop price", req.Type)
	}
	return nil
}

// checkRisk runs the pre-trade gates against the owning portfolio's limits,
// falling back to the configured global ceilings where the portfolio
// carries none.
func (v *Validator) checkRisk(ctx context.Context, req *eventv1.ExecutionOrderRequest) *Rejection {
	limits := v.valuator.EnsurePortfolio(ctx, req.PortfolioID)
	maxPosition := v.cfg.MaxPositionSize
	if limits.MaxPositionSize.IsPositive() {
		maxPosition = limits.MaxPositionSize
	}
	maxDailyLoss := v.cfg.MaxDailyLoss
	if limits.MaxDailyLoss.IsPositive() {
		maxDailyLoss = limits.MaxDailyLoss
	}

	if req.Quantity.GreaterThan(v.cfg.MaxOrderQuantity) {
		return reject(errors.RiskCheckFailed,
			"quantity %s exceeds the per-order limit %s", req.Quantity, v.cfg.MaxOrderQuantity)
	}

	exposureCeiling := v.cfg.SymbolExposureFraction.Mul(maxPosition)
	exposure := v.ledger.Exposure(ctx, req.PortfolioID, req.Symbol)
	if exposure.Add(req.Quantity).GreaterThan(exposureCeiling) {
		return reject(errors.RiskCheckFailed,
			"exposure %s plus order quantity %s exceeds the %s ceiling for %s",
			exposure, req.Quantity, exposureCeiling, req.Symbol)
	}

	refPrice, ok := v.referencePrice(ctx, req)
	if !ok {
		return reject(errors.RiskCheckFailed, "no reference price known for %s", req.Symbol)
	}

	worstCase := v.worstCaseLoss(req, refPrice)
	daily := v.valuator.DailyRealizedPnl(ctx, req.PortfolioID)
	if daily.Sub(worstCase).LessThan(maxDailyLoss.Neg()) {
		return reject(errors.RiskCheckFailed,
			"worst-case loss %s on top of today's P&L %s breaches the daily loss limit %s",
			worstCase, daily, maxDailyLoss)
	}

	if req.StopPrice.IsPositive() && req.TakeProfitPrice.IsPositive() {
		risk := refPrice.Sub(req.StopPrice).Abs()
		if risk.IsZero() {
			return reject(errors.RiskCheckFailed, "stop price equals the entry price")
		}
		reward := req.TakeProfitPrice.Sub(refPrice).Abs()
		if ratio := reward.Div(risk); ratio.LessThan(v.cfg.MinRiskReward) {
			return reject(errors.RiskCheckFailed,
				"risk/reward %s below the minimum %s", ratio.StringFixed(2), v.cfg.MinRiskReward)
		}
	}
	return nil
}

// referencePrice is the price the risk math is anchored to: the limit price
// when the order carries one, otherwise the last marked price.
func (v *Validator) referencePrice(ctx context.Context, req *eventv1.ExecutionOrderRequest) (decimal.Decimal, bool) {
	if req.Price.IsPositive() {
		return req.Price, true
	}
	return v.ledger.LastPrice(ctx, req.Symbol)
}

// worstCaseLoss assumes the stop is hit when one is attached, otherwise an
// adverse move of the configured fraction of order notional.
func (v *Validator) worstCaseLoss(req *eventv1.ExecutionOrderRequest, refPrice decimal.Decimal) decimal.Decimal {
	if req.StopPrice.IsPositive() {
		return refPrice.Sub(req.StopPrice).Abs().Mul(req.Quantity)
	}
	return v.cfg.DefaultStopDistance.Mul(refPrice).Mul(req.Quantity)
}
