// Package alloc turns advisory trade intents into budget-bounded orders.
package alloc

import (
	"log/slog"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
)

// Allocate sizes the given intents against the available quote budget,
// preserving input order.
//
// When requested BUY volume exceeds the budget, every BUY amount is scaled
// by (budget/buyTotal)*(1-safetyMargin). SELL amounts pass through unscaled;
// sizing a SELL against held quantity is the caller's job. After scaling,
// amounts below MinTrade are dropped and amounts above MaxSingleTrade are
// clamped down.
//
// The scale-then-clamp order is load-bearing: clamping an unscaled or
// lightly-scaled large intent can push the emitted BUY total slightly above
// budget*(1-margin), but never above MaxSingleTrade per order. Swapping the
// steps would change the budget bound.
func Allocate(intents []domain.TradeIntent, availableBudget float64, limits domain.TradeLimits) []domain.OrderIntent {
	buyTotal := 0.0
	for _, in := range intents {
		if in.Action == domain.ActionBuy && in.QuantityUSDT > 0 {
			buyTotal += in.QuantityUSDT
		}
	}

	scale := 1.0
	if buyTotal > availableBudget {
		scale = availableBudget / buyTotal * (1 - limits.SafetyMargin)
		if scale < 0 {
			scale = 0 // non-positive budget: all BUYs fall below MinTrade
		}
		slog.Warn("Buy volume exceeds available budget, scaling down",
			slog.Float64("buy_total", buyTotal),
			slog.Float64("budget", availableBudget),
			slog.Float64("scale", scale))
	}

	orders := make([]domain.OrderIntent, 0, len(intents))
	for _, in := range intents {
		if in.Action == domain.ActionHold || in.QuantityUSDT <= 0 {
			continue
		}

		amount := in.QuantityUSDT
		if in.Action == domain.ActionBuy {
			amount *= scale
		}

		if amount < limits.MinTrade {
			slog.Info("Dropping intent below minimum trade size",
				slog.String("symbol", in.Symbol),
				slog.String("action", string(in.Action)),
				slog.Float64("amount", amount))
			continue
		}
		if amount > limits.MaxSingleTrade {
			slog.Warn("Clamping intent to max single trade",
				slog.String("symbol", in.Symbol),
				slog.Float64("amount", amount),
				slog.Float64("max", limits.MaxSingleTrade))
			amount = limits.MaxSingleTrade
		}

		orders = append(orders, domain.OrderIntent{
			Symbol:       in.Symbol,
			Action:       in.Action,
			QuantityUSDT: amount,
			Confidence:   in.Confidence,
			Reason:       in.Reason,
		})
	}

	return orders
}
