package exchange

import (
	"context"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
)

// Balance is the free/locked split of one asset.
type Balance struct {
	Free   float64
	Locked float64
}

// Total returns free + locked.
func (b Balance) Total() float64 { return b.Free + b.Locked }

// Order is the exchange's acknowledgement of a placed order.
type Order struct {
	ID       string
	Symbol   string
	Side     domain.Action
	Quantity float64
	Price    float64
}

// Exchange is the order/balance/price surface the strategy depends on.
// Implementations: Live (Binance spot) and Paper (simulation).
type Exchange interface {
	// GetBalance returns the free balance of one asset.
	GetBalance(ctx context.Context, asset string) (float64, error)

	// GetAllBalances returns every asset with a non-zero total balance.
	GetAllBalances(ctx context.Context) (map[string]Balance, error)

	// GetPrice returns the current price of a trading pair (e.g. "BTCUSDT").
	GetPrice(ctx context.Context, symbol string) (float64, error)

	// PlaceMarketOrder submits a market order for the given base quantity.
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.Action, quantity float64) (*Order, error)
}
