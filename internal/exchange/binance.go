package exchange

import (
	"context"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/infra"
)

// BinanceExchange executes against the Binance spot API.
type BinanceExchange struct {
	client *binance.Client

	accountLimiter *infra.RateLimiter
	marketLimiter  *infra.RateLimiter
	orderLimiter   *infra.RateLimiter
	orderBreaker   *infra.Breaker
}

// NewBinanceExchange creates a live spot exchange client.
func NewBinanceExchange(apiKey, secretKey string) *BinanceExchange {
	return &BinanceExchange{
		client:         binance.NewClient(apiKey, secretKey),
		accountLimiter: infra.GetBinanceAccountLimiter(),
		marketLimiter:  infra.GetBinanceMarketLimiter(),
		orderLimiter:   infra.GetBinanceOrderLimiter(),
		orderBreaker:   infra.NewBreaker("binance-orders", 0, 0, 0),
	}
}

// GetBalance returns the free balance for a single asset.
func (b *BinanceExchange) GetBalance(ctx context.Context, asset string) (float64, error) {
	balances, err := b.GetAllBalances(ctx)
	if err != nil {
		return 0, err
	}
	return balances[asset].Free, nil
}

// GetAllBalances fetches the spot account and returns non-zero balances.
func (b *BinanceExchange) GetAllBalances(ctx context.Context) (map[string]Balance, error) {
	b.accountLimiter.Wait()

	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}

	balances := make(map[string]Balance)
	for _, entry := range account.Balances {
		free, err := strconv.ParseFloat(entry.Free, 64)
		if err != nil {
			return nil, fmt.Errorf("parse free balance for %s: %w", entry.Asset, err)
		}
		locked, err := strconv.ParseFloat(entry.Locked, 64)
		if err != nil {
			return nil, fmt.Errorf("parse locked balance for %s: %w", entry.Asset, err)
		}
		if free == 0 && locked == 0 {
			continue
		}
		balances[entry.Asset] = Balance{Free: free, Locked: locked}
	}
	return balances, nil
}

// GetPrice returns the latest spot price for a symbol.
func (b *BinanceExchange) GetPrice(ctx context.Context, symbol string) (float64, error) {
	b.marketLimiter.Wait()

	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch price for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price returned for %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price for %s: %w", symbol, err)
	}
	return price, nil
}

// PlaceMarketOrder submits a market order and returns the accepted order.
func (b *BinanceExchange) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Action, quantity float64) (*Order, error) {
	var sideType binance.SideType
	switch side {
	case domain.ActionBuy:
		sideType = binance.SideTypeBuy
	case domain.ActionSell:
		sideType = binance.SideTypeSell
	default:
		return nil, fmt.Errorf("unsupported order side: %s", side)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("invalid quantity %v for %s", quantity, symbol)
	}
	if !b.orderBreaker.Allow() {
		return nil, fmt.Errorf("order endpoint circuit open, rejecting %s %s", side, symbol)
	}

	b.orderLimiter.Wait()

	resp, err := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(sideType).
		Type(binance.OrderTypeMarket).
		Quantity(FormatQuantity(quantity)).
		Do(ctx)
	b.orderBreaker.Record(err)
	if err != nil {
		return nil, fmt.Errorf("place %s market order for %s: %w", side, symbol, err)
	}

	executedQty, err := strconv.ParseFloat(resp.ExecutedQuantity, 64)
	if err != nil || executedQty == 0 {
		executedQty = quantity
	}

	// Average fill price from the cumulative quote amount when available.
	price := 0.0
	if quote, err := strconv.ParseFloat(resp.CummulativeQuoteQuantity, 64); err == nil && executedQty > 0 {
		price = quote / executedQty
	}

	return &Order{
		ID:       strconv.FormatInt(resp.OrderID, 10),
		Symbol:   symbol,
		Side:     side,
		Quantity: executedQty,
		Price:    price,
	}, nil
}
