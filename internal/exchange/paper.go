package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
)

// PaperExchange simulates order execution against virtual balances.
// This is used in simulation mode and for pre-production validation.
type PaperExchange struct {
	mu           sync.Mutex
	balances     map[string]Balance
	prices       map[string]float64
	reserveAsset string
	nextOrderID  int64
}

// NewPaperExchange creates a simulated exchange seeded with an initial
// reserve-asset balance.
func NewPaperExchange(reserveAsset string, initialBalance float64) *PaperExchange {
	p := &PaperExchange{
		balances:     make(map[string]Balance),
		prices:       make(map[string]float64),
		reserveAsset: reserveAsset,
	}
	if initialBalance > 0 {
		p.balances[reserveAsset] = Balance{Free: initialBalance}
	}
	return p
}

// Deposit adds funds to the virtual account.
func (p *PaperExchange) Deposit(asset string, amount float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bal := p.balances[asset]
	bal.Free += amount
	p.balances[asset] = bal
}

// SetPrice updates the current market price for a symbol.
func (p *PaperExchange) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

// GetBalance returns the free balance for an asset.
func (p *PaperExchange) GetBalance(ctx context.Context, asset string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[asset].Free, nil
}

// GetAllBalances returns a copy of every asset balance.
func (p *PaperExchange) GetAllBalances(ctx context.Context) (map[string]Balance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make(map[string]Balance, len(p.balances))
	for asset, bal := range p.balances {
		result[asset] = bal
	}
	return result, nil
}

// GetPrice returns the last set price for a symbol.
func (p *PaperExchange) GetPrice(ctx context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	price, ok := p.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no price available for %s", symbol)
	}
	return price, nil
}

// PlaceMarketOrder fills a market order immediately at the current price.
// BUY debits the quote asset and credits the base asset; SELL is the reverse.
func (p *PaperExchange) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Action, quantity float64) (*Order, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("invalid quantity %v for %s", quantity, symbol)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	price, ok := p.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("no price available for %s", symbol)
	}

	base, quote, err := p.splitSymbol(symbol)
	if err != nil {
		return nil, err
	}

	quoteAmount := quantity * price

	switch side {
	case domain.ActionBuy:
		quoteBal := p.balances[quote]
		if quoteBal.Free < quoteAmount {
			return nil, fmt.Errorf("insufficient %s balance: need %.2f, have %.2f",
				quote, quoteAmount, quoteBal.Free)
		}
		quoteBal.Free -= quoteAmount
		p.balances[quote] = quoteBal

		baseBal := p.balances[base]
		baseBal.Free += quantity
		p.balances[base] = baseBal

	case domain.ActionSell:
		baseBal := p.balances[base]
		if baseBal.Free < quantity {
			return nil, fmt.Errorf("insufficient %s balance: need %v, have %v",
				base, quantity, baseBal.Free)
		}
		baseBal.Free -= quantity
		p.balances[base] = baseBal

		quoteBal := p.balances[quote]
		quoteBal.Free += quoteAmount
		p.balances[quote] = quoteBal

	default:
		return nil, fmt.Errorf("unsupported order side: %s", side)
	}

	p.nextOrderID++
	order := &Order{
		ID:       fmt.Sprintf("paper-%d", p.nextOrderID),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
	}

	slog.Info("Paper order filled",
		slog.String("id", order.ID),
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.Float64("price", price),
		slog.Float64("quantity", quantity))

	return order, nil
}

// splitSymbol separates a trading pair into its base and quote assets.
// Symbols are expected to be quoted in the configured reserve asset.
func (p *PaperExchange) splitSymbol(symbol string) (base, quote string, err error) {
	if !strings.HasSuffix(symbol, p.reserveAsset) || len(symbol) <= len(p.reserveAsset) {
		return "", "", fmt.Errorf("unrecognized symbol %q: expected %s quote", symbol, p.reserveAsset)
	}
	return strings.TrimSuffix(symbol, p.reserveAsset), p.reserveAsset, nil
}
