package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/advisor"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/alloc"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/event"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/exchange"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/state"
)

// Journal is the audit sink for executed trades. It is optional; a nil
// journal disables auditing without affecting the cycle.
type Journal interface {
	Append(ctx context.Context, rec domain.TradeRecord) error
}

// Config tunes a trading cycle.
type Config struct {
	Symbols      []string
	ReserveAsset string
	Limits       domain.TradeLimits
}

// Cycle runs one pass of the trading strategy: refresh forecasts, read
// positions, ask the advisor, allocate orders against the free reserve
// balance, and execute them. All observable state flows through the store.
type Cycle struct {
	store      *state.Store
	exchange   exchange.Exchange
	forecaster advisor.Forecaster
	advisor    advisor.Advisor
	journal    Journal
	cfg        Config
	now        func() time.Time
}

// NewCycle wires a cycle. journal may be nil.
func NewCycle(store *state.Store, ex exchange.Exchange, fc advisor.Forecaster, adv advisor.Advisor, journal Journal, cfg Config) *Cycle {
	if cfg.ReserveAsset == "" {
		cfg.ReserveAsset = state.DefaultReserveAsset
	}
	return &Cycle{
		store:      store,
		exchange:   ex,
		forecaster: fc,
		advisor:    adv,
		journal:    journal,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run executes one full strategy cycle. Any stage failure aborts the cycle
// and bumps the error counter; a completed cycle bumps the run counter.
func (c *Cycle) Run(ctx context.Context) error {
	started := c.now()
	slog.Info("Strategy cycle started", slog.Time("at", started))
	c.setStatus(event.StatusDelta{LastStrategyRun: event.Time(started)})
	c.log("Strategy cycle started", "info")

	if err := c.run(ctx); err != nil {
		slog.Error("Strategy cycle failed", slog.Any("error", err))
		c.log(fmt.Sprintf("Strategy cycle error: %v", err), "error")
		c.setStatus(event.StatusDelta{ErrorCountAdd: event.Int(1)})
		return err
	}

	c.setStatus(event.StatusDelta{TotalRunsAdd: event.Int(1)})
	c.log("Strategy cycle completed", "success")
	slog.Info("Strategy cycle completed", slog.Duration("elapsed", c.now().Sub(started)))
	return nil
}

func (c *Cycle) run(ctx context.Context) error {
	// 1. Refresh forecasts and publish them.
	c.log("Running price forecasts", "info")
	forecasts, err := c.forecaster.Forecast(ctx, c.cfg.Symbols)
	if err != nil {
		return fmt.Errorf("run forecasts: %w", err)
	}
	if err := c.store.UpdateState(event.ForecastsReplace{Forecasts: forecasts}); err != nil {
		return fmt.Errorf("publish forecasts: %w", err)
	}

	// 2. Read positions from the exchange and publish them.
	c.log("Fetching market data and positions", "info")
	positions, err := exchange.BuildPositionSnapshot(ctx, c.exchange, c.cfg.ReserveAsset)
	if err != nil {
		return fmt.Errorf("build position snapshot: %w", err)
	}
	if err := c.store.UpdateState(event.PositionsReplace{Positions: positions}); err != nil {
		return fmt.Errorf("publish positions: %w", err)
	}

	prices := c.fetchPrices(ctx)

	// 3. Ask the advisor for trade intents.
	c.log("Requesting trading advice", "info")
	intents, err := c.advisor.Advise(ctx, advisor.Input{
		Forecasts: forecasts,
		Positions: positions,
		Prices:    prices,
	})
	if err != nil {
		return fmt.Errorf("advise: %w", err)
	}
	if len(intents) == 0 {
		slog.Info("No trade intents, holding current positions")
		return nil
	}

	// 4. Allocate against the free reserve balance and execute.
	budget, err := c.exchange.GetBalance(ctx, c.cfg.ReserveAsset)
	if err != nil {
		return fmt.Errorf("fetch %s balance: %w", c.cfg.ReserveAsset, err)
	}
	slog.Info("Allocating orders",
		slog.Float64("budget", budget),
		slog.Int("intents", len(intents)))

	orders := alloc.Allocate(intents, budget, c.cfg.Limits)
	c.log("Executing trading decisions", "info")
	for _, order := range orders {
		c.execute(ctx, order)
	}
	return nil
}

// execute submits one order. Execution failures are recorded as failed
// trades, not cycle errors: a rejected order must not abort the remaining
// orders in the batch.
func (c *Cycle) execute(ctx context.Context, order domain.OrderIntent) {
	var rec domain.TradeRecord
	var err error

	switch order.Action {
	case domain.ActionBuy:
		rec, err = c.executeBuy(ctx, order)
	case domain.ActionSell:
		rec, err = c.executeSell(ctx, order)
	default:
		return
	}
	if err != nil {
		slog.Error("Order execution error",
			slog.String("symbol", order.Symbol),
			slog.String("action", string(order.Action)),
			slog.Any("error", err))
		c.log(fmt.Sprintf("Order error %s %s: %v", order.Action, order.Symbol, err), "error")
		return
	}
	if rec.Symbol == "" {
		return // skipped (e.g. no holdings to sell)
	}

	if uerr := c.store.UpdateState(event.TradeExecution{Record: rec}); uerr != nil {
		slog.Error("Failed to record trade", slog.Any("error", uerr))
	}
	c.log(fmt.Sprintf("Trade executed: %s %s %v @ $%.4f",
		rec.Action, rec.Symbol, rec.Quantity, rec.Price), logLevelFor(rec.Status))

	if c.journal != nil {
		if jerr := c.journal.Append(ctx, rec); jerr != nil {
			slog.Error("Failed to journal trade", slog.Any("error", jerr))
		}
	}
}

func (c *Cycle) executeBuy(ctx context.Context, order domain.OrderIntent) (domain.TradeRecord, error) {
	balance, err := c.exchange.GetBalance(ctx, c.cfg.ReserveAsset)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("fetch %s balance: %w", c.cfg.ReserveAsset, err)
	}
	if balance < order.QuantityUSDT {
		slog.Warn("Insufficient reserve balance for buy",
			slog.String("symbol", order.Symbol),
			slog.Float64("needed", order.QuantityUSDT),
			slog.Float64("available", balance))
		return domain.TradeRecord{}, nil
	}

	price, err := c.exchange.GetPrice(ctx, order.Symbol)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("fetch price: %w", err)
	}
	quantity, err := exchange.QuantityForQuote(order.QuantityUSDT, price)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("size order: %w", err)
	}

	rec := domain.TradeRecord{
		Timestamp:  c.now(),
		Symbol:     order.Symbol,
		Action:     domain.ActionBuy,
		Quantity:   quantity,
		Price:      price,
		VolumeUSDT: order.QuantityUSDT,
		Confidence: order.Confidence,
		Reason:     order.Reason,
	}

	placed, err := c.exchange.PlaceMarketOrder(ctx, order.Symbol, domain.ActionBuy, quantity)
	if err != nil {
		rec.Status = domain.TradeStatusFailed
		slog.Error("Buy order failed",
			slog.String("symbol", order.Symbol),
			slog.Any("error", err))
		return rec, nil
	}

	rec.Status = domain.TradeStatusSuccess
	rec.OrderID = placed.ID
	slog.Info("Buy order filled",
		slog.String("symbol", order.Symbol),
		slog.String("order_id", placed.ID),
		slog.Float64("quantity", quantity),
		slog.Float64("price", price))
	return rec, nil
}

func (c *Cycle) executeSell(ctx context.Context, order domain.OrderIntent) (domain.TradeRecord, error) {
	baseAsset := strings.TrimSuffix(order.Symbol, c.cfg.ReserveAsset)
	held, err := c.exchange.GetBalance(ctx, baseAsset)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("fetch %s balance: %w", baseAsset, err)
	}
	if held <= 0 {
		slog.Info("No holdings to sell", slog.String("asset", baseAsset))
		return domain.TradeRecord{}, nil
	}

	price, err := c.exchange.GetPrice(ctx, order.Symbol)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("fetch price: %w", err)
	}
	target, err := exchange.QuantityForQuote(order.QuantityUSDT, price)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("size order: %w", err)
	}
	quantity := min(held, target)
	if quantity <= 0 {
		return domain.TradeRecord{}, nil
	}

	rec := domain.TradeRecord{
		Timestamp:  c.now(),
		Symbol:     order.Symbol,
		Action:     domain.ActionSell,
		Quantity:   quantity,
		Price:      price,
		VolumeUSDT: quantity * price,
		Confidence: order.Confidence,
		Reason:     order.Reason,
	}

	placed, err := c.exchange.PlaceMarketOrder(ctx, order.Symbol, domain.ActionSell, quantity)
	if err != nil {
		rec.Status = domain.TradeStatusFailed
		slog.Error("Sell order failed",
			slog.String("symbol", order.Symbol),
			slog.Any("error", err))
		return rec, nil
	}

	rec.Status = domain.TradeStatusSuccess
	rec.OrderID = placed.ID
	slog.Info("Sell order filled",
		slog.String("symbol", order.Symbol),
		slog.String("order_id", placed.ID),
		slog.Float64("quantity", quantity),
		slog.Float64("price", price))
	return rec, nil
}

// fetchPrices collects the latest price per symbol. Failed lookups map to 0
// so the advisor sees every configured symbol.
func (c *Cycle) fetchPrices(ctx context.Context) map[string]float64 {
	prices := make(map[string]float64, len(c.cfg.Symbols))
	for _, symbol := range c.cfg.Symbols {
		price, err := c.exchange.GetPrice(ctx, symbol)
		if err != nil {
			slog.Error("Price lookup failed",
				slog.String("symbol", symbol),
				slog.Any("error", err))
			price = 0
		}
		prices[symbol] = price
	}
	return prices
}

func (c *Cycle) setStatus(d event.StatusDelta) {
	if err := c.store.UpdateState(d); err != nil {
		slog.Error("Failed to update system status", slog.Any("error", err))
	}
}

func (c *Cycle) log(message, level string) {
	err := c.store.UpdateState(event.StrategyLog{Entry: domain.LogEntry{
		Timestamp: c.now(),
		Message:   message,
		Level:     level,
	}})
	if err != nil {
		slog.Error("Failed to append strategy log", slog.Any("error", err))
	}
}

func logLevelFor(status string) string {
	if status == domain.TradeStatusSuccess {
		return "success"
	}
	return "error"
}
