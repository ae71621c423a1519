package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/advisor"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/app"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/event"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/exchange"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/infra"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/strategy"
)

func main() {
	defer infra.Recover()

	once := flag.Bool("once", false, "run a single strategy cycle and exit")
	flag.Parse()

	// 1. System bootstrapping.
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		app.ExitWithError(err)
	}
	defer bootstrap.Shutdown()

	cfg := bootstrap.Config
	infra.PrintBanner(cfg)

	// 2. Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Exchange: live Binance or internal paper simulation.
	ex, simulated := buildExchange(cfg)
	slog.Info("✅ Exchange ready", slog.Bool("simulation", simulated))
	if err := bootstrap.Store.UpdateState(event.StatusDelta{
		SimulationMode: event.Bool(simulated),
	}); err != nil {
		slog.Error("Failed to record trading mode", slog.Any("error", err))
	}
	if err := bootstrap.RecordStartBalance(ctx, ex); err != nil {
		app.ExitWithError(err)
	}

	// 4. Advisory collaborators. Simulation runs on the built-in
	// hold-everything advisor and a static forecast.
	fc := advisor.StaticForecaster{}
	adv := advisor.Advisor(advisor.HoldAdvisor{})

	// 5. Strategy cycle and runner.
	cycle := strategy.NewCycle(bootstrap.Store, ex, fc, adv, bootstrap.Journal, strategy.Config{
		Symbols:      cfg.Trading.Symbols,
		ReserveAsset: cfg.Trading.ReserveAsset,
		Limits:       cfg.Trading.Limits,
	})
	runner, err := strategy.NewRunner(cycle, cfg.Trading.Schedule)
	if err != nil {
		app.ExitWithError(err)
	}

	if *once {
		if err := runner.RunOnce(ctx); err != nil {
			slog.Error("Cycle failed", slog.Any("error", err))
		}
		return
	}

	// 6. Periodic state persistence alongside the runner.
	go persistLoop(ctx, bootstrap)

	slog.InfoContext(ctx, "✨ Kronos trader fully operational. Press Ctrl+C to exit.")
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Runner stopped", slog.Any("error", err))
	}

	slog.Info("👋 Shutting down gracefully...")
}

func buildExchange(cfg *infra.Config) (exchange.Exchange, bool) {
	if cfg.Trading.Mode == infra.ModeLive {
		return exchange.NewBinanceExchange(cfg.API.Binance.APIKey, cfg.API.Binance.SecretKey), false
	}

	paper := exchange.NewPaperExchange(cfg.Trading.ReserveAsset, cfg.Trading.InitialBalance)
	return paper, true
}

// persistLoop snapshots the state document periodically so a crash loses at
// most one interval of history.
func persistLoop(ctx context.Context, bootstrap *app.Bootstrap) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := bootstrap.SaveState(); err != nil {
				slog.Error("Periodic state save failed", slog.Any("error", err))
			}
		}
	}
}
