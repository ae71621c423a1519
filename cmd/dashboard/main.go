package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/app"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/infra"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/server"
)

func main() {
	defer infra.Recover()

	// 1. Dashboard bootstrapping: config, logger, mirror store.
	bootstrap := app.NewBootstrap()
	if err := bootstrap.InitializeDashboard(); err != nil {
		app.ExitWithError(err)
	}
	defer bootstrap.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Periodic mirror persistence so a restart keeps history.
	go func() {
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
	}()

	// 3. Serve the API and WebSocket feed.
	srv := server.New(bootstrap.Store)
	go func() {
		if err := srv.ListenAndServe(bootstrap.Config.Dashboard.Addr); err != nil {
			slog.Error("Dashboard server failed", slog.Any("error", err))
			stop()
		}
	}()

	slog.InfoContext(ctx, "✨ Kronos dashboard operational. Press Ctrl+C to exit.")
	<-ctx.Done()
	slog.Info("👋 Shutting down gracefully...")
}
