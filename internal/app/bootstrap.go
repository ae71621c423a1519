package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/event"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/exchange"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/infra"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/notify"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/state"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/storage"
)

// startBalanceKey is the journal metadata key holding the reserve balance
// observed on first boot.
const startBalanceKey = "start_balance"

// Bootstrap orchestrates process startup for the trader and dashboard
// binaries. The trader owns the journal, the instance lock, and state
// persistence; the dashboard only mirrors state it receives over HTTP.
type Bootstrap struct {
	Config  *infra.Config
	Store   *state.Store
	Journal *storage.TradeJournal

	StateFile string
	unlock    func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs the full trader startup: config, logger, workspace
// dirs, instance lock, trade journal, and state restore. When a dashboard
// notify URL is configured, store updates are forwarded to it.
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping Kronos trader...")

	if err := b.initCore(); err != nil {
		return err
	}
	cfg := b.Config

	mode := cfg.Trading.Mode
	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data", mode)
	logDir := filepath.Join(workDir, "logs", mode)

	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := infra.EnsureDir(logDir); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}

	// Singleton instance lock. Two trader processes sharing one journal
	// and state file corrupts both.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	journalPath := filepath.Join(dataDir, "trades.db")
	journal, err := storage.NewTradeJournal(journalPath)
	if err != nil {
		return err
	}
	b.Journal = journal
	journaled, err := journal.Count(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	slog.Info("✅ Trade journal initialized (WAL-mode)",
		slog.String("path", journalPath),
		slog.String("mode", mode),
		slog.Int("trades", journaled))

	var opts []state.Option
	opts = append(opts, state.WithReserveAsset(cfg.Trading.ReserveAsset))
	if cfg.Dashboard.NotifyURL != "" {
		timeout := time.Duration(cfg.Dashboard.NotifyTimeoutSec) * time.Second
		opts = append(opts, state.WithSubscriber(notify.New(cfg.Dashboard.NotifyURL, timeout)))
		slog.Info("✅ Dashboard notifier wired", slog.String("url", cfg.Dashboard.NotifyURL))
	}

	b.StateFile = cfg.State.File
	if b.StateFile == "" {
		b.StateFile = filepath.Join(dataDir, "trading_state.json")
	}
	b.Store = b.restoreStore(opts)

	return nil
}

// InitializeDashboard performs the lighter dashboard startup: config,
// logger, and a mirror store seeded from the last persisted document. The
// dashboard takes no lock and opens no journal; the trader owns those.
func (b *Bootstrap) InitializeDashboard() error {
	slog.Info("🚀 Bootstrapping Kronos dashboard...")

	if err := b.initCore(); err != nil {
		return err
	}
	cfg := b.Config

	b.StateFile = cfg.State.File
	if b.StateFile == "" {
		workDir := infra.GetWorkspaceDir()
		b.StateFile = filepath.Join(workDir, "data", cfg.Trading.Mode, "trading_state.json")
	}
	b.Store = b.restoreStore([]state.Option{
		state.WithReserveAsset(cfg.Trading.ReserveAsset),
	})
	return nil
}

func (b *Bootstrap) initCore() error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	return nil
}

func (b *Bootstrap) restoreStore(opts []state.Option) *state.Store {
	store := state.New(b.Config.State.HistorySize, opts...)
	if err := store.LoadFile(b.StateFile); err != nil {
		slog.Warn("Could not restore persisted state, starting fresh",
			slog.String("path", b.StateFile),
			slog.Any("error", err))
	} else if _, statErr := os.Stat(b.StateFile); statErr == nil {
		slog.Info("✅ State restored", slog.String("path", b.StateFile))
	}
	return store
}

// RecordStartBalance establishes the performance baseline. On first boot it
// reads the reserve balance from the exchange and persists it to journal
// metadata; later boots reuse the stored value so the baseline survives
// restarts. The resolved balance is published into the performance stats.
func (b *Bootstrap) RecordStartBalance(ctx context.Context, ex exchange.Exchange) error {
	stored, err := b.Journal.GetMetadata(ctx, startBalanceKey)
	if err != nil {
		return fmt.Errorf("failed to read start balance: %w", err)
	}

	var start float64
	if stored != "" {
		start, err = strconv.ParseFloat(stored, 64)
		if err != nil {
			return fmt.Errorf("corrupt start balance %q: %w", stored, err)
		}
	} else {
		asset := b.Config.Trading.ReserveAsset
		start, err = ex.GetBalance(ctx, asset)
		if err != nil {
			return fmt.Errorf("failed to fetch %s balance: %w", asset, err)
		}
		raw := strconv.FormatFloat(start, 'f', -1, 64)
		if err := b.Journal.UpsertMetadata(ctx, startBalanceKey, raw, time.Now().UnixMicro()); err != nil {
			return fmt.Errorf("failed to persist start balance: %w", err)
		}
		slog.Info("✅ Start balance recorded",
			slog.Float64("balance", start),
			slog.String("asset", asset))
	}

	return b.Store.UpdateState(event.PerformanceDelta{StartBalance: event.Float(start)})
}

// SaveState persists the current state document to disk.
func (b *Bootstrap) SaveState() error {
	if b.Store == nil || b.StateFile == "" {
		return nil
	}
	return b.Store.SaveFile(b.StateFile)
}

// Shutdown flushes state, closes the journal, and releases the instance lock.
func (b *Bootstrap) Shutdown() {
	if err := b.SaveState(); err != nil {
		slog.Error("Failed to persist state on shutdown", slog.Any("error", err))
	}
	if b.Journal != nil {
		if err := b.Journal.Close(); err != nil {
			slog.Error("Failed to close trade journal", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
	slog.Info("👋 Shutdown complete")
}

// ExitWithError prints a fatal startup error and terminates.
func ExitWithError(err error) {
	slog.Error("Startup failed", slog.Any("error", err))
	fmt.Fprintln(os.Stderr, "fatal:", err)
	os.Exit(1)
}
