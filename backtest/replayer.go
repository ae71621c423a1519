// Package backtest reconstructs in-memory trading state from the durable
// trade journal. Used to recover history and performance counters when the
// persisted state document is lost or corrupted.
package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/event"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/state"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/storage"
)

// Replayer feeds journaled trades back through a state store.
type Replayer struct {
	journal *storage.TradeJournal
}

// NewReplayer opens the trade journal at dbPath.
func NewReplayer(dbPath string) (*Replayer, error) {
	journal, err := storage.NewTradeJournal(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Replayer{journal: journal}, nil
}

// Run replays every journaled trade into the store in insertion order.
// Trade history, performance counters, and log volume come out exactly as
// the live process would have produced them.
func (r *Replayer) Run(ctx context.Context, store *state.Store) (int, error) {
	trades, err := r.journal.Recent(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("read journal: %w", err)
	}

	replayed := 0
	for _, rec := range trades {
		if err := store.UpdateState(event.TradeExecution{Record: rec}); err != nil {
			return replayed, fmt.Errorf("replay trade %s %s: %w", rec.Action, rec.Symbol, err)
		}
		replayed++
	}

	slog.Info("Journal replay complete", slog.Int("trades", replayed))
	return replayed, nil
}

// Close releases the underlying journal.
func (r *Replayer) Close() error {
	return r.journal.Close()
}
