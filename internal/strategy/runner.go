package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/event"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/infra"
)

// DefaultSchedule fires at minute 5 of every hour, after exchanges close
// their hourly candles.
const DefaultSchedule = "5 * * * *"

// Runner drives repeated strategy cycles on a cron schedule.
type Runner struct {
	cycle    *Cycle
	schedule cron.Schedule
	now      func() time.Time
}

// NewRunner parses a standard 5-field cron expression. An empty expression
// selects DefaultSchedule.
func NewRunner(cycle *Cycle, expr string) (*Runner, error) {
	if expr == "" {
		expr = DefaultSchedule
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return &Runner{cycle: cycle, schedule: schedule, now: time.Now}, nil
}

// Run blocks, executing one cycle per schedule tick until ctx is canceled.
// Cycle errors are already recorded in the store; the runner keeps going.
func (r *Runner) Run(ctx context.Context) error {
	r.cycle.setStatus(event.StatusDelta{IsRunning: event.Bool(true)})
	defer r.cycle.setStatus(event.StatusDelta{IsRunning: event.Bool(false)})

	failures := 0
	for {
		var next time.Time
		if failures > 0 {
			// Failed cycles retry before the next scheduled tick,
			// backing off while the failure streak lasts.
			next = r.now().Add(infra.CalculateBackoff(failures - 1))
			slog.Warn("Retrying after failed cycle",
				slog.Int("consecutive_failures", failures),
				slog.Time("retry_at", next))
		} else {
			next = r.schedule.Next(r.now())
			slog.Info("Waiting for next strategy run", slog.Time("next", next))
		}
		r.cycle.setStatus(event.StatusDelta{NextStrategyRun: event.Time(next)})

		timer := time.NewTimer(next.Sub(r.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("Strategy runner stopping", slog.Any("cause", ctx.Err()))
			return ctx.Err()
		case <-timer.C:
		}

		if err := r.cycle.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
		} else {
			failures = 0
		}
	}
}

// RunOnce executes a single cycle immediately. Used by the one-shot CLI mode.
func (r *Runner) RunOnce(ctx context.Context) error {
	return r.cycle.Run(ctx)
}
