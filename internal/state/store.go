// Package state holds the live trading state shared between the strategy
// loop (writer) and the dashboard (readers).
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/event"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/risk"
	"github.com/gaojunbin/Kronos-GPT-Quant/pkg/ring"
)

// DefaultHistorySize bounds the trade and strategy-log rings.
const DefaultHistorySize = 1000

// DefaultReserveAsset is the stable quote asset excluded from exposure.
const DefaultReserveAsset = "USDT"

// ErrInvalidEvent marks an update the store refuses to apply. State is left
// untouched when it is returned.
var ErrInvalidEvent = errors.New("state: invalid event")

// Subscriber receives each accepted update after the store lock has been
// released. Implementations must not call back into the store writer path.
type Subscriber interface {
	Notify(ev event.Event)
}

// Store is the single in-process source of truth. One mutex guards every
// field; each update is applied atomically and risk metrics are recomputed
// in the same critical section as the positions replace that triggers them,
// so no reader ever observes positions and risk from different generations.
type Store struct {
	mu sync.Mutex

	status    domain.SystemStatus
	positions domain.PositionSnapshot
	forecasts domain.ForecastSnapshot
	trades    *ring.Buffer[domain.TradeRecord]
	logs      *ring.Buffer[domain.LogEntry]
	perf      domain.PerformanceStats
	risk      domain.RiskMetrics

	reserveAsset string
	subscriber   Subscriber
	now          func() time.Time
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithSubscriber attaches a best-effort update mirror (the dashboard push).
func WithSubscriber(sub Subscriber) Option {
	return func(s *Store) { s.subscriber = sub }
}

// WithReserveAsset overrides the reserve asset used for risk computation.
func WithReserveAsset(asset string) Option {
	return func(s *Store) { s.reserveAsset = asset }
}

// WithClock overrides the timestamp source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store. historySize <= 0 uses DefaultHistorySize.
func New(historySize int, opts ...Option) *Store {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	s := &Store{
		positions:    domain.PositionSnapshot{},
		forecasts:    domain.ForecastSnapshot{},
		trades:       ring.New[domain.TradeRecord](historySize),
		logs:         ring.New[domain.LogEntry](historySize),
		reserveAsset: DefaultReserveAsset,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateState applies one event atomically. On error the store keeps its
// prior state. Accepted events are handed to the subscriber after the lock
// is released; subscriber failures never propagate here.
func (s *Store) UpdateState(ev event.Event) error {
	if ev == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}

	s.mu.Lock()
	err := s.apply(ev)
	if err == nil {
		s.status.LastUpdate = s.now()
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if s.subscriber != nil {
		s.subscriber.Notify(ev)
	}
	return nil
}

// apply dispatches over the closed event union. Must hold s.mu.
// Validation happens before any mutation so a rejected event leaves the
// store consistent.
func (s *Store) apply(ev event.Event) error {
	switch e := ev.(type) {
	case event.StatusDelta:
		s.mergeStatus(e)

	case event.PositionsReplace:
		s.positions = e.Positions.Clone()
		s.risk = risk.Compute(s.positions, s.reserveAsset)

	case event.ForecastsReplace:
		s.forecasts = e.Forecasts.Clone()

	case event.TradeExecution:
		rec := e.Record
		if !rec.Action.Valid() {
			return fmt.Errorf("%w: trade action %q", ErrInvalidEvent, rec.Action)
		}
		if rec.Timestamp.IsZero() {
			rec.Timestamp = s.now()
		}
		s.trades.Push(rec)
		s.perf.TotalTrades++
		if rec.Status == domain.TradeStatusSuccess {
			s.perf.SuccessfulTrades++
		} else {
			s.perf.FailedTrades++
		}
		s.perf.TotalVolume += rec.VolumeUSDT

	case event.StrategyLog:
		entry := e.Entry
		if entry.Timestamp.IsZero() {
			entry.Timestamp = s.now()
		}
		s.logs.Push(entry)

	case event.PerformanceDelta:
		s.mergePerformance(e)

	case event.RiskDelta:
		s.mergeRisk(e)

	default:
		return fmt.Errorf("%w: %T", ErrInvalidEvent, ev)
	}
	return nil
}

func (s *Store) mergeStatus(d event.StatusDelta) {
	if d.IsRunning != nil {
		s.status.IsRunning = *d.IsRunning
	}
	if d.LastStrategyRun != nil {
		s.status.LastStrategyRun = *d.LastStrategyRun
	}
	if d.NextStrategyRun != nil {
		s.status.NextStrategyRun = *d.NextStrategyRun
	}
	if d.SimulationMode != nil {
		s.status.SimulationMode = *d.SimulationMode
	}
	if d.ErrorCount != nil {
		s.status.ErrorCount = *d.ErrorCount
	}
	if d.TotalRuns != nil {
		s.status.TotalRuns = *d.TotalRuns
	}
	if d.ErrorCountAdd != nil {
		s.status.ErrorCount += *d.ErrorCountAdd
	}
	if d.TotalRunsAdd != nil {
		s.status.TotalRuns += *d.TotalRunsAdd
	}
}

func (s *Store) mergePerformance(d event.PerformanceDelta) {
	if d.TotalTrades != nil {
		s.perf.TotalTrades = *d.TotalTrades
	}
	if d.SuccessfulTrades != nil {
		s.perf.SuccessfulTrades = *d.SuccessfulTrades
	}
	if d.FailedTrades != nil {
		s.perf.FailedTrades = *d.FailedTrades
	}
	if d.TotalProfitLoss != nil {
		s.perf.TotalProfitLoss = *d.TotalProfitLoss
	}
	if d.TotalVolume != nil {
		s.perf.TotalVolume = *d.TotalVolume
	}
	if d.StartBalance != nil {
		s.perf.StartBalance = *d.StartBalance
	}
	if d.CurrentBalance != nil {
		s.perf.CurrentBalance = *d.CurrentBalance
	}
}

func (s *Store) mergeRisk(d event.RiskDelta) {
	if d.TotalExposure != nil {
		s.risk.TotalExposure = *d.TotalExposure
	}
	if d.MaxSinglePosition != nil {
		s.risk.MaxSinglePosition = *d.MaxSinglePosition
	}
	if d.PositionCount != nil {
		s.risk.PositionCount = *d.PositionCount
	}
	if d.USDTReserve != nil {
		s.risk.USDTReserve = *d.USDTReserve
	}
	if d.TotalValue != nil {
		s.risk.TotalValue = *d.TotalValue
	}
}

// GetSystemStatus returns a copy of the current status.
func (s *Store) GetSystemStatus() domain.SystemStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// GetPositions returns a copy of the current position snapshot.
func (s *Store) GetPositions() domain.PositionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions.Clone()
}

// GetForecasts returns a copy of the current forecast snapshot.
func (s *Store) GetForecasts() domain.ForecastSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forecasts.Clone()
}

// GetTradeHistory returns the newest limit trade records in insertion
// order. limit <= 0 returns the full bounded log.
func (s *Store) GetTradeHistory(limit int) []domain.TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trades.Tail(limit)
}

// GetLogs returns the newest limit strategy log entries in insertion order.
// limit <= 0 returns the full bounded log.
func (s *Store) GetLogs(limit int) []domain.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logs.Tail(limit)
}

// GetPerformance returns a copy of the running performance counters.
func (s *Store) GetPerformance() domain.PerformanceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perf
}

// GetRiskMetrics returns a copy of the current risk metrics.
func (s *Store) GetRiskMetrics() domain.RiskMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.risk
}
