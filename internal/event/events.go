package event

import (
	"time"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
)

// Kind identifies an update variant.
type Kind uint16

const (
	KindSystemStatus Kind = iota + 1
	KindPositions
	KindForecasts
	KindTradeExecution
	KindStrategyLog
	KindPerformance
	KindRiskMetrics
)

// String returns the wire name used in the {"type": ...} JSON envelope.
func (k Kind) String() string {
	switch k {
	case KindSystemStatus:
		return "system_status"
	case KindPositions:
		return "positions"
	case KindForecasts:
		return "predictions"
	case KindTradeExecution:
		return "trade_execution"
	case KindStrategyLog:
		return "strategy_log"
	case KindPerformance:
		return "performance"
	case KindRiskMetrics:
		return "risk_metrics"
	default:
		return "unknown"
	}
}

// Event is the closed union of state updates accepted by the store.
type Event interface {
	Kind() Kind
}

// StatusDelta merges the set fields into the system status. Nil fields are
// left untouched. The *Add fields increment their counter inside the store's
// critical section, so concurrent writers never lose counts the way a
// read-modify-write over ErrorCount/TotalRuns would.
type StatusDelta struct {
	IsRunning       *bool      `json:"is_running,omitempty"`
	LastStrategyRun *time.Time `json:"last_strategy_run,omitempty"`
	NextStrategyRun *time.Time `json:"next_strategy_run,omitempty"`
	SimulationMode  *bool      `json:"simulation_mode,omitempty"`
	ErrorCount      *int       `json:"error_count,omitempty"`
	TotalRuns       *int       `json:"total_runs,omitempty"`
	ErrorCountAdd   *int       `json:"error_count_add,omitempty"`
	TotalRunsAdd    *int       `json:"total_runs_add,omitempty"`
}

func (StatusDelta) Kind() Kind { return KindSystemStatus }

// PositionsReplace swaps the entire position snapshot.
type PositionsReplace struct {
	Positions domain.PositionSnapshot
}

func (PositionsReplace) Kind() Kind { return KindPositions }

// ForecastsReplace swaps the entire forecast snapshot.
type ForecastsReplace struct {
	Forecasts domain.ForecastSnapshot
}

func (ForecastsReplace) Kind() Kind { return KindForecasts }

// TradeExecution appends one trade to the history log.
type TradeExecution struct {
	Record domain.TradeRecord
}

func (TradeExecution) Kind() Kind { return KindTradeExecution }

// StrategyLog appends one entry to the strategy log.
type StrategyLog struct {
	Entry domain.LogEntry
}

func (StrategyLog) Kind() Kind { return KindStrategyLog }

// PerformanceDelta merges the set fields into the performance stats.
type PerformanceDelta struct {
	TotalTrades      *int     `json:"total_trades,omitempty"`
	SuccessfulTrades *int     `json:"successful_trades,omitempty"`
	FailedTrades     *int     `json:"failed_trades,omitempty"`
	TotalProfitLoss  *float64 `json:"total_profit_loss,omitempty"`
	TotalVolume      *float64 `json:"total_volume,omitempty"`
	StartBalance     *float64 `json:"start_balance,omitempty"`
	CurrentBalance   *float64 `json:"current_balance,omitempty"`
}

func (PerformanceDelta) Kind() Kind { return KindPerformance }

// RiskDelta merges the set fields into the risk metrics. Positions replaces
// overwrite these values on their next recompute.
type RiskDelta struct {
	TotalExposure     *float64 `json:"total_exposure,omitempty"`
	MaxSinglePosition *float64 `json:"max_single_position,omitempty"`
	PositionCount     *int     `json:"position_count,omitempty"`
	USDTReserve       *float64 `json:"usdt_reserve,omitempty"`
	TotalValue        *float64 `json:"total_value,omitempty"`
}

func (RiskDelta) Kind() Kind { return KindRiskMetrics }

// Pointer helpers for building delta events.

func Bool(v bool) *bool           { return &v }
func Int(v int) *int              { return &v }
func Float(v float64) *float64    { return &v }
func Time(v time.Time) *time.Time { return &v }
