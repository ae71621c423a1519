package domain

import "time"

// SystemStatus describes the running state of the strategy process.
// It is mutated by partial-field merge, never replaced wholesale.
type SystemStatus struct {
	IsRunning       bool      `json:"is_running"`
	LastUpdate      time.Time `json:"last_update"`
	LastStrategyRun time.Time `json:"last_strategy_run"`
	NextStrategyRun time.Time `json:"next_strategy_run"`
	SimulationMode  bool      `json:"simulation_mode"`
	ErrorCount      int       `json:"error_count"`
	TotalRuns       int       `json:"total_runs"`
}
