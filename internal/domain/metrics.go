package domain

// PerformanceStats carries running counters incremented on each trade.
// They are never recomputed from history.
type PerformanceStats struct {
	TotalTrades      int     `json:"total_trades"`
	SuccessfulTrades int     `json:"successful_trades"`
	FailedTrades     int     `json:"failed_trades"`
	TotalProfitLoss  float64 `json:"total_profit_loss"`
	TotalVolume      float64 `json:"total_volume"`
	StartBalance     float64 `json:"start_balance"`
	CurrentBalance   float64 `json:"current_balance"`
}

// RiskMetrics is fully recomputed from the position snapshot whenever
// positions change.
type RiskMetrics struct {
	TotalExposure     float64 `json:"total_exposure"`
	MaxSinglePosition float64 `json:"max_single_position"`
	PositionCount     int     `json:"position_count"`
	USDTReserve       float64 `json:"usdt_reserve"`
	TotalValue        float64 `json:"total_value"`
}
