package domain

import "time"

// Action is the advisory trade direction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Valid reports whether the action is one of the known directions.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	}
	return false
}

// Trade execution outcome.
const (
	TradeStatusSuccess = "success"
	TradeStatusFailed  = "failed"
)

// TradeRecord is an executed (or attempted) trade. Records are immutable
// once appended to the history log.
type TradeRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `json:"symbol"`
	Action     Action    `json:"action"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	VolumeUSDT float64   `json:"volume_usdt"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	OrderID    string    `json:"order_id,omitempty"`
}

// LogEntry is a free-text strategy log line.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
}

// TradeIntent is an advisory-supplied proposal, not yet bounded by
// available funds.
type TradeIntent struct {
	Symbol       string  `json:"symbol"`
	Action       Action  `json:"action"`
	QuantityUSDT float64 `json:"quantity_usdt"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason,omitempty"`
}

// OrderIntent is a finalized, budget- and limit-clamped instruction ready
// for submission to the exchange.
type OrderIntent struct {
	Symbol       string  `json:"symbol"`
	Action       Action  `json:"action"`
	QuantityUSDT float64 `json:"quantity_usdt"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason,omitempty"`
}

// TradeLimits bounds individual orders produced by the allocator.
type TradeLimits struct {
	MinTrade       float64 `yaml:"min_trade" json:"min_trade"`
	MaxSingleTrade float64 `yaml:"max_single_trade" json:"max_single_trade"`
	SafetyMargin   float64 `yaml:"safety_margin" json:"safety_margin"`
}
