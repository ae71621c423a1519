package domain

import "encoding/json"

// Position is a held asset valued in the quote currency.
type Position struct {
	Amount       float64 `json:"amount"`
	CurrentPrice float64 `json:"current_price"`
	USDValue     float64 `json:"usd_value"`
	Free         float64 `json:"free"`
	Locked       float64 `json:"locked"`
}

// PositionSnapshot maps asset symbol (e.g. "BTC") to its position.
// Snapshots replace wholesale on each update.
type PositionSnapshot map[string]Position

// Clone returns an independent copy of the snapshot.
func (s PositionSnapshot) Clone() PositionSnapshot {
	if s == nil {
		return PositionSnapshot{}
	}
	out := make(PositionSnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ForecastSnapshot maps instrument symbol to an opaque forecast payload.
// The core stores and serves forecasts without interpreting them.
type ForecastSnapshot map[string]json.RawMessage

// Clone returns an independent copy, duplicating the raw payload bytes.
func (s ForecastSnapshot) Clone() ForecastSnapshot {
	if s == nil {
		return ForecastSnapshot{}
	}
	out := make(ForecastSnapshot, len(s))
	for k, v := range s {
		cp := make(json.RawMessage, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}
