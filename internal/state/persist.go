package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/risk"
)

// document is the persisted-state JSON shape. Pointer and nilable fields let
// Restore distinguish absent keys from zero values: any missing key keeps
// the store's current in-memory value.
type document struct {
	SystemStatus   *domain.SystemStatus     `json:"system_status,omitempty"`
	Positions      domain.PositionSnapshot  `json:"positions,omitempty"`
	Predictions    domain.ForecastSnapshot  `json:"predictions,omitempty"`
	TradingHistory []domain.TradeRecord     `json:"trading_history,omitempty"`
	StrategyLogs   []domain.LogEntry        `json:"strategy_logs,omitempty"`
	Performance    *domain.PerformanceStats `json:"performance_stats,omitempty"`
	Risk           *domain.RiskMetrics      `json:"risk_metrics,omitempty"`
	SavedAt        time.Time                `json:"saved_at"`
}

// Persist serializes the entire store state as one JSON document.
// Serialized against concurrent updates by the store lock.
func (s *Store) Persist() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.status
	perf := s.perf
	riskCopy := s.risk

	doc := document{
		SystemStatus:   &status,
		Positions:      s.positions.Clone(),
		Predictions:    s.forecasts.Clone(),
		TradingHistory: s.trades.Snapshot(),
		StrategyLogs:   s.logs.Snapshot(),
		Performance:    &perf,
		Risk:           &riskCopy,
		SavedAt:        s.now(),
	}
	// Keep the log arrays present (as []) even when empty.
	if doc.TradingHistory == nil {
		doc.TradingHistory = []domain.TradeRecord{}
	}
	if doc.StrategyLogs == nil {
		doc.StrategyLogs = []domain.LogEntry{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("state: marshal persisted state: %w", err)
	}
	return data, nil
}

// Restore replaces store state from a persisted document. Missing top-level
// keys keep their current in-memory values. Malformed input is rejected
// atomically: the store is left unchanged and a deserialization error is
// returned.
func (s *Store) Restore(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("state: decode persisted state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.SystemStatus != nil {
		s.status = *doc.SystemStatus
	}
	if doc.Positions != nil {
		s.positions = doc.Positions.Clone()
	}
	if doc.Predictions != nil {
		s.forecasts = doc.Predictions.Clone()
	}
	if doc.TradingHistory != nil {
		s.trades.Reset()
		for _, rec := range tail(doc.TradingHistory, s.trades.Cap()) {
			s.trades.Push(rec)
		}
	}
	if doc.StrategyLogs != nil {
		s.logs.Reset()
		for _, entry := range tail(doc.StrategyLogs, s.logs.Cap()) {
			s.logs.Push(entry)
		}
	}
	if doc.Performance != nil {
		s.perf = *doc.Performance
	}
	switch {
	case doc.Risk != nil:
		s.risk = *doc.Risk
	case doc.Positions != nil:
		// Risk absent but positions restored: recompute so the two stay
		// from the same generation.
		s.risk = risk.Compute(s.positions, s.reserveAsset)
	}

	return nil
}

// tail keeps the newest n entries of a restored slice.
func tail[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

// SaveFile persists the store to one JSON file, creating parent directories.
func (s *Store) SaveFile(path string) error {
	data, err := s.Persist()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("state: create state dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("state: write state file: %w", err)
	}
	return nil
}

// LoadFile restores the store from a JSON file. A missing file is not an
// error; the store keeps its defaults.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("state: read state file: %w", err)
	}
	return s.Restore(data)
}
