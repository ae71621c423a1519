package risk

import (
	"testing"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
)

func TestCompute_BasicPortfolio(t *testing.T) {
	positions := domain.PositionSnapshot{
		"BTC":  {USDValue: 700},
		"USDT": {USDValue: 300},
	}

	m := Compute(positions, "USDT")

	if m.TotalValue != 1000 {
		t.Errorf("TotalValue: expected 1000, got %f", m.TotalValue)
	}
	if m.USDTReserve != 300 {
		t.Errorf("USDTReserve: expected 300, got %f", m.USDTReserve)
	}
	if m.TotalExposure != 0.7 {
		t.Errorf("TotalExposure: expected 0.7, got %f", m.TotalExposure)
	}
	if m.MaxSinglePosition != 700 {
		t.Errorf("MaxSinglePosition: expected 700, got %f", m.MaxSinglePosition)
	}
	if m.PositionCount != 1 {
		t.Errorf("PositionCount: expected 1, got %d", m.PositionCount)
	}
}

func TestCompute_EmptySnapshotIsAllZero(t *testing.T) {
	m := Compute(domain.PositionSnapshot{}, "USDT")

	if m != (domain.RiskMetrics{}) {
		t.Errorf("Expected zero metrics for empty snapshot, got %+v", m)
	}
}

func TestCompute_ReserveOnlyHasZeroExposure(t *testing.T) {
	positions := domain.PositionSnapshot{
		"USDT": {USDValue: 5000},
	}

	m := Compute(positions, "USDT")

	if m.TotalExposure != 0 {
		t.Errorf("Expected 0 exposure, got %f", m.TotalExposure)
	}
	if m.PositionCount != 0 {
		t.Errorf("Expected 0 positions, got %d", m.PositionCount)
	}
	if m.USDTReserve != 5000 {
		t.Errorf("Expected reserve 5000, got %f", m.USDTReserve)
	}
}

func TestCompute_ZeroValuePositionsNotCounted(t *testing.T) {
	positions := domain.PositionSnapshot{
		"BTC":  {USDValue: 100},
		"DOGE": {USDValue: 0},
		"USDT": {USDValue: 0},
	}

	m := Compute(positions, "USDT")

	if m.PositionCount != 1 {
		t.Errorf("Zero-value assets must not count, got %d", m.PositionCount)
	}
	if m.TotalExposure != 1 {
		t.Errorf("Expected full exposure with empty reserve, got %f", m.TotalExposure)
	}
}

func TestCompute_MissingReserveAsset(t *testing.T) {
	positions := domain.PositionSnapshot{
		"ETH": {USDValue: 250},
		"SOL": {USDValue: 750},
	}

	m := Compute(positions, "USDT")

	if m.USDTReserve != 0 {
		t.Errorf("Expected 0 reserve when absent, got %f", m.USDTReserve)
	}
	if m.TotalExposure != 1 {
		t.Errorf("Expected exposure 1, got %f", m.TotalExposure)
	}
	if m.MaxSinglePosition != 750 {
		t.Errorf("Expected max position 750, got %f", m.MaxSinglePosition)
	}
	if m.PositionCount != 2 {
		t.Errorf("Expected 2 positions, got %d", m.PositionCount)
	}
}
