// Package risk derives portfolio risk metrics from a position snapshot.
package risk

import "github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"

// Compute recomputes risk metrics from scratch for the given snapshot.
// reserveAsset (normally the quote currency, e.g. "USDT") is excluded from
// exposure and single-position figures.
//
// Pure and deterministic: same snapshot in, same metrics out.
func Compute(positions domain.PositionSnapshot, reserveAsset string) domain.RiskMetrics {
	var m domain.RiskMetrics

	for asset, pos := range positions {
		m.TotalValue += pos.USDValue

		if asset == reserveAsset {
			m.USDTReserve += pos.USDValue
			continue
		}
		if pos.USDValue > m.MaxSinglePosition {
			m.MaxSinglePosition = pos.USDValue
		}
		if pos.USDValue > 0 {
			m.PositionCount++
		}
	}

	if m.TotalValue > 0 {
		m.TotalExposure = (m.TotalValue - m.USDTReserve) / m.TotalValue
	}

	return m
}
