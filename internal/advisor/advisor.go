package advisor

import (
	"context"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
)

// Input bundles everything an advisor may consider when proposing trades.
type Input struct {
	Forecasts domain.ForecastSnapshot
	Positions domain.PositionSnapshot
	Prices    map[string]float64
}

// Advisor turns market context into trade intents. Implementations are
// external collaborators (an LLM, a rules engine); intents they return are
// nominal and still pass through budget allocation before execution.
type Advisor interface {
	Advise(ctx context.Context, in Input) ([]domain.TradeIntent, error)
}

// Forecaster produces per-symbol forecast payloads. The payloads are opaque
// to the trading core and are published to observers as-is.
type Forecaster interface {
	Forecast(ctx context.Context, symbols []string) (domain.ForecastSnapshot, error)
}

// HoldAdvisor proposes no trades. It is the default in simulation mode and
// keeps the cycle exercising every stage without spending funds.
type HoldAdvisor struct{}

func (HoldAdvisor) Advise(ctx context.Context, in Input) ([]domain.TradeIntent, error) {
	intents := make([]domain.TradeIntent, 0, len(in.Prices))
	for symbol := range in.Prices {
		intents = append(intents, domain.TradeIntent{
			Symbol:       symbol,
			Action:       domain.ActionHold,
			QuantityUSDT: 0,
			Confidence:   1,
			Reason:       "no advisory signal",
		})
	}
	return intents, nil
}

// StaticForecaster returns a fixed forecast snapshot. Useful in simulation
// mode and in tests where no model endpoint is available.
type StaticForecaster struct {
	Snapshot domain.ForecastSnapshot
}

func (s StaticForecaster) Forecast(ctx context.Context, symbols []string) (domain.ForecastSnapshot, error) {
	return s.Snapshot.Clone(), nil
}
