package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
)

// ErrUnknownKind marks an envelope whose type tag matches no known variant.
var ErrUnknownKind = errors.New("event: unknown kind")

// Envelope is the JSON wire form shared by the dashboard push endpoint and
// the change notifier: {"type": <kind name>, "data": <payload>}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Marshal encodes an event into its wire envelope.
func Marshal(ev Event) ([]byte, error) {
	payload, err := payloadOf(ev)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("event: marshal %s payload: %w", ev.Kind(), err)
	}
	return json.Marshal(Envelope{Type: ev.Kind().String(), Data: data})
}

// Unmarshal decodes a wire envelope back into its typed event.
func Unmarshal(b []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("event: decode envelope: %w", err)
	}
	return decode(env)
}

func payloadOf(ev Event) (any, error) {
	switch e := ev.(type) {
	case StatusDelta:
		return e, nil
	case PositionsReplace:
		return e.Positions, nil
	case ForecastsReplace:
		return e.Forecasts, nil
	case TradeExecution:
		return e.Record, nil
	case StrategyLog:
		return e.Entry, nil
	case PerformanceDelta:
		return e, nil
	case RiskDelta:
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, ev)
	}
}

func decode(env Envelope) (Event, error) {
	data := env.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	switch env.Type {
	case KindSystemStatus.String():
		var e StatusDelta
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("event: decode %s: %w", env.Type, err)
		}
		return e, nil
	case KindPositions.String():
		var p domain.PositionSnapshot
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("event: decode %s: %w", env.Type, err)
		}
		return PositionsReplace{Positions: p}, nil
	case KindForecasts.String():
		var f domain.ForecastSnapshot
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("event: decode %s: %w", env.Type, err)
		}
		return ForecastsReplace{Forecasts: f}, nil
	case KindTradeExecution.String():
		var r domain.TradeRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("event: decode %s: %w", env.Type, err)
		}
		return TradeExecution{Record: r}, nil
	case KindStrategyLog.String():
		var l domain.LogEntry
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("event: decode %s: %w", env.Type, err)
		}
		return StrategyLog{Entry: l}, nil
	case KindPerformance.String():
		var e PerformanceDelta
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("event: decode %s: %w", env.Type, err)
		}
		return e, nil
	case KindRiskMetrics.String():
		var e RiskDelta
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("event: decode %s: %w", env.Type, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
}
