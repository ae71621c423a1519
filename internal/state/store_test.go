package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/event"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/risk"
)

func mustUpdate(t *testing.T, s *Store, ev event.Event) {
	t.Helper()
	if err := s.UpdateState(ev); err != nil {
		t.Fatalf("UpdateState(%T) failed: %v", ev, err)
	}
}

func TestStore_StatusDeltaMergesPartially(t *testing.T) {
	s := New(10)

	mustUpdate(t, s, event.StatusDelta{IsRunning: event.Bool(true), TotalRuns: event.Int(3)})
	mustUpdate(t, s, event.StatusDelta{ErrorCount: event.Int(1)})

	st := s.GetSystemStatus()
	if !st.IsRunning {
		t.Errorf("IsRunning lost by later partial merge")
	}
	if st.TotalRuns != 3 {
		t.Errorf("TotalRuns: expected 3, got %d", st.TotalRuns)
	}
	if st.ErrorCount != 1 {
		t.Errorf("ErrorCount: expected 1, got %d", st.ErrorCount)
	}
	if st.LastUpdate.IsZero() {
		t.Errorf("LastUpdate must be stamped on every update")
	}
}

func TestStore_CounterAddsSurviveConcurrentWriters(t *testing.T) {
	s := New(10)
	mustUpdate(t, s, event.StatusDelta{TotalRuns: event.Int(5)})

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.UpdateState(event.StatusDelta{
				TotalRunsAdd:  event.Int(1),
				ErrorCountAdd: event.Int(1),
			})
			if err != nil {
				t.Errorf("UpdateState() error = %v", err)
			}
		}()
	}
	wg.Wait()

	st := s.GetSystemStatus()
	if st.TotalRuns != 5+writers {
		t.Errorf("TotalRuns = %d, want %d", st.TotalRuns, 5+writers)
	}
	if st.ErrorCount != writers {
		t.Errorf("ErrorCount = %d, want %d", st.ErrorCount, writers)
	}
}

func TestStore_PositionsReplaceRecomputesRisk(t *testing.T) {
	s := New(10)

	snapshots := []domain.PositionSnapshot{
		{"BTC": {USDValue: 700}, "USDT": {USDValue: 300}},
		{"ETH": {USDValue: 100}},
		{},
		{"USDT": {USDValue: 50}},
	}

	for i, snap := range snapshots {
		mustUpdate(t, s, event.PositionsReplace{Positions: snap})

		want := risk.Compute(snap, DefaultReserveAsset)
		if got := s.GetRiskMetrics(); got != want {
			t.Errorf("snapshot %d: risk mismatch\n got %+v\nwant %+v", i, got, want)
		}
	}
}

func TestStore_ReaderSnapshotIsDefensiveCopy(t *testing.T) {
	s := New(10)
	mustUpdate(t, s, event.PositionsReplace{
		Positions: domain.PositionSnapshot{"BTC": {USDValue: 100}},
	})

	snap := s.GetPositions()
	snap["BTC"] = domain.Position{USDValue: 999}
	snap["DOGE"] = domain.Position{USDValue: 1}

	again := s.GetPositions()
	if again["BTC"].USDValue != 100 {
		t.Errorf("Reader mutation leaked into store: %+v", again)
	}
	if _, ok := again["DOGE"]; ok {
		t.Errorf("Reader insertion leaked into store")
	}
}

func TestStore_WriterMutationDoesNotChangeObservedSnapshot(t *testing.T) {
	s := New(10)
	mustUpdate(t, s, event.PositionsReplace{
		Positions: domain.PositionSnapshot{"BTC": {USDValue: 100}},
	})

	observed := s.GetPositions()

	mustUpdate(t, s, event.PositionsReplace{
		Positions: domain.PositionSnapshot{"BTC": {USDValue: 5}},
	})

	if observed["BTC"].USDValue != 100 {
		t.Errorf("Later write changed a value already observed: %+v", observed)
	}
}

func TestStore_TradeHistoryFIFOEviction(t *testing.T) {
	const capacity = 16
	const extra = 5
	s := New(capacity)

	for i := 0; i < capacity+extra; i++ {
		mustUpdate(t, s, event.TradeExecution{Record: domain.TradeRecord{
			Symbol: fmt.Sprintf("SYM%03d", i),
			Action: domain.ActionBuy,
			Status: domain.TradeStatusSuccess,
		}})
	}

	history := s.GetTradeHistory(0)
	if len(history) != capacity {
		t.Fatalf("Expected log length %d, got %d", capacity, len(history))
	}
	for i, rec := range history {
		want := fmt.Sprintf("SYM%03d", i+extra)
		if rec.Symbol != want {
			t.Errorf("history[%d]: expected %s, got %s", i, want, rec.Symbol)
		}
	}
}

func TestStore_TradeHistoryTailLimit(t *testing.T) {
	s := New(100)
	for i := 0; i < 10; i++ {
		mustUpdate(t, s, event.TradeExecution{Record: domain.TradeRecord{
			Symbol: fmt.Sprintf("SYM%d", i),
			Action: domain.ActionSell,
			Status: domain.TradeStatusSuccess,
		}})
	}

	got := s.GetTradeHistory(3)
	if len(got) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(got))
	}
	if got[0].Symbol != "SYM7" || got[2].Symbol != "SYM9" {
		t.Errorf("Tail must return newest records in insertion order: %+v", got)
	}
}

func TestStore_TradeUpdatesPerformanceCounters(t *testing.T) {
	s := New(10)

	mustUpdate(t, s, event.TradeExecution{Record: domain.TradeRecord{
		Symbol: "BTCUSDT", Action: domain.ActionBuy,
		VolumeUSDT: 200, Status: domain.TradeStatusSuccess,
	}})
	mustUpdate(t, s, event.TradeExecution{Record: domain.TradeRecord{
		Symbol: "ETHUSDT", Action: domain.ActionSell,
		VolumeUSDT: 150, Status: domain.TradeStatusFailed,
	}})

	perf := s.GetPerformance()
	if perf.TotalTrades != 2 || perf.SuccessfulTrades != 1 || perf.FailedTrades != 1 {
		t.Errorf("Counters wrong: %+v", perf)
	}
	if perf.TotalVolume != 350 {
		t.Errorf("TotalVolume: expected 350, got %f", perf.TotalVolume)
	}
}

func TestStore_TradeTimestampStamped(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New(10, WithClock(func() time.Time { return fixed }))

	mustUpdate(t, s, event.TradeExecution{Record: domain.TradeRecord{
		Symbol: "BTCUSDT", Action: domain.ActionBuy, Status: domain.TradeStatusSuccess,
	}})

	if got := s.GetTradeHistory(0)[0].Timestamp; !got.Equal(fixed) {
		t.Errorf("Expected stamped timestamp %v, got %v", fixed, got)
	}
}

func TestStore_InvalidEventsRejectedWithoutMutation(t *testing.T) {
	s := New(10)
	mustUpdate(t, s, event.StatusDelta{TotalRuns: event.Int(1)})
	before := s.GetSystemStatus()

	if err := s.UpdateState(nil); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("nil event: expected ErrInvalidEvent, got %v", err)
	}
	err := s.UpdateState(event.TradeExecution{Record: domain.TradeRecord{
		Symbol: "BTCUSDT", Action: "SHORT",
	}})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("bad action: expected ErrInvalidEvent, got %v", err)
	}

	after := s.GetSystemStatus()
	if after.TotalRuns != before.TotalRuns || !after.LastUpdate.Equal(before.LastUpdate) {
		t.Errorf("Rejected event mutated state: before=%+v after=%+v", before, after)
	}
	if len(s.GetTradeHistory(0)) != 0 {
		t.Errorf("Rejected trade was appended")
	}
	if s.GetPerformance().TotalTrades != 0 {
		t.Errorf("Rejected trade bumped counters")
	}
}

type captureSubscriber struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *captureSubscriber) Notify(ev event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func TestStore_SubscriberSeesAcceptedEventsOnly(t *testing.T) {
	sub := &captureSubscriber{}
	s := New(10, WithSubscriber(sub))

	mustUpdate(t, s, event.StatusDelta{IsRunning: event.Bool(true)})
	s.UpdateState(nil) // rejected

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if len(sub.events) != 1 {
		t.Fatalf("Expected 1 forwarded event, got %d", len(sub.events))
	}
	if sub.events[0].Kind() != event.KindSystemStatus {
		t.Errorf("Wrong event forwarded: %v", sub.events[0].Kind())
	}
}

func TestStore_ForecastsOpaqueRoundTrip(t *testing.T) {
	s := New(10)
	payload := json.RawMessage(`{"upside_prob":"63.0%","current_price":64250.5}`)

	mustUpdate(t, s, event.ForecastsReplace{
		Forecasts: domain.ForecastSnapshot{"BTCUSDT": payload},
	})

	got := s.GetForecasts()
	if string(got["BTCUSDT"]) != string(payload) {
		t.Errorf("Forecast payload altered: %s", got["BTCUSDT"])
	}
}

func TestStore_ConcurrentMixedWriters(t *testing.T) {
	const writers = 8
	const perWriter = 200
	s := New(64)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				switch i % 4 {
				case 0:
					s.UpdateState(event.TradeExecution{Record: domain.TradeRecord{
						Symbol: "BTCUSDT", Action: domain.ActionBuy,
						VolumeUSDT: 1, Status: domain.TradeStatusSuccess,
					}})
				case 1:
					s.UpdateState(event.PositionsReplace{Positions: domain.PositionSnapshot{
						"BTC":  {USDValue: float64(id*1000 + i)},
						"USDT": {USDValue: 100},
					}})
				case 2:
					s.UpdateState(event.StrategyLog{Entry: domain.LogEntry{
						Message: "tick", Level: "info",
					}})
				case 3:
					s.UpdateState(event.StatusDelta{TotalRuns: event.Int(i)})
				}
			}
		}(w)
	}

	// Concurrent readers must always observe internally consistent state.
	stop := make(chan struct{})
	var readErr error
	var readOnce sync.Once
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			pos := s.GetPositions()
			metrics := s.GetRiskMetrics()
			// A snapshot read between two updates may interleave positions
			// and risk reads, so only validate invariants on the values.
			if metrics.TotalExposure < 0 || metrics.TotalExposure > 1 {
				readOnce.Do(func() {
					readErr = fmt.Errorf("exposure out of range: %+v (positions %+v)", metrics, pos)
				})
			}
		}
	}()

	wg.Wait()
	close(stop)

	if readErr != nil {
		t.Fatal(readErr)
	}

	perf := s.GetPerformance()
	wantTrades := writers * perWriter / 4
	if perf.TotalTrades != wantTrades {
		t.Errorf("Lost trade updates: expected %d, got %d", wantTrades, perf.TotalTrades)
	}
	if perf.SuccessfulTrades != wantTrades {
		t.Errorf("Success counter mismatch: %+v", perf)
	}
	if got := len(s.GetTradeHistory(0)); got != 64 {
		t.Errorf("Trade log length corrupted: expected capacity 64, got %d", got)
	}
	if got := len(s.GetLogs(0)); got != 64 {
		t.Errorf("Strategy log length corrupted: expected capacity 64, got %d", got)
	}

	// Final risk metrics must match a recompute of the final positions:
	// some valid serialization of all events ends with this snapshot.
	want := risk.Compute(s.GetPositions(), DefaultReserveAsset)
	if got := s.GetRiskMetrics(); got != want {
		t.Errorf("Final positions and risk out of sync:\n got %+v\nwant %+v", got, want)
	}
}

func TestStore_ConsistentPositionRiskGeneration(t *testing.T) {
	// Positions and risk metrics read in one accessor pair after an update
	// completes must come from the same generation.
	s := New(10)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 500; i++ {
			s.UpdateState(event.PositionsReplace{Positions: domain.PositionSnapshot{
				"BTC":  {USDValue: float64(i)},
				"USDT": {USDValue: float64(i)},
			}})
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		metrics := s.GetRiskMetrics()
		if metrics.TotalValue == 0 {
			continue
		}
		// For every generation: total = 2*i, reserve = i, exposure = 0.5.
		if metrics.TotalExposure != 0.5 {
			t.Fatalf("Observed risk from mixed generations: %+v", metrics)
		}
	}
}
