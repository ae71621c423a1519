package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
)

func newTestJournal(t *testing.T) *TradeJournal {
	t.Helper()
	j, err := NewTradeJournal(filepath.Join(t.TempDir(), "trades.db"))
	if err != nil {
		t.Fatalf("Failed to create journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestTradeJournal_AppendAndRecent(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	rec1 := domain.TradeRecord{
		Timestamp:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Symbol:     "BTCUSDT",
		Action:     domain.ActionBuy,
		Quantity:   0.01,
		Price:      60000,
		VolumeUSDT: 600,
		Confidence: 0.8,
		Reason:     "forecast up",
		Status:     domain.TradeStatusSuccess,
		OrderID:    "1001",
	}
	rec2 := domain.TradeRecord{
		Timestamp:  time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
		Symbol:     "ETHUSDT",
		Action:     domain.ActionSell,
		Quantity:   0.2,
		Price:      3000,
		VolumeUSDT: 600,
		Confidence: 0.6,
		Reason:     "take profit",
		Status:     domain.TradeStatusFailed,
	}

	if err := j.Append(ctx, rec1); err != nil {
		t.Fatalf("Failed to append rec1: %v", err)
	}
	if err := j.Append(ctx, rec2); err != nil {
		t.Fatalf("Failed to append rec2: %v", err)
	}

	got, err := j.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}

	if got[0].Symbol != "BTCUSDT" || got[1].Symbol != "ETHUSDT" {
		t.Errorf("Insertion order not preserved: %+v", got)
	}
	if got[0].Action != domain.ActionBuy || got[0].OrderID != "1001" {
		t.Errorf("rec1 fields mismatch: %+v", got[0])
	}
	if !got[0].Timestamp.Equal(rec1.Timestamp) {
		t.Errorf("Timestamp mismatch: got %v, want %v", got[0].Timestamp, rec1.Timestamp)
	}
	if got[1].Status != domain.TradeStatusFailed {
		t.Errorf("rec2 status mismatch: %+v", got[1])
	}
}

func TestTradeJournal_RecentLimit(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := domain.TradeRecord{
			Timestamp: time.Now(),
			Symbol:    "BTCUSDT",
			Action:    domain.ActionBuy,
			Quantity:  float64(i),
			Status:    domain.TradeStatusSuccess,
		}
		if err := j.Append(ctx, rec); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	got, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0].Quantity != 3 || got[1].Quantity != 4 {
		t.Errorf("Expected newest two (3,4) in insertion order, got %+v", got)
	}

	n, err := j.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 5 {
		t.Errorf("Expected count 5, got %d", n)
	}
}

func TestTradeJournal_Metadata(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	if v, err := j.GetMetadata(ctx, "start_balance"); err != nil || v != "" {
		t.Fatalf("Expected empty value for missing key, got %q err %v", v, err)
	}

	if err := j.UpsertMetadata(ctx, "start_balance", "10000.0", 1); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := j.UpsertMetadata(ctx, "start_balance", "9500.0", 2); err != nil {
		t.Fatalf("Upsert update failed: %v", err)
	}

	v, err := j.GetMetadata(ctx, "start_balance")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if v != "9500.0" {
		t.Errorf("Expected updated value 9500.0, got %q", v)
	}
}
