package exchange

import (
	"context"
	"math"
	"testing"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
)

func TestPaperExchange_BuyDebitsQuoteCreditsBase(t *testing.T) {
	ctx := context.Background()
	p := NewPaperExchange("USDT", 1000)
	p.SetPrice("BTCUSDT", 50000)

	order, err := p.PlaceMarketOrder(ctx, "BTCUSDT", domain.ActionBuy, 0.01)
	if err != nil {
		t.Fatalf("PlaceMarketOrder() error = %v", err)
	}
	if order.ID == "" {
		t.Error("expected generated order ID")
	}
	if order.Price != 50000 {
		t.Errorf("order price = %v, want 50000", order.Price)
	}

	usdt, _ := p.GetBalance(ctx, "USDT")
	if math.Abs(usdt-500) > 1e-9 {
		t.Errorf("USDT balance = %v, want 500", usdt)
	}
	btc, _ := p.GetBalance(ctx, "BTC")
	if math.Abs(btc-0.01) > 1e-12 {
		t.Errorf("BTC balance = %v, want 0.01", btc)
	}
}

func TestPaperExchange_SellRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewPaperExchange("USDT", 0)
	p.Deposit("ETH", 2)
	p.SetPrice("ETHUSDT", 3000)

	if _, err := p.PlaceMarketOrder(ctx, "ETHUSDT", domain.ActionSell, 1.5); err != nil {
		t.Fatalf("PlaceMarketOrder() error = %v", err)
	}

	eth, _ := p.GetBalance(ctx, "ETH")
	if math.Abs(eth-0.5) > 1e-12 {
		t.Errorf("ETH balance = %v, want 0.5", eth)
	}
	usdt, _ := p.GetBalance(ctx, "USDT")
	if math.Abs(usdt-4500) > 1e-9 {
		t.Errorf("USDT balance = %v, want 4500", usdt)
	}
}

func TestPaperExchange_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	p := NewPaperExchange("USDT", 100)
	p.SetPrice("BTCUSDT", 50000)

	if _, err := p.PlaceMarketOrder(ctx, "BTCUSDT", domain.ActionBuy, 1); err == nil {
		t.Fatal("expected insufficient balance error")
	}
	// Failed order must not mutate balances.
	usdt, _ := p.GetBalance(ctx, "USDT")
	if usdt != 100 {
		t.Errorf("USDT balance = %v, want 100 after rejected order", usdt)
	}

	if _, err := p.PlaceMarketOrder(ctx, "BTCUSDT", domain.ActionSell, 0.1); err == nil {
		t.Fatal("expected insufficient base balance error")
	}
}

func TestPaperExchange_MissingPrice(t *testing.T) {
	ctx := context.Background()
	p := NewPaperExchange("USDT", 1000)

	if _, err := p.GetPrice(ctx, "DOGEUSDT"); err == nil {
		t.Fatal("expected error for unknown symbol price")
	}
	if _, err := p.PlaceMarketOrder(ctx, "DOGEUSDT", domain.ActionBuy, 10); err == nil {
		t.Fatal("expected error placing order with no price")
	}
}

func TestPaperExchange_RejectsHoldAndBadQuantity(t *testing.T) {
	ctx := context.Background()
	p := NewPaperExchange("USDT", 1000)
	p.SetPrice("BTCUSDT", 50000)

	if _, err := p.PlaceMarketOrder(ctx, "BTCUSDT", domain.ActionHold, 0.01); err == nil {
		t.Fatal("expected error for HOLD order side")
	}
	if _, err := p.PlaceMarketOrder(ctx, "BTCUSDT", domain.ActionBuy, 0); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}

func TestPaperExchange_GetAllBalancesIsCopy(t *testing.T) {
	ctx := context.Background()
	p := NewPaperExchange("USDT", 1000)
	p.Deposit("BTC", 1)

	balances, err := p.GetAllBalances(ctx)
	if err != nil {
		t.Fatalf("GetAllBalances() error = %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("len(balances) = %d, want 2", len(balances))
	}

	balances["BTC"] = Balance{Free: 999}
	btc, _ := p.GetBalance(ctx, "BTC")
	if btc != 1 {
		t.Errorf("mutating returned map changed internal balance: got %v", btc)
	}
}

func TestBuildPositionSnapshot_Paper(t *testing.T) {
	ctx := context.Background()
	p := NewPaperExchange("USDT", 300)
	p.Deposit("BTC", 0.01)
	p.SetPrice("BTCUSDT", 70000)

	snapshot, err := BuildPositionSnapshot(ctx, p, "USDT")
	if err != nil {
		t.Fatalf("BuildPositionSnapshot() error = %v", err)
	}

	btc, ok := snapshot["BTC"]
	if !ok {
		t.Fatal("expected BTC position")
	}
	if math.Abs(btc.USDValue-700) > 1e-9 {
		t.Errorf("BTC usd value = %v, want 700", btc.USDValue)
	}
	if btc.CurrentPrice != 70000 {
		t.Errorf("BTC price = %v, want 70000", btc.CurrentPrice)
	}

	usdt, ok := snapshot["USDT"]
	if !ok {
		t.Fatal("expected USDT position")
	}
	if usdt.CurrentPrice != 1 {
		t.Errorf("reserve asset price = %v, want 1", usdt.CurrentPrice)
	}
	if usdt.USDValue != 300 {
		t.Errorf("USDT usd value = %v, want 300", usdt.USDValue)
	}
}

func TestBuildPositionSnapshot_SkipsUnpriceable(t *testing.T) {
	ctx := context.Background()
	p := NewPaperExchange("USDT", 100)
	p.Deposit("SHIB", 1e6) // no price set

	snapshot, err := BuildPositionSnapshot(ctx, p, "USDT")
	if err != nil {
		t.Fatalf("BuildPositionSnapshot() error = %v", err)
	}
	if _, ok := snapshot["SHIB"]; ok {
		t.Error("unpriceable asset should be skipped")
	}
	if _, ok := snapshot["USDT"]; !ok {
		t.Error("reserve asset should remain in snapshot")
	}
}
