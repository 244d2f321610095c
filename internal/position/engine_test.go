package position

import (
	"testing"
	"time"

	"github.com/dufanyin/optionrunner/internal/domain"
	"github.com/dufanyin/optionrunner/internal/portfolio"
)

func checkSummaryEqual(t *testing.T, got, want domain.Summary) {
	t.Helper()
	pairs := []struct {
		name     string
		g, w     interface{ String() string }
		mismatch bool
	}{
		{"current_value", got.CurrentValue, want.CurrentValue, !got.CurrentValue.Equal(want.CurrentValue)},
		{"total_cost", got.TotalCost, want.TotalCost, !got.TotalCost.Equal(want.TotalCost)},
		{"unrealized", got.Unrealized, want.Unrealized, !got.Unrealized.Equal(want.Unrealized)},
		{"realized_pnl", got.RealizedPnL, want.RealizedPnL, !got.RealizedPnL.Equal(want.RealizedPnL)},
		{"pnl", got.PnL, want.PnL, !got.PnL.Equal(want.PnL)},
		{"delta", got.Delta, want.Delta, !got.Delta.Equal(want.Delta)},
		{"gamma", got.Gamma, want.Gamma, !got.Gamma.Equal(want.Gamma)},
		{"theta", got.Theta, want.Theta, !got.Theta.Equal(want.Theta)},
		{"vega", got.Vega, want.Vega, !got.Vega.Equal(want.Vega)},
	}
	for _, p := range pairs {
		if p.mismatch {
			t.Errorf("summary.%s = %s, want %s", p.name, p.g.String(), p.w.String())
		}
	}
}

const (
	callSymbol       = "SPY-20251024-C-450-100-USD-OPT"
	putSymbol        = "SPY-20251024-P-450-100-USD-OPT"
	underlyingSymbol = "SPY-USD-STK"
	strategyName     = "Demo_SPY"
)

func expiry() time.Time {
	t, _ := time.ParseInLocation("20060102", "20251024", time.Local)
	return t
}

func newTestStore() *portfolio.Store {
	store := portfolio.New(nil)
	store.IngestContract(domain.Contract{
		Symbol: underlyingSymbol, Exchange: domain.ExchangeSmart,
		Product: domain.ProductEquity, Multiplier: 1, Root: "SPY",
	})
	store.IngestContract(domain.Contract{
		Symbol: callSymbol, Exchange: domain.ExchangeSmart,
		Product: domain.ProductOption, Multiplier: 100, Root: "SPY",
		Strike: dec("450"), Right: domain.OptionCall, Expiry: expiry(),
	})
	store.IngestContract(domain.Contract{
		Symbol: putSymbol, Exchange: domain.ExchangeSmart,
		Product: domain.ProductOption, Multiplier: 100, Root: "SPY",
		Strike: dec("450"), Right: domain.OptionPut, Expiry: expiry(),
	})
	return store
}

func straddleOrder(orderID string, direction domain.Direction, comboType domain.ComboType) domain.Order {
	sig := domain.GenerateComboSignature([]string{"20251024C450", "20251024P450"})
	return domain.Order{
		OrderID:   orderID,
		Symbol:    domain.FormatComboSymbol("SPY", comboType, sig),
		Exchange:  domain.ExchangeSmart,
		Direction: direction,
		Type:      domain.OrderTypeMarket,
		Volume:    dec("1"),
		Status:    domain.StatusSubmitting,
		IsCombo:   true,
		ComboType: comboType,
		Legs: []domain.Leg{
			{Symbol: callSymbol, Direction: direction, Ratio: 1, Right: domain.OptionCall, Strike: dec("450")},
			{Symbol: putSymbol, Direction: direction, Ratio: 1, Right: domain.OptionPut, Strike: dec("450")},
		},
	}
}

func tradeOn(tradeID, orderID, symbol string, direction domain.Direction, volume, price string) domain.Trade {
	return domain.Trade{
		TradeID: tradeID, OrderID: orderID, Symbol: symbol,
		Direction: direction, Volume: dec(volume), Price: dec(price),
		Time: time.Now(),
	}
}

// Straddle open, mid refresh, then flat via a CUSTOM closing combo.
func TestStraddleOpenThenFlat(t *testing.T) {
	store := newTestStore()
	engine := New(nil, store)
	engine.GetCreateHolding(strategyName, underlyingSymbol, 1)

	open := straddleOrder("1", domain.DirectionLong, domain.ComboStraddle)
	engine.ProcessOrder(open)
	engine.ProcessTrade(strategyName, tradeOn("t1", "1", callSymbol, domain.DirectionLong, "1", "2.00"))
	engine.ProcessTrade(strategyName, tradeOn("t2", "1", putSymbol, domain.DirectionLong, "1", "1.50"))

	holding, _ := engine.GetHolding(strategyName)
	combo, ok := holding.Combos[open.Symbol]
	if !ok {
		t.Fatalf("combo %s not created", open.Symbol)
	}
	if !combo.Quantity.Equal(dec("1")) {
		t.Fatalf("combo quantity = %s, want 1", combo.Quantity)
	}

	store.ApplyChainMarketData(portfolio.ChainMarketData{
		Root:          "SPY",
		UnderlyingMid: dec("450.10"),
		Options: []portfolio.OptionMarketData{
			{Symbol: callSymbol, MidPrice: dec("2.10"), Delta: dec("52"), Gamma: dec("3"), Theta: dec("-5"), Vega: dec("11")},
			{Symbol: putSymbol, MidPrice: dec("1.40"), Delta: dec("-48"), Gamma: dec("3"), Theta: dec("-5"), Vega: dec("11")},
		},
	})
	engine.UpdateMetrics(strategyName)

	if !combo.AvgCost.Equal(dec("3.5")) {
		t.Errorf("combo avg_cost = %s, want 3.5", combo.AvgCost)
	}
	if !combo.CostValue.Equal(dec("350")) {
		t.Errorf("combo cost_value = %s, want 350", combo.CostValue)
	}
	summary := holding.Summary
	if !summary.TotalCost.Equal(dec("350")) {
		t.Errorf("summary.total_cost = %s, want 350", summary.TotalCost)
	}
	if !summary.CurrentValue.Equal(dec("350")) {
		t.Errorf("summary.current_value = %s, want 350", summary.CurrentValue)
	}
	if !summary.Unrealized.IsZero() {
		t.Errorf("summary.unrealized = %s, want 0", summary.Unrealized)
	}
	if !summary.PnL.IsZero() {
		t.Errorf("summary.pnl = %s, want 0", summary.PnL)
	}
	// Greeks roll up signed by leg quantity: 52 − 48 = 4.
	if !summary.Delta.Equal(dec("4")) {
		t.Errorf("summary.delta = %s, want 4", summary.Delta)
	}

	closeOrder := straddleOrder("2", domain.DirectionShort, domain.ComboCustom)
	for i := range closeOrder.Legs {
		closeOrder.Legs[i].Direction = domain.DirectionShort
	}
	engine.ProcessOrder(closeOrder)
	engine.ProcessTrade(strategyName, tradeOn("t3", "2", callSymbol, domain.DirectionShort, "1", "2.20"))
	engine.ProcessTrade(strategyName, tradeOn("t4", "2", putSymbol, domain.DirectionShort, "1", "1.20"))

	if !combo.Quantity.IsZero() {
		t.Fatalf("combo quantity after close = %s, want 0", combo.Quantity)
	}
	if len(holding.Combos) != 1 {
		t.Fatalf("closing CUSTOM combo should collapse onto the straddle, got %d combos", len(holding.Combos))
	}

	engine.UpdateMetrics(strategyName)
	if !holding.Summary.PnL.Equal(dec("-10")) {
		t.Errorf("summary.pnl = %s, want -10", holding.Summary.PnL)
	}
	if !holding.Summary.RealizedPnL.Equal(dec("-10")) {
		t.Errorf("summary.realized = %s, want -10", holding.Summary.RealizedPnL)
	}
}

func TestDuplicateTradeIgnored(t *testing.T) {
	engine := New(nil, newTestStore())
	engine.GetCreateHolding(strategyName, underlyingSymbol, 1)

	tr := tradeOn("dup", "9", underlyingSymbol, domain.DirectionLong, "5", "100")
	engine.ProcessTrade(strategyName, tr)
	engine.ProcessTrade(strategyName, tr)

	holding, _ := engine.GetHolding(strategyName)
	if !holding.Underlying.Quantity.Equal(dec("5")) {
		t.Fatalf("underlying quantity = %s, want 5 (at-least-once delivery must dedupe)", holding.Underlying.Quantity)
	}
}

func TestTradeForUnknownStrategyIgnored(t *testing.T) {
	engine := New(nil, newTestStore())
	engine.ProcessTrade("Ghost_SPY", tradeOn("x", "9", underlyingSymbol, domain.DirectionLong, "5", "100"))
	if _, ok := engine.GetHolding("Ghost_SPY"); ok {
		t.Fatal("holding should not be created for unknown strategy")
	}
}

func TestSingleLegOptionUsesContractMultiplier(t *testing.T) {
	engine := New(nil, newTestStore())
	engine.GetCreateHolding(strategyName, underlyingSymbol, 1)

	engine.ProcessTrade(strategyName, tradeOn("t1", "5", callSymbol, domain.DirectionLong, "2", "1.50"))

	holding, _ := engine.GetHolding(strategyName)
	pos, ok := holding.Options[callSymbol]
	if !ok {
		t.Fatal("option position not created")
	}
	if pos.Multiplier != 100 {
		t.Errorf("multiplier = %d, want 100", pos.Multiplier)
	}
	if !pos.CostValue.Equal(dec("300")) {
		t.Errorf("cost_value = %s, want 300", pos.CostValue)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	store := newTestStore()
	engine := New(nil, store)
	engine.GetCreateHolding(strategyName, underlyingSymbol, 1)

	open := straddleOrder("1", domain.DirectionLong, domain.ComboStraddle)
	engine.ProcessOrder(open)
	engine.ProcessTrade(strategyName, tradeOn("t1", "1", callSymbol, domain.DirectionLong, "1", "2.00"))
	engine.ProcessTrade(strategyName, tradeOn("t2", "1", putSymbol, domain.DirectionLong, "1", "1.50"))
	engine.ProcessTrade(strategyName, tradeOn("t3", "9", underlyingSymbol, domain.DirectionShort, "3", "451.20"))
	engine.UpdateMetrics(strategyName)

	snapshot, err := engine.SerializeHolding(strategyName)
	if err != nil {
		t.Fatal(err)
	}

	restored := New(nil, store)
	restored.LoadSerializedHolding(strategyName, snapshot)

	original, _ := engine.GetHolding(strategyName)
	loaded, _ := restored.GetHolding(strategyName)

	checkSummaryEqual(t, loaded.Summary, original.Summary)
	if !loaded.Underlying.Quantity.Equal(original.Underlying.Quantity) {
		t.Errorf("underlying quantity = %s, want %s", loaded.Underlying.Quantity, original.Underlying.Quantity)
	}
	if loaded.Underlying.Multiplier != 1 {
		t.Errorf("underlying multiplier = %d, want 1", loaded.Underlying.Multiplier)
	}

	origCombo := original.Combos[open.Symbol]
	loadCombo, ok := loaded.Combos[open.Symbol]
	if !ok {
		t.Fatalf("combo %s lost in round trip", open.Symbol)
	}
	if loadCombo.ComboType != domain.ComboStraddle {
		t.Errorf("combo type = %s, want STRADDLE", loadCombo.ComboType)
	}
	if !loadCombo.Quantity.Equal(origCombo.Quantity) || !loadCombo.AvgCost.Equal(origCombo.AvgCost) {
		t.Errorf("combo fields differ: got qty=%s avg=%s, want qty=%s avg=%s",
			loadCombo.Quantity, loadCombo.AvgCost, origCombo.Quantity, origCombo.AvgCost)
	}
	if len(loadCombo.Legs) != len(origCombo.Legs) {
		t.Fatalf("legs = %d, want %d", len(loadCombo.Legs), len(origCombo.Legs))
	}
	for i := range origCombo.Legs {
		if !loadCombo.Legs[i].RealizedPnL.Equal(origCombo.Legs[i].RealizedPnL) {
			t.Errorf("leg %d realized = %s, want %s", i,
				loadCombo.Legs[i].RealizedPnL, origCombo.Legs[i].RealizedPnL)
		}
		if loadCombo.Legs[i].Multiplier != 100 {
			t.Errorf("leg %d multiplier = %d, want 100", i, loadCombo.Legs[i].Multiplier)
		}
	}
}

// Summary.Delta must include the underlying at theo_delta per unit.
func TestUnderlyingContributesTheoDelta(t *testing.T) {
	store := newTestStore()
	engine := New(nil, store)
	engine.GetCreateHolding(strategyName, underlyingSymbol, 1)

	engine.ProcessTrade(strategyName, tradeOn("t1", "9", underlyingSymbol, domain.DirectionLong, "7", "450"))
	engine.UpdateMetrics(strategyName)

	holding, _ := engine.GetHolding(strategyName)
	if !holding.Summary.Delta.Equal(dec("7")) {
		t.Fatalf("summary.delta = %s, want 7", holding.Summary.Delta)
	}
}
