package strategy

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dufanyin/optionrunner/internal/domain"
	"github.com/dufanyin/optionrunner/internal/eventbus"
	"github.com/dufanyin/optionrunner/internal/gateway"
	"github.com/dufanyin/optionrunner/internal/persistence"
	"github.com/dufanyin/optionrunner/internal/portfolio"
	"github.com/dufanyin/optionrunner/internal/position"
)

const (
	callSymbol       = "SPY-20251024-C-450-100-USD-OPT"
	putSymbol        = "SPY-20251024-P-450-100-USD-OPT"
	underlyingSymbol = "SPY-USD-STK"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type demoStrategy struct {
	BaseStrategy
	initRan bool
	stopRan bool
	failOn  string
}

func (s *demoStrategy) Author() string       { return "tester" }
func (s *demoStrategy) Parameters() []string { return []string{"timer_trigger"} }
func (s *demoStrategy) Variables() []string  { return []string{"inited", "started", "error"} }

func (s *demoStrategy) OnInitLogic() error {
	if s.failOn == "init" {
		return errors.New("init exploded")
	}
	s.initRan = true
	return nil
}

func (s *demoStrategy) OnStopLogic() error {
	s.stopRan = true
	return nil
}

func (s *demoStrategy) OnTimerLogic() error {
	if s.failOn == "timer" {
		return errors.New("timer exploded")
	}
	return nil
}

type fixture struct {
	bus       *eventbus.Bus
	adapter   *gateway.MockAdapter
	store     *portfolio.Store
	positions *position.Engine
	manager   *Manager
}

func newFixture(t *testing.T, dir string) *fixture {
	t.Helper()

	bus := eventbus.New(nil)
	store := portfolio.New(nil)
	expiry, _ := time.ParseInLocation("20060102", "20251024", time.Local)
	store.IngestContract(domain.Contract{
		Symbol: underlyingSymbol, Exchange: domain.ExchangeSmart,
		Product: domain.ProductEquity, Multiplier: 1, Root: "SPY",
	})
	store.IngestContract(domain.Contract{
		Symbol: callSymbol, Exchange: domain.ExchangeSmart,
		Product: domain.ProductOption, Multiplier: 100, Root: "SPY",
		Strike: dec("450"), Right: domain.OptionCall, Expiry: expiry,
	})
	store.IngestContract(domain.Contract{
		Symbol: putSymbol, Exchange: domain.ExchangeSmart,
		Product: domain.ProductOption, Multiplier: 100, Root: "SPY",
		Strike: dec("450"), Right: domain.OptionPut, Expiry: expiry,
	})

	adapter := gateway.NewMockAdapter(nil, bus)
	if err := adapter.Connect("localhost", 7497, 1, "DU12345"); err != nil {
		t.Fatal(err)
	}

	positions := position.New(nil, store)
	registry := NewRegistry()
	registry.Register("Demo", func() Strategy { return &demoStrategy{} })

	settingFile := persistence.NewBlobFile[domain.StrategyConfig](filepath.Join(dir, "strategy_setting.yaml"))
	dataFile := persistence.NewBlobFile[position.SerializedHolding](filepath.Join(dir, "strategy_data.yaml"))

	manager, err := New(nil, bus, adapter, positions, store, registry, settingFile, dataFile)
	if err != nil {
		t.Fatal(err)
	}
	positions.SetSender(manager)
	positions.SetLookup(manager)
	manager.RegisterWithBus(bus)
	positions.RegisterWithBus(bus)

	t.Cleanup(func() {
		bus.Stop()
		manager.initPool.Stop()
	})

	return &fixture{bus: bus, adapter: adapter, store: store, positions: positions, manager: manager}
}

// startBus launches dispatch for tests that exercise the event path; tests
// that drive the engines directly leave it stopped so nothing races their
// synchronous mutations.
func (f *fixture) startBus() {
	f.bus.Start()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture(t, t.TempDir())
	m := f.manager

	if err := m.AddStrategy("Demo", "SPY", nil); err != nil {
		t.Fatal(err)
	}
	name := "Demo_SPY"

	// Start before init is rejected.
	if err := m.StartStrategy(name); !errors.Is(err, domain.ErrInvalidLifecycleTransition) {
		t.Fatalf("start before init = %v, want lifecycle error", err)
	}

	if err := m.InitStrategy(name); err != nil {
		t.Fatal(err)
	}
	s, _ := m.GetStrategy(name)
	waitFor(t, func() bool { return s.Base().Inited() })
	if !s.(*demoStrategy).initRan {
		t.Error("OnInitLogic did not run")
	}

	if err := m.StartStrategy(name); err != nil {
		t.Fatal(err)
	}
	if !s.Base().Started() {
		t.Fatal("strategy should be started")
	}

	// Remove while running is rejected.
	if err := m.RemoveStrategy(name); !errors.Is(err, domain.ErrInvalidLifecycleTransition) {
		t.Fatalf("remove while started = %v, want lifecycle error", err)
	}

	if err := m.StopStrategy(name); err != nil {
		t.Fatal(err)
	}
	if !s.(*demoStrategy).stopRan {
		t.Error("OnStopLogic did not run")
	}

	if err := m.RemoveStrategy(name); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.GetStrategy(name); ok {
		t.Fatal("strategy still live after remove")
	}
	found := false
	for _, removed := range m.RemovedStrategies() {
		if removed == name {
			found = true
		}
	}
	if !found {
		t.Fatal("removed strategy should stay recoverable")
	}
}

func TestAddDuplicateRejected(t *testing.T) {
	f := newFixture(t, t.TempDir())
	if err := f.manager.AddStrategy("Demo", "SPY", nil); err != nil {
		t.Fatal(err)
	}
	if err := f.manager.AddStrategy("Demo", "SPY", nil); !errors.Is(err, domain.ErrInvalidLifecycleTransition) {
		t.Fatalf("duplicate add = %v, want lifecycle error", err)
	}
}

func TestUnknownClassRejected(t *testing.T) {
	f := newFixture(t, t.TempDir())
	if err := f.manager.AddStrategy("Nope", "SPY", nil); err == nil {
		t.Fatal("expected error for unknown class")
	}
}

func TestOrderRoutingAndActiveSet(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.startBus()
	m := f.manager
	if err := m.AddStrategy("Demo", "SPY", nil); err != nil {
		t.Fatal(err)
	}
	name := "Demo_SPY"

	orderID, err := m.SendStrategyOrder(name, domain.OrderRequest{
		Symbol:    underlyingSymbol,
		Direction: domain.DirectionLong,
		Type:      domain.OrderTypeLimit,
		Price:     dec("450.124"),
		Volume:    dec("100"),
	})
	if err != nil {
		t.Fatal(err)
	}

	owner, ok := m.StrategyForOrder(orderID)
	if !ok || owner != name {
		t.Fatalf("StrategyForOrder = %q, %v", owner, ok)
	}

	waitFor(t, func() bool { return len(m.ActiveOrders(name)) == 1 })
	order := m.ActiveOrders(name)[0]
	if !order.Price.Equal(dec("450.12")) {
		t.Errorf("price = %s, want rounded 450.12", order.Price)
	}

	// Fill the order; the active set must drain.
	f.adapter.OrderStatus(orderID, domain.StatusAllTraded, dec("100"))
	waitFor(t, func() bool { return len(m.ActiveOrders(name)) == 0 })

	cached, ok := m.GetOrder(orderID)
	if !ok || cached.Status != domain.StatusAllTraded {
		t.Fatalf("cached order status = %v", cached.Status)
	}
}

func TestTradeRoutesToPositionEngine(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.startBus()
	m := f.manager
	if err := m.AddStrategy("Demo", "SPY", nil); err != nil {
		t.Fatal(err)
	}
	name := "Demo_SPY"

	orderID, err := m.SendStrategyOrder(name, domain.OrderRequest{
		Symbol:    underlyingSymbol,
		Direction: domain.DirectionLong,
		Type:      domain.OrderTypeMarket,
		Volume:    dec("5"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.adapter.ExecDetails(orderID, "exec1", "20251024 10:30:00", dec("450"), dec("5"), domain.DirectionLong); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		h, ok := f.positions.GetHolding(name)
		return ok && h.Underlying.Quantity.Equal(dec("5"))
	})
}

func TestTimerHookErrorSetsErrorFlag(t *testing.T) {
	f := newFixture(t, t.TempDir())
	m := f.manager

	f.manager.registry.Register("Broken", func() Strategy {
		return &demoStrategy{failOn: "timer"}
	})
	if err := m.AddStrategy("Broken", "SPY", map[string]interface{}{"timer_trigger": 1}); err != nil {
		t.Fatal(err)
	}
	name := "Broken_SPY"
	if err := m.InitStrategy(name); err != nil {
		t.Fatal(err)
	}
	s, _ := m.GetStrategy(name)
	waitFor(t, func() bool { return s.Base().Inited() })
	if err := m.StartStrategy(name); err != nil {
		t.Fatal(err)
	}

	m.processTimer()
	if !s.Base().Errored() {
		t.Fatal("error flag not set after failing hook")
	}

	// A disabled strategy gets no further timer invocations; this must not
	// panic or reset the flag.
	m.processTimer()
	if !s.Base().Errored() {
		t.Fatal("error flag lost")
	}
}

// Persist a holding with a nonzero combo, remove the strategy, then re-add
// with the same class+portfolio: the recovery path must restore the combo.
func TestRecoveryRestoresCombo(t *testing.T) {
	f := newFixture(t, t.TempDir())
	m := f.manager
	if err := m.AddStrategy("Demo", "SPY", nil); err != nil {
		t.Fatal(err)
	}
	name := "Demo_SPY"

	sig := domain.GenerateComboSignature([]string{"20251024C450", "20251024P450"})
	comboSymbol := domain.FormatComboSymbol("SPY", domain.ComboStraddle, sig)
	order := domain.Order{
		OrderID: "71", Symbol: comboSymbol, Direction: domain.DirectionLong,
		Type: domain.OrderTypeMarket, Volume: dec("2"), Status: domain.StatusSubmitting,
		IsCombo: true, ComboType: domain.ComboStraddle,
		Legs: []domain.Leg{
			{Symbol: callSymbol, Direction: domain.DirectionLong, Ratio: 2},
			{Symbol: putSymbol, Direction: domain.DirectionLong, Ratio: 2},
		},
	}
	f.positions.ProcessOrder(order)
	f.positions.ProcessTrade(name, domain.Trade{
		TradeID: "e1", OrderID: "71", Symbol: callSymbol,
		Direction: domain.DirectionLong, Volume: dec("2"), Price: dec("2.00"), Time: time.Now(),
	})
	f.positions.ProcessTrade(name, domain.Trade{
		TradeID: "e2", OrderID: "71", Symbol: putSymbol,
		Direction: domain.DirectionLong, Volume: dec("2"), Price: dec("1.50"), Time: time.Now(),
	})
	f.positions.UpdateMetrics(name)

	holding, _ := f.positions.GetHolding(name)
	before := holding.Combos[comboSymbol]
	if before == nil || !before.Quantity.Equal(dec("2")) {
		t.Fatalf("combo not built: %+v", before)
	}
	beforeAvg := before.AvgCost
	beforeCost := before.CostValue

	if err := m.RemoveStrategy(name); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.positions.GetHolding(name); ok {
		t.Fatal("holding should be dropped on remove")
	}

	// Re-adding with the same class+portfolio routes through recovery.
	if err := m.AddStrategy("Demo", "SPY", nil); err != nil {
		t.Fatal(err)
	}
	s, ok := m.GetStrategy(name)
	if !ok {
		t.Fatal("strategy not recovered")
	}

	holding, ok = f.positions.GetHolding(name)
	if !ok {
		t.Fatal("holding not restored")
	}
	combo, ok := holding.Combos[comboSymbol]
	if !ok {
		t.Fatalf("combo %s not restored", comboSymbol)
	}
	if !combo.Quantity.Equal(dec("2")) {
		t.Errorf("restored quantity = %s, want 2", combo.Quantity)
	}
	if !combo.AvgCost.Equal(beforeAvg) {
		t.Errorf("restored avg_cost = %s, want %s", combo.AvgCost, beforeAvg)
	}
	if !combo.CostValue.Equal(beforeCost) {
		t.Errorf("restored cost_value = %s, want %s", combo.CostValue, beforeCost)
	}
	if combo.ComboType != domain.ComboStraddle {
		t.Errorf("restored combo type = %s, want STRADDLE", combo.ComboType)
	}
	if len(combo.Legs) != 2 {
		t.Errorf("restored legs = %d, want 2", len(combo.Legs))
	}
	if s.Base().Holding != holding {
		t.Error("strategy holding reference not rebound")
	}
}

// A second manager booted from the same files sees the removed strategy as
// recoverable.
func TestSettingsSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir)
	if err := f.manager.AddStrategy("Demo", "SPY", map[string]interface{}{"timer_trigger": 7}); err != nil {
		t.Fatal(err)
	}
	if err := f.manager.SaveStrategySetting(); err != nil {
		t.Fatal(err)
	}

	f2 := newFixture(t, dir)
	removed := f2.manager.RemovedStrategies()
	if len(removed) != 1 || removed[0] != "Demo_SPY" {
		t.Fatalf("removed after restart = %v, want [Demo_SPY]", removed)
	}
	if err := f2.manager.RecoverStrategy("Demo_SPY"); err != nil {
		t.Fatal(err)
	}
	s, _ := f2.manager.GetStrategy("Demo_SPY")
	if s.Base().TimerTrigger() != 7 {
		t.Errorf("timer_trigger = %d, want 7 from persisted setting", s.Base().TimerTrigger())
	}
}

func TestDeleteStrategyUnrecoverable(t *testing.T) {
	f := newFixture(t, t.TempDir())
	m := f.manager
	if err := m.AddStrategy("Demo", "SPY", nil); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteStrategy("Demo_SPY"); err != nil {
		t.Fatal(err)
	}
	if len(m.RemovedStrategies()) != 0 {
		t.Fatal("deleted strategy must not be recoverable")
	}
	if err := m.RecoverStrategy("Demo_SPY"); err == nil {
		t.Fatal("recovery of a deleted strategy should fail")
	}
}
