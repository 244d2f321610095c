// Package position implements the Position Engine: per-strategy holding
// aggregation, the apply_position_change cost/P&L state machine, combo
// matching, timer-driven metrics refresh, closing primitives, and
// serialization.
package position

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dufanyin/optionrunner/internal/domain"
	"github.com/dufanyin/optionrunner/internal/eventbus"
	"github.com/dufanyin/optionrunner/internal/portfolio"
)

const defaultOptionMultiplier = 100

// OrderSender is the callback surface the engine uses to submit closing
// orders. The Strategy Manager implements it; position does not import
// internal/strategy to avoid a cycle.
type OrderSender interface {
	SendOrder(strategyName string, req domain.OrderRequest) error
}

// StrategyLookup resolves the strategy that owns an order id; the Strategy
// Manager's order→strategy map implements it.
type StrategyLookup interface {
	StrategyForOrder(orderID string) (string, bool)
}

// Engine is the Position Engine. Position state inside a holding is mutated
// exclusively from the event dispatcher goroutine; only the holdings map
// structure itself carries a lock, because strategy lifecycle operations
// (create/remove/recover) arrive from other goroutines.
type Engine struct {
	logger *zap.Logger
	store  *portfolio.Store
	sender OrderSender
	lookup StrategyLookup

	hmu       sync.RWMutex
	holdings  map[string]*domain.StrategyHolding
	orderMeta map[string]domain.Order
	tradeSeen map[string]struct{}
	progress  map[string]*comboProgress
}

// comboProgress tracks how much of each leg of a combo order has filled, so
// completed combo units can be applied to the parent position even when the
// venue only ever reports per-leg executions.
type comboProgress struct {
	legFills map[string]decimal.Decimal
	applied  decimal.Decimal
}

// New constructs an Engine. sender/lookup may be nil at construction and
// wired later via SetSender/SetLookup once the Strategy Manager exists.
func New(logger *zap.Logger, store *portfolio.Store) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:    logger.Named("position"),
		store:     store,
		holdings:  make(map[string]*domain.StrategyHolding),
		orderMeta: make(map[string]domain.Order),
		tradeSeen: make(map[string]struct{}),
		progress:  make(map[string]*comboProgress),
	}
}

// SetSender wires the order-submission callback used by the closing
// primitives.
func (e *Engine) SetSender(s OrderSender) { e.sender = s }

// SetLookup wires the order→strategy resolver.
func (e *Engine) SetLookup(l StrategyLookup) { e.lookup = l }

// RegisterWithBus subscribes the engine to ORDER, TRADE, and TIMER events.
func (e *Engine) RegisterWithBus(bus *eventbus.Bus) {
	bus.Register(eventbus.EventOrder, func(ev eventbus.Event) {
		if oe, ok := ev.(eventbus.OrderEvent); ok {
			e.ProcessOrder(oe.Order)
		}
	})
	bus.Register(eventbus.EventTrade, func(ev eventbus.Event) {
		te, ok := ev.(eventbus.TradeEvent)
		if !ok || e.lookup == nil {
			return
		}
		strategyName, ok := e.lookup.StrategyForOrder(te.Trade.OrderID)
		if !ok {
			e.logger.Warn("trade for unknown order, ignored",
				zap.String("tradeid", te.Trade.TradeID), zap.String("orderid", te.Trade.OrderID))
			return
		}
		e.ProcessTrade(strategyName, te.Trade)
	})
	bus.Register(eventbus.EventTimer, func(eventbus.Event) {
		e.hmu.RLock()
		names := make([]string, 0, len(e.holdings))
		for strategyName := range e.holdings {
			names = append(names, strategyName)
		}
		e.hmu.RUnlock()
		for _, strategyName := range names {
			e.UpdateMetrics(strategyName)
		}
	})
}

// ====================== STRATEGY INIT ======================

// GetCreateHolding returns the holding for strategyName, creating an empty
// one if absent.
func (e *Engine) GetCreateHolding(strategyName, underlyingSymbol string, multiplier int) *domain.StrategyHolding {
	e.hmu.Lock()
	defer e.hmu.Unlock()
	h, ok := e.holdings[strategyName]
	if !ok {
		h = domain.NewStrategyHolding(strategyName, underlyingSymbol, multiplier)
		e.holdings[strategyName] = h
	}
	return h
}

// GetHolding returns the holding for strategyName, if any.
func (e *Engine) GetHolding(strategyName string) (*domain.StrategyHolding, bool) {
	e.hmu.RLock()
	defer e.hmu.RUnlock()
	h, ok := e.holdings[strategyName]
	return h, ok
}

// RemoveHolding drops strategyName's holding from memory (its persisted
// snapshot, if any, is untouched).
func (e *Engine) RemoveHolding(strategyName string) {
	e.hmu.Lock()
	defer e.hmu.Unlock()
	delete(e.holdings, strategyName)
}

// ====================== Process Order and Trade ======================

// ProcessOrder caches the legs/combo metadata of order, keyed by order id,
// so a later TRADE on the same order can be routed without re-deriving its
// shape.
func (e *Engine) ProcessOrder(order domain.Order) {
	e.orderMeta[order.OrderID] = order
}

// ProcessTrade applies trade to strategyName's holding.
func (e *Engine) ProcessTrade(strategyName string, trade domain.Trade) {
	if _, seen := e.tradeSeen[trade.TradeID]; seen {
		return
	}
	e.tradeSeen[trade.TradeID] = struct{}{}

	holding, ok := e.GetHolding(strategyName)
	if !ok {
		e.logger.Warn("trade for unknown strategy, ignored", zap.String("strategy", strategyName))
		return
	}

	meta, hasMeta := e.orderMeta[trade.OrderID]

	if hasMeta && meta.IsCombo {
		comboType := meta.ComboType
		if comboType == "" {
			comboType = domain.ComboCustom
		}
		combo := e.getOrCreateComboPosition(holding, meta.Symbol, comboType, meta.Legs)
		if trade.Symbol == meta.Symbol {
			applyComboQuantityChange(combo, trade)
			prog := e.progressFor(trade.OrderID)
			prog.applied = prog.applied.Add(trade.Volume.Abs())
		} else {
			leg := e.getOrCreateLegPosition(combo, trade.Symbol)
			ApplyPositionChange(&leg.Position, trade)
			e.advanceComboUnits(combo, meta, trade)
		}
		return
	}

	if domain.IsUnderlyingSymbol(trade.Symbol) {
		e.applyUnderlyingTrade(holding, trade)
		return
	}

	e.applySingleLegOptionTrade(holding, trade)
}

func (e *Engine) applyUnderlyingTrade(holding *domain.StrategyHolding, trade domain.Trade) {
	pos := &holding.Underlying
	if pos.Symbol == "" {
		pos.Symbol = trade.Symbol
	}
	ApplyPositionChange(&pos.Position, trade)
}

func (e *Engine) applySingleLegOptionTrade(holding *domain.StrategyHolding, trade domain.Trade) {
	pos, ok := holding.Options[trade.Symbol]
	if !ok {
		pos = &domain.OptionPosition{Position: domain.Position{Symbol: trade.Symbol, Multiplier: e.multiplierFor(trade.Symbol)}}
		holding.Options[trade.Symbol] = pos
	}
	ApplyPositionChange(&pos.Position, trade)
}

func (e *Engine) progressFor(orderID string) *comboProgress {
	prog, ok := e.progress[orderID]
	if !ok {
		prog = &comboProgress{legFills: make(map[string]decimal.Decimal)}
		e.progress[orderID] = prog
	}
	return prog
}

// advanceComboUnits folds a leg fill into the order's fill progress and
// applies any newly completed combo units to the parent position's quantity,
// signed by the order's recorded intent direction. A combo unit is complete
// once every leg has filled its per-unit ratio.
func (e *Engine) advanceComboUnits(combo *domain.ComboPosition, meta domain.Order, trade domain.Trade) {
	if len(meta.Legs) == 0 || meta.Volume.IsZero() {
		return
	}
	prog := e.progressFor(trade.OrderID)
	prog.legFills[trade.Symbol] = prog.legFills[trade.Symbol].Add(trade.Volume.Abs())

	units := completedComboUnits(meta, prog.legFills)
	delta := units.Sub(prog.applied)
	if !delta.IsPositive() {
		return
	}
	prog.applied = units

	if meta.Direction == domain.DirectionShort {
		delta = delta.Neg()
	}
	combo.Quantity = combo.Quantity.Add(delta)
	multiplier := decimal.NewFromInt(int64(combo.Multiplier))
	combo.CostValue = round2(combo.AvgCost.Mul(combo.Quantity.Abs()).Mul(multiplier))
}

// completedComboUnits is the floor of the minimum per-leg fill fraction,
// scaled back to order units: legs carry ratio = per-unit count × order
// volume, so units for a leg are filled · volume / ratio.
func completedComboUnits(meta domain.Order, legFills map[string]decimal.Decimal) decimal.Decimal {
	var units decimal.Decimal
	first := true
	for _, leg := range meta.Legs {
		if leg.Ratio <= 0 {
			continue
		}
		filled := legFills[leg.Symbol]
		legUnits := filled.Mul(meta.Volume).Div(decimal.NewFromInt(int64(leg.Ratio))).Floor()
		if first || legUnits.LessThan(units) {
			units = legUnits
			first = false
		}
	}
	if first {
		return decimal.Zero
	}
	return units
}

// multiplierFor looks up the ingested contract's multiplier, falling back
// to the standard option contract size of 100.
func (e *Engine) multiplierFor(symbol string) int {
	if e.store != nil {
		if c, ok := e.store.Contract(symbol); ok && c.Multiplier > 0 {
			return c.Multiplier
		}
	}
	return defaultOptionMultiplier
}

// portfolioNameFor derives the root portfolio name from a strategy name:
// everything after the first underscore of `{class_name}_{portfolio_name}`.
func portfolioNameFor(strategyName string) string {
	if idx := strings.Index(strategyName, "_"); idx >= 0 {
		return strategyName[idx+1:]
	}
	return strategyName
}
