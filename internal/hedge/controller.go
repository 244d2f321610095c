// Package hedge implements the timer-driven delta-band control loop: for
// each registered strategy it keeps the holding's aggregate delta inside
// [delta_target - delta_range, delta_target + delta_range] by trading the
// underlying.
package hedge

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dufanyin/optionrunner/internal/domain"
	"github.com/dufanyin/optionrunner/internal/eventbus"
)

const controllerName = "Hedge"

// referenceFor tags hedge orders so the next cycle can recognize (and, when
// still active, cancel) them.
func referenceFor(strategyName string) string {
	return controllerName + "_" + strategyName
}

// OrderOps is the Strategy Manager surface the controller drives.
type OrderOps interface {
	SendOrder(strategyName string, req domain.OrderRequest) error
	ActiveOrders(strategyName string) []domain.Order
	CancelOrder(strategyName, orderID string) error
}

// HoldingSource resolves a strategy's live holding; the Position Engine
// implements it.
type HoldingSource interface {
	GetHolding(strategyName string) (*domain.StrategyHolding, bool)
}

// Config is one strategy's hedging registration.
type Config struct {
	StrategyName string
	TimerTrigger int
	DeltaTarget  decimal.Decimal
	DeltaRange   decimal.Decimal
}

// DefaultTimerTrigger is how many TIMER ticks elapse between hedge
// evaluations unless the registration overrides it.
const DefaultTimerTrigger = 5

// Controller evaluates every registered strategy on a shared timer cadence.
// Registration is guarded by a mutex because strategies register from the
// init pool worker while evaluation runs on the dispatcher goroutine.
type Controller struct {
	logger   *zap.Logger
	bus      *eventbus.Bus
	orders   OrderOps
	holdings HoldingSource

	mu         sync.Mutex
	registered map[string]*Config
	timerCount int
}

// New constructs a Controller.
func New(logger *zap.Logger, bus *eventbus.Bus, orders OrderOps, holdings HoldingSource) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		logger:     logger.Named("hedge"),
		bus:        bus,
		orders:     orders,
		holdings:   holdings,
		registered: make(map[string]*Config),
	}
}

// RegisterWithBus subscribes the controller to TIMER events.
func (c *Controller) RegisterWithBus(bus *eventbus.Bus) {
	bus.Register(eventbus.EventTimer, func(eventbus.Event) {
		c.ProcessTimer()
	})
}

// Register enrolls strategyName for delta hedging. The holding must already
// carry an underlying symbol; registrations without one are refused.
func (c *Controller) Register(strategyName string, timerTrigger int, deltaTarget, deltaRange decimal.Decimal) {
	holding, ok := c.holdings.GetHolding(strategyName)
	if !ok || holding.Underlying.Symbol == "" {
		c.logger.Warn("cannot register strategy for hedging: no underlying symbol",
			zap.String("strategy", strategyName))
		return
	}
	if timerTrigger <= 0 {
		timerTrigger = DefaultTimerTrigger
	}
	c.mu.Lock()
	c.registered[strategyName] = &Config{
		StrategyName: strategyName,
		TimerTrigger: timerTrigger,
		DeltaTarget:  deltaTarget,
		DeltaRange:   deltaRange,
	}
	c.mu.Unlock()
	c.logger.Info("strategy registered for hedging", zap.String("strategy", strategyName))
}

// Unregister removes strategyName from the hedging loop. Idempotent.
func (c *Controller) Unregister(strategyName string) {
	c.mu.Lock()
	_, ok := c.registered[strategyName]
	delete(c.registered, strategyName)
	c.mu.Unlock()
	if ok {
		c.logger.Info("strategy unregistered from hedging", zap.String("strategy", strategyName))
	}
}

// ProcessTimer advances the shared counter and, when it reaches the
// threshold, evaluates every registered strategy.
func (c *Controller) ProcessTimer() {
	c.mu.Lock()
	c.timerCount++
	trigger := DefaultTimerTrigger
	for _, config := range c.registered {
		if config.TimerTrigger > 0 {
			trigger = config.TimerTrigger
			break
		}
	}
	if c.timerCount < trigger {
		c.mu.Unlock()
		return
	}
	c.timerCount = 0
	configs := make([]*Config, 0, len(c.registered))
	for _, config := range c.registered {
		configs = append(configs, config)
	}
	c.mu.Unlock()

	for _, config := range configs {
		c.runStrategyHedging(config)
	}
}

func (c *Controller) runStrategyHedging(config *Config) {
	if !c.strategyOrdersFinished(config.StrategyName) {
		c.cancelStrategyHedgeOrders(config.StrategyName)
		return
	}

	plan, ok := c.computeHedgePlan(config)
	if !ok {
		return
	}
	c.executeHedgeOrders(config.StrategyName, plan)
}

// hedgePlan is the decision of one evaluation cycle: close available
// quantity first, then open the remainder.
type hedgePlan struct {
	symbol    string
	direction domain.Direction
	available decimal.Decimal
	volume    decimal.Decimal
}

func (c *Controller) computeHedgePlan(config *Config) (hedgePlan, bool) {
	holding, ok := c.holdings.GetHolding(config.StrategyName)
	if !ok {
		return hedgePlan{}, false
	}

	totalDelta := holding.Summary.Delta
	deltaMin := config.DeltaTarget.Sub(config.DeltaRange)
	deltaMax := config.DeltaTarget.Add(config.DeltaRange)
	if totalDelta.GreaterThanOrEqual(deltaMin) && totalDelta.LessThanOrEqual(deltaMax) {
		return hedgePlan{}, false
	}

	underlying := holding.Underlying
	theoDelta := underlying.TheoDelta()
	if underlying.Symbol == "" || theoDelta.IsZero() {
		return hedgePlan{}, false
	}

	hedgeVolume := config.DeltaTarget.Sub(totalDelta).Div(theoDelta)
	if hedgeVolume.Abs().LessThan(decimal.NewFromInt(1)) {
		return hedgePlan{}, false
	}

	qty := underlying.Quantity
	var direction domain.Direction
	var available decimal.Decimal
	if hedgeVolume.IsPositive() {
		direction = domain.DirectionLong
		if qty.IsNegative() {
			available = qty.Abs()
		}
	} else {
		direction = domain.DirectionShort
		if qty.IsPositive() {
			available = qty
		}
	}

	return hedgePlan{
		symbol:    underlying.Symbol,
		direction: direction,
		available: available,
		volume:    hedgeVolume.Abs(),
	}, true
}

func (c *Controller) executeHedgeOrders(strategyName string, plan hedgePlan) {
	remaining := plan.volume

	if plan.available.IsPositive() {
		closeVolume := decimal.Min(plan.available, plan.volume)
		c.submitHedgeOrder(strategyName, plan.symbol, plan.direction, closeVolume)
		remaining = remaining.Sub(closeVolume)
	}

	if remaining.IsPositive() {
		c.submitHedgeOrder(strategyName, plan.symbol, plan.direction, remaining)
	}
}

func (c *Controller) submitHedgeOrder(strategyName, symbol string, direction domain.Direction, volume decimal.Decimal) {
	req := domain.OrderRequest{
		Symbol:    symbol,
		Exchange:  domain.ExchangeSmart,
		Direction: direction,
		Type:      domain.OrderTypeMarket,
		Price:     decimal.Zero,
		Volume:    volume,
		Reference: referenceFor(strategyName),
	}
	if err := c.orders.SendOrder(strategyName, req); err != nil {
		c.logger.Error("hedge order failed",
			zap.String("strategy", strategyName), zap.Error(err))
		return
	}

	msg := "hedge order sent: " + string(direction) + " " + volume.String() + " " + symbol
	c.logger.Info(msg, zap.String("strategy", strategyName))
	if c.bus != nil {
		c.bus.Put(eventbus.NewOptionRiskNoticeEvent(strategyName, msg))
	}
}

// strategyOrdersFinished reports whether the strategy has no active hedge
// orders left from a previous cycle.
func (c *Controller) strategyOrdersFinished(strategyName string) bool {
	for _, order := range c.orders.ActiveOrders(strategyName) {
		if strings.Contains(order.Reference, controllerName) {
			return false
		}
	}
	return true
}

func (c *Controller) cancelStrategyHedgeOrders(strategyName string) {
	for _, order := range c.orders.ActiveOrders(strategyName) {
		if !strings.Contains(order.Reference, controllerName) {
			continue
		}
		if err := c.orders.CancelOrder(strategyName, order.OrderID); err != nil {
			c.logger.Warn("hedge cancel failed",
				zap.String("orderid", order.OrderID), zap.Error(err))
		}
	}
}
