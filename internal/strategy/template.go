// Package strategy implements the Strategy Lifecycle Manager: the OMS cache,
// the build-time strategy class registry, lifecycle control
// (add/init/start/stop/remove/delete/recover), order routing, and config
// persistence.
package strategy

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dufanyin/optionrunner/internal/combo"
	"github.com/dufanyin/optionrunner/internal/domain"
)

// Strategy is the user-facing contract every strategy class implements: the
// three lifecycle hooks plus the author/parameters/variables capability set.
// Concrete strategies embed *BaseStrategy to satisfy Base and inherit the
// order/hedging helpers.
type Strategy interface {
	Base() *BaseStrategy

	Author() string
	Parameters() []string
	Variables() []string

	OnInitLogic() error
	OnStopLogic() error
	OnTimerLogic() error
}

// OrderObserver is optionally implemented by strategies that want per-order
// status callbacks.
type OrderObserver interface {
	OnOrder(order domain.Order)
}

// TradeObserver is optionally implemented by strategies that want per-fill
// callbacks.
type TradeObserver interface {
	OnTrade(trade domain.Trade)
}

// DefaultTimerTrigger is how many TIMER ticks elapse between OnTimerLogic
// invocations unless the strategy's setting overrides it.
const DefaultTimerTrigger = 10

// BaseStrategy carries the runtime state shared by every strategy instance:
// identity, setting, lifecycle flags, the timer counter, and a back-reference
// to the Manager for order routing. Lifecycle flags are guarded by a small
// mutex because OnInitLogic runs on the init pool worker while the flags are
// read from the dispatcher goroutine.
type BaseStrategy struct {
	manager *Manager

	strategyName  string
	portfolioName string
	setting       map[string]interface{}

	// Holding is a non-owning reference to the Position Engine's state for
	// this strategy.
	Holding *domain.StrategyHolding

	mu           sync.Mutex
	inited       bool
	started      bool
	errored      bool
	errMsg       string
	timerTrigger int
	timerCount   int
}

// Base satisfies the Strategy interface for every embedding type.
func (b *BaseStrategy) Base() *BaseStrategy { return b }

func (b *BaseStrategy) bind(m *Manager, strategyName, portfolioName string, setting map[string]interface{}) {
	b.manager = m
	b.strategyName = strategyName
	b.portfolioName = portfolioName
	if setting == nil {
		setting = make(map[string]interface{})
	}
	b.setting = setting
	b.timerTrigger = DefaultTimerTrigger
	if v, ok := setting["timer_trigger"]; ok {
		if n, ok := toInt(v); ok && n > 0 {
			b.timerTrigger = n
		}
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Name returns the unique strategy instance name.
func (b *BaseStrategy) Name() string { return b.strategyName }

// PortfolioName returns the root portfolio this strategy trades.
func (b *BaseStrategy) PortfolioName() string { return b.portfolioName }

// Setting returns the raw config value for key.
func (b *BaseStrategy) Setting(key string) (interface{}, bool) {
	v, ok := b.setting[key]
	return v, ok
}

// Inited reports whether OnInitLogic has completed.
func (b *BaseStrategy) Inited() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inited
}

// Started reports whether the strategy is running.
func (b *BaseStrategy) Started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

// Errored reports whether a hook failure has disabled this strategy.
func (b *BaseStrategy) Errored() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errored
}

// ErrorMsg returns the text of the disabling failure, if any.
func (b *BaseStrategy) ErrorMsg() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errMsg
}

func (b *BaseStrategy) setInited(v bool) {
	b.mu.Lock()
	b.inited = v
	b.mu.Unlock()
}

func (b *BaseStrategy) setStarted(v bool) {
	b.mu.Lock()
	b.started = v
	b.mu.Unlock()
}

func (b *BaseStrategy) setError(msg string) {
	b.mu.Lock()
	b.errored = true
	b.errMsg = msg
	b.mu.Unlock()
}

// tickTimer advances the per-strategy counter and reports whether the
// timer_trigger threshold was reached this tick.
func (b *BaseStrategy) tickTimer() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timerCount++
	if b.timerCount < b.timerTrigger {
		return false
	}
	b.timerCount = 0
	return true
}

// TimerTrigger returns the configured tick threshold.
func (b *BaseStrategy) TimerTrigger() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timerTrigger
}

// ===================== order helpers =====================

// SendUnderlyingOrder submits an order on the portfolio's underlying.
func (b *BaseStrategy) SendUnderlyingOrder(direction domain.Direction, orderType domain.OrderType, price, volume decimal.Decimal, reference string) (string, error) {
	symbol := ""
	if b.Holding != nil {
		symbol = b.Holding.Underlying.Symbol
	}
	if symbol == "" {
		symbol = domain.FormatUnderlyingSymbol(b.portfolioName)
	}
	return b.manager.SendStrategyOrder(b.strategyName, domain.OrderRequest{
		Symbol:    symbol,
		Exchange:  domain.ExchangeSmart,
		Direction: direction,
		Type:      orderType,
		Price:     price,
		Volume:    volume,
		Reference: reference,
	})
}

// SendOptionOrder submits a single-leg option order.
func (b *BaseStrategy) SendOptionOrder(symbol string, direction domain.Direction, orderType domain.OrderType, price, volume decimal.Decimal, reference string) (string, error) {
	return b.manager.SendStrategyOrder(b.strategyName, domain.OrderRequest{
		Symbol:    symbol,
		Exchange:  domain.ExchangeSmart,
		Direction: direction,
		Type:      orderType,
		Price:     price,
		Volume:    volume,
		Reference: reference,
	})
}

// SendComboOrder builds a multi-leg order via the Combo Builder and submits
// it. ratio is only consulted for RATIO_SPREAD (0 defaults to 2).
func (b *BaseStrategy) SendComboOrder(comboType domain.ComboType, inputs map[string]combo.Input, direction domain.Direction, orderType domain.OrderType, price decimal.Decimal, volume, ratio int, reference string) (string, error) {
	return b.manager.SendComboOrder(b.strategyName, comboType, inputs, direction, orderType, price, volume, ratio, reference)
}

// CancelOrder cancels one of this strategy's orders.
func (b *BaseStrategy) CancelOrder(orderID string) error {
	return b.manager.CancelOrder(b.strategyName, orderID)
}

// CancelAll cancels every active order of this strategy.
func (b *BaseStrategy) CancelAll() {
	b.manager.CancelAll(b.strategyName)
}

// ===================== hedging helpers =====================

// RegisterHedging registers this strategy with the Hedging Controller.
func (b *BaseStrategy) RegisterHedging(timerTrigger int, deltaTarget, deltaRange decimal.Decimal) {
	b.manager.RegisterHedging(b.strategyName, timerTrigger, deltaTarget, deltaRange)
}

// UnregisterHedging removes this strategy from the Hedging Controller.
func (b *BaseStrategy) UnregisterHedging() {
	b.manager.UnregisterHedging(b.strategyName)
}

// WriteLog surfaces a log line through the manager's logger and the LOG
// event stream.
func (b *BaseStrategy) WriteLog(msg string) {
	b.manager.writeStrategyLog(b.strategyName, msg)
}
