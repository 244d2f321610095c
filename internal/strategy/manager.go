package strategy

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dufanyin/optionrunner/internal/combo"
	"github.com/dufanyin/optionrunner/internal/domain"
	"github.com/dufanyin/optionrunner/internal/eventbus"
	"github.com/dufanyin/optionrunner/internal/gateway"
	"github.com/dufanyin/optionrunner/internal/persistence"
	"github.com/dufanyin/optionrunner/internal/portfolio"
	"github.com/dufanyin/optionrunner/internal/position"
	"github.com/dufanyin/optionrunner/internal/workers"
)

const managerName = "Strategy"

// Hedger is the Hedging Controller surface the manager exposes to
// strategies via BaseStrategy.RegisterHedging.
type Hedger interface {
	Register(strategyName string, timerTrigger int, deltaTarget, deltaRange decimal.Decimal)
	Unregister(strategyName string)
}

// Manager owns the set of live strategies, their configs, and the OMS cache
// (orders, trades, per-strategy active-order sets). It implements
// position.OrderSender and position.StrategyLookup.
type Manager struct {
	logger    *zap.Logger
	bus       *eventbus.Bus
	adapter   gateway.Adapter
	positions *position.Engine
	store     *portfolio.Store
	registry  *Registry
	hedger    Hedger

	settingFile *persistence.BlobFile[domain.StrategyConfig]
	dataFile    *persistence.BlobFile[position.SerializedHolding]

	mu              sync.RWMutex
	strategies      map[string]Strategy
	strategySetting map[string]domain.StrategyConfig
	strategyData    map[string]position.SerializedHolding

	orders        map[string]domain.Order
	trades        map[string]domain.Trade
	activeOrders  map[string]map[string]struct{}
	orderStrategy map[string]string

	initPool *workers.Pool
}

// New constructs a Manager and loads the persisted strategy settings and
// holding snapshots from disk. The init pool is started immediately.
func New(
	logger *zap.Logger,
	bus *eventbus.Bus,
	adapter gateway.Adapter,
	positions *position.Engine,
	store *portfolio.Store,
	registry *Registry,
	settingFile *persistence.BlobFile[domain.StrategyConfig],
	dataFile *persistence.BlobFile[position.SerializedHolding],
) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger:          logger.Named("strategy"),
		bus:             bus,
		adapter:         adapter,
		positions:       positions,
		store:           store,
		registry:        registry,
		settingFile:     settingFile,
		dataFile:        dataFile,
		strategies:      make(map[string]Strategy),
		strategySetting: make(map[string]domain.StrategyConfig),
		strategyData:    make(map[string]position.SerializedHolding),
		orders:          make(map[string]domain.Order),
		trades:          make(map[string]domain.Trade),
		activeOrders:    make(map[string]map[string]struct{}),
		orderStrategy:   make(map[string]string),
		initPool:        workers.NewPool(logger, workers.SingleWorkerConfig("strategy-init")),
	}

	if settingFile != nil {
		setting, err := settingFile.Load()
		if err != nil {
			return nil, err
		}
		m.strategySetting = setting
		m.logger.Info("loaded strategy configurations", zap.Int("count", len(setting)))
	}
	if dataFile != nil {
		data, err := dataFile.Load()
		if err != nil {
			return nil, err
		}
		m.strategyData = data
	}

	m.initPool.Start()
	return m, nil
}

// SetHedger wires the Hedging Controller, constructed after the manager.
func (m *Manager) SetHedger(h Hedger) { m.hedger = h }

// RegisterWithBus subscribes the manager to ORDER, TRADE, and TIMER events.
func (m *Manager) RegisterWithBus(bus *eventbus.Bus) {
	bus.Register(eventbus.EventOrder, func(ev eventbus.Event) {
		if oe, ok := ev.(eventbus.OrderEvent); ok {
			m.processOrder(oe.Order)
		}
	})
	bus.Register(eventbus.EventTrade, func(ev eventbus.Event) {
		if te, ok := ev.(eventbus.TradeEvent); ok {
			m.processTrade(te.Trade)
		}
	})
	bus.Register(eventbus.EventTimer, func(eventbus.Event) {
		m.processTimer()
	})
}

// ===================== event handling =====================

func (m *Manager) processOrder(order domain.Order) {
	m.mu.Lock()
	strategyName, tracked := m.orderStrategy[order.OrderID]
	if !tracked {
		m.mu.Unlock()
		return
	}
	m.orders[order.OrderID] = order

	if !order.Status.IsActive() {
		if set := m.activeOrders[strategyName]; set != nil {
			delete(set, order.OrderID)
		}
		if order.Status == domain.StatusCancelled || order.Status == domain.StatusRejected {
			delete(m.orderStrategy, order.OrderID)
		}
	}
	s := m.strategies[strategyName]
	m.mu.Unlock()

	if s != nil {
		if obs, ok := s.(OrderObserver); ok {
			m.callStrategyFunc(s, func() error {
				obs.OnOrder(order)
				return nil
			})
		}
	}
}

func (m *Manager) processTrade(trade domain.Trade) {
	m.mu.Lock()
	strategyName, tracked := m.orderStrategy[trade.OrderID]
	if !tracked {
		m.mu.Unlock()
		return
	}
	m.trades[trade.TradeID] = trade
	s := m.strategies[strategyName]
	m.mu.Unlock()

	if s != nil {
		if obs, ok := s.(TradeObserver); ok {
			m.callStrategyFunc(s, func() error {
				obs.OnTrade(trade)
				return nil
			})
		}
	}
}

func (m *Manager) processTimer() {
	m.mu.RLock()
	live := make([]Strategy, 0, len(m.strategies))
	for _, s := range m.strategies {
		live = append(live, s)
	}
	m.mu.RUnlock()

	for _, s := range live {
		base := s.Base()
		if !base.Inited() || !base.Started() || base.Errored() {
			continue
		}
		if !base.tickTimer() {
			continue
		}
		m.callStrategyFunc(s, s.OnTimerLogic)
	}
}

// callStrategyFunc runs a user hook, capturing any error or panic: the
// strategy's error flag is set, which stops further timer invocations, and
// the failure is logged at ERROR.
func (m *Manager) callStrategyFunc(s Strategy, fn func() error) (ok bool) {
	base := s.Base()
	defer func() {
		if r := recover(); r != nil {
			base.setError(fmt.Sprintf("panic: %v", r))
			m.logger.Error("strategy hook panic",
				zap.String("strategy", base.Name()), zap.Any("panic", r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		base.setError(err.Error())
		m.logger.Error("strategy hook failed",
			zap.String("strategy", base.Name()),
			zap.Error(fmt.Errorf("%w: %v", domain.ErrStrategyUser, err)))
		return false
	}
	return true
}

// ===================== lifecycle =====================

// AddStrategy instantiates className against portfolioName. When a persisted
// config already exists for the derived strategy name, the call routes to
// RecoverStrategy instead.
func (m *Manager) AddStrategy(className, portfolioName string, setting map[string]interface{}) error {
	config := domain.StrategyConfig{ClassName: className, PortfolioName: portfolioName, Setting: setting}
	strategyName := config.StrategyName()

	m.mu.RLock()
	_, exists := m.strategies[strategyName]
	_, hasSetting := m.strategySetting[strategyName]
	m.mu.RUnlock()

	if exists {
		m.logger.Warn("strategy already exists", zap.String("strategy", strategyName))
		return fmt.Errorf("%w: strategy %s already exists", domain.ErrInvalidLifecycleTransition, strategyName)
	}
	if hasSetting {
		m.logger.Info("found removed strategy, auto-recovering", zap.String("strategy", strategyName))
		return m.RecoverStrategy(strategyName)
	}

	s, ok := m.registry.Create(className)
	if !ok {
		return fmt.Errorf("strategy class %q not found", className)
	}
	s.Base().bind(m, strategyName, portfolioName, setting)
	m.attachHolding(s)

	m.mu.Lock()
	m.strategies[strategyName] = s
	m.strategySetting[strategyName] = config
	m.mu.Unlock()

	if err := m.SaveStrategySetting(); err != nil {
		m.logger.Error("save strategy setting failed", zap.Error(err))
	}
	m.putStrategyEvent(strategyName)
	m.writeStrategyLog(strategyName, "strategy created")
	return nil
}

// RecoverStrategy rebuilds a strategy from its stored config and holding
// snapshot.
func (m *Manager) RecoverStrategy(strategyName string) error {
	m.mu.RLock()
	config, ok := m.strategySetting[strategyName]
	data, hasData := m.strategyData[strategyName]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("strategy %s configuration not found, cannot recover", strategyName)
	}

	s, found := m.registry.Create(config.ClassName)
	if !found {
		return fmt.Errorf("strategy class %q not found", config.ClassName)
	}
	s.Base().bind(m, strategyName, config.PortfolioName, config.Setting)
	m.attachHolding(s)

	if hasData {
		m.positions.LoadSerializedHolding(strategyName, data)
		if h, ok := m.positions.GetHolding(strategyName); ok {
			s.Base().Holding = h
		}
	}

	m.mu.Lock()
	m.strategies[strategyName] = s
	m.mu.Unlock()

	m.putStrategyEvent(strategyName)
	m.writeStrategyLog(strategyName, "strategy recovered")
	return nil
}

func (m *Manager) attachHolding(s Strategy) {
	base := s.Base()
	symbol := domain.FormatUnderlyingSymbol(base.PortfolioName())
	multiplier := 1
	if pf, ok := m.store.Portfolio(base.PortfolioName()); ok && pf.Underlying != nil {
		symbol = pf.Underlying.Symbol
		if pf.Underlying.Multiplier > 0 {
			multiplier = pf.Underlying.Multiplier
		}
	}
	base.Holding = m.positions.GetCreateHolding(base.Name(), symbol, multiplier)
}

// InitStrategy runs OnInitLogic on the single-worker init pool so user code
// blocking there never stalls the dispatcher.
func (m *Manager) InitStrategy(strategyName string) error {
	s, ok := m.GetStrategy(strategyName)
	if !ok {
		return fmt.Errorf("strategy %s not found", strategyName)
	}
	if s.Base().Inited() {
		m.logger.Warn("strategy already initialized", zap.String("strategy", strategyName))
		return nil
	}
	return m.initPool.SubmitFunc(func() error {
		if m.callStrategyFunc(s, s.OnInitLogic) {
			s.Base().setInited(true)
			m.putStrategyEvent(strategyName)
		}
		return nil
	})
}

// StartStrategy requires the strategy to be inited.
func (m *Manager) StartStrategy(strategyName string) error {
	s, ok := m.GetStrategy(strategyName)
	if !ok {
		return fmt.Errorf("strategy %s not found", strategyName)
	}
	if !s.Base().Inited() {
		return fmt.Errorf("%w: %s must be initialized before start", domain.ErrInvalidLifecycleTransition, strategyName)
	}
	if s.Base().Started() {
		m.logger.Warn("strategy already started", zap.String("strategy", strategyName))
		return nil
	}
	s.Base().setStarted(true)
	m.putStrategyEvent(strategyName)
	return nil
}

// StopStrategy runs OnStopLogic, cancels every active order of the strategy,
// and persists its holding snapshot.
func (m *Manager) StopStrategy(strategyName string) error {
	s, ok := m.GetStrategy(strategyName)
	if !ok {
		return fmt.Errorf("strategy %s not found", strategyName)
	}
	if !s.Base().Started() {
		return fmt.Errorf("%w: %s is not running", domain.ErrInvalidLifecycleTransition, strategyName)
	}

	s.Base().setStarted(false)
	m.callStrategyFunc(s, s.OnStopLogic)
	m.CancelAll(strategyName)
	if err := m.syncStrategyData(strategyName); err != nil {
		m.logger.Error("persist holding on stop failed", zap.String("strategy", strategyName), zap.Error(err))
	}
	m.putStrategyEvent(strategyName)
	return nil
}

// RemoveStrategy drops the in-memory strategy but keeps its persisted
// settings and holding snapshot, so it stays recoverable.
func (m *Manager) RemoveStrategy(strategyName string) error {
	s, ok := m.GetStrategy(strategyName)
	if !ok {
		return fmt.Errorf("strategy %s not found", strategyName)
	}
	if s.Base().Started() {
		return fmt.Errorf("%w: stop %s before removing it", domain.ErrInvalidLifecycleTransition, strategyName)
	}

	if err := m.syncStrategyData(strategyName); err != nil {
		m.logger.Error("persist holding on remove failed", zap.String("strategy", strategyName), zap.Error(err))
	}

	m.detachStrategy(strategyName)
	m.positions.RemoveHolding(strategyName)
	m.writeStrategyLog(strategyName, "strategy removed, data saved to file")
	return nil
}

// DeleteStrategy drops the strategy and its persisted settings and holding.
// Unrecoverable.
func (m *Manager) DeleteStrategy(strategyName string) error {
	s, ok := m.GetStrategy(strategyName)
	if !ok {
		return fmt.Errorf("strategy %s not found", strategyName)
	}
	if s.Base().Started() {
		return fmt.Errorf("%w: stop %s before deleting it", domain.ErrInvalidLifecycleTransition, strategyName)
	}

	m.detachStrategy(strategyName)
	m.positions.RemoveHolding(strategyName)

	m.mu.Lock()
	delete(m.strategySetting, strategyName)
	delete(m.strategyData, strategyName)
	m.mu.Unlock()

	if m.settingFile != nil {
		if err := m.settingFile.Delete(strategyName); err != nil {
			m.logger.Error("delete strategy setting failed", zap.Error(err))
		}
	}
	if m.dataFile != nil {
		if err := m.dataFile.Delete(strategyName); err != nil {
			m.logger.Error("delete strategy data failed", zap.Error(err))
		}
	}

	m.writeStrategyLog(strategyName, "strategy deleted, needs to be recreated")
	return nil
}

// detachStrategy clears the strategy's order mappings and drops it from the
// live map. Hedging registration, if any, is released.
func (m *Manager) detachStrategy(strategyName string) {
	m.mu.Lock()
	for orderID := range m.activeOrders[strategyName] {
		delete(m.orderStrategy, orderID)
	}
	delete(m.activeOrders, strategyName)
	delete(m.strategies, strategyName)
	m.mu.Unlock()

	if m.hedger != nil {
		m.hedger.Unregister(strategyName)
	}
}

// CloseStrategyPositions submits closing MARKET orders for every nonzero
// child of the strategy's holding.
func (m *Manager) CloseStrategyPositions(strategyName string) error {
	if _, ok := m.GetStrategy(strategyName); !ok {
		return fmt.Errorf("strategy %s not found", strategyName)
	}
	return m.positions.CloseAllStrategyPositions(strategyName)
}

// ===================== order routing =====================

// SendStrategyOrder validates and normalizes req, forwards it to the
// adapter, and records the returned order id under strategyName.
func (m *Manager) SendStrategyOrder(strategyName string, req domain.OrderRequest) (string, error) {
	m.mu.RLock()
	_, ok := m.strategies[strategyName]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("strategy %s not found", strategyName)
	}

	if req.Reference == "" {
		req.Reference = fmt.Sprintf("%s_%s", managerName, strategyName)
	}
	if req.Type == domain.OrderTypeMarket {
		req.Price = decimal.Zero
	} else {
		req.Price = roundTo(req.Price, decimal.NewFromFloat(0.01))
	}

	if !req.IsCombo {
		contract, found := m.store.Contract(req.Symbol)
		if !found {
			return "", fmt.Errorf("%w: %s", domain.ErrContractNotFound, req.Symbol)
		}
		if req.Exchange == "" {
			req.Exchange = contract.Exchange
		}
		if !contract.MinVolume.IsZero() {
			req.Volume = roundTo(req.Volume, contract.MinVolume)
		}
	}
	if req.Exchange == "" {
		req.Exchange = domain.ExchangeSmart
	}

	orderID, err := m.adapter.SendOrder(req)
	if err != nil {
		return "", err
	}
	if orderID == "" {
		return "", fmt.Errorf("%w: venue returned no order id", domain.ErrOrderRejected)
	}

	m.mu.Lock()
	m.orderStrategy[orderID] = strategyName
	set, found := m.activeOrders[strategyName]
	if !found {
		set = make(map[string]struct{})
		m.activeOrders[strategyName] = set
	}
	set[orderID] = struct{}{}
	m.mu.Unlock()

	return orderID, nil
}

// SendOrder implements position.OrderSender.
func (m *Manager) SendOrder(strategyName string, req domain.OrderRequest) error {
	_, err := m.SendStrategyOrder(strategyName, req)
	return err
}

// SendComboOrder builds a multi-leg order via the Combo Builder and submits
// it under the synthetic `{portfolio}_{combo_type}_{signature}` symbol.
func (m *Manager) SendComboOrder(strategyName string, comboType domain.ComboType, inputs map[string]combo.Input, direction domain.Direction, orderType domain.OrderType, price decimal.Decimal, volume, ratio int, reference string) (string, error) {
	s, ok := m.GetStrategy(strategyName)
	if !ok {
		return "", fmt.Errorf("strategy %s not found", strategyName)
	}

	legs, signature, err := combo.Build(comboType, inputs, direction, volume, ratio)
	if err != nil {
		return "", err
	}

	symbol := domain.FormatComboSymbol(s.Base().PortfolioName(), comboType, signature)
	return m.SendStrategyOrder(strategyName, domain.OrderRequest{
		Symbol:    symbol,
		Exchange:  domain.ExchangeSmart,
		Direction: direction,
		Type:      orderType,
		Price:     price,
		Volume:    decimal.NewFromInt(int64(volume)),
		IsCombo:   true,
		Legs:      legs,
		ComboType: comboType,
		Reference: reference,
	})
}

// CancelOrder cancels one tracked order of strategyName.
func (m *Manager) CancelOrder(strategyName, orderID string) error {
	m.mu.RLock()
	order, ok := m.orders[orderID]
	owner := m.orderStrategy[orderID]
	m.mu.RUnlock()
	if !ok || owner != strategyName {
		return fmt.Errorf("order %s not tracked for strategy %s", orderID, strategyName)
	}
	return m.adapter.CancelOrder(order.CreateCancelRequest())
}

// CancelAll cancels every active order of strategyName.
func (m *Manager) CancelAll(strategyName string) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.activeOrders[strategyName]))
	for orderID := range m.activeOrders[strategyName] {
		ids = append(ids, orderID)
	}
	m.mu.RUnlock()

	for _, orderID := range ids {
		if err := m.CancelOrder(strategyName, orderID); err != nil {
			m.logger.Warn("cancel failed", zap.String("orderid", orderID), zap.Error(err))
		}
	}
}

// ===================== OMS cache queries =====================

// StrategyForOrder implements position.StrategyLookup.
func (m *Manager) StrategyForOrder(orderID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.orderStrategy[orderID]
	return name, ok
}

// GetOrder returns the cached order snapshot for orderID.
func (m *Manager) GetOrder(orderID string) (domain.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	return o, ok
}

// GetTrade returns the cached fill for tradeID.
func (m *Manager) GetTrade(tradeID string) (domain.Trade, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trades[tradeID]
	return t, ok
}

// ActiveOrders returns the cached snapshots of strategyName's still-active
// orders.
func (m *Manager) ActiveOrders(strategyName string) []domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Order, 0, len(m.activeOrders[strategyName]))
	for orderID := range m.activeOrders[strategyName] {
		if order, ok := m.orders[orderID]; ok && order.IsActive() {
			out = append(out, order)
		}
	}
	return out
}

// GetStrategy returns the live strategy instance for strategyName.
func (m *Manager) GetStrategy(strategyName string) (Strategy, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.strategies[strategyName]
	return s, ok
}

// StrategyNames returns every live strategy name.
func (m *Manager) StrategyNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.strategies))
	for name := range m.strategies {
		names = append(names, name)
	}
	return names
}

// RemovedStrategies returns names with a persisted config but no live
// instance (the recoverable set).
func (m *Manager) RemovedStrategies() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0)
	for name := range m.strategySetting {
		if _, live := m.strategies[name]; !live {
			out = append(out, name)
		}
	}
	return out
}

// Status is the externally visible snapshot of one strategy, consumed by
// the read-only HTTP surface.
type Status struct {
	StrategyName  string                 `json:"strategy_name"`
	ClassName     string                 `json:"class_name"`
	PortfolioName string                 `json:"portfolio_name"`
	Author        string                 `json:"author"`
	Inited        bool                   `json:"inited"`
	Started       bool                   `json:"started"`
	Error         bool                   `json:"error"`
	ErrorMsg      string                 `json:"error_msg,omitempty"`
	Parameters    map[string]interface{} `json:"parameters"`
}

// StrategyStatus builds the Status for strategyName.
func (m *Manager) StrategyStatus(strategyName string) (Status, bool) {
	s, ok := m.GetStrategy(strategyName)
	if !ok {
		return Status{}, false
	}
	m.mu.RLock()
	config := m.strategySetting[strategyName]
	m.mu.RUnlock()

	base := s.Base()
	params := make(map[string]interface{})
	for _, key := range s.Parameters() {
		if v, found := base.Setting(key); found {
			params[key] = v
		}
	}
	return Status{
		StrategyName:  strategyName,
		ClassName:     config.ClassName,
		PortfolioName: base.PortfolioName(),
		Author:        s.Author(),
		Inited:        base.Inited(),
		Started:       base.Started(),
		Error:         base.Errored(),
		ErrorMsg:      base.ErrorMsg(),
		Parameters:    params,
	}, true
}

// AllStrategyStatus builds the Status list for every live strategy.
func (m *Manager) AllStrategyStatus() []Status {
	out := make([]Status, 0)
	for _, name := range m.StrategyNames() {
		if st, ok := m.StrategyStatus(name); ok {
			out = append(out, st)
		}
	}
	return out
}

// ===================== hedging passthrough =====================

// RegisterHedging forwards to the wired Hedging Controller.
func (m *Manager) RegisterHedging(strategyName string, timerTrigger int, deltaTarget, deltaRange decimal.Decimal) {
	if m.hedger == nil {
		m.logger.Warn("no hedging controller wired", zap.String("strategy", strategyName))
		return
	}
	m.hedger.Register(strategyName, timerTrigger, deltaTarget, deltaRange)
}

// UnregisterHedging forwards to the wired Hedging Controller.
func (m *Manager) UnregisterHedging(strategyName string) {
	if m.hedger != nil {
		m.hedger.Unregister(strategyName)
	}
}

// ===================== persistence =====================

// SaveStrategySetting merges every live strategy's config into the setting
// file, preserving entries for strategies not currently loaded.
func (m *Manager) SaveStrategySetting() error {
	if m.settingFile == nil {
		return nil
	}
	m.mu.RLock()
	entries := make(map[string]domain.StrategyConfig, len(m.strategies))
	for name := range m.strategies {
		if config, ok := m.strategySetting[name]; ok {
			entries[name] = config
		}
	}
	m.mu.RUnlock()

	merged, err := m.settingFile.Merge(entries)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.strategySetting = merged
	m.mu.Unlock()
	return nil
}

// SaveStrategyData serializes every live strategy's holding and merges the
// snapshots into the data file.
func (m *Manager) SaveStrategyData() error {
	if m.dataFile == nil {
		return nil
	}
	entries := make(map[string]position.SerializedHolding)
	for _, name := range m.StrategyNames() {
		ser, err := m.positions.SerializeHolding(name)
		if err != nil {
			continue
		}
		entries[name] = ser
	}
	merged, err := m.dataFile.Merge(entries)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.strategyData = merged
	m.mu.Unlock()
	return nil
}

// syncStrategyData persists a single strategy's holding snapshot.
func (m *Manager) syncStrategyData(strategyName string) error {
	ser, err := m.positions.SerializeHolding(strategyName)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.strategyData[strategyName] = ser
	m.mu.Unlock()
	if m.dataFile == nil {
		return nil
	}
	_, err = m.dataFile.Merge(map[string]position.SerializedHolding{strategyName: ser})
	return err
}

// ===================== misc =====================

func (m *Manager) putStrategyEvent(strategyName string) {
	if m.bus != nil {
		m.bus.Put(eventbus.NewPortfolioStrategyEvent(strategyName))
	}
}

func (m *Manager) writeStrategyLog(strategyName, msg string) {
	m.logger.Info(msg, zap.String("strategy", strategyName))
	if m.bus != nil {
		m.bus.Put(eventbus.NewLogEvent(strategyName, "INFO", msg))
	}
}

// Close stops every running strategy, saves settings and holdings, and
// shuts down the init pool.
func (m *Manager) Close() error {
	for _, name := range m.StrategyNames() {
		if s, ok := m.GetStrategy(name); ok && s.Base().Started() {
			if err := m.StopStrategy(name); err != nil {
				m.logger.Error("stop on close failed", zap.String("strategy", name), zap.Error(err))
			}
		}
	}
	if err := m.SaveStrategySetting(); err != nil {
		m.logger.Error("save setting on close failed", zap.Error(err))
	}
	if err := m.SaveStrategyData(); err != nil {
		m.logger.Error("save data on close failed", zap.Error(err))
	}
	return m.initPool.Stop()
}

// roundTo rounds value to the nearest multiple of target.
func roundTo(value, target decimal.Decimal) decimal.Decimal {
	if target.IsZero() {
		return value
	}
	return value.Div(target).Round(0).Mul(target)
}
