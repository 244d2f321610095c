package gateway

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dufanyin/optionrunner/internal/domain"
	"github.com/dufanyin/optionrunner/internal/eventbus"
)

const gatewayName = "IBMOCK"

// heartbeatTicks is how many TIMER ticks elapse between connection checks.
const heartbeatTicks = 10

type statusFilled struct {
	status domain.Status
	filled decimal.Decimal
}

// MockAdapter is an in-process stand-in for an IB-style execution venue: it
// speaks the SUBMITTING→NOTTRADED→PARTTRADED*→ALLTRADED/REJECTED/CANCELLED
// state machine and the same BAG-vs-single contract construction a real
// driver would, but never opens a socket. Fills are driven explicitly via
// OrderStatus/ExecDetails (the same callback entry points a real venue
// would invoke asynchronously) rather than a background timer, so behavior
// is deterministic for callers and tests.
type MockAdapter struct {
	logger *zap.Logger
	bus    Publisher

	mu       sync.Mutex
	status   bool
	host     string
	port     int
	clientID int
	account  string

	orderSeq        int
	orders          map[string]domain.Order
	lastStatus      map[string]statusFilled
	pendingOrders   map[string]bool
	completedOrders map[string]bool

	accounts  map[string]domain.AccountData
	positions map[string]domain.GatewayPosition

	heartbeatCount int
}

// NewMockAdapter constructs an adapter that publishes onto bus.
func NewMockAdapter(logger *zap.Logger, bus Publisher) *MockAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockAdapter{
		logger:          logger.Named("gateway"),
		bus:             bus,
		orders:          make(map[string]domain.Order),
		lastStatus:      make(map[string]statusFilled),
		pendingOrders:   make(map[string]bool),
		completedOrders: make(map[string]bool),
		accounts:        make(map[string]domain.AccountData),
		positions:       make(map[string]domain.GatewayPosition),
	}
}

// Connect establishes the session. Idempotent when already connected.
func (a *MockAdapter) Connect(host string, port int, clientID int, account string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status {
		return nil
	}
	a.host, a.port, a.clientID, a.account = host, port, clientID, account
	a.status = true
	a.writeLog("venue connection successful", zap.InfoLevel)
	return nil
}

// Disconnect tears down the session. Idempotent.
func (a *MockAdapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.status {
		return nil
	}
	a.accounts = make(map[string]domain.AccountData)
	a.status = false
	a.writeLog("venue connection disconnected", zap.WarnLevel)
	return nil
}

// ProcessTimer drives the 10-tick heartbeat/reconnect check.
func (a *MockAdapter) ProcessTimer() {
	a.mu.Lock()
	a.heartbeatCount++
	if a.heartbeatCount < heartbeatTicks {
		a.mu.Unlock()
		return
	}
	a.heartbeatCount = 0
	reconnect := !a.status
	host, port, clientID, account := a.host, a.port, a.clientID, a.account
	a.mu.Unlock()

	if reconnect {
		_ = a.Connect(host, port, clientID, account)
	}
}

// SendOrder allocates a local order id, builds the venue contract, caches a
// synthetic SUBMITTING order, and publishes it before any venue ack would
// return, so downstream accounting sees the intent immediately.
func (a *MockAdapter) SendOrder(req domain.OrderRequest) (string, error) {
	if req.Type != domain.OrderTypeLimit && req.Type != domain.OrderTypeMarket {
		return "", fmt.Errorf("gateway: unsupported order type %q", req.Type)
	}

	if _, err := buildVenueOrder(req); err != nil {
		return "", err
	}

	a.mu.Lock()
	if !a.status {
		a.mu.Unlock()
		return "", domain.ErrGatewayDisconnected
	}
	a.orderSeq++
	orderID := strconv.Itoa(a.orderSeq)
	order := req.CreateOrderData(orderID)
	a.orders[orderID] = order
	a.lastStatus[orderID] = statusFilled{status: domain.StatusSubmitting, filled: decimal.Zero}
	a.pendingOrders[orderID] = true
	a.mu.Unlock()

	a.publish(eventbus.NewOrderEvent(order))
	return orderID, nil
}

// CancelOrder is fire-and-forget: the mock immediately acknowledges by
// replaying an ORDER status update to CANCELLED, mirroring how a real
// venue's cancel ack would eventually arrive via orderStatus.
func (a *MockAdapter) CancelOrder(req domain.CancelRequest) error {
	a.mu.Lock()
	if !a.status {
		a.mu.Unlock()
		return nil
	}
	order, ok := a.orders[req.OrderID]
	a.mu.Unlock()
	if !ok {
		return nil
	}
	a.OrderStatus(req.OrderID, domain.StatusCancelled, order.Traded)
	return nil
}

// QueryAccount re-publishes every cached account snapshot, mirroring
// accountSummaryEnd's "send all accounts, then clear" flow. Seed data via
// SeedAccount -- this mock has no live balance feed of its own.
func (a *MockAdapter) QueryAccount() {
	a.mu.Lock()
	if !a.status {
		a.mu.Unlock()
		return
	}
	snapshot := make([]domain.AccountData, 0, len(a.accounts))
	for _, acct := range a.accounts {
		snapshot = append(snapshot, acct)
	}
	a.accounts = make(map[string]domain.AccountData)
	a.mu.Unlock()

	for _, acct := range snapshot {
		a.publish(eventbus.NewAccountEvent(acct))
	}
}

// QueryPosition re-publishes every cached raw position line. Seed data via
// SeedPosition.
func (a *MockAdapter) QueryPosition() {
	a.mu.Lock()
	if !a.status {
		a.mu.Unlock()
		return
	}
	snapshot := make([]domain.GatewayPosition, 0, len(a.positions))
	for _, pos := range a.positions {
		snapshot = append(snapshot, pos)
	}
	a.mu.Unlock()

	for _, pos := range snapshot {
		a.publish(eventbus.NewGatewayPositionEvent(pos))
	}
}

// QueryPortfolio is a no-op on this adapter: resolving an underlying's
// tradable contract universe is the external market-data collaborator's
// responsibility.
func (a *MockAdapter) QueryPortfolio(underlying string) {
	a.writeLog(fmt.Sprintf("portfolio query for %s delegated to market-data collaborator", underlying), zap.DebugLevel)
}

// SeedAccount preloads an account snapshot for the next QueryAccount call.
func (a *MockAdapter) SeedAccount(acct domain.AccountData) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[acct.AccountID] = acct
}

// SeedPosition preloads a raw position line for the next QueryPosition call.
func (a *MockAdapter) SeedPosition(pos domain.GatewayPosition) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.positions[pos.Symbol] = pos
}

// OrderStatus is the mock's equivalent of a venue orderStatus callback: it
// dedups against the (status, filled) tuple and only publishes on change.
func (a *MockAdapter) OrderStatus(orderID string, status domain.Status, filled decimal.Decimal) {
	a.mu.Lock()
	order, ok := a.orders[orderID]
	if !ok {
		a.mu.Unlock()
		return
	}

	current := statusFilled{status: status, filled: filled}
	if last, seen := a.lastStatus[orderID]; seen && last.status == current.status && last.filled.Equal(current.filled) {
		a.mu.Unlock()
		return
	}

	order.Traded = filled
	order.Status = status
	a.orders[orderID] = order
	a.lastStatus[orderID] = current

	terminal := status == domain.StatusAllTraded || status == domain.StatusCancelled || status == domain.StatusRejected
	if terminal {
		delete(a.lastStatus, orderID)
		delete(a.orders, orderID)
		delete(a.pendingOrders, orderID)
		a.completedOrders[orderID] = true
	}
	a.mu.Unlock()

	a.publish(eventbus.NewOrderEvent(order))
}

// OpenOrder synthesizes an Order for an id the adapter has no intent for
// (e.g. after a reconnect); such orders start in SUBMITTING.
func (a *MockAdapter) OpenOrder(orderID, symbol string, typ domain.OrderType, direction domain.Direction, volume, price decimal.Decimal) {
	a.mu.Lock()
	if a.pendingOrders[orderID] {
		delete(a.pendingOrders, orderID)
		a.mu.Unlock()
		return
	}
	if a.completedOrders[orderID] {
		a.mu.Unlock()
		return
	}
	if _, ok := a.orders[orderID]; ok {
		a.mu.Unlock()
		return
	}

	order := domain.Order{
		OrderID:   orderID,
		Symbol:    symbol,
		Exchange:  domain.ExchangeSmart,
		Direction: direction,
		Type:      typ,
		Price:     price,
		Volume:    volume,
		Traded:    decimal.Zero,
		Status:    domain.StatusSubmitting,
	}
	a.orders[orderID] = order
	a.lastStatus[orderID] = statusFilled{status: domain.StatusSubmitting, filled: decimal.Zero}
	a.mu.Unlock()

	a.publish(eventbus.NewOrderEvent(order))
}

// ExecDetails is the mock's equivalent of a venue execDetails callback: it
// parses the
// venue timestamp, resolves the fill direction (overridden by the order's
// recorded intent for combo fills, since a real venue always reports combo
// executions as bought), and publishes a TRADE event. execID, if empty, is
// generated.
func (a *MockAdapter) ExecDetails(orderID, execID, rawTime string, price, volume decimal.Decimal, side domain.Direction) error {
	execTime, err := parseExecutionTime(rawTime)
	if err != nil {
		a.writeLog(fmt.Sprintf("received unsupported time format: %s", rawTime), zap.WarnLevel)
		return err
	}

	a.mu.Lock()
	order, ok := a.orders[orderID]
	symbol := ""
	direction := side
	if ok {
		symbol = order.Symbol
		if order.IsCombo {
			direction = order.Direction
		}
	}
	a.mu.Unlock()

	if execID == "" {
		execID = uuid.NewString()
	}

	trade := domain.Trade{
		TradeID:   execID,
		OrderID:   orderID,
		Symbol:    symbol,
		Direction: direction,
		Price:     price,
		Volume:    volume,
		Time:      execTime,
	}
	a.publish(eventbus.NewTradeEvent(trade))
	return nil
}

// parseExecutionTime accepts "YYYYMMDD HH:MM:SS" with an optional trailing
// timezone name; the naked form is assumed to be in the runtime's local
// zone. All times are normalized to local before being returned.
func parseExecutionTime(raw string) (time.Time, error) {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 2:
		t, err := time.ParseInLocation("20060102 15:04:05", raw, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("gateway: invalid execution time %q: %w", raw, err)
		}
		return t, nil
	case 3:
		loc, err := time.LoadLocation(fields[2])
		if err != nil {
			return time.Time{}, fmt.Errorf("gateway: unknown timezone %q: %w", fields[2], err)
		}
		naked := fields[0] + " " + fields[1]
		t, err := time.ParseInLocation("20060102 15:04:05", naked, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("gateway: invalid execution time %q: %w", raw, err)
		}
		return t.In(time.Local), nil
	default:
		return time.Time{}, fmt.Errorf("gateway: unsupported time format %q", raw)
	}
}

// Error is the mock's equivalent of a venue error callback: harmless vendor
// codes are suppressed entirely.
func (a *MockAdapter) Error(reqID int, code int, msg string) {
	if isHarmlessVenueCode(code) {
		return
	}
	a.writeLog(fmt.Sprintf("error [%d]: %s (reqid=%d)", code, msg, reqID), zap.ErrorLevel)
}

func (a *MockAdapter) writeLog(msg string, level zapcore.Level) {
	switch level {
	case zap.ErrorLevel:
		a.logger.Error(msg)
	case zap.WarnLevel:
		a.logger.Warn(msg)
	case zap.DebugLevel:
		a.logger.Debug(msg)
	default:
		a.logger.Info(msg)
	}
	a.publish(eventbus.NewLogEvent(gatewayName, level.String(), msg))
}

func (a *MockAdapter) publish(event eventbus.Event) {
	if a.bus != nil {
		a.bus.Put(event)
	}
}
