package eventbus

import (
	"github.com/dufanyin/optionrunner/internal/domain"
)

// OrderEvent carries an Order snapshot, published whenever the Gateway
// Adapter or Strategy Manager changes an order's lifecycle state.
type OrderEvent struct {
	Base
	Order domain.Order
}

// NewOrderEvent wraps order with a freshly stamped Base.
func NewOrderEvent(order domain.Order) OrderEvent {
	return OrderEvent{Base: NewBase(EventOrder), Order: order}
}

// TradeEvent carries one fill.
type TradeEvent struct {
	Base
	Trade domain.Trade
}

func NewTradeEvent(trade domain.Trade) TradeEvent {
	return TradeEvent{Base: NewBase(EventTrade), Trade: trade}
}

// ContractEvent announces a newly ingested Contract.
type ContractEvent struct {
	Base
	Contract domain.Contract
}

func NewContractEvent(c domain.Contract) ContractEvent {
	return ContractEvent{Base: NewBase(EventContract), Contract: c}
}

// LogEvent is a free-text log line surfaced on the bus for in-process
// subscribers such as the websocket broadcaster.
type LogEvent struct {
	Base
	Level string
	Msg   string
	Name  string
}

func NewLogEvent(name, level, msg string) LogEvent {
	return LogEvent{Base: NewBase(EventLog), Level: level, Msg: msg, Name: name}
}

// AccountEvent carries a gateway-reported account balance snapshot.
type AccountEvent struct {
	Base
	Account domain.AccountData
}

// NewAccountEvent wraps account with a freshly stamped Base.
func NewAccountEvent(account domain.AccountData) AccountEvent {
	return AccountEvent{Base: NewBase(EventAccount), Account: account}
}

// GatewayPositionEvent carries a venue-reported raw position line, used only
// for reconciliation against the Position Engine's own bookkeeping -- distinct
// from PositionEvent, which announces a StrategyHolding summary change.
type GatewayPositionEvent struct {
	Base
	Position domain.GatewayPosition
}

// NewGatewayPositionEvent wraps pos with a freshly stamped Base.
func NewGatewayPositionEvent(pos domain.GatewayPosition) GatewayPositionEvent {
	return GatewayPositionEvent{Base: NewBase(EventPosition), Position: pos}
}

// PositionEvent announces that a StrategyHolding's aggregate Summary changed,
// without embedding the Position Engine's own types here (avoids an import
// cycle; subscribers that need the full holding query the engine directly).
type PositionEvent struct {
	Base
	StrategyName string
}

func NewPositionEvent(strategyName string) PositionEvent {
	return PositionEvent{Base: NewBase(EventPosition), StrategyName: strategyName}
}

// OptionLogEvent is a log line scoped to one option chain/root, used by the
// Position/Hedge engines to report per-underlying diagnostics distinctly from
// the free-form LogEvent.
type OptionLogEvent struct {
	Base
	Root string
	Msg  string
}

func NewOptionLogEvent(root, msg string) OptionLogEvent {
	return OptionLogEvent{Base: NewBase(EventOptionLog), Root: root, Msg: msg}
}

// PortfolioLogEvent scopes a log line to one PortfolioSnapshot.
type PortfolioLogEvent struct {
	Base
	PortfolioName string
	Msg           string
}

func NewPortfolioLogEvent(portfolioName, msg string) PortfolioLogEvent {
	return PortfolioLogEvent{Base: NewBase(EventPortfolioLog), PortfolioName: portfolioName, Msg: msg}
}

// PortfolioStrategyEvent is the periodic strategy-holding broadcast consumed
// by the read-only HTTP/websocket surface.
type PortfolioStrategyEvent struct {
	Base
	StrategyName string
}

func NewPortfolioStrategyEvent(strategyName string) PortfolioStrategyEvent {
	return PortfolioStrategyEvent{Base: NewBase(EventPortfolioStrategy), StrategyName: strategyName}
}

// OptionNewPortfolioEvent announces a freshly discovered root/portfolio.
type OptionNewPortfolioEvent struct {
	Base
	PortfolioName string
}

func NewOptionNewPortfolioEvent(portfolioName string) OptionNewPortfolioEvent {
	return OptionNewPortfolioEvent{Base: NewBase(EventOptionNewPortfolio), PortfolioName: portfolioName}
}

// OptionRiskNoticeEvent flags a delta-band breach or hedge action taken by
// the Hedging Controller.
type OptionRiskNoticeEvent struct {
	Base
	StrategyName string
	Msg          string
}

func NewOptionRiskNoticeEvent(strategyName, msg string) OptionRiskNoticeEvent {
	return OptionRiskNoticeEvent{Base: NewBase(EventOptionRiskNotice), StrategyName: strategyName, Msg: msg}
}
