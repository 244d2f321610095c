package domain

import "github.com/shopspring/decimal"

// AccountData is a gateway-reported balance snapshot for one account.
type AccountData struct {
	AccountID       string          `json:"accountid"`
	Balance         decimal.Decimal `json:"balance"`
	Frozen          decimal.Decimal `json:"frozen"`
	Margin          decimal.Decimal `json:"margin"`
	PositionProfit  decimal.Decimal `json:"position_profit"`
}

// Available is balance minus frozen.
func (a AccountData) Available() decimal.Decimal {
	return a.Balance.Sub(a.Frozen)
}

// GatewayPosition is a venue-reported raw position line, distinct from the
// Position Engine's per-strategy StrategyHolding: this is what `query_position`
// returns, used only for reconciliation against the engine's own bookkeeping.
type GatewayPosition struct {
	Symbol    string          `json:"symbol"`
	Exchange  Exchange        `json:"exchange"`
	Direction Direction       `json:"direction"`
	Volume    decimal.Decimal `json:"volume"`
	Price     decimal.Decimal `json:"price"`
	PnL       decimal.Decimal `json:"pnl"`
}
