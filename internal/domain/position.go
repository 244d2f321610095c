package domain

import (
	"github.com/shopspring/decimal"
)

// Position is the shared shape of an underlying or single-leg option
// position: signed quantity, cost basis, realized P&L, and live greeks.
type Position struct {
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	AvgCost     decimal.Decimal `json:"avg_cost"`
	CostValue   decimal.Decimal `json:"cost_value"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	Multiplier  int             `json:"multiplier"`

	MidPrice decimal.Decimal `json:"mid_price"`
	Delta    decimal.Decimal `json:"delta"`
	Gamma    decimal.Decimal `json:"gamma"`
	Theta    decimal.Decimal `json:"theta"`
	Vega     decimal.Decimal `json:"vega"`
}

// CurrentValue is quantity · mid_price · multiplier.
func (p Position) CurrentValue() decimal.Decimal {
	return p.Quantity.Mul(p.MidPrice).Mul(decimal.NewFromInt(int64(p.Multiplier)))
}

// ClearFields zeroes non-realized fields when quantity has gone to zero,
// preserving RealizedPnL. It is a no-op when quantity is nonzero.
func (p *Position) ClearFields() {
	if !p.Quantity.IsZero() {
		return
	}
	p.AvgCost = decimal.Zero
	p.CostValue = decimal.Zero
	p.MidPrice = decimal.Zero
	p.Delta = decimal.Zero
	p.Gamma = decimal.Zero
	p.Theta = decimal.Zero
	p.Vega = decimal.Zero
}

// UnderlyingPosition is a Position in the root equity/index itself. Its
// theoretical delta is always the contract multiplier, since one share
// contributes delta=1 per unit of multiplier.
type UnderlyingPosition struct {
	Position
}

// TheoDelta returns the underlying's theoretical per-unit delta, equal to
// its multiplier (typically 1 for share-denominated underlyings).
func (u UnderlyingPosition) TheoDelta() decimal.Decimal {
	return decimal.NewFromInt(int64(u.Multiplier))
}

// OptionPosition is a standalone (non-combo) single-leg option position.
type OptionPosition struct {
	Position
	Right  OptionRight     `json:"right"`
	Strike decimal.Decimal `json:"strike"`
}

// ComboPosition aggregates a multi-leg order's child Positions under one
// synthetic symbol. Greeks and MidPrice are the sum of leg
// contributions (leg greek × leg signed quantity / combo quantity sign
// convention — computed by the Position Engine's metrics refresh, not
// stored independently here beyond the rolled-up totals).
type ComboPosition struct {
	Symbol      string          `json:"symbol"`
	ComboType   ComboType       `json:"combo_type"`
	Quantity    decimal.Decimal `json:"quantity"`
	AvgCost     decimal.Decimal `json:"avg_cost"`
	CostValue   decimal.Decimal `json:"cost_value"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	MidPrice    decimal.Decimal `json:"mid_price"`
	Multiplier  int             `json:"multiplier"`

	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`

	Legs []OptionPosition `json:"legs"`
}

// CurrentValue mirrors Position.CurrentValue: quantity · mid_price · multiplier.
func (c ComboPosition) CurrentValue() decimal.Decimal {
	return c.Quantity.Mul(c.MidPrice).Mul(decimal.NewFromInt(int64(c.Multiplier)))
}

// ClearFields zeroes the combo's own non-realized fields and recurses into
// every leg.
func (c *ComboPosition) ClearFields() {
	if c.Quantity.IsZero() {
		c.AvgCost = decimal.Zero
		c.CostValue = decimal.Zero
		c.MidPrice = decimal.Zero
		c.Delta = decimal.Zero
		c.Gamma = decimal.Zero
		c.Theta = decimal.Zero
		c.Vega = decimal.Zero
	}
	for i := range c.Legs {
		c.Legs[i].ClearFields()
	}
}

// Summary is the aggregated risk/P&L view across a StrategyHolding's
// children.
type Summary struct {
	CurrentValue decimal.Decimal `json:"current_value"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Unrealized   decimal.Decimal `json:"unrealized"`
	RealizedPnL  decimal.Decimal `json:"realized_pnl"`
	PnL          decimal.Decimal `json:"pnl"`

	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`
}

// StrategyHolding is the Position Engine's per-strategy aggregation: one
// underlying position, a map of standalone option positions, a map of combo
// positions, and a rolled-up Summary.
type StrategyHolding struct {
	StrategyName string `json:"strategy_name"`

	Underlying UnderlyingPosition         `json:"underlying"`
	Options    map[string]*OptionPosition `json:"options"`
	Combos     map[string]*ComboPosition  `json:"combos"`

	Summary Summary `json:"summary"`
}

// NewStrategyHolding builds an empty holding for a freshly created strategy.
func NewStrategyHolding(strategyName, underlyingSymbol string, multiplier int) *StrategyHolding {
	return &StrategyHolding{
		StrategyName: strategyName,
		Underlying: UnderlyingPosition{Position{
			Symbol:     underlyingSymbol,
			Quantity:   decimal.Zero,
			Multiplier: multiplier,
		}},
		Options: make(map[string]*OptionPosition),
		Combos:  make(map[string]*ComboPosition),
	}
}

// StrategyConfig is the persisted identity+setting for one strategy
// instance.
type StrategyConfig struct {
	ClassName     string                 `json:"class_name" yaml:"class_name"`
	PortfolioName string                 `json:"portfolio_name" yaml:"portfolio_name"`
	Setting       map[string]interface{} `json:"setting" yaml:"setting"`
}

// StrategyName derives the unique strategy identifier,
// `{class_name}_{portfolio_name}`.
func (c StrategyConfig) StrategyName() string {
	return c.ClassName + "_" + c.PortfolioName
}
