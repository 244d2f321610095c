package position

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dufanyin/optionrunner/internal/domain"
)

// SerializedPosition is the YAML-friendly, numeric-only shape of a
// Position, shared by the underlying and single-leg option fields of a
// SerializedHolding.
type SerializedPosition struct {
	Symbol      string          `yaml:"symbol"`
	Quantity    decimal.Decimal `yaml:"quantity"`
	AvgCost     decimal.Decimal `yaml:"avg_cost"`
	CostValue   decimal.Decimal `yaml:"cost_value"`
	RealizedPnL decimal.Decimal `yaml:"realized_pnl"`
	MidPrice    decimal.Decimal `yaml:"mid_price"`
	Delta       decimal.Decimal `yaml:"delta"`
	Gamma       decimal.Decimal `yaml:"gamma"`
	Theta       decimal.Decimal `yaml:"theta"`
	Vega        decimal.Decimal `yaml:"vega"`
}

func toSerialized(p domain.Position) SerializedPosition {
	return SerializedPosition{
		Symbol: p.Symbol, Quantity: p.Quantity, AvgCost: p.AvgCost, CostValue: p.CostValue,
		RealizedPnL: p.RealizedPnL, MidPrice: p.MidPrice, Delta: p.Delta, Gamma: p.Gamma, Theta: p.Theta, Vega: p.Vega,
	}
}

func fromSerialized(sp SerializedPosition) domain.Position {
	return domain.Position{
		Symbol: sp.Symbol, Quantity: sp.Quantity, AvgCost: sp.AvgCost, CostValue: sp.CostValue,
		RealizedPnL: sp.RealizedPnL, MidPrice: sp.MidPrice, Delta: sp.Delta, Gamma: sp.Gamma, Theta: sp.Theta, Vega: sp.Vega,
	}
}

// SerializedCombo is a ComboPosition's YAML-friendly shape, its own fields
// plus its legs. The combo type is stored by name for forward
// compatibility.
type SerializedCombo struct {
	SerializedPosition `yaml:",inline"`
	ComboType          string               `yaml:"combo_type"`
	Legs               []SerializedPosition `yaml:"legs"`
}

// SerializedSummary mirrors domain.Summary for YAML round-tripping.
type SerializedSummary struct {
	TotalCost    decimal.Decimal `yaml:"total_cost"`
	CurrentValue decimal.Decimal `yaml:"current_value"`
	Unrealized   decimal.Decimal `yaml:"unrealized_pnl"`
	RealizedPnL  decimal.Decimal `yaml:"realized_pnl"`
	PnL          decimal.Decimal `yaml:"pnl"`
	Delta        decimal.Decimal `yaml:"delta"`
	Gamma        decimal.Decimal `yaml:"gamma"`
	Theta        decimal.Decimal `yaml:"theta"`
	Vega         decimal.Decimal `yaml:"vega"`
}

// SerializedHolding is the root YAML document persisted for one strategy.
type SerializedHolding struct {
	Underlying SerializedPosition   `yaml:"underlying"`
	Options    []SerializedPosition `yaml:"options"`
	Combos     []SerializedCombo    `yaml:"combos"`
	Summary    SerializedSummary    `yaml:"summary"`
}

// SerializeHolding builds the persisted snapshot for strategyName.
func (e *Engine) SerializeHolding(strategyName string) (SerializedHolding, error) {
	holding, ok := e.GetHolding(strategyName)
	if !ok {
		return SerializedHolding{}, fmt.Errorf("position: no holding for strategy %q", strategyName)
	}

	out := SerializedHolding{
		Underlying: toSerialized(holding.Underlying.Position),
		Summary: SerializedSummary{
			TotalCost: holding.Summary.TotalCost, CurrentValue: holding.Summary.CurrentValue,
			Unrealized: holding.Summary.Unrealized, RealizedPnL: holding.Summary.RealizedPnL, PnL: holding.Summary.PnL,
			Delta: holding.Summary.Delta, Gamma: holding.Summary.Gamma, Theta: holding.Summary.Theta, Vega: holding.Summary.Vega,
		},
	}
	for _, opt := range holding.Options {
		out.Options = append(out.Options, toSerialized(opt.Position))
	}
	for _, c := range holding.Combos {
		sc := SerializedCombo{
			SerializedPosition: SerializedPosition{
				Symbol: c.Symbol, Quantity: c.Quantity, AvgCost: c.AvgCost, CostValue: c.CostValue,
				RealizedPnL: c.RealizedPnL, MidPrice: c.MidPrice, Delta: c.Delta, Gamma: c.Gamma, Theta: c.Theta, Vega: c.Vega,
			},
			ComboType: string(c.ComboType),
		}
		for _, leg := range c.Legs {
			sc.Legs = append(sc.Legs, toSerialized(leg.Position))
		}
		out.Combos = append(out.Combos, sc)
	}
	return out, nil
}

// LoadSerializedHolding reconstructs strategyName's holding from data,
// overwriting whatever (if anything) was already in memory for it.
func (e *Engine) LoadSerializedHolding(strategyName string, data SerializedHolding) {
	e.hmu.Lock()
	holding, ok := e.holdings[strategyName]
	if !ok {
		holding = &domain.StrategyHolding{
			StrategyName: strategyName,
			Options:      make(map[string]*domain.OptionPosition),
			Combos:       make(map[string]*domain.ComboPosition),
		}
		e.holdings[strategyName] = holding
	}
	e.hmu.Unlock()

	holding.Underlying = domain.UnderlyingPosition{Position: fromSerialized(data.Underlying)}
	// When an underlying contract was never ingested for this symbol, shares
	// default to a multiplier of 1.
	holding.Underlying.Multiplier = 1
	if e.store != nil {
		if c, found := e.store.Contract(holding.Underlying.Symbol); found && c.Multiplier > 0 {
			holding.Underlying.Multiplier = c.Multiplier
		}
	}

	holding.Options = make(map[string]*domain.OptionPosition)
	for _, sp := range data.Options {
		pos := fromSerialized(sp)
		pos.Multiplier = e.multiplierFor(sp.Symbol)
		holding.Options[sp.Symbol] = &domain.OptionPosition{Position: pos}
	}

	holding.Combos = make(map[string]*domain.ComboPosition)
	for _, sc := range data.Combos {
		c := &domain.ComboPosition{
			Symbol: sc.Symbol, ComboType: domain.ComboType(sc.ComboType), Quantity: sc.Quantity,
			AvgCost: sc.AvgCost, CostValue: sc.CostValue, RealizedPnL: sc.RealizedPnL, MidPrice: sc.MidPrice,
			Delta: sc.Delta, Gamma: sc.Gamma, Theta: sc.Theta, Vega: sc.Vega,
			Multiplier: defaultOptionMultiplier,
		}
		for _, leg := range sc.Legs {
			legPos := fromSerialized(leg)
			legPos.Multiplier = e.multiplierFor(leg.Symbol)
			c.Legs = append(c.Legs, domain.OptionPosition{Position: legPos})
		}
		holding.Combos[sc.Symbol] = c
	}

	holding.Summary = domain.Summary{
		TotalCost: data.Summary.TotalCost, CurrentValue: data.Summary.CurrentValue,
		Unrealized: data.Summary.Unrealized, RealizedPnL: data.Summary.RealizedPnL, PnL: data.Summary.PnL,
		Delta: data.Summary.Delta, Gamma: data.Summary.Gamma, Theta: data.Summary.Theta, Vega: data.Summary.Vega,
	}
}
