package position

import (
	"github.com/shopspring/decimal"

	"github.com/dufanyin/optionrunner/internal/domain"
	"github.com/dufanyin/optionrunner/internal/portfolio"
)

// totals accumulates the per-child contributions folded into a holding's
// Summary.
type totals struct {
	cv, tc, rlz, delta, gamma, theta, vega decimal.Decimal
}

func (t *totals) add(m totals) {
	t.cv = t.cv.Add(m.cv)
	t.tc = t.tc.Add(m.tc)
	t.rlz = t.rlz.Add(m.rlz)
	t.delta = t.delta.Add(m.delta)
	t.gamma = t.gamma.Add(m.gamma)
	t.theta = t.theta.Add(m.theta)
	t.vega = t.vega.Add(m.vega)
}

// UpdateMetrics recomputes strategyName's Summary from its children's
// live snapshots, then clears zero-quantity legs.
func (e *Engine) UpdateMetrics(strategyName string) {
	holding, ok := e.GetHolding(strategyName)
	if !ok {
		return
	}

	pf, ok := e.store.Portfolio(portfolioNameFor(strategyName))
	if !ok {
		return
	}

	var grand totals

	for _, opt := range holding.Options {
		grand.add(accumulateOptionLike(&opt.Position, pf.Options[opt.Symbol]))
	}

	u := &holding.Underlying
	if !u.Quantity.IsZero() || !u.RealizedPnL.IsZero() {
		grand.add(accumulateUnderlying(u, pf.Underlying))
	}

	for _, combo := range holding.Combos {
		grand.add(accumulateCombo(combo, pf))
	}

	unreal := grand.cv.Sub(grand.tc)
	s := &holding.Summary
	s.CurrentValue = round2(grand.cv)
	s.TotalCost = round2(grand.tc)
	s.Unrealized = round2(unreal)
	s.RealizedPnL = round2(grand.rlz)
	s.PnL = round2(unreal.Add(grand.rlz))
	s.Delta = round4(grand.delta)
	s.Gamma = round4(grand.gamma)
	s.Theta = round4(grand.theta)
	s.Vega = round4(grand.vega)

	for _, opt := range holding.Options {
		opt.ClearFields()
	}
	holding.Underlying.ClearFields()
	for _, combo := range holding.Combos {
		combo.ClearFields()
	}
}

// accumulateOptionLike refreshes pos's live fields from snap (if present)
// and returns its contribution to the holding totals.
func accumulateOptionLike(pos *domain.Position, snap *portfolio.OptionSnapshot) totals {
	if snap != nil {
		pos.MidPrice = round2(snap.MidPrice)
		pos.Delta = round4(snap.Delta)
		pos.Gamma = round4(snap.Gamma)
		pos.Theta = round4(snap.Theta)
		pos.Vega = round4(snap.Vega)
	}
	return totals{
		cv:    round2(pos.CurrentValue()),
		tc:    round2(pos.CostValue),
		rlz:   round2(pos.RealizedPnL),
		delta: round4(pos.Quantity.Mul(pos.Delta)),
		gamma: round4(pos.Quantity.Mul(pos.Gamma)),
		theta: round4(pos.Quantity.Mul(pos.Theta)),
		vega:  round4(pos.Quantity.Mul(pos.Vega)),
	}
}

// accumulateUnderlying mirrors accumulateOptionLike for the underlying
// position, with its delta forced to theo_delta (the contract multiplier)
// rather than copied from a market snapshot: one share contributes exactly
// its multiplier worth of delta per unit.
func accumulateUnderlying(pos *domain.UnderlyingPosition, snap *portfolio.UnderlyingSnapshot) totals {
	if snap != nil {
		pos.MidPrice = round2(snap.MidPrice)
	}
	pos.Delta = pos.TheoDelta()
	pos.Gamma = decimal.Zero
	pos.Theta = decimal.Zero
	pos.Vega = decimal.Zero
	return totals{
		cv:    round2(pos.CurrentValue()),
		tc:    round2(pos.CostValue),
		rlz:   round2(pos.RealizedPnL),
		delta: round4(pos.Quantity.Mul(pos.Delta)),
	}
}

// accumulateCombo rebuilds combo's own cost/P&L/greek fields entirely from
// its legs.
func accumulateCombo(combo *domain.ComboPosition, pf *portfolio.PortfolioSnapshot) totals {
	combo.Delta = decimal.Zero
	combo.Gamma = decimal.Zero
	combo.Theta = decimal.Zero
	combo.Vega = decimal.Zero
	combo.CostValue = decimal.Zero
	combo.RealizedPnL = decimal.Zero

	currentValue := decimal.Zero
	for i := range combo.Legs {
		leg := &combo.Legs[i]
		var snap *portfolio.OptionSnapshot
		if pf != nil {
			snap = pf.Options[leg.Symbol]
		}
		m := accumulateOptionLike(&leg.Position, snap)
		currentValue = currentValue.Add(m.cv)
		combo.CostValue = combo.CostValue.Add(m.tc)
		combo.RealizedPnL = combo.RealizedPnL.Add(m.rlz)
		combo.Delta = combo.Delta.Add(m.delta)
		combo.Gamma = combo.Gamma.Add(m.gamma)
		combo.Theta = combo.Theta.Add(m.theta)
		combo.Vega = combo.Vega.Add(m.vega)
	}

	if !combo.Quantity.IsZero() {
		denom := combo.Quantity.Abs().Mul(decimal.NewFromInt(int64(combo.Multiplier)))
		if !denom.IsZero() {
			combo.MidPrice = round2(currentValue.Div(denom))
			if combo.CostValue.IsPositive() {
				combo.AvgCost = round2(combo.CostValue.Div(denom))
			}
		}
	}

	return totals{
		cv:    round2(currentValue),
		tc:    round2(combo.CostValue),
		rlz:   round2(combo.RealizedPnL),
		delta: round4(combo.Delta),
		gamma: round4(combo.Gamma),
		theta: round4(combo.Theta),
		vega:  round4(combo.Vega),
	}
}
