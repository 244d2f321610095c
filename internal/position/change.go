package position

import (
	"github.com/shopspring/decimal"

	"github.com/dufanyin/optionrunner/internal/domain"
)

func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
func round4(d decimal.Decimal) decimal.Decimal { return d.Round(4) }

// ApplyPositionChange is the cost/P&L state update shared by underlying and
// single-leg (standalone or in-combo) option positions. Combo parent
// positions use the narrower applyComboQuantityChange below instead.
func ApplyPositionChange(pos *domain.Position, trade domain.Trade) {
	signed := trade.SignedVolume()
	qty := signed.Abs()
	prevQty := pos.Quantity
	multiplier := decimal.NewFromInt(int64(pos.Multiplier))

	sameSignOrFresh := prevQty.IsZero() ||
		(prevQty.IsPositive() && signed.IsPositive()) ||
		(prevQty.IsNegative() && signed.IsNegative())

	if sameSignOrFresh {
		totalQty := prevQty.Abs().Add(qty)
		if prevQty.IsZero() {
			pos.AvgCost = round2(trade.Price)
		} else {
			pos.AvgCost = round2(pos.AvgCost.Mul(prevQty.Abs()).Add(trade.Price.Mul(qty)).Div(totalQty))
		}
		pos.Quantity = prevQty.Add(signed)
		pos.CostValue = round2(pos.AvgCost.Mul(pos.Quantity.Abs()).Mul(multiplier))
		return
	}

	// Opposite direction: a closing trade, possibly a reversal.
	closeQty := decimal.Min(prevQty.Abs(), qty)

	var pnl decimal.Decimal
	if prevQty.IsPositive() {
		pnl = round2(trade.Price.Sub(pos.AvgCost).Mul(closeQty))
	} else {
		pnl = round2(pos.AvgCost.Sub(trade.Price).Mul(closeQty))
	}
	pos.RealizedPnL = pos.RealizedPnL.Add(round2(pnl.Mul(multiplier)))

	newQty := prevQty.Abs().Sub(closeQty)
	if newQty.IsZero() {
		pos.Quantity = decimal.Zero
		pos.AvgCost = decimal.Zero
		pos.CostValue = decimal.Zero
	} else {
		sign := decimal.NewFromInt(1)
		if prevQty.IsNegative() {
			sign = decimal.NewFromInt(-1)
		}
		pos.Quantity = sign.Mul(newQty)
		pos.CostValue = round2(pos.AvgCost.Mul(pos.Quantity.Abs()).Mul(multiplier))
	}

	extra := qty.Sub(closeQty)
	if extra.IsPositive() {
		pos.AvgCost = round2(trade.Price)
		sign := decimal.NewFromInt(1)
		if signed.IsNegative() {
			sign = decimal.NewFromInt(-1)
		}
		pos.Quantity = sign.Mul(extra)
		pos.CostValue = round2(pos.AvgCost.Mul(pos.Quantity.Abs()).Mul(multiplier))
	}
}

// applyComboQuantityChange updates only the combo parent's own quantity and
// a cost_value derived from its current avg_cost. A combo's avg_cost is
// only ever (re)computed during UpdateMetrics from its legs, never directly
// from a trade on the combo symbol.
func applyComboQuantityChange(combo *domain.ComboPosition, trade domain.Trade) {
	signed := trade.SignedVolume()
	multiplier := decimal.NewFromInt(int64(combo.Multiplier))
	combo.Quantity = combo.Quantity.Add(signed)
	combo.CostValue = round2(combo.AvgCost.Mul(combo.Quantity.Abs()).Mul(multiplier))
}
