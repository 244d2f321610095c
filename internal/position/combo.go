package position

import (
	"github.com/dufanyin/optionrunner/internal/domain"
)

// getOrCreateComboPosition returns the existing combo matching symbol,
// falling back to a normalized-symbol match, or creates a fresh one seeded
// from the order's legs metadata.
func (e *Engine) getOrCreateComboPosition(holding *domain.StrategyHolding, symbol string, comboType domain.ComboType, legs []domain.Leg) *domain.ComboPosition {
	if combo, ok := holding.Combos[symbol]; ok {
		return combo
	}

	normalized := domain.NormalizeComboSymbol(symbol)
	for existingSymbol, existing := range holding.Combos {
		if domain.NormalizeComboSymbol(existingSymbol) == normalized {
			return existing
		}
	}

	combo := &domain.ComboPosition{
		Symbol:     symbol,
		ComboType:  comboType,
		Multiplier: defaultOptionMultiplier,
	}
	for _, leg := range legs {
		combo.Legs = append(combo.Legs, domain.OptionPosition{
			Position: domain.Position{Symbol: leg.Symbol, Multiplier: e.multiplierFor(leg.Symbol)},
		})
	}
	holding.Combos[symbol] = combo
	return combo
}

// getOrCreateLegPosition returns the leg inside combo matching symbol,
// appending a fresh one if the order's legs metadata did not already
// include it.
func (e *Engine) getOrCreateLegPosition(combo *domain.ComboPosition, symbol string) *domain.OptionPosition {
	for i := range combo.Legs {
		if combo.Legs[i].Symbol == symbol {
			return &combo.Legs[i]
		}
	}
	combo.Legs = append(combo.Legs, domain.OptionPosition{
		Position: domain.Position{Symbol: symbol, Multiplier: e.multiplierFor(symbol)},
	})
	return &combo.Legs[len(combo.Legs)-1]
}
