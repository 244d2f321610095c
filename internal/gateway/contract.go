package gateway

import (
	"fmt"
	"strings"

	"github.com/dufanyin/optionrunner/internal/domain"
)

// venueContract is the mock adapter's equivalent of an IB Contract/BAG: the
// shape sent to the venue when originating an order. It exists so combo-vs-
// single construction is exercised even though this adapter never opens a
// real socket.
type venueContract struct {
	Root     string
	IsCombo  bool
	Symbol   string          // single-leg only
	ComboLegs []venueComboLeg // combo only
}

type venueComboLeg struct {
	Symbol string
	Ratio  int
	Action string // "BUY" or "SELL"
}

// rootOf recovers the underlying root ticker from any symbol this core
// mints, falling back to the text before the first "-" or "_".
func rootOf(symbol string) string {
	if fields, err := domain.ParseOptionSymbol(symbol); err == nil {
		return fields.Root
	}
	if fields, err := domain.ParseUnderlyingSymbol(symbol); err == nil {
		return fields.Root
	}
	if i := strings.IndexAny(symbol, "-_"); i >= 0 {
		return symbol[:i]
	}
	return symbol
}

// generateSingleContract builds a single-leg venue contract for symbol.
func generateSingleContract(symbol string) (venueContract, error) {
	if symbol == "" {
		return venueContract{}, fmt.Errorf("gateway: empty symbol")
	}
	return venueContract{Root: rootOf(symbol), Symbol: symbol}, nil
}

// generateComboContract builds a BAG-style venue contract from legs. Per-leg
// direction is encoded on each ComboLeg; the contract itself carries no
// overall action.
func generateComboContract(legs []domain.Leg) (venueContract, error) {
	if len(legs) == 0 {
		return venueContract{}, fmt.Errorf("gateway: combo order requires legs")
	}
	vc := venueContract{IsCombo: true}
	for _, leg := range legs {
		if vc.Root == "" {
			vc.Root = rootOf(leg.Symbol)
		}
		action := directionCoreToVenue[domain.DirectionLong]
		if leg.Direction == domain.DirectionShort {
			action = directionCoreToVenue[domain.DirectionShort]
		}
		ratio := leg.Ratio
		if ratio < 0 {
			ratio = -ratio
		}
		vc.ComboLegs = append(vc.ComboLegs, venueComboLeg{Symbol: leg.Symbol, Ratio: ratio, Action: action})
	}
	return vc, nil
}

// buildVenueOrder dispatches to the single- or multi-leg contract builder
// according to req.IsCombo, mirroring send_order's contract-generation step.
func buildVenueOrder(req domain.OrderRequest) (venueContract, error) {
	if req.IsCombo {
		return generateComboContract(req.Legs)
	}
	return generateSingleContract(req.Symbol)
}
