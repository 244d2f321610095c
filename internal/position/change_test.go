package position

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dufanyin/optionrunner/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fill(direction domain.Direction, volume, price string) domain.Trade {
	return domain.Trade{
		Direction: direction,
		Volume:    dec(volume),
		Price:     dec(price),
	}
}

func checkPos(t *testing.T, pos domain.Position, quantity, avgCost, costValue, realized string) {
	t.Helper()
	if !pos.Quantity.Equal(dec(quantity)) {
		t.Errorf("quantity = %s, want %s", pos.Quantity, quantity)
	}
	if !pos.AvgCost.Equal(dec(avgCost)) {
		t.Errorf("avg_cost = %s, want %s", pos.AvgCost, avgCost)
	}
	if !pos.CostValue.Equal(dec(costValue)) {
		t.Errorf("cost_value = %s, want %s", pos.CostValue, costValue)
	}
	if !pos.RealizedPnL.Equal(dec(realized)) {
		t.Errorf("realized_pnl = %s, want %s", pos.RealizedPnL, realized)
	}
}

func TestFreshOpenSetsAvgCost(t *testing.T) {
	pos := domain.Position{Multiplier: 100}
	ApplyPositionChange(&pos, fill(domain.DirectionLong, "2", "3.25"))
	checkPos(t, pos, "2", "3.25", "650", "0")
}

func TestSameSignAveraging(t *testing.T) {
	pos := domain.Position{Multiplier: 100}
	ApplyPositionChange(&pos, fill(domain.DirectionLong, "1", "2.00"))
	ApplyPositionChange(&pos, fill(domain.DirectionLong, "3", "3.00"))
	// (2.00·1 + 3.00·3) / 4 = 2.75
	checkPos(t, pos, "4", "2.75", "1100", "0")
}

func TestShortSideAveraging(t *testing.T) {
	pos := domain.Position{Multiplier: 1}
	ApplyPositionChange(&pos, fill(domain.DirectionShort, "5", "10"))
	ApplyPositionChange(&pos, fill(domain.DirectionShort, "5", "12"))
	checkPos(t, pos, "-10", "11", "110", "0")
}

func TestPartialCloseRealizesPnl(t *testing.T) {
	pos := domain.Position{Multiplier: 100}
	ApplyPositionChange(&pos, fill(domain.DirectionLong, "4", "2.00"))
	ApplyPositionChange(&pos, fill(domain.DirectionShort, "1", "2.50"))
	// (2.50 − 2.00)·1·100 = 50; avg cost kept for the remainder.
	checkPos(t, pos, "3", "2", "600", "50")
}

func TestFullCloseClearsCostButKeepsRealized(t *testing.T) {
	pos := domain.Position{Multiplier: 100}
	ApplyPositionChange(&pos, fill(domain.DirectionLong, "2", "2.00"))
	ApplyPositionChange(&pos, fill(domain.DirectionShort, "2", "1.70"))
	checkPos(t, pos, "0", "0", "0", "-60")
}

func TestShortCloseSign(t *testing.T) {
	pos := domain.Position{Multiplier: 1}
	ApplyPositionChange(&pos, fill(domain.DirectionShort, "10", "50"))
	ApplyPositionChange(&pos, fill(domain.DirectionLong, "10", "45"))
	// (50 − 45)·10 = +50 for a short position bought back lower.
	checkPos(t, pos, "0", "0", "0", "50")
}

func TestReversalInSingleFill(t *testing.T) {
	// Underlying long 5 @ 100, one SHORT 8 @ 110 fill: +50 realized, then
	// a fresh short 3 @ 110.
	pos := domain.Position{Multiplier: 1}
	ApplyPositionChange(&pos, fill(domain.DirectionLong, "5", "100"))
	ApplyPositionChange(&pos, fill(domain.DirectionShort, "8", "110"))
	checkPos(t, pos, "-3", "110", "330", "50")
}

func TestCostValueInvariant(t *testing.T) {
	pos := domain.Position{Multiplier: 100}
	fills := []domain.Trade{
		fill(domain.DirectionLong, "3", "1.87"),
		fill(domain.DirectionLong, "2", "2.13"),
		fill(domain.DirectionShort, "4", "2.05"),
		fill(domain.DirectionShort, "3", "1.99"),
		fill(domain.DirectionLong, "1", "2.20"),
	}
	for _, tr := range fills {
		ApplyPositionChange(&pos, tr)
		if pos.Quantity.IsZero() {
			if !pos.AvgCost.IsZero() || !pos.CostValue.IsZero() {
				t.Fatalf("zero quantity but avg_cost=%s cost_value=%s", pos.AvgCost, pos.CostValue)
			}
			continue
		}
		want := pos.AvgCost.Mul(pos.Quantity.Abs()).Mul(decimal.NewFromInt(100))
		if pos.CostValue.Sub(want).Abs().GreaterThanOrEqual(dec("0.01")) {
			t.Fatalf("cost_value=%s, want %s within 0.01", pos.CostValue, want)
		}
	}
}

func TestPnlConservationOpenClosePairs(t *testing.T) {
	// Matched open/close pairs at known prices: total realized must equal
	// the sum over matches of (close − open)·qty·multiplier.
	pos := domain.Position{Multiplier: 10}
	ApplyPositionChange(&pos, fill(domain.DirectionLong, "2", "5.00"))  // open 2 @ 5
	ApplyPositionChange(&pos, fill(domain.DirectionLong, "2", "6.00"))  // open 2 @ 6, avg 5.5
	ApplyPositionChange(&pos, fill(domain.DirectionShort, "4", "7.00")) // close all @ 7

	// (7 − 5.5)·4·10 = 60
	checkPos(t, pos, "0", "0", "0", "60")
}
