package combo

import (
	"testing"

	"github.com/dufanyin/optionrunner/internal/domain"
)

func input(symbol, expiry string, right domain.OptionRight, strike string) Input {
	return Input{Symbol: symbol, Expiry: expiry, Right: right, Strike: strike}
}

func condorInputs() map[string]Input {
	return map[string]Input{
		"put_lower":  input("SPY-20251024-P-440-100-USD-OPT", "20251024", domain.OptionPut, "440"),
		"put_upper":  input("SPY-20251024-P-445-100-USD-OPT", "20251024", domain.OptionPut, "445"),
		"call_lower": input("SPY-20251024-C-455-100-USD-OPT", "20251024", domain.OptionCall, "455"),
		"call_upper": input("SPY-20251024-C-460-100-USD-OPT", "20251024", domain.OptionCall, "460"),
	}
}

func TestIronCondorShortIntentSigns(t *testing.T) {
	legs, _, err := Build(domain.ComboIronCondor, condorInputs(), domain.DirectionShort, 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	want := []domain.Direction{
		domain.DirectionLong,  // put_lower
		domain.DirectionShort, // put_upper
		domain.DirectionShort, // call_lower
		domain.DirectionLong,  // call_upper
	}
	if len(legs) != len(want) {
		t.Fatalf("got %d legs, want %d", len(legs), len(want))
	}
	for i, leg := range legs {
		if leg.Direction != want[i] {
			t.Errorf("leg %d (%s): direction = %s, want %s", i, leg.Symbol, leg.Direction, want[i])
		}
	}
}

func TestIronCondorLongIntentInverts(t *testing.T) {
	shortLegs, _, err := Build(domain.ComboIronCondor, condorInputs(), domain.DirectionShort, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	longLegs, _, err := Build(domain.ComboIronCondor, condorInputs(), domain.DirectionLong, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range shortLegs {
		if longLegs[i].Direction != shortLegs[i].Direction.Opposite() {
			t.Errorf("leg %d: long intent %s should invert short intent %s",
				i, longLegs[i].Direction, shortLegs[i].Direction)
		}
	}
}

func TestStraddleSignatureIndependentOfInputNaming(t *testing.T) {
	call := input("SPY-20251024-C-450-100-USD-OPT", "20251024", domain.OptionCall, "450")
	put := input("SPY-20251024-P-450-100-USD-OPT", "20251024", domain.OptionPut, "450")

	_, sigStraddle, err := Build(domain.ComboStraddle, map[string]Input{"call": call, "put": put}, domain.DirectionLong, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, sigCustom, err := Build(domain.ComboCustom, map[string]Input{"b": put, "a": call}, domain.DirectionShort, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if sigStraddle != sigCustom {
		t.Fatalf("signatures differ across shapes/orderings: %q vs %q", sigStraddle, sigCustom)
	}
}

func TestRatioSpreadDefaultRatio(t *testing.T) {
	inputs := map[string]Input{
		"long_leg":  input("SPY-20251024-C-450-100-USD-OPT", "20251024", domain.OptionCall, "450"),
		"short_leg": input("SPY-20251024-C-455-100-USD-OPT", "20251024", domain.OptionCall, "455"),
	}

	legs, _, err := Build(domain.ComboRatioSpread, inputs, domain.DirectionLong, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if legs[0].Ratio != 3 {
		t.Errorf("long leg ratio = %d, want 3", legs[0].Ratio)
	}
	if legs[1].Ratio != 6 {
		t.Errorf("short leg ratio = %d, want 6 (default 1:2)", legs[1].Ratio)
	}

	legs, _, err = Build(domain.ComboRatioSpread, inputs, domain.DirectionLong, 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	if legs[1].Ratio != 4 {
		t.Errorf("short leg ratio = %d, want 4", legs[1].Ratio)
	}
}

func TestCustomAppliesUniformDirection(t *testing.T) {
	legs, _, err := Build(domain.ComboCustom, condorInputs(), domain.DirectionShort, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, leg := range legs {
		if leg.Direction != domain.DirectionShort {
			t.Errorf("leg %s: direction = %s, want SHORT", leg.Symbol, leg.Direction)
		}
		if leg.Ratio != 2 {
			t.Errorf("leg %s: ratio = %d, want 2", leg.Symbol, leg.Ratio)
		}
	}
}

func TestMissingLegReported(t *testing.T) {
	_, _, err := Build(domain.ComboStraddle, map[string]Input{
		"call": input("SPY-20251024-C-450-100-USD-OPT", "20251024", domain.OptionCall, "450"),
	}, domain.DirectionLong, 1, 0)
	if err == nil {
		t.Fatal("expected error for missing put leg")
	}
}

func TestUnsupportedComboType(t *testing.T) {
	if _, _, err := Build(domain.ComboType("WEIRD"), nil, domain.DirectionLong, 1, 0); err == nil {
		t.Fatal("expected error for unsupported combo type")
	}
}
